package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

// ParamID читает положительный числовой id из параметра маршрута
func ParamID(c fiber.Ctx, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(key + ": неверный формат ID")
	}
	return id, nil
}

// QueryID читает необязательный числовой id из строки запроса. Отсутствие дает 0.
func QueryID(c fiber.Ctx, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(key + ": неверный формат ID")
	}
	return id, nil
}
