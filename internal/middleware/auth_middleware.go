package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

const userIDKey = "userID"

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.Unauthenticated("отсутствует заголовок Authorization")
		}

		// Проверяем Bearer токен
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.Unauthenticated("неверный формат заголовка Authorization")
		}

		userID, err := jwtService.ExtractUserID(parts[1])
		if err != nil {
			log.WithError(err).Debug("Отклонен токен доступа")
			return apperrors.Unauthenticated("недействительный или просроченный токен")
		}

		// Добавляем userID в контекст
		c.Locals(userIDKey, userID)

		return c.Next()
	}
}

// CallerID возвращает id аутентифицированного пользователя или 0
func CallerID(c fiber.Ctx) int64 {
	if id, ok := c.Locals(userIDKey).(int64); ok {
		return id
	}
	return 0
}
