package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

// ErrorHandler превращает ошибку обработчика в ответ {error, message}.
// Детали внутренних ошибок пишутся в лог и не уходят клиенту.
func ErrorHandler(c fiber.Ctx, err error) error {
	appErr := toAppError(err)

	if appErr.Code == apperrors.CodeInternal {
		log.WithFields(log.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		}).WithError(err).Error("Внутренняя ошибка при обработке запроса")
	}

	return c.Status(appErr.Status()).JSON(fiber.Map{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

// StatusOf возвращает HTTP-статус, который получит клиент для ошибки
func StatusOf(err error) int {
	return toAppError(err).Status()
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	// Ошибки самого Fiber: 404 маршрута, 405, слишком большое тело и т.п.
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &apperrors.AppError{Code: codeForStatus(fe.Code), Message: fe.Message}
	}

	internal, _ := apperrors.As(apperrors.Internal(err))
	return internal
}

func codeForStatus(status int) apperrors.Code {
	switch {
	case status == fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case status == fiber.StatusUnauthorized:
		return apperrors.CodeUnauthenticated
	case status == fiber.StatusForbidden:
		return apperrors.CodeAuthorization
	case status == fiber.StatusConflict:
		return apperrors.CodeConflict
	case status == fiber.StatusTooManyRequests:
		return apperrors.CodeRateLimited
	case status >= 400 && status < 500:
		return apperrors.CodeValidation
	default:
		return apperrors.CodeInternal
	}
}
