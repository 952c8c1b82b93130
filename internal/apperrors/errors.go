// Package apperrors описывает ошибки, которые сервисы возвращают наружу.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

// Code – машиночитаемый код ошибки, уходит клиенту в поле "error"
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeAuthorization     Code = "AUTHORIZATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL"
)

// AppError – ошибка с кодом, сообщением для клиента и исходной причиной
type AppError struct {
	Code    Code   `json:"error"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Status возвращает HTTP-статус для кода ошибки
func (e *AppError) Status() int {
	return HTTPStatus(e.Code)
}

// HTTPStatus сопоставляет код ошибки и HTTP-статус
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeAuthorization:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeConflict, CodeInvalidTransition:
		return fiber.StatusConflict
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// New создает ошибку с кодом
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

// Wrap создает ошибку с кодом и причиной
func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error        { return New(CodeValidation, msg) }
func Unauthenticated(msg string) error   { return New(CodeUnauthenticated, msg) }
func Authorization(msg string) error     { return New(CodeAuthorization, msg) }
func NotFound(msg string) error          { return New(CodeNotFound, msg) }
func Conflict(msg string) error          { return New(CodeConflict, msg) }
func InvalidTransition(msg string) error { return New(CodeInvalidTransition, msg) }
func RateLimited(msg string) error       { return New(CodeRateLimited, msg) }

// Internal оборачивает непредвиденную ошибку хранилища. Причина не уходит клиенту.
func Internal(cause error) error {
	return Wrap(CodeInternal, "внутренняя ошибка сервера", cause)
}

// As извлекает AppError из цепочки ошибок
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf возвращает код ошибки или CodeInternal для чужих ошибок
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// Is сообщает, что ошибка несет указанный код
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// FromStorage переводит ошибки хранилища в ошибки API.
// notFoundMsg используется для storage.ErrNotFound.
func FromStorage(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Wrap(CodeNotFound, notFoundMsg, err)
	case errors.Is(err, storage.ErrDuplicate):
		return Wrap(CodeConflict, "запись уже существует", err)
	case errors.Is(err, storage.ErrConflict):
		return Wrap(CodeConflict, "данные изменились параллельным запросом, повторите попытку", err)
	}
	return Internal(err)
}
