package upload

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты загрузки изображений
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	// Загрузки требуют авторизации
	api.Post("/uploads/images", h.UploadImage, authMiddleware)
	api.Get("/upload/params", h.GenerateUploadParams, authMiddleware)
}
