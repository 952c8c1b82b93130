package catalog

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API вещей
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/items")

	// Публичные маршруты
	api.Get("/", h.ListItems)
	api.Get("/:id", h.GetItem)

	// Защищенные маршруты. В fiber v3 middleware передаются после обработчика
	// и выполняются раньше него.
	api.Post("/", h.CreateItem, authMiddleware)
	api.Put("/:id", h.UpdateItem, authMiddleware)
	api.Delete("/:id", h.DeleteItem, authMiddleware)
}
