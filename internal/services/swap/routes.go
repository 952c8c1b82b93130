package swap

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API обменов
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	// Все маршруты обменов требуют авторизации
	api := app.Group("/api/swaps", authMiddleware)

	api.Post("/", h.CreateSwap)
	api.Get("/", h.ListSwaps)
	api.Get("/:id", h.GetSwap)

	api.Post("/:id/accept", h.AcceptSwap)
	api.Post("/:id/reject", h.RejectSwap)
	api.Post("/:id/cancel", h.CancelSwap)
	api.Post("/:id/complete", h.CompleteSwap)
	api.Put("/:id/status", h.UpdateSwapStatus)
}
