package identity

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes регистрирует маршруты авторизации и профилей.
// loginLimiter ограничивает частоту попыток входа с одного IP.
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware, loginLimiter fiber.Handler) {
	// Middleware передаются после обработчика и выполняются перед ним
	auth := app.Group("/api/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login, loginLimiter)

	users := app.Group("/api/users")
	// /me регистрируется раньше /:id
	users.Get("/me", h.Me, authMiddleware)
	users.Get("/:id", h.GetUser)
	users.Put("/:id", h.UpdateUser, authMiddleware)
}
