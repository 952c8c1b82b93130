package identity

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/db"
	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

// Handler – HTTP-обработчики регистрации, входа и профилей
type Handler struct {
	svc        *IdentityService
	jwtService *utils.JWTService
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(svc *IdentityService, jwtService *utils.JWTService) *Handler {
	return &Handler{svc: svc, jwtService: jwtService}
}

// Register создает пользователя и сразу выдает токен
func (h *Handler) Register(c fiber.Ctx) error {
	var in RegisterInput
	if err := c.Bind().Body(&in); err != nil {
		return apperrors.Validation("неверный формат данных")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := h.svc.Register(ctx, in)
	if err != nil {
		return err
	}

	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		return apperrors.Internal(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Login проверяет email и пароль и выдает JWT
func (h *Handler) Login(c fiber.Ctx) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		return apperrors.Validation("неверный формат данных")
	}
	if payload.Email == "" || payload.Password == "" {
		return apperrors.Validation("email и пароль обязательны")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	userID, ok, err := h.svc.VerifyCredentials(ctx, payload.Email, payload.Password)
	if err != nil {
		metrics.RecordLogin("error")
		return err
	}
	if !ok {
		metrics.RecordLogin("invalid")
		return apperrors.Unauthenticated("неверный email или пароль")
	}

	user, err := h.svc.FindByID(ctx, userID)
	if err != nil {
		metrics.RecordLogin("error")
		return err
	}

	token, err := h.jwtService.GenerateToken(userID)
	if err != nil {
		metrics.RecordLogin("error")
		return apperrors.Internal(err)
	}
	metrics.RecordLogin("success")

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me возвращает профиль текущего пользователя
func (h *Handler) Me(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	profile, err := h.svc.Profile(ctx, middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// GetUser возвращает публичный профиль пользователя со статистикой
func (h *Handler) GetUser(c fiber.Ctx) error {
	userID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	profile, err := h.svc.PublicProfile(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// UpdateUser обновляет собственный профиль
func (h *Handler) UpdateUser(c fiber.Ctx) error {
	userID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	var in UpdateProfileInput
	if err := c.Bind().Body(&in); err != nil {
		return apperrors.Validation("неверный формат данных")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := h.svc.UpdateProfile(ctx, middleware.CallerID(c), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
