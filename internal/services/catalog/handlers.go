package catalog

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/db"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

// Handler – HTTP-обработчики каталога
type Handler struct {
	svc *CatalogService
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(svc *CatalogService) *Handler {
	return &Handler{svc: svc}
}

// ListItems возвращает список вещей с фильтрами category, condition, status, userId, q
func (h *Handler) ListItems(c fiber.Ctx) error {
	ownerID, err := utils.QueryID(c, "userId")
	if err != nil {
		return err
	}

	filter := models.ItemFilter{
		Category:  c.Query("category"),
		Condition: models.ItemCondition(c.Query("condition")),
		Status:    models.ItemStatus(c.Query("status")),
		OwnerID:   ownerID,
		Query:     c.Query("q"),
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := h.svc.ListItems(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GetItem возвращает одну вещь
func (h *Handler) GetItem(c fiber.Ctx) error {
	itemID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := h.svc.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// CreateItem создает вещь текущего пользователя
func (h *Handler) CreateItem(c fiber.Ctx) error {
	var in CreateInput
	if err := c.Bind().Body(&in); err != nil {
		return apperrors.Validation("неверный формат данных")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	itemID, err := h.svc.CreateItem(ctx, middleware.CallerID(c), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      itemID,
		"message": "Вещь успешно добавлена",
	})
}

// UpdateItem частично обновляет вещь владельца
func (h *Handler) UpdateItem(c fiber.Ctx) error {
	itemID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	var in UpdateInput
	if err := c.Bind().Body(&in); err != nil {
		return apperrors.Validation("неверный формат данных")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := h.svc.UpdateItem(ctx, itemID, middleware.CallerID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// DeleteItem удаляет вещь владельца
func (h *Handler) DeleteItem(c fiber.Ctx) error {
	itemID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.svc.DeleteItem(ctx, itemID, middleware.CallerID(c)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Вещь удалена",
	})
}
