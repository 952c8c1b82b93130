package swap

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/db"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
	"github.com/rajivgeraev/ecoswap-api/internal/validation"
)

// Handler – HTTP-обработчики обменов
type Handler struct {
	svc *SwapService
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(svc *SwapService) *Handler {
	return &Handler{svc: svc}
}

// ProposeInput – тело запроса на обмен
type ProposeInput struct {
	OfferedItemID   int64 `json:"offeredItemId" validate:"required,gt=0"`
	RequestedItemID int64 `json:"requestedItemId" validate:"required,gt=0"`
}

// CreateSwap создает предложение обмена от текущего пользователя
func (h *Handler) CreateSwap(c fiber.Ctx) error {
	var in ProposeInput
	if err := c.Bind().Body(&in); err != nil {
		return apperrors.Validation("неверный формат данных")
	}
	if err := validation.Struct(in); err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := h.svc.Propose(ctx, middleware.CallerID(c), in.OfferedItemID, in.RequestedItemID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// AcceptSwap принимает предложение и возвращает id автоматически отклоненных
func (h *Handler) AcceptSwap(c fiber.Ctx) error {
	swapID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := h.svc.Accept(ctx, swapID, middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// RejectSwap отклоняет предложение получателем
func (h *Handler) RejectSwap(c fiber.Ctx) error {
	return h.transition(c, h.svc.Reject)
}

// CancelSwap отзывает предложение отправителем
func (h *Handler) CancelSwap(c fiber.Ctx) error {
	return h.transition(c, h.svc.Cancel)
}

// CompleteSwap фиксирует состоявшийся обмен
func (h *Handler) CompleteSwap(c fiber.Ctx) error {
	return h.transition(c, h.svc.Complete)
}

func (h *Handler) transition(c fiber.Ctx, fn func(ctx context.Context, swapID, callerID int64) (*models.SwapRequest, error)) error {
	swapID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := fn(ctx, swapID, middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// UpdateSwapStatus – совместимый маршрут PUT /:id/status с телом {status}
func (h *Handler) UpdateSwapStatus(c fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return apperrors.Validation("неверный формат данных")
	}

	switch models.SwapStatus(body.Status) {
	case models.SwapAccepted:
		return h.AcceptSwap(c)
	case models.SwapRejected:
		return h.RejectSwap(c)
	case models.SwapCanceled:
		return h.CancelSwap(c)
	default:
		return apperrors.Validation("status: допустимые значения: accepted rejected canceled")
	}
}

// ListSwaps возвращает предложения текущего пользователя
func (h *Handler) ListSwaps(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, err := h.svc.ListSwaps(ctx, middleware.CallerID(c),
		models.SwapRole(c.Query("role")), models.SwapStatus(c.Query("status")))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"swaps": swaps,
		"count": len(swaps),
	})
}

// GetSwap возвращает одно предложение участнику
func (h *Handler) GetSwap(c fiber.Ctx) error {
	swapID, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := h.svc.GetSwap(ctx, swapID, middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(req)
}
