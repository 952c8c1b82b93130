package upload

import (
	"github.com/gofiber/fiber/v3"
	"github.com/pkg/errors"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/db"
)

// Handler – HTTP-обработчики загрузки изображений
type Handler struct {
	svc *UploadService
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(svc *UploadService) *Handler {
	return &Handler{svc: svc}
}

// UploadImage принимает multipart-поле image и возвращает путь сохраненного файла
func (h *Handler) UploadImage(c fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return apperrors.Validation("image: файл не передан")
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.Internal(errors.Wrap(err, "open multipart file"))
	}
	defer file.Close()

	ctx, cancel := db.GetContext()
	defer cancel()

	stored, err := h.svc.Store(ctx, header.Filename, file)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path": stored,
	})
}

// GenerateUploadParams возвращает подписанные параметры прямой загрузки в Cloudinary
func (h *Handler) GenerateUploadParams(c fiber.Ctx) error {
	params, err := h.svc.UploadParams()
	if err != nil {
		return err
	}
	return c.JSON(params)
}
