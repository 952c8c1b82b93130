package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/rajivgeraev/ecoswap-api/internal/access"
	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
	"github.com/rajivgeraev/ecoswap-api/internal/validation"
)

const itemNotFound = "вещь не найдена"

// CatalogService управляет вещами и их доступностью
type CatalogService struct {
	store storage.Store
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(store storage.Store) *CatalogService {
	return &CatalogService{store: store}
}

// CreateInput – поля новой вещи
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	Category    string  `json:"category" validate:"required,max=60"`
	Condition   string  `json:"condition" validate:"required,oneof=new like-new used worn"`
	Image       *string `json:"image" validate:"omitempty,max=500"`
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Condition = strings.TrimSpace(in.Condition)
	if in.Image != nil {
		img := strings.TrimSpace(*in.Image)
		if img == "" {
			in.Image = nil
		} else {
			in.Image = &img
		}
	}
}

// UpdateInput – частичное обновление. Status и OwnerID принимаются только
// чтобы отклонить запрос: статус меняет движок обменов, владелец неизменен.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Condition   *string `json:"condition"`
	Image       *string `json:"image"`
	Status      *string `json:"status"`
	OwnerID     *int64  `json:"ownerId"`
}

// ListItems возвращает вещи по фильтру, новые первыми
func (s *CatalogService) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	if filter.Condition != "" && !filter.Condition.Valid() {
		return nil, apperrors.Validation("condition: допустимые значения: new like-new used worn")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("status: допустимые значения: available reserved traded")
	}
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Query = strings.TrimSpace(filter.Query)

	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStorage(err, itemNotFound)
	}
	return items, nil
}

// SearchItems ищет подстроку в названии, описании и категории без учета регистра
func (s *CatalogService) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	return s.ListItems(ctx, models.ItemFilter{Query: query})
}

// GetItem возвращает вещь по id
func (s *CatalogService) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, apperrors.FromStorage(err, itemNotFound)
	}
	return item, nil
}

// CreateItem создает вещь в статусе available и возвращает ее id
func (s *CatalogService) CreateItem(ctx context.Context, ownerID int64, in CreateInput) (int64, error) {
	if ownerID <= 0 {
		return 0, apperrors.Unauthenticated("пользователь не авторизован")
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return 0, err
	}

	id, err := s.store.CreateItem(ctx, &models.Item{
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Condition:   models.ItemCondition(in.Condition),
		Status:      models.ItemAvailable,
		Image:       in.Image,
	})
	metrics.RecordItem("create", err)
	if err != nil {
		return 0, apperrors.FromStorage(err, "владелец не найден")
	}

	log.WithFields(log.Fields{"item_id": id, "owner_id": ownerID}).Info("Вещь создана")
	return id, nil
}

// UpdateItem меняет содержимое вещи. Проверки идут в порядке:
// существование, права, допустимость полей.
func (s *CatalogService) UpdateItem(ctx context.Context, itemID, callerID int64, in UpdateInput) (*models.Item, error) {
	var updated *models.Item
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return apperrors.FromStorage(err, itemNotFound)
		}
		if err := access.Authorize(callerID, access.ItemUpdate, access.ItemResource(item)).Err(); err != nil {
			return err
		}

		patch, err := in.toPatch()
		if err != nil {
			return err
		}
		if !patch.Empty() {
			if err := tx.UpdateItem(ctx, itemID, patch); err != nil {
				return apperrors.FromStorage(err, itemNotFound)
			}
		}

		updated, err = tx.GetItem(ctx, itemID)
		return apperrors.FromStorage(err, itemNotFound)
	})
	metrics.RecordItem("update", err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// toPatch проверяет поля обновления и собирает патч
func (in UpdateInput) toPatch() (models.ItemPatch, error) {
	var patch models.ItemPatch

	if in.Status != nil {
		return patch, apperrors.Validation("status: статус вещи меняется только через обмен")
	}
	if in.OwnerID != nil {
		return patch, apperrors.Validation("ownerId: владелец вещи не меняется")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.Var("name", name, "required,max=120"); err != nil {
			return patch, err
		}
		patch.Name = &name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if err := validation.Var("description", desc, "max=2000"); err != nil {
			return patch, err
		}
		patch.Description = &desc
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if err := validation.Var("category", category, "required,max=60"); err != nil {
			return patch, err
		}
		patch.Category = &category
	}
	if in.Condition != nil {
		condition := models.ItemCondition(strings.TrimSpace(*in.Condition))
		if !condition.Valid() {
			return patch, apperrors.Validation("condition: допустимые значения: new like-new used worn")
		}
		patch.Condition = &condition
	}
	if in.Image != nil {
		// Пустая строка удаляет изображение
		image := strings.TrimSpace(*in.Image)
		if err := validation.Var("image", image, "max=500"); err != nil {
			return patch, err
		}
		patch.Image = &image
	}
	return patch, nil
}

// DeleteItem удаляет вещь владельца, если она не участвует в активном обмене
func (s *CatalogService) DeleteItem(ctx context.Context, itemID, callerID int64) error {
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return apperrors.FromStorage(err, itemNotFound)
		}
		if err := access.Authorize(callerID, access.ItemDelete, access.ItemResource(item)).Err(); err != nil {
			return err
		}
		if item.Status != models.ItemAvailable {
			return apperrors.Conflict("вещь участвует в обмене и не может быть удалена")
		}

		active, err := tx.HasActiveSwapForItem(ctx, itemID)
		if err != nil {
			return apperrors.FromStorage(err, itemNotFound)
		}
		if active {
			return apperrors.Conflict("по вещи есть активное предложение обмена")
		}

		return apperrors.FromStorage(tx.DeleteItem(ctx, itemID), itemNotFound)
	})
	metrics.RecordItem("delete", err)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"item_id": itemID, "owner_id": callerID}).Info("Вещь удалена")
	return nil
}

// SetItemStatus переводит вещь в новый статус по таблице переходов.
// Вызывается только движком обменов внутри его транзакции.
func (s *CatalogService) SetItemStatus(ctx context.Context, tx storage.ItemRepository, itemID int64, next models.ItemStatus) error {
	item, err := tx.GetItemForUpdate(ctx, itemID)
	if err != nil {
		return apperrors.FromStorage(err, itemNotFound)
	}
	if !item.Status.CanTransitionTo(next) {
		return apperrors.InvalidTransition("недопустимый переход статуса вещи: " + string(item.Status) + " -> " + string(next))
	}

	ok, err := tx.UpdateItemStatus(ctx, itemID, item.Status, next)
	if err != nil {
		return apperrors.FromStorage(err, itemNotFound)
	}
	if !ok {
		return apperrors.Conflict("статус вещи изменился параллельным запросом")
	}
	return nil
}
