package swap

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rajivgeraev/ecoswap-api/internal/access"
	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/services/catalog"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

const (
	swapNotFound = "предложение обмена не найдено"
	itemNotFound = "вещь не найдена"
)

// SwapService ведет предложения обмена по машине состояний
// pending -> accepted | rejected | canceled.
type SwapService struct {
	store   storage.Store
	catalog *catalog.CatalogService
	now     func() time.Time
}

// NewSwapService создает новый экземпляр SwapService
func NewSwapService(store storage.Store, catalogService *catalog.CatalogService) *SwapService {
	return &SwapService{store: store, catalog: catalogService, now: time.Now}
}

// AcceptResult – итог принятия: сам обмен и автоматически отклоненные конкуренты
type AcceptResult struct {
	Swap         *models.SwapRequest `json:"swap"`
	AutoRejected []int64             `json:"autoRejected"`
}

// lockItems блокирует вещи в порядке возрастания id, чтобы параллельные
// транзакции не взаимоблокировались
func lockItems(ctx context.Context, tx storage.ItemRepository, ids ...int64) (map[int64]*models.Item, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	items := make(map[int64]*models.Item, len(sorted))
	for _, id := range sorted {
		if _, seen := items[id]; seen {
			continue
		}
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return nil, apperrors.FromStorage(err, itemNotFound)
		}
		items[id] = item
	}
	return items, nil
}

// Propose создает предложение обмена offeredItemID на requestedItemID.
// Статусы вещей не меняются: у доступной вещи может быть несколько
// конкурирующих предложений.
func (s *SwapService) Propose(ctx context.Context, requesterID, offeredItemID, requestedItemID int64) (*models.SwapRequest, error) {
	var created *models.SwapRequest
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		if offeredItemID == requestedItemID {
			return apperrors.Conflict("нельзя обменять вещь саму на себя")
		}

		items, err := lockItems(ctx, tx, offeredItemID, requestedItemID)
		if err != nil {
			return err
		}
		offered, requested := items[offeredItemID], items[requestedItemID]

		decision := access.Authorize(requesterID, access.SwapPropose, access.ProposalResource(offered, requested))
		switch {
		case decision.Allowed:
		case decision.Reason == access.ReasonUnauthenticated:
			return decision.Err()
		case decision.Reason == access.ReasonNotOwner:
			return apperrors.Conflict("предлагать можно только свою вещь")
		default:
			return apperrors.Conflict("нельзя предложить обмен самому себе")
		}

		if offered.Status != models.ItemAvailable {
			return apperrors.Conflict("предлагаемая вещь недоступна для обмена")
		}
		if requested.Status != models.ItemAvailable {
			return apperrors.Conflict("запрашиваемая вещь недоступна для обмена")
		}

		exists, err := tx.HasPendingSwap(ctx, offeredItemID, requestedItemID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if exists {
			return apperrors.Conflict("такое предложение обмена уже существует")
		}

		id, err := tx.CreateSwap(ctx, &models.SwapRequest{
			RequesterID:     requesterID,
			RecipientID:     requested.OwnerID,
			OfferedItemID:   offeredItemID,
			RequestedItemID: requestedItemID,
			Status:          models.SwapPending,
		})
		if err != nil {
			return apperrors.FromStorage(err, itemNotFound)
		}

		created, err = tx.GetSwap(ctx, id)
		return apperrors.FromStorage(err, swapNotFound)
	})
	metrics.RecordSwap("propose", err)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"swap_id":           created.ID,
		"requester_id":      requesterID,
		"offered_item_id":   offeredItemID,
		"requested_item_id": requestedItemID,
	}).Info("Создано предложение обмена")
	return created, nil
}

// Accept принимает предложение: обе вещи резервируются, предложение
// становится accepted, остальные pending-предложения по этим вещам
// отклоняются. Все в одной транзакции.
func (s *SwapService) Accept(ctx context.Context, requestID, callerID int64) (*AcceptResult, error) {
	var result *AcceptResult
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		req, err := tx.GetSwap(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if err := access.Authorize(callerID, access.SwapAccept, access.SwapResource(req)).Err(); err != nil {
			return err
		}

		items, err := lockItems(ctx, tx, req.OfferedItemID, req.RequestedItemID)
		if err != nil {
			return err
		}

		// Перечитываем под блокировкой вещей: параллельный accept мог успеть закоммититься
		req, err = tx.GetSwapForUpdate(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}

		available := items[req.OfferedItemID].Status == models.ItemAvailable &&
			items[req.RequestedItemID].Status == models.ItemAvailable

		if req.Status != models.SwapPending {
			// Предложение отклонили каскадом, потому что вещь ушла в другой обмен
			if req.Status == models.SwapRejected && !available {
				return apperrors.Conflict("вещь уже зарезервирована другим обменом")
			}
			return apperrors.InvalidTransition("предложение уже не находится в ожидании: " + string(req.Status))
		}
		if !available {
			return apperrors.Conflict("вещь уже зарезервирована другим обменом")
		}

		for _, itemID := range []int64{req.OfferedItemID, req.RequestedItemID} {
			if err := s.catalog.SetItemStatus(ctx, tx, itemID, models.ItemReserved); err != nil {
				return err
			}
		}

		now := s.now()
		ok, err := tx.UpdateSwapStatus(ctx, requestID, models.SwapPending, models.SwapAccepted, now)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if !ok {
			return apperrors.Conflict("предложение изменилось параллельным запросом")
		}

		rejected, err := tx.RejectPendingSwaps(ctx, []int64{req.OfferedItemID, req.RequestedItemID}, requestID, now)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}

		accepted, err := tx.GetSwap(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		result = &AcceptResult{Swap: accepted, AutoRejected: rejected}
		return nil
	})
	metrics.RecordSwap("accept", err)
	if err != nil {
		return nil, err
	}
	metrics.RecordCascade(len(result.AutoRejected))

	log.WithFields(log.Fields{
		"swap_id":       requestID,
		"recipient_id":  callerID,
		"auto_rejected": result.AutoRejected,
	}).Info("Предложение обмена принято")
	return result, nil
}

// Reject отклоняет pending-предложение. Вещи не затрагиваются.
func (s *SwapService) Reject(ctx context.Context, requestID, callerID int64) (*models.SwapRequest, error) {
	req, err := s.decide(ctx, requestID, callerID, access.SwapReject, models.SwapRejected)
	metrics.RecordSwap("reject", err)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"swap_id": requestID, "recipient_id": callerID}).Info("Предложение обмена отклонено")
	return req, nil
}

// Cancel отзывает pending-предложение отправителем
func (s *SwapService) Cancel(ctx context.Context, requestID, callerID int64) (*models.SwapRequest, error) {
	req, err := s.decide(ctx, requestID, callerID, access.SwapCancel, models.SwapCanceled)
	metrics.RecordSwap("cancel", err)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"swap_id": requestID, "requester_id": callerID}).Info("Предложение обмена отменено")
	return req, nil
}

// decide переводит pending-предложение в терминальный статус без побочных эффектов на вещи
func (s *SwapService) decide(ctx context.Context, requestID, callerID int64, action access.Action, next models.SwapStatus) (*models.SwapRequest, error) {
	var updated *models.SwapRequest
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		req, err := tx.GetSwapForUpdate(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if err := access.Authorize(callerID, action, access.SwapResource(req)).Err(); err != nil {
			return err
		}
		if req.Status != models.SwapPending {
			return apperrors.InvalidTransition("предложение уже не находится в ожидании: " + string(req.Status))
		}

		ok, err := tx.UpdateSwapStatus(ctx, requestID, models.SwapPending, next, s.now())
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if !ok {
			return apperrors.Conflict("предложение изменилось параллельным запросом")
		}

		updated, err = tx.GetSwap(ctx, requestID)
		return apperrors.FromStorage(err, swapNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete фиксирует состоявшийся обмен: обе вещи reserved -> traded.
// Доступно любой из сторон принятого обмена, один раз.
func (s *SwapService) Complete(ctx context.Context, requestID, callerID int64) (*models.SwapRequest, error) {
	var completed *models.SwapRequest
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		req, err := tx.GetSwap(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if err := access.Authorize(callerID, access.SwapComplete, access.SwapResource(req)).Err(); err != nil {
			return err
		}

		if _, err := lockItems(ctx, tx, req.OfferedItemID, req.RequestedItemID); err != nil {
			return err
		}
		req, err = tx.GetSwapForUpdate(ctx, requestID)
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if req.Status != models.SwapAccepted {
			return apperrors.InvalidTransition("завершить можно только принятый обмен")
		}
		if req.CompletedAt != nil {
			return apperrors.InvalidTransition("обмен уже завершен")
		}

		for _, itemID := range []int64{req.OfferedItemID, req.RequestedItemID} {
			if err := s.catalog.SetItemStatus(ctx, tx, itemID, models.ItemTraded); err != nil {
				return err
			}
		}

		ok, err := tx.MarkSwapCompleted(ctx, requestID, s.now())
		if err != nil {
			return apperrors.FromStorage(err, swapNotFound)
		}
		if !ok {
			return apperrors.InvalidTransition("обмен уже завершен")
		}

		completed, err = tx.GetSwap(ctx, requestID)
		return apperrors.FromStorage(err, swapNotFound)
	})
	metrics.RecordSwap("complete", err)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"swap_id": requestID, "user_id": callerID}).Info("Обмен завершен")
	return completed, nil
}

// GetSwap возвращает предложение участнику обмена
func (s *SwapService) GetSwap(ctx context.Context, requestID, callerID int64) (*models.SwapRequest, error) {
	req, err := s.store.GetSwap(ctx, requestID)
	if err != nil {
		return nil, apperrors.FromStorage(err, swapNotFound)
	}
	if err := access.Authorize(callerID, access.SwapView, access.SwapResource(req)).Err(); err != nil {
		return nil, err
	}

	e := newEnricher(s.store)
	if err := e.enrich(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListSwaps возвращает предложения пользователя с краткой информацией о вещах и сторонах
func (s *SwapService) ListSwaps(ctx context.Context, callerID int64, role models.SwapRole, status models.SwapStatus) ([]models.SwapRequest, error) {
	if callerID <= 0 {
		return nil, apperrors.Unauthenticated("пользователь не авторизован")
	}
	if role == "" {
		role = models.RoleAll
	}
	if !role.Valid() {
		return nil, apperrors.Validation("role: допустимые значения: sent received all")
	}
	if status != "" && !status.Valid() {
		return nil, apperrors.Validation("status: допустимые значения: pending accepted rejected canceled")
	}

	swaps, err := s.store.ListSwaps(ctx, models.SwapFilter{UserID: callerID, Role: role, Status: status})
	if err != nil {
		return nil, apperrors.FromStorage(err, swapNotFound)
	}

	e := newEnricher(s.store)
	for i := range swaps {
		if err := e.enrich(ctx, &swaps[i]); err != nil {
			return nil, err
		}
	}
	return swaps, nil
}

// enricher подгружает вещи и пользователей, кэшируя их в пределах запроса
type enricher struct {
	repo  storage.Repositories
	items map[int64]*models.Item
	users map[int64]*models.UserSummary
}

func newEnricher(repo storage.Repositories) *enricher {
	return &enricher{
		repo:  repo,
		items: make(map[int64]*models.Item),
		users: make(map[int64]*models.UserSummary),
	}
}

func (e *enricher) enrich(ctx context.Context, req *models.SwapRequest) error {
	var err error
	if req.OfferedItem, err = e.item(ctx, req.OfferedItemID); err != nil {
		return err
	}
	if req.RequestedItem, err = e.item(ctx, req.RequestedItemID); err != nil {
		return err
	}
	if req.Requester, err = e.user(ctx, req.RequesterID); err != nil {
		return err
	}
	req.Recipient, err = e.user(ctx, req.RecipientID)
	return err
}

func (e *enricher) item(ctx context.Context, id int64) (*models.Item, error) {
	if it, ok := e.items[id]; ok {
		return it, nil
	}
	it, err := e.repo.GetItem(ctx, id)
	if err != nil {
		return nil, apperrors.FromStorage(err, itemNotFound)
	}
	e.items[id] = it
	return it, nil
}

func (e *enricher) user(ctx context.Context, id int64) (*models.UserSummary, error) {
	if u, ok := e.users[id]; ok {
		return u, nil
	}
	u, err := e.repo.GetUser(ctx, id)
	if err != nil {
		return nil, apperrors.FromStorage(err, "пользователь не найден")
	}
	summary := u.Summary()
	e.users[id] = summary
	return summary, nil
}
