package memory

import (
	"context"
	"time"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
)

// Операции Store вне WithTx: каждая выполняется под мьютексом как отдельная транзакция.

func (s *Store) CreateUser(ctx context.Context, user *models.User) (id int64, err error) {
	err = s.locked(func(r *repo) error { id, err = r.CreateUser(ctx, user); return err })
	return id, err
}

func (s *Store) GetUser(ctx context.Context, id int64) (u *models.User, err error) {
	err = s.locked(func(r *repo) error { u, err = r.GetUser(ctx, id); return err })
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (u *models.User, err error) {
	err = s.locked(func(r *repo) error { u, err = r.GetUserByEmail(ctx, email); return err })
	return u, err
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error {
	return s.locked(func(r *repo) error { return r.UpdateUser(ctx, id, patch) })
}

func (s *Store) GetUserStats(ctx context.Context, id int64) (st *models.UserStats, err error) {
	err = s.locked(func(r *repo) error { st, err = r.GetUserStats(ctx, id); return err })
	return st, err
}

func (s *Store) CreateItem(ctx context.Context, item *models.Item) (id int64, err error) {
	err = s.locked(func(r *repo) error { id, err = r.CreateItem(ctx, item); return err })
	return id, err
}

func (s *Store) GetItem(ctx context.Context, id int64) (it *models.Item, err error) {
	err = s.locked(func(r *repo) error { it, err = r.GetItem(ctx, id); return err })
	return it, err
}

func (s *Store) GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	return s.GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context, f models.ItemFilter) (items []models.Item, err error) {
	err = s.locked(func(r *repo) error { items, err = r.ListItems(ctx, f); return err })
	return items, err
}

func (s *Store) UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error {
	return s.locked(func(r *repo) error { return r.UpdateItem(ctx, id, patch) })
}

func (s *Store) UpdateItemStatus(ctx context.Context, id int64, from, to models.ItemStatus) (ok bool, err error) {
	err = s.locked(func(r *repo) error { ok, err = r.UpdateItemStatus(ctx, id, from, to); return err })
	return ok, err
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	return s.locked(func(r *repo) error { return r.DeleteItem(ctx, id) })
}

func (s *Store) CreateSwap(ctx context.Context, req *models.SwapRequest) (id int64, err error) {
	err = s.locked(func(r *repo) error { id, err = r.CreateSwap(ctx, req); return err })
	return id, err
}

func (s *Store) GetSwap(ctx context.Context, id int64) (sw *models.SwapRequest, err error) {
	err = s.locked(func(r *repo) error { sw, err = r.GetSwap(ctx, id); return err })
	return sw, err
}

func (s *Store) GetSwapForUpdate(ctx context.Context, id int64) (*models.SwapRequest, error) {
	return s.GetSwap(ctx, id)
}

func (s *Store) ListSwaps(ctx context.Context, f models.SwapFilter) (swaps []models.SwapRequest, err error) {
	err = s.locked(func(r *repo) error { swaps, err = r.ListSwaps(ctx, f); return err })
	return swaps, err
}

func (s *Store) UpdateSwapStatus(ctx context.Context, id int64, from, to models.SwapStatus, at time.Time) (ok bool, err error) {
	err = s.locked(func(r *repo) error { ok, err = r.UpdateSwapStatus(ctx, id, from, to, at); return err })
	return ok, err
}

func (s *Store) MarkSwapCompleted(ctx context.Context, id int64, at time.Time) (ok bool, err error) {
	err = s.locked(func(r *repo) error { ok, err = r.MarkSwapCompleted(ctx, id, at); return err })
	return ok, err
}

func (s *Store) RejectPendingSwaps(ctx context.Context, itemIDs []int64, exceptID int64, at time.Time) (ids []int64, err error) {
	err = s.locked(func(r *repo) error { ids, err = r.RejectPendingSwaps(ctx, itemIDs, exceptID, at); return err })
	return ids, err
}

func (s *Store) HasPendingSwap(ctx context.Context, offeredItemID, requestedItemID int64) (ok bool, err error) {
	err = s.locked(func(r *repo) error { ok, err = r.HasPendingSwap(ctx, offeredItemID, requestedItemID); return err })
	return ok, err
}

func (s *Store) HasActiveSwapForItem(ctx context.Context, itemID int64) (ok bool, err error) {
	err = s.locked(func(r *repo) error { ok, err = r.HasActiveSwapForItem(ctx, itemID); return err })
	return ok, err
}
