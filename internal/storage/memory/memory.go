// Package memory – хранилище в памяти процесса. Потокобезопасно,
// используется в тестах и для локального запуска без Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

// state – все данные хранилища. Транзакция работает с копией.
type state struct {
	nextUserID int64
	nextItemID int64
	nextSwapID int64
	users      map[int64]models.User
	items      map[int64]models.Item
	swaps      map[int64]models.SwapRequest
}

func newState() *state {
	return &state{
		nextUserID: 1,
		nextItemID: 1,
		nextSwapID: 1,
		users:      make(map[int64]models.User),
		items:      make(map[int64]models.Item),
		swaps:      make(map[int64]models.SwapRequest),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextUserID: s.nextUserID,
		nextItemID: s.nextItemID,
		nextSwapID: s.nextSwapID,
		users:      make(map[int64]models.User, len(s.users)),
		items:      make(map[int64]models.Item, len(s.items)),
		swaps:      make(map[int64]models.SwapRequest, len(s.swaps)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.swaps {
		c.swaps[k] = v
	}
	return c
}

// Store – хранилище в памяти. Транзакции сериализуются одним мьютексом.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New создает пустое хранилище
func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// WithTx выполняет fn над копией состояния и публикует копию только при успехе
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(&repo{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// locked выполняет одиночную операцию вне явной транзакции
func (s *Store) locked(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{st: s.st, now: s.now})
}

// repo реализует storage.Repositories поверх state. Вызывающий держит мьютекс.
type repo struct {
	st  *state
	now func() time.Time
}

// Users -----------------------------------------------------------------------

func (r *repo) CreateUser(_ context.Context, user *models.User) (int64, error) {
	email := strings.ToLower(user.Email)
	for _, u := range r.st.users {
		if strings.ToLower(u.Email) == email {
			return 0, errors.Wrap(storage.ErrDuplicate, "create user")
		}
	}
	u := *user
	u.ID = r.st.nextUserID
	r.st.nextUserID++
	u.CreatedAt = r.now()
	u.UpdatedAt = u.CreatedAt
	r.st.users[u.ID] = u
	return u.ID, nil
}

func (r *repo) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "user %d", id)
	}
	return &u, nil
}

func (r *repo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	for _, u := range r.st.users {
		if strings.ToLower(u.Email) == email {
			u := u
			return &u, nil
		}
	}
	return nil, errors.Wrap(storage.ErrNotFound, "user by email")
}

func (r *repo) UpdateUser(_ context.Context, id int64, patch models.UserPatch) error {
	u, ok := r.st.users[id]
	if !ok {
		return errors.Wrapf(storage.ErrNotFound, "user %d", id)
	}
	if patch.Email != nil {
		email := strings.ToLower(*patch.Email)
		for otherID, other := range r.st.users {
			if otherID != id && strings.ToLower(other.Email) == email {
				return errors.Wrap(storage.ErrDuplicate, "update user")
			}
		}
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.ProfileImage != nil {
		u.ProfileImage = nilIfEmpty(*patch.ProfileImage)
	}
	u.UpdatedAt = r.now()
	r.st.users[id] = u
	return nil
}

func (r *repo) GetUserStats(_ context.Context, id int64) (*models.UserStats, error) {
	if _, ok := r.st.users[id]; !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "user %d", id)
	}
	stats := &models.UserStats{}
	for _, it := range r.st.items {
		if it.OwnerID != id {
			continue
		}
		stats.ItemCount++
		if it.Status == models.ItemAvailable {
			stats.AvailableCount++
		}
	}
	for _, sw := range r.st.swaps {
		if sw.CompletedAt != nil && sw.IsParticipant(id) {
			stats.SwapCount++
		}
	}
	return stats, nil
}

// Items -----------------------------------------------------------------------

func (r *repo) CreateItem(_ context.Context, item *models.Item) (int64, error) {
	if _, ok := r.st.users[item.OwnerID]; !ok {
		return 0, errors.Wrapf(storage.ErrNotFound, "owner %d", item.OwnerID)
	}
	it := *item
	it.ID = r.st.nextItemID
	r.st.nextItemID++
	it.CreatedAt = r.now()
	it.UpdatedAt = it.CreatedAt
	it.OwnerName = ""
	r.st.items[it.ID] = it
	return it.ID, nil
}

func (r *repo) GetItem(_ context.Context, id int64) (*models.Item, error) {
	it, ok := r.st.items[id]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "item %d", id)
	}
	return r.withOwner(it), nil
}

// GetItemForUpdate в памяти не отличается от GetItem: транзакция и так эксклюзивна
func (r *repo) GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	return r.GetItem(ctx, id)
}

func (r *repo) withOwner(it models.Item) *models.Item {
	if u, ok := r.st.users[it.OwnerID]; ok {
		it.OwnerName = u.Name
	}
	return &it
}

func (r *repo) ListItems(_ context.Context, f models.ItemFilter) ([]models.Item, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Item, 0)
	for _, it := range r.st.items {
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Condition != "" && it.Condition != f.Condition {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.OwnerID != 0 && it.OwnerID != f.OwnerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Name), q) &&
			!strings.Contains(strings.ToLower(it.Description), q) &&
			!strings.Contains(strings.ToLower(it.Category), q) {
			continue
		}
		out = append(out, *r.withOwner(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *repo) UpdateItem(_ context.Context, id int64, p models.ItemPatch) error {
	it, ok := r.st.items[id]
	if !ok {
		return errors.Wrapf(storage.ErrNotFound, "item %d", id)
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Condition != nil {
		it.Condition = *p.Condition
	}
	if p.Image != nil {
		it.Image = nilIfEmpty(*p.Image)
	}
	it.UpdatedAt = r.now()
	r.st.items[id] = it
	return nil
}

func (r *repo) UpdateItemStatus(_ context.Context, id int64, from, to models.ItemStatus) (bool, error) {
	it, ok := r.st.items[id]
	if !ok {
		return false, errors.Wrapf(storage.ErrNotFound, "item %d", id)
	}
	if it.Status != from {
		return false, nil
	}
	it.Status = to
	it.UpdatedAt = r.now()
	r.st.items[id] = it
	return true, nil
}

func (r *repo) DeleteItem(_ context.Context, id int64) error {
	if _, ok := r.st.items[id]; !ok {
		return errors.Wrapf(storage.ErrNotFound, "item %d", id)
	}
	delete(r.st.items, id)
	for swapID, sw := range r.st.swaps {
		if sw.Touches(id) {
			delete(r.st.swaps, swapID)
		}
	}
	return nil
}

// Swaps -----------------------------------------------------------------------

func (r *repo) CreateSwap(_ context.Context, req *models.SwapRequest) (int64, error) {
	for _, id := range []int64{req.OfferedItemID, req.RequestedItemID} {
		if _, ok := r.st.items[id]; !ok {
			return 0, errors.Wrapf(storage.ErrNotFound, "item %d", id)
		}
	}
	for _, sw := range r.st.swaps {
		if sw.Status == models.SwapPending &&
			sw.OfferedItemID == req.OfferedItemID && sw.RequestedItemID == req.RequestedItemID {
			return 0, errors.Wrap(storage.ErrDuplicate, "create swap")
		}
	}
	sw := *req
	sw.ID = r.st.nextSwapID
	r.st.nextSwapID++
	sw.Status = models.SwapPending
	sw.CreatedAt = r.now()
	sw.DecidedAt = nil
	sw.CompletedAt = nil
	r.st.swaps[sw.ID] = sw
	return sw.ID, nil
}

func (r *repo) GetSwap(_ context.Context, id int64) (*models.SwapRequest, error) {
	sw, ok := r.st.swaps[id]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "swap %d", id)
	}
	return &sw, nil
}

func (r *repo) GetSwapForUpdate(ctx context.Context, id int64) (*models.SwapRequest, error) {
	return r.GetSwap(ctx, id)
}

func (r *repo) ListSwaps(_ context.Context, f models.SwapFilter) ([]models.SwapRequest, error) {
	out := make([]models.SwapRequest, 0)
	for _, sw := range r.st.swaps {
		switch f.Role {
		case models.RoleSent:
			if sw.RequesterID != f.UserID {
				continue
			}
		case models.RoleReceived:
			if sw.RecipientID != f.UserID {
				continue
			}
		default:
			if !sw.IsParticipant(f.UserID) {
				continue
			}
		}
		if f.Status != "" && sw.Status != f.Status {
			continue
		}
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *repo) UpdateSwapStatus(_ context.Context, id int64, from, to models.SwapStatus, at time.Time) (bool, error) {
	sw, ok := r.st.swaps[id]
	if !ok {
		return false, errors.Wrapf(storage.ErrNotFound, "swap %d", id)
	}
	if sw.Status != from {
		return false, nil
	}
	if to == models.SwapAccepted {
		for otherID, other := range r.st.swaps {
			if otherID == id || other.Status != models.SwapAccepted {
				continue
			}
			if other.Touches(sw.OfferedItemID) || other.Touches(sw.RequestedItemID) {
				return false, errors.Wrap(storage.ErrDuplicate, "accept swap")
			}
		}
	}
	sw.Status = to
	sw.DecidedAt = &at
	r.st.swaps[id] = sw
	return true, nil
}

func (r *repo) MarkSwapCompleted(_ context.Context, id int64, at time.Time) (bool, error) {
	sw, ok := r.st.swaps[id]
	if !ok {
		return false, errors.Wrapf(storage.ErrNotFound, "swap %d", id)
	}
	if sw.Status != models.SwapAccepted || sw.CompletedAt != nil {
		return false, nil
	}
	sw.CompletedAt = &at
	r.st.swaps[id] = sw
	return true, nil
}

func (r *repo) RejectPendingSwaps(_ context.Context, itemIDs []int64, exceptID int64, at time.Time) ([]int64, error) {
	rejected := make([]int64, 0)
	for id, sw := range r.st.swaps {
		if id == exceptID || sw.Status != models.SwapPending {
			continue
		}
		touched := false
		for _, itemID := range itemIDs {
			if sw.Touches(itemID) {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		sw.Status = models.SwapRejected
		decided := at
		sw.DecidedAt = &decided
		r.st.swaps[id] = sw
		rejected = append(rejected, id)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i] < rejected[j] })
	return rejected, nil
}

func (r *repo) HasPendingSwap(_ context.Context, offeredItemID, requestedItemID int64) (bool, error) {
	for _, sw := range r.st.swaps {
		if sw.Status == models.SwapPending &&
			sw.OfferedItemID == offeredItemID && sw.RequestedItemID == requestedItemID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) HasActiveSwapForItem(_ context.Context, itemID int64) (bool, error) {
	for _, sw := range r.st.swaps {
		if sw.Status.Active() && sw.Touches(itemID) {
			return true, nil
		}
	}
	return false, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
