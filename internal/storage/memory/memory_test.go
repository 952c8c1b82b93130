package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

// newTestStore возвращает хранилище с детерминированными часами: каждый вызов на секунду позже
func newTestStore() *Store {
	s := New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func seedUser(t *testing.T, s *Store, email string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), &models.User{Email: email, Name: email, PasswordHash: "x"})
	require.NoError(t, err)
	return id
}

func seedItem(t *testing.T, s *Store, owner int64, name, category string) int64 {
	t.Helper()
	id, err := s.CreateItem(context.Background(), &models.Item{
		OwnerID:   owner,
		Name:      name,
		Category:  category,
		Condition: models.ConditionUsed,
		Status:    models.ItemAvailable,
	})
	require.NoError(t, err)
	return id
}

func TestCreateUserDuplicateEmailIgnoresCase(t *testing.T) {
	s := newTestStore()
	seedUser(t, s, "anna@example.com")

	_, err := s.CreateUser(context.Background(), &models.User{Email: "ANNA@example.com", Name: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	owner := seedUser(t, s, "a@example.com")
	itemID := seedItem(t, s, owner, "Lamp", "home")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx storage.Repositories) error {
		ok, err := tx.UpdateItemStatus(ctx, itemID, models.ItemAvailable, models.ItemReserved)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = tx.CreateItem(ctx, &models.Item{OwnerID: owner, Name: "Ghost", Category: "x", Condition: models.ConditionNew, Status: models.ItemAvailable})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := s.GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, item.Status)

	items, err := s.ListItems(ctx, models.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWithTxCommits(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	owner := seedUser(t, s, "a@example.com")
	itemID := seedItem(t, s, owner, "Lamp", "home")

	require.NoError(t, s.WithTx(ctx, func(tx storage.Repositories) error {
		_, err := tx.UpdateItemStatus(ctx, itemID, models.ItemAvailable, models.ItemReserved)
		return err
	}))

	item, err := s.GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemReserved, item.Status)
}

func TestUpdateItemStatusCompareAndSet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	itemID := seedItem(t, s, seedUser(t, s, "a@example.com"), "Lamp", "home")

	ok, err := s.UpdateItemStatus(ctx, itemID, models.ItemReserved, models.ItemTraded)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpdateItemStatus(ctx, 999, models.ItemAvailable, models.ItemReserved)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListItemsFiltersAndOrder(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	anna := seedUser(t, s, "anna@example.com")
	boris := seedUser(t, s, "boris@example.com")
	first := seedItem(t, s, anna, "Wool Sweater", "clothes")
	second := seedItem(t, s, boris, "Desk lamp", "home")
	third := seedItem(t, s, anna, "Book", "books")

	all, err := s.ListItems(ctx, models.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{third, second, first}, []int64{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "anna@example.com", all[0].OwnerName)

	byOwner, err := s.ListItems(ctx, models.ItemFilter{OwnerID: anna})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	search, err := s.ListItems(ctx, models.ItemFilter{Query: "LAMP"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, second, search[0].ID)

	byCategory, err := s.ListItems(ctx, models.ItemFilter{Category: "books"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	none, err := s.ListItems(ctx, models.ItemFilter{Condition: models.ConditionNew})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateSwapRejectsDuplicatePendingPair(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	i1 := seedItem(t, s, a, "One", "x")
	i2 := seedItem(t, s, b, "Two", "x")

	req := &models.SwapRequest{RequesterID: b, RecipientID: a, OfferedItemID: i2, RequestedItemID: i1}
	_, err := s.CreateSwap(ctx, req)
	require.NoError(t, err)

	_, err = s.CreateSwap(ctx, req)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestRejectPendingSwapsCascade(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	c := seedUser(t, s, "c@example.com")
	i1 := seedItem(t, s, a, "One", "x")
	i2 := seedItem(t, s, b, "Two", "x")
	i3 := seedItem(t, s, c, "Three", "x")
	i4 := seedItem(t, s, c, "Four", "x")

	keep, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: b, RecipientID: a, OfferedItemID: i2, RequestedItemID: i1})
	require.NoError(t, err)
	competing, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: c, RecipientID: a, OfferedItemID: i3, RequestedItemID: i1})
	require.NoError(t, err)
	unrelated, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: c, RecipientID: b, OfferedItemID: i4, RequestedItemID: i2})
	require.NoError(t, err)

	ids, err := s.RejectPendingSwaps(ctx, []int64{i1}, keep, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{competing}, ids)

	sw, err := s.GetSwap(ctx, unrelated)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, sw.Status)

	sw, err = s.GetSwap(ctx, competing)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRejected, sw.Status)
	assert.NotNil(t, sw.DecidedAt)
}

func TestUpdateSwapStatusSecondAcceptOnItemIsDuplicate(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	c := seedUser(t, s, "c@example.com")
	i1 := seedItem(t, s, a, "One", "x")
	i2 := seedItem(t, s, b, "Two", "x")
	i3 := seedItem(t, s, c, "Three", "x")

	first, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: b, RecipientID: a, OfferedItemID: i2, RequestedItemID: i1})
	require.NoError(t, err)
	second, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: c, RecipientID: a, OfferedItemID: i3, RequestedItemID: i1})
	require.NoError(t, err)

	ok, err := s.UpdateSwapStatus(ctx, first, models.SwapPending, models.SwapAccepted, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.UpdateSwapStatus(ctx, second, models.SwapPending, models.SwapAccepted, time.Now())
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestUserStats(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	i1 := seedItem(t, s, a, "One", "x")
	seedItem(t, s, a, "Two", "x")
	i3 := seedItem(t, s, b, "Three", "x")

	id, err := s.CreateSwap(ctx, &models.SwapRequest{RequesterID: b, RecipientID: a, OfferedItemID: i3, RequestedItemID: i1})
	require.NoError(t, err)
	_, err = s.UpdateSwapStatus(ctx, id, models.SwapPending, models.SwapAccepted, time.Now())
	require.NoError(t, err)
	_, err = s.UpdateItemStatus(ctx, i1, models.ItemAvailable, models.ItemReserved)
	require.NoError(t, err)

	// Принятый, но не завершенный обмен не учитывается
	stats, err := s.GetUserStats(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{ItemCount: 2, AvailableCount: 1, SwapCount: 0}, *stats)

	ok, err := s.MarkSwapCompleted(ctx, id, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	for _, user := range []int64{a, b} {
		stats, err = s.GetUserStats(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.SwapCount)
	}
}
