// Package storage описывает репозитории и единую транзакционную границу.
// Реализации: postgres (основная) и memory (тесты и локальный запуск).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
)

var (
	// ErrNotFound – запись не существует
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate – нарушено ограничение уникальности
	ErrDuplicate = errors.New("storage: duplicate")
	// ErrConflict – конкурентная транзакция помешала записи (deadlock, serialization failure)
	ErrConflict = errors.New("storage: concurrent update conflict")
)

// UserRepository хранит пользователей
type UserRepository interface {
	// CreateUser возвращает ErrDuplicate, если email уже занят (без учета регистра)
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error
	GetUserStats(ctx context.Context, id int64) (*models.UserStats, error)
}

// ItemRepository хранит вещи
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) (int64, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	// GetItemForUpdate читает вещь и блокирует строку до конца транзакции
	GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error)
	// ListItems возвращает вещи от новых к старым
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error
	// UpdateItemStatus меняет статус только если текущий равен from.
	// false означает, что строка изменилась раньше.
	UpdateItemStatus(ctx context.Context, id int64, from, to models.ItemStatus) (bool, error)
	DeleteItem(ctx context.Context, id int64) error
}

// SwapRepository хранит предложения обмена
type SwapRepository interface {
	// CreateSwap возвращает ErrDuplicate для повторной pending-пары
	CreateSwap(ctx context.Context, req *models.SwapRequest) (int64, error)
	GetSwap(ctx context.Context, id int64) (*models.SwapRequest, error)
	GetSwapForUpdate(ctx context.Context, id int64) (*models.SwapRequest, error)
	ListSwaps(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error)
	// UpdateSwapStatus переводит предложение from -> to и ставит время решения.
	// Возвращает ErrDuplicate, если вещь уже занята другим принятым обменом.
	UpdateSwapStatus(ctx context.Context, id int64, from, to models.SwapStatus, at time.Time) (bool, error)
	// MarkSwapCompleted ставит completed_at принятому и еще не завершенному обмену
	MarkSwapCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	// RejectPendingSwaps отклоняет все pending-предложения, затрагивающие вещи,
	// кроме exceptID. Возвращает id отклоненных.
	RejectPendingSwaps(ctx context.Context, itemIDs []int64, exceptID int64, at time.Time) ([]int64, error)
	HasPendingSwap(ctx context.Context, offeredItemID, requestedItemID int64) (bool, error)
	// HasActiveSwapForItem сообщает, ссылается ли на вещь pending или accepted предложение
	HasActiveSwapForItem(ctx context.Context, itemID int64) (bool, error)
}

// Repositories объединяет репозитории одной единицы работы
type Repositories interface {
	UserRepository
	ItemRepository
	SwapRepository
}

// Store – хранилище с транзакционной границей
type Store interface {
	Repositories
	// WithTx выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}
