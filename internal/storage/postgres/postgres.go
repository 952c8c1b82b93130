// Package postgres реализует storage.Store поверх pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

// querier – общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store – хранилище в Postgres
type Store struct {
	*repo
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New создает хранилище поверх пула соединений
func New(pool *pgxpool.Pool) *Store {
	return &Store{repo: &repo{q: pool}, pool: pool}
}

// WithTx выполняет fn в транзакции READ COMMITTED
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return pkgerrors.Wrap(err, "ошибка начала транзакции")
	}
	defer tx.Rollback(ctx)

	if err := fn(&repo{q: tx}); err != nil {
		return err
	}

	// Фиксируем транзакцию
	if err := tx.Commit(ctx); err != nil {
		return mapErr(err, "ошибка фиксации транзакции")
	}
	return nil
}

// repo реализует storage.Repositories поверх querier
type repo struct {
	q querier
}

// Коды ошибок Postgres, которые значимы для сервисов
const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// mapErr переводит ошибки драйвера в ошибки storage
func mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return pkgerrors.Wrap(storage.ErrNotFound, msg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return pkgerrors.Wrapf(storage.ErrDuplicate, "%s: %s", msg, pgErr.ConstraintName)
		case serializationFailure, deadlockDetected:
			return pkgerrors.Wrapf(storage.ErrConflict, "%s: %s", msg, pgErr.Message)
		}
	}
	return pkgerrors.Wrap(err, msg)
}
