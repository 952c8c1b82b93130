package postgres

import (
	"context"
	"time"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
)

const swapColumns = `id, requester_id, recipient_id, offered_item_id, requested_item_id,
	status, created_at, decided_at, completed_at`

func scanSwap(row interface{ Scan(...any) error }) (*models.SwapRequest, error) {
	var sw models.SwapRequest
	err := row.Scan(&sw.ID, &sw.RequesterID, &sw.RecipientID, &sw.OfferedItemID, &sw.RequestedItemID,
		&sw.Status, &sw.CreatedAt, &sw.DecidedAt, &sw.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &sw, nil
}

// CreateSwap вставляет предложение в статусе pending
func (r *repo) CreateSwap(ctx context.Context, req *models.SwapRequest) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO swap_requests (requester_id, recipient_id, offered_item_id, requested_item_id, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id
	`, req.RequesterID, req.RecipientID, req.OfferedItemID, req.RequestedItemID).Scan(&id)
	if err != nil {
		return 0, mapErr(err, "ошибка сохранения предложения обмена")
	}
	return id, nil
}

// GetSwap возвращает предложение по id
func (r *repo) GetSwap(ctx context.Context, id int64) (*models.SwapRequest, error) {
	sw, err := scanSwap(r.q.QueryRow(ctx, `SELECT `+swapColumns+` FROM swap_requests WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "ошибка получения предложения обмена")
	}
	return sw, nil
}

// GetSwapForUpdate блокирует строку предложения до конца транзакции
func (r *repo) GetSwapForUpdate(ctx context.Context, id int64) (*models.SwapRequest, error) {
	sw, err := scanSwap(r.q.QueryRow(ctx, `SELECT `+swapColumns+` FROM swap_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr(err, "ошибка блокировки предложения обмена")
	}
	return sw, nil
}

// ListSwaps возвращает предложения пользователя по роли, новые первыми
func (r *repo) ListSwaps(ctx context.Context, f models.SwapFilter) ([]models.SwapRequest, error) {
	var where string
	switch f.Role {
	case models.RoleSent:
		where = "requester_id = $1"
	case models.RoleReceived:
		where = "recipient_id = $1"
	default:
		where = "(requester_id = $1 OR recipient_id = $1)"
	}
	args := []any{f.UserID}
	if f.Status != "" {
		where += " AND status = $2"
		args = append(args, f.Status)
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+swapColumns+`
		FROM swap_requests
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, mapErr(err, "ошибка запроса предложений обмена")
	}
	defer rows.Close()

	swaps := make([]models.SwapRequest, 0)
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, mapErr(err, "ошибка сканирования строки")
		}
		swaps = append(swaps, *sw)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "ошибка чтения предложений обмена")
	}
	return swaps, nil
}

// UpdateSwapStatus переводит предложение from -> to
func (r *repo) UpdateSwapStatus(ctx context.Context, id int64, from, to models.SwapStatus, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE swap_requests SET status = $1, decided_at = $2
		WHERE id = $3 AND status = $4
	`, to, at, id, from)
	if err != nil {
		return false, mapErr(err, "ошибка обновления статуса предложения")
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSwapCompleted отмечает принятый обмен завершенным
func (r *repo) MarkSwapCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE swap_requests SET completed_at = $1
		WHERE id = $2 AND status = 'accepted' AND completed_at IS NULL
	`, at, id)
	if err != nil {
		return false, mapErr(err, "ошибка завершения обмена")
	}
	return tag.RowsAffected() == 1, nil
}

// RejectPendingSwaps отклоняет конкурирующие pending-предложения одним запросом
func (r *repo) RejectPendingSwaps(ctx context.Context, itemIDs []int64, exceptID int64, at time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE swap_requests SET status = 'rejected', decided_at = $1
		WHERE status = 'pending'
		  AND id <> $2
		  AND (offered_item_id = ANY($3) OR requested_item_id = ANY($3))
		RETURNING id
	`, at, exceptID, itemIDs)
	if err != nil {
		return nil, mapErr(err, "ошибка отклонения конкурирующих предложений")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err, "ошибка сканирования строки")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "ошибка отклонения конкурирующих предложений")
	}
	return ids, nil
}

// HasPendingSwap проверяет наличие такой же pending-пары
func (r *repo) HasPendingSwap(ctx context.Context, offeredItemID, requestedItemID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM swap_requests
			WHERE offered_item_id = $1 AND requested_item_id = $2 AND status = 'pending'
		)
	`, offeredItemID, requestedItemID).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "ошибка проверки существующих предложений")
	}
	return exists, nil
}

// HasActiveSwapForItem проверяет, занята ли вещь pending или accepted предложением
func (r *repo) HasActiveSwapForItem(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM swap_requests
			WHERE (offered_item_id = $1 OR requested_item_id = $1)
			  AND status IN ('pending', 'accepted')
		)
	`, itemID).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "ошибка проверки активных обменов")
	}
	return exists, nil
}
