package postgres

import (
	"context"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

const itemSelect = `
	SELECT i.id, i.owner_id, u.name, i.name, i.description, i.category,
	       i.condition, i.status, i.image, i.created_at, i.updated_at
	FROM items i
	JOIN users u ON u.id = i.owner_id`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.OwnerID, &it.OwnerName, &it.Name, &it.Description, &it.Category,
		&it.Condition, &it.Status, &it.Image, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func notFound(msg string) error {
	return pkgerrors.Wrap(storage.ErrNotFound, msg)
}

// CreateItem вставляет вещь и возвращает ее id
func (r *repo) CreateItem(ctx context.Context, item *models.Item) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO items (owner_id, name, description, category, condition, status, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.OwnerID, item.Name, item.Description, item.Category, item.Condition, item.Status, item.Image).Scan(&id)
	if err != nil {
		return 0, mapErr(err, "ошибка сохранения вещи")
	}
	return id, nil
}

// GetItem возвращает вещь с именем владельца
func (r *repo) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, itemSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "ошибка получения вещи")
	}
	return it, nil
}

// GetItemForUpdate блокирует строку вещи до конца транзакции
func (r *repo) GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, itemSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id))
	if err != nil {
		return nil, mapErr(err, "ошибка блокировки вещи")
	}
	return it, nil
}

// ListItems выбирает вещи по фильтру, новые первыми
func (r *repo) ListItems(ctx context.Context, f models.ItemFilter) ([]models.Item, error) {
	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Category != "" {
		where = append(where, "LOWER(i.category) = LOWER("+arg(f.Category)+")")
	}
	if f.Condition != "" {
		where = append(where, "i.condition = "+arg(f.Condition))
	}
	if f.Status != "" {
		where = append(where, "i.status = "+arg(f.Status))
	}
	if f.OwnerID != 0 {
		where = append(where, "i.owner_id = "+arg(f.OwnerID))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, "(i.name ILIKE "+p+" OR i.description ILIKE "+p+" OR i.category ILIKE "+p+")")
	}

	query := itemSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "ошибка запроса вещей")
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, mapErr(err, "ошибка сканирования строки")
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "ошибка чтения вещей")
	}
	return items, nil
}

// escapeLike экранирует спецсимволы LIKE, чтобы искать подстроку буквально
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateItem обновляет содержимое вещи
func (r *repo) UpdateItem(ctx context.Context, id int64, p models.ItemPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Condition != nil {
		add("condition", *p.Condition)
	}
	if p.Image != nil {
		add("image", nullable(*p.Image))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	tag, err := r.q.Exec(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return mapErr(err, "ошибка обновления вещи")
	}
	if tag.RowsAffected() == 0 {
		return notFound("вещь не найдена")
	}
	return nil
}

// UpdateItemStatus меняет статус, только если текущий равен from
func (r *repo) UpdateItemStatus(ctx context.Context, id int64, from, to models.ItemStatus) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE items SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, mapErr(err, "ошибка обновления статуса вещи")
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Отличаем "нет строки" от "статус уже другой"
	var exists bool
	err = r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "ошибка проверки вещи")
	}
	if !exists {
		return false, notFound("вещь не найдена")
	}
	return false, nil
}

// DeleteItem удаляет вещь. Связанные заявки удаляются каскадом.
func (r *repo) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "ошибка удаления вещи")
	}
	if tag.RowsAffected() == 0 {
		return notFound("вещь не найдена")
	}
	return nil
}
