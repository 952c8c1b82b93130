package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/rajivgeraev/ecoswap-api/internal/models"
)

const userColumns = `id, email, name, password_hash, profile_image, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser создает пользователя
func (r *repo) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, profile_image)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Email, user.Name, user.PasswordHash, user.ProfileImage).Scan(&id)
	if err != nil {
		return 0, mapErr(err, "ошибка создания пользователя")
	}
	return id, nil
}

// GetUser возвращает пользователя по id
func (r *repo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "ошибка получения пользователя")
	}
	return u, nil
}

// GetUserByEmail ищет пользователя по email без учета регистра
func (r *repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, mapErr(err, "ошибка поиска пользователя по email")
	}
	return u, nil
}

// UpdateUser обновляет только переданные поля профиля
func (r *repo) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.ProfileImage != nil {
		add("profile_image", nullable(*patch.ProfileImage))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	tag, err := r.q.Exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return mapErr(err, "ошибка обновления пользователя")
	}
	if tag.RowsAffected() == 0 {
		return notFound("пользователь не найден")
	}
	return nil
}

// GetUserStats считает вещи и завершенные обмены пользователя
func (r *repo) GetUserStats(ctx context.Context, id int64) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM items WHERE owner_id = u.id),
			(SELECT COUNT(*) FROM items WHERE owner_id = u.id AND status = 'available'),
			(SELECT COUNT(*) FROM swap_requests
			  WHERE completed_at IS NOT NULL AND (requester_id = u.id OR recipient_id = u.id))
		FROM users u
		WHERE u.id = $1
	`, id).Scan(&stats.ItemCount, &stats.AvailableCount, &stats.SwapCount)
	if err != nil {
		return nil, mapErr(err, "ошибка подсчета статистики пользователя")
	}
	return &stats, nil
}

// nullable превращает пустую строку в NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
