package models

import "time"

// User представляет зарегистрированного пользователя
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	ProfileImage *string   `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary возвращает публичную часть профиля
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage}
}

// UserSummary представляет минимальную информацию о пользователе для API
type UserSummary struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// UserStats – счетчики для страницы профиля
type UserStats struct {
	ItemCount      int `json:"itemCount"`
	AvailableCount int `json:"availableCount"`
	SwapCount      int `json:"swapCount"`
}

// UserPatch – частичное обновление профиля
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	ProfileImage *string
}
