package models

import "time"

// SwapStatus – состояние предложения обмена
type SwapStatus string

const (
	SwapPending  SwapStatus = "pending"
	SwapAccepted SwapStatus = "accepted"
	SwapRejected SwapStatus = "rejected"
	SwapCanceled SwapStatus = "canceled"
)

// Valid проверяет, что статус входит в допустимый набор
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapAccepted, SwapRejected, SwapCanceled:
		return true
	}
	return false
}

// Active сообщает, занимает ли предложение вещи (pending или accepted)
func (s SwapStatus) Active() bool {
	return s == SwapPending || s == SwapAccepted
}

// Terminal сообщает, что из статуса нет переходов
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected || s == SwapCanceled
}

// SwapRequest представляет предложение обмена вещь на вещь
type SwapRequest struct {
	ID              int64      `json:"id"`
	RequesterID     int64      `json:"requesterId"`
	RecipientID     int64      `json:"recipientId"`
	OfferedItemID   int64      `json:"offeredItemId"`
	RequestedItemID int64      `json:"requestedItemId"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	DecidedAt       *time.Time `json:"decidedAt"`
	CompletedAt     *time.Time `json:"completedAt"`

	// Дополнительные поля для API
	OfferedItem   *Item        `json:"offeredItem,omitempty"`
	RequestedItem *Item        `json:"requestedItem,omitempty"`
	Requester     *UserSummary `json:"requester,omitempty"`
	Recipient     *UserSummary `json:"recipient,omitempty"`
}

// Touches сообщает, ссылается ли предложение на вещь
func (r *SwapRequest) Touches(itemID int64) bool {
	return r.OfferedItemID == itemID || r.RequestedItemID == itemID
}

// IsParticipant сообщает, является ли пользователь стороной обмена
func (r *SwapRequest) IsParticipant(userID int64) bool {
	return r.RequesterID == userID || r.RecipientID == userID
}

// SwapRole задает, с какой стороны смотреть на предложения пользователя
type SwapRole string

const (
	RoleSent     SwapRole = "sent"
	RoleReceived SwapRole = "received"
	RoleAll      SwapRole = "all"
)

// Valid проверяет роль
func (r SwapRole) Valid() bool {
	return r == RoleSent || r == RoleReceived || r == RoleAll
}

// SwapFilter – параметры выборки предложений пользователя
type SwapFilter struct {
	UserID int64
	Role   SwapRole
	Status SwapStatus
}
