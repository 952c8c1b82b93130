package models

import "time"

// ItemCondition описывает физическое состояние вещи
type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like-new"
	ConditionUsed    ItemCondition = "used"
	ConditionWorn    ItemCondition = "worn"
)

// Valid проверяет, что состояние входит в допустимый набор
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionUsed, ConditionWorn:
		return true
	}
	return false
}

// ItemStatus описывает доступность вещи для обмена
type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemReserved  ItemStatus = "reserved"
	ItemTraded    ItemStatus = "traded"
)

// itemTransitions – таблица разрешенных переходов статуса вещи.
// Из traded выхода нет.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemAvailable: {ItemReserved},
	ItemReserved:  {ItemAvailable, ItemTraded},
}

// Valid проверяет, что статус входит в допустимый набор
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemAvailable, ItemReserved, ItemTraded:
		return true
	}
	return false
}

// CanTransitionTo сообщает, разрешен ли переход s -> next
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Item представляет вещь, выставленную пользователем для обмена
type Item struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"ownerId"`
	OwnerName   string        `json:"ownerName"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Condition   ItemCondition `json:"condition"`
	Status      ItemStatus    `json:"status"`
	Image       *string       `json:"image"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ItemFilter – параметры выборки каталога. Пустые поля не фильтруют.
type ItemFilter struct {
	Category  string
	Condition ItemCondition
	Status    ItemStatus
	OwnerID   int64
	Query     string
}

// ItemPatch – частичное обновление содержимого вещи. nil означает "не менять".
type ItemPatch struct {
	Name        *string
	Description *string
	Category    *string
	Condition   *ItemCondition
	Image       *string
}

// Empty сообщает, что патч ничего не меняет
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Condition == nil && p.Image == nil
}
