// Package access решает, может ли пользователь выполнить действие над ресурсом.
// Решения принимаются без обращения к хранилищу.
package access

import (
	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
)

// Action – защищаемое действие
type Action string

const (
	ItemUpdate   Action = "item:update"
	ItemDelete   Action = "item:delete"
	SwapPropose  Action = "swap:propose"
	SwapAccept   Action = "swap:accept"
	SwapReject   Action = "swap:reject"
	SwapCancel   Action = "swap:cancel"
	SwapComplete Action = "swap:complete"
	SwapView     Action = "swap:view"
	UserUpdate   Action = "user:update"
)

// Reason – причина решения
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonNotOwner        Reason = "not_owner"
	ReasonNotRecipient    Reason = "not_recipient"
	ReasonNotRequester    Reason = "not_requester"
	ReasonNotParticipant  Reason = "not_participant"
	ReasonSelfSwap        Reason = "self_swap"
	ReasonUnknownAction   Reason = "unknown_action"
)

// Resource – то, над чем выполняется действие. Заполняются только
// поля, значимые для действия.
type Resource struct {
	// OwnerID – владелец вещи, профиль пользователя или владелец
	// предлагаемой вещи при создании обмена
	OwnerID     int64
	RequesterID int64
	RecipientID int64
}

// ItemResource описывает вещь
func ItemResource(item *models.Item) Resource {
	return Resource{OwnerID: item.OwnerID}
}

// SwapResource описывает существующее предложение обмена
func SwapResource(req *models.SwapRequest) Resource {
	return Resource{RequesterID: req.RequesterID, RecipientID: req.RecipientID}
}

// ProposalResource описывает будущее предложение: предлагаемую и запрашиваемую вещи
func ProposalResource(offered, requested *models.Item) Resource {
	return Resource{OwnerID: offered.OwnerID, RecipientID: requested.OwnerID}
}

// UserResource описывает профиль пользователя
func UserResource(userID int64) Resource {
	return Resource{OwnerID: userID}
}

// Decision – результат проверки
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true, Reason: ReasonOK} }
func deny(r Reason) Decision { return Decision{Reason: r} }
func check(ok bool, r Reason) Decision {
	if ok {
		return allow()
	}
	return deny(r)
}

// Authorize проверяет право callerID выполнить action над resource
func Authorize(callerID int64, action Action, resource Resource) Decision {
	if callerID <= 0 {
		return deny(ReasonUnauthenticated)
	}

	switch action {
	case ItemUpdate, ItemDelete, UserUpdate:
		return check(callerID == resource.OwnerID, ReasonNotOwner)
	case SwapPropose:
		if callerID != resource.OwnerID {
			return deny(ReasonNotOwner)
		}
		return check(callerID != resource.RecipientID, ReasonSelfSwap)
	case SwapAccept, SwapReject:
		return check(callerID == resource.RecipientID, ReasonNotRecipient)
	case SwapCancel:
		return check(callerID == resource.RequesterID, ReasonNotRequester)
	case SwapComplete, SwapView:
		return check(callerID == resource.RequesterID || callerID == resource.RecipientID, ReasonNotParticipant)
	}
	return deny(ReasonUnknownAction)
}

var reasonMessages = map[Reason]string{
	ReasonUnauthenticated: "пользователь не авторизован",
	ReasonNotOwner:        "действие доступно только владельцу",
	ReasonNotRecipient:    "только получатель предложения может его принять или отклонить",
	ReasonNotRequester:    "только отправитель предложения может его отменить",
	ReasonNotParticipant:  "вы не участвуете в этом обмене",
	ReasonSelfSwap:        "нельзя предложить обмен самому себе",
	ReasonUnknownAction:   "неизвестное действие",
}

// Err превращает отказ в типизированную ошибку. Для разрешения возвращает nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msg := reasonMessages[d.Reason]
	switch d.Reason {
	case ReasonUnauthenticated:
		return apperrors.Unauthenticated(msg)
	case ReasonSelfSwap:
		return apperrors.Conflict(msg)
	default:
		return apperrors.Authorization(msg)
	}
}
