package application

import (
	"context"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// RolePolicy authorizes actions by role, and restricts senders to their own orders.
type RolePolicy struct{}

func (RolePolicy) Authorize(_ context.Context, actor domain.Actor, action domain.Action, order *domain.Order) error {
	var from domain.Status
	orderID := ""
	if order != nil {
		from = order.Status
		orderID = order.ID
	}
	denied := &domain.TransitionRejectedError{Reason: domain.ReasonUnauthorizedActor, OrderID: orderID, Action: action, Current: from}
	if !actor.Valid() || !domain.RolePermits(actor.Role, action, from) {
		return denied
	}
	if actor.Role == domain.RoleSender && order != nil && order.SenderID != actor.ID {
		return denied
	}
	return nil
}

var _ ports.Authorizer = RolePolicy{}
