package model

import (
	"errors"
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL"
	OrderStatusApproved        OrderStatus = "APPROVED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// ErrIllegalTransition is wrapped by every TransitionError.
var ErrIllegalTransition = errors.New("illegal order status transition")

// orderTransitions lists the allowed next states for each state.
// Terminal states have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingApproval: {OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusApproved:        {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingApproval, OrderStatusApproved, OrderStatusRejected,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(v)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown order status %q", v)
	}
	return s, nil
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// ApplyStatusTransition moves o to next and stamps the timestamp that belongs
// to next. An edge outside the lifecycle graph returns *TransitionError and
// leaves o untouched.
func ApplyStatusTransition(o *Order, next OrderStatus, now time.Time) error {
	if !next.IsValid() || !o.OrderStatus.CanTransitionTo(next) {
		return &TransitionError{From: o.OrderStatus, To: next}
	}

	stamp := now
	switch next {
	case OrderStatusApproved:
		o.ApprovedAt = &stamp
	case OrderStatusRejected:
		o.RejectedAt = &stamp
	case OrderStatusShipped:
		o.ShippedAt = &stamp
	case OrderStatusDelivered:
		o.DeliveredAt = &stamp
	case OrderStatusCancelled:
		o.CancelledAt = &stamp
	}
	o.OrderStatus = next
	return nil
}
