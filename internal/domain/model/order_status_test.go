package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	OrderStatusPendingApproval,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func stampFor(o *Order, s OrderStatus) *time.Time {
	switch s {
	case OrderStatusApproved:
		return o.ApprovedAt
	case OrderStatusRejected:
		return o.RejectedAt
	case OrderStatusShipped:
		return o.ShippedAt
	case OrderStatusDelivered:
		return o.DeliveredAt
	case OrderStatusCancelled:
		return o.CancelledAt
	}
	return nil
}

func TestApplyStatusTransition_ApprovePending(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPendingApproval}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ApplyStatusTransition(o, OrderStatusApproved, now))

	assert.Equal(t, OrderStatusApproved, o.OrderStatus)
	require.NotNil(t, o.ApprovedAt)
	assert.Equal(t, now, *o.ApprovedAt)
	assert.Nil(t, o.RejectedAt)
	assert.Nil(t, o.ShippedAt)
	assert.Nil(t, o.DeliveredAt)
	assert.Nil(t, o.CancelledAt)
}

func TestApplyStatusTransition_PendingToShippedRejected(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPendingApproval}

	err := ApplyStatusTransition(o, OrderStatusShipped, time.Now())

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OrderStatusPendingApproval, te.From)
	assert.Equal(t, OrderStatusShipped, te.To)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, OrderStatusPendingApproval, o.OrderStatus)
	assert.Nil(t, o.ShippedAt)
	assert.Nil(t, o.ApprovedAt)
}

func TestApplyStatusTransition_FullLifecycle(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPendingApproval}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	steps := []OrderStatus{OrderStatusApproved, OrderStatusShipped, OrderStatusDelivered}
	for i, s := range steps {
		require.NoError(t, ApplyStatusTransition(o, s, base.Add(time.Duration(i)*time.Hour)))
	}

	assert.Equal(t, OrderStatusDelivered, o.OrderStatus)
	assert.Equal(t, base, *o.ApprovedAt)
	assert.Equal(t, base.Add(time.Hour), *o.ShippedAt)
	assert.Equal(t, base.Add(2*time.Hour), *o.DeliveredAt)
	assert.Nil(t, o.CancelledAt)
	assert.Nil(t, o.RejectedAt)
}

func TestApplyStatusTransition_Table(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPendingApproval: {OrderStatusApproved: true, OrderStatusRejected: true, OrderStatusCancelled: true},
		OrderStatusApproved:        {OrderStatusShipped: true, OrderStatusCancelled: true},
		OrderStatusShipped:         {OrderStatusDelivered: true, OrderStatusCancelled: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				o := &Order{OrderStatus: from}
				now := time.Date(2024, 2, 2, 2, 2, 2, 0, time.UTC)

				err := ApplyStatusTransition(o, to, now)

				if allowed[from][to] {
					require.NoError(t, err)
					assert.Equal(t, to, o.OrderStatus)
					require.NotNil(t, stampFor(o, to))
					assert.Equal(t, now, *stampFor(o, to))
					return
				}
				assert.ErrorIs(t, err, ErrIllegalTransition)
				assert.Equal(t, from, o.OrderStatus)
				assert.Nil(t, stampFor(o, to))
			})
		}
	}
}

func TestApplyStatusTransition_TimestampsNeverCleared(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPendingApproval}
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	require.NoError(t, ApplyStatusTransition(o, OrderStatusApproved, t1))
	require.NoError(t, ApplyStatusTransition(o, OrderStatusCancelled, t2))

	assert.Equal(t, t1, *o.ApprovedAt)
	assert.Equal(t, t2, *o.CancelledAt)
}

func TestApplyStatusTransition_UnknownStatus(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusApproved}

	err := ApplyStatusTransition(o, OrderStatus("LOST"), time.Now())

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, OrderStatusApproved, o.OrderStatus)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPendingApproval.IsTerminal())
	assert.False(t, OrderStatusApproved.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatus("nope").IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}
