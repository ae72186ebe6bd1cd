package entity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

var (
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pizza = entity.Item{Name: "Pizza", Amount: 2, PricePerItem: decimal.RequireFromString("10")}
	cola  = entity.Item{Name: "Cola", Amount: 1, PricePerItem: decimal.RequireFromString("2.5")}
)

func msg(body entity.Body, at time.Time) entity.Message {
	return entity.NewMessage("orders", body, at, "")
}

func createdOrder(id string) entity.OrderCreated {
	return entity.PlaceOrder(entity.CreateOrder{
		OrderID:        id,
		CustomerID:     "customer-1",
		RestaurantID:   "restaurant-1",
		Items:          []entity.Item{pizza, cola},
		Address:        "Main street 1",
		DeliveryCharge: decimal.RequireFromString("5"),
	})
}

func TestPlaceOrder(t *testing.T) {
	ev := createdOrder("order-1")

	assert.Equal(t, "order-1", ev.OrderID)
	assert.True(t, decimal.RequireFromString("27.5").Equal(ev.Total), ev.Total.String())
}

func TestPlaceOrder_GeneratesMissingID(t *testing.T) {
	ev := entity.PlaceOrder(entity.CreateOrder{CustomerID: "c"})

	assert.NotEmpty(t, ev.OrderID)
}

func TestRehydrateOrder_Empty(t *testing.T) {
	order, err := entity.RehydrateOrder(nil)

	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestRehydrateOrder_CreateThenCancel(t *testing.T) {
	history := []entity.Message{msg(createdOrder("order-1"), t0)}
	order, err := entity.RehydrateOrder(history)
	require.NoError(t, err)

	canceled, err := order.Cancel("not hungry")
	require.NoError(t, err)
	history = append(history, msg(canceled, t0.Add(time.Minute)))

	order, err = entity.RehydrateOrder(history)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCanceled, order.Status)
	assert.Equal(t, "not hungry", order.Metadata["cancellationReason"])
	assert.Equal(t, "2026-03-01T12:01:00Z", order.Metadata["cancellationTimestamp"])
	assert.Equal(t, int64(2), order.GetVersion())
}

func TestRehydrateOrder_TipRecomputesTotal(t *testing.T) {
	order, err := entity.RehydrateOrder([]entity.Message{msg(createdOrder("order-1"), t0)})
	require.NoError(t, err)

	tip, err := order.AddTip(decimal.RequireFromString("3"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("30.5").Equal(tip.Total))

	// a second tip replaces the first one
	next, err := order.ApplyEvent(msg(tip, t0).Header, tip)
	require.NoError(t, err)
	tip2, err := next.AddTip(decimal.RequireFromString("1"))
	require.NoError(t, err)
	next, err = next.ApplyEvent(msg(tip2, t0).Header, tip2)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("28.5").Equal(next.Total), next.Total.String())
	assert.True(t, decimal.RequireFromString("1").Equal(next.Tip))
	assert.True(t, decimal.RequireFromString("27.5").Equal(order.Total), "receiver must stay untouched")
}

func TestRehydrateOrder_FullLifecycle(t *testing.T) {
	history := []entity.Message{
		msg(createdOrder("order-1"), t0),
		msg(entity.OrderInProgress{OrderID: "order-1"}, t0),
		msg(entity.OrderProcessingError{OrderID: "order-1", Message: "boom"}, t0),
		msg(entity.OrderCompleted{OrderID: "order-1"}, t0),
	}

	order, err := entity.RehydrateOrder(history)

	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, int64(4), order.GetVersion())
}

func TestRehydrateOrder_Deterministic(t *testing.T) {
	history := []entity.Message{
		msg(createdOrder("order-1"), t0),
		msg(entity.TipAddedToOrder{OrderID: "order-1", Tip: decimal.RequireFromString("4")}, t0),
		msg(entity.OrderInProgress{OrderID: "order-1"}, t0),
	}

	first, err := entity.RehydrateOrder(history)
	require.NoError(t, err)
	second, err := entity.RehydrateOrder(history)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestRehydrateOrder_CorruptStream(t *testing.T) {
	tests := []struct {
		name    string
		history []entity.Message
	}{
		{"starts without created", []entity.Message{msg(entity.OrderInProgress{OrderID: "o"}, t0)}},
		{"starts with processing error", []entity.Message{msg(entity.OrderProcessingError{OrderID: "o"}, t0)}},
		{"created twice", []entity.Message{msg(createdOrder("o"), t0), msg(createdOrder("o"), t0)}},
		{"command in log", []entity.Message{msg(createdOrder("o"), t0), msg(entity.CancelOrder{OrderID: "o"}, t0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := entity.RehydrateOrder(tt.history)

			assert.Nil(t, order)
			assert.ErrorIs(t, err, entity.ErrCorruptStream)
			var corrupt *entity.CorruptStreamError
			assert.True(t, errors.As(err, &corrupt))
		})
	}
}

func TestOrder_Guards(t *testing.T) {
	items := []entity.Item{pizza}
	charge := decimal.RequireFromString("1")
	tests := []struct {
		status     entity.OrderStatus
		cancel     bool
		inProgress bool
		complete   bool
		tip        bool
	}{
		{entity.OrderStatusCreated, true, true, false, true},
		{entity.OrderStatusInProgress, false, false, true, true},
		{entity.OrderStatusCanceled, false, false, false, false},
		{entity.OrderStatusCompleted, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := entity.RestoreOrder("order-1", tt.status, items, charge, decimal.Zero)

			_, err := order.Cancel("")
			assertAllowed(t, tt.cancel, err)
			_, err = order.SetInProgress()
			assertAllowed(t, tt.inProgress, err)
			_, err = order.Complete()
			assertAllowed(t, tt.complete, err)
			_, err = order.AddTip(decimal.RequireFromString("2"))
			assertAllowed(t, tt.tip, err)
		})
	}
}

func assertAllowed(t *testing.T, allowed bool, err error) {
	t.Helper()
	if allowed {
		assert.NoError(t, err)
		return
	}
	assert.ErrorIs(t, err, entity.ErrIllegalTransition)
}

func TestOrder_CancelRejectedMessage(t *testing.T) {
	order := entity.RestoreOrder("order-1", entity.OrderStatusCompleted, nil, decimal.Zero, decimal.Zero)

	_, err := order.Cancel("late")

	var transition *entity.TransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "order-1", transition.EntityID)
	assert.Equal(t, "COMPLETED", transition.Status)
	assert.Contains(t, err.Error(), "cancel")
}

func TestCalculateTotal(t *testing.T) {
	total := entity.CalculateTotal(
		[]entity.Item{pizza, cola},
		decimal.RequireFromString("0.1"),
		decimal.RequireFromString("0.2"),
	)

	assert.Equal(t, "22.8", total.String())
}
