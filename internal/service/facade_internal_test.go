package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
	"github.com/egannguyen/go-food-delivery/internal/repository/memory"
)

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context, string, entity.Message) error {
	p.n++
	return nil
}

func TestCommandRunner_EventThatDoesNotFoldIsNotRecorded(t *testing.T) {
	eventLog := memory.NewEventLog(repository.OrderingStreamPrefix, entity.OrderLogRegistry())
	pub := &countingPublisher{}
	r := newCommandRunner(eventLog, pub, FacadeConfig{})
	ctx := context.Background()
	inbound := entity.Header{MessageID: "message-1", Type: entity.TypeCancelOrder, EntityID: "order-1"}

	// an order cannot be canceled before it was created
	err := r.run(ctx, "order-1", inbound, func([]entity.Message) (decision, error) {
		return evolveOrder(nil, entity.OrderCanceled{OrderID: "order-1"}), nil
	})

	require.ErrorIs(t, err, entity.ErrCorruptStream)
	history, err := eventLog.ReadAll(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, pub.n)
}

func TestEvolve_ReportsNextStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := entity.PlaceOrder(entity.CreateOrder{OrderID: "order-1", CustomerID: "c", RestaurantID: "r", Address: "a"})
	h := entity.NewMessage("orders", created, now, "").Header

	status, err := evolveOrder(nil, created).evolve(h)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusCreated), status)

	order, err := entity.RehydrateOrder([]entity.Message{{Header: h, Body: created}})
	require.NoError(t, err)
	canceled := entity.OrderCanceled{OrderID: "order-1"}
	status, err = evolveOrder(order, canceled).evolve(entity.NewMessage("orders", canceled, now, "").Header)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusCanceled), status)

	delivery := entity.NewDelivery(created)
	status, err = evolveDelivery(nil, delivery).evolve(entity.NewMessage("orders", delivery, now, "").Header)
	require.NoError(t, err)
	assert.Equal(t, string(entity.DeliveryStatusCreated), status)
}
