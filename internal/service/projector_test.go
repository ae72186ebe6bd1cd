package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository/memory"
	"github.com/egannguyen/go-food-delivery/internal/service"
)

func project(t *testing.T, p *service.DeliveryViewProjector, bodies ...entity.Body) {
	t.Helper()
	for _, b := range bodies {
		require.NoError(t, p.Handle(context.Background(), entity.NewMessage("orders", b, t0, "")))
	}
}

func TestDeliveryViewProjector(t *testing.T) {
	views := memory.NewDeliveryViewRepository()
	p := service.NewDeliveryViewProjector(views, nil)
	created := entity.NewDelivery(entity.PlaceOrder(createOrder("order-1")))

	project(t, p,
		created,
		entity.FoodInPreparation{OrderID: "order-1"},
		entity.DeliveryManAssigned{OrderID: "order-1", DeliveryManID: "dm-1"},
		entity.TipAddedToDelivery{OrderID: "order-1", Tip: decimal.NewFromInt(4), Total: decimal.NewFromInt(29)},
		entity.FoodIsReady{OrderID: "order-1"},
	)

	view, found, err := views.Get(context.Background(), "order-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.DeliveryStatusFoodReady, view.Status)
	assert.Equal(t, "dm-1", view.DeliveryManID)
	assert.Equal(t, "customer-1", view.CustomerID)
	assert.True(t, decimal.NewFromInt(29).Equal(view.Total))

	project(t, p,
		entity.DeliveryManUnAssigned{OrderID: "order-1", DeliveryManID: "dm-1"},
		entity.FoodWasPickedUp{OrderID: "order-1"},
		entity.FoodDelivered{OrderID: "order-1"},
	)
	view, _, err = views.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryStatusFoodDelivered, view.Status)
	assert.Empty(t, view.DeliveryManID)
}

func TestDeliveryViewProjector_DuplicateCreatedIsIgnored(t *testing.T) {
	views := memory.NewDeliveryViewRepository()
	p := service.NewDeliveryViewProjector(views, nil)
	created := entity.NewDelivery(entity.PlaceOrder(createOrder("order-1")))

	project(t, p, created, entity.DeliveryCanceled{OrderID: "order-1"}, created)

	view, _, err := views.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryStatusCanceled, view.Status)
}

func TestDeliveryViewProjector_MissingView(t *testing.T) {
	p := service.NewDeliveryViewProjector(memory.NewDeliveryViewRepository(), nil)

	err := p.Handle(context.Background(), entity.NewMessage("orders", entity.FoodIsReady{OrderID: "ghost"}, t0, ""))

	assert.ErrorIs(t, err, entity.ErrCorruptStream)
}

func TestDeliveryViewProjector_IgnoresOtherMessages(t *testing.T) {
	views := memory.NewDeliveryViewRepository()
	p := service.NewDeliveryViewProjector(views, nil)

	project(t, p,
		entity.PlaceOrder(createOrder("order-1")),
		entity.PrepareFood{OrderID: "order-1"},
		entity.DeliveryProcessingError{OrderID: "order-1", Message: "x"},
	)

	all, err := views.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
