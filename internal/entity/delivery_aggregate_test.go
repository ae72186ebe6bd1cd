package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

func createdDelivery(id string) entity.DeliveryCreated {
	return entity.NewDelivery(createdOrder(id))
}

func TestRehydrateDelivery_HappyPath(t *testing.T) {
	history := []entity.Message{
		msg(createdDelivery("order-1"), t0),
		msg(entity.FoodInPreparation{OrderID: "order-1"}, t0.Add(1*time.Minute)),
		msg(entity.DeliveryManAssigned{OrderID: "order-1", DeliveryManID: "dm-1"}, t0.Add(2*time.Minute)),
		msg(entity.FoodIsReady{OrderID: "order-1"}, t0.Add(3*time.Minute)),
		msg(entity.FoodWasPickedUp{OrderID: "order-1"}, t0.Add(4*time.Minute)),
		msg(entity.FoodDelivered{OrderID: "order-1"}, t0.Add(5*time.Minute)),
	}

	delivery, err := entity.RehydrateDelivery(history)

	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryStatusFoodDelivered, delivery.Status)
	assert.Equal(t, "dm-1", delivery.DeliveryManID)
	assert.Equal(t, int64(6), delivery.GetVersion())
	assert.Equal(t, map[string]string{
		"creationTimestamp":        "2026-03-01T12:00:00Z",
		"foodPreparationTimestamp": "2026-03-01T12:01:00Z",
		"foodReadyTimestamp":       "2026-03-01T12:03:00Z",
		"foodPickedUpTimestamp":    "2026-03-01T12:04:00Z",
		"foodDeliveredTimestamp":   "2026-03-01T12:05:00Z",
	}, delivery.Metadata)
}

// A delivery whose food is being prepared cannot be canceled.
func TestDelivery_CancelAfterPreparation(t *testing.T) {
	delivery, err := entity.RehydrateDelivery([]entity.Message{
		msg(createdDelivery("order-1"), t0),
		msg(entity.FoodInPreparation{OrderID: "order-1"}, t0),
	})
	require.NoError(t, err)

	_, err = delivery.Cancel("changed my mind")

	assert.ErrorIs(t, err, entity.ErrIllegalTransition)
	assert.Contains(t, err.Error(), "FOOD_IN_PREPARATION")
}

func TestDelivery_Cancel(t *testing.T) {
	delivery := entity.RestoreDelivery("order-1", entity.DeliveryStatusCreated, "")

	ev, err := delivery.Cancel("")
	require.NoError(t, err)
	next, err := delivery.ApplyEvent(msg(ev, t0).Header, ev)
	require.NoError(t, err)

	assert.Equal(t, entity.DeliveryStatusCanceled, next.Status)
	assert.NotContains(t, next.Metadata, "cancellationReason")
	assert.Contains(t, next.Metadata, "cancellationTimestamp")
	assert.Equal(t, entity.DeliveryStatusCreated, delivery.Status)
}

func TestDelivery_StatusGuards(t *testing.T) {
	statuses := []entity.DeliveryStatus{
		entity.DeliveryStatusCreated,
		entity.DeliveryStatusFoodInPreparation,
		entity.DeliveryStatusFoodReady,
		entity.DeliveryStatusFoodPicked,
		entity.DeliveryStatusFoodDelivered,
		entity.DeliveryStatusCanceled,
	}
	operations := []struct {
		name     string
		requires entity.DeliveryStatus
		run      func(d *entity.Delivery) error
	}{
		{"cancel", entity.DeliveryStatusCreated, func(d *entity.Delivery) error { _, err := d.Cancel("x"); return err }},
		{"prepare", entity.DeliveryStatusCreated, func(d *entity.Delivery) error { _, err := d.StartFoodPreparation(); return err }},
		{"ready", entity.DeliveryStatusFoodInPreparation, func(d *entity.Delivery) error { _, err := d.FoodReady(); return err }},
		{"pick up", entity.DeliveryStatusFoodReady, func(d *entity.Delivery) error { _, err := d.PickUpFood(); return err }},
		{"deliver", entity.DeliveryStatusFoodPicked, func(d *entity.Delivery) error { _, err := d.DeliverFood(); return err }},
	}
	for _, op := range operations {
		for _, status := range statuses {
			t.Run(op.name+"/"+string(status), func(t *testing.T) {
				err := op.run(entity.RestoreDelivery("order-1", status, ""))
				assertAllowed(t, status == op.requires, err)
			})
		}
	}
}

func TestDelivery_DeliveryManGuards(t *testing.T) {
	tests := []struct {
		status   entity.DeliveryStatus
		assigned string
		assign   bool
		unassign bool
	}{
		{entity.DeliveryStatusCreated, "", true, false},
		{entity.DeliveryStatusCreated, "dm-1", false, true},
		{entity.DeliveryStatusFoodInPreparation, "", true, false},
		{entity.DeliveryStatusFoodReady, "dm-1", false, true},
		{entity.DeliveryStatusFoodPicked, "dm-1", false, false},
		{entity.DeliveryStatusFoodDelivered, "", false, false},
		{entity.DeliveryStatusCanceled, "", false, false},
		{entity.DeliveryStatusCanceled, "dm-1", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+tt.assigned, func(t *testing.T) {
			delivery := entity.RestoreDelivery("order-1", tt.status, tt.assigned)

			_, err := delivery.AssignDeliveryMan("dm-2")
			assertAllowed(t, tt.assign, err)
			_, err = delivery.UnAssignDeliveryMan()
			assertAllowed(t, tt.unassign, err)
		})
	}
}

func TestDelivery_UnAssignCarriesDeliveryMan(t *testing.T) {
	delivery := entity.RestoreDelivery("order-1", entity.DeliveryStatusFoodReady, "dm-7")

	ev, err := delivery.UnAssignDeliveryMan()
	require.NoError(t, err)
	assert.Equal(t, "dm-7", ev.DeliveryManID)

	next, err := delivery.ApplyEvent(msg(ev, t0).Header, ev)
	require.NoError(t, err)
	assert.Empty(t, next.DeliveryManID)
}

func TestDelivery_AddTipInAnyStatus(t *testing.T) {
	delivery := entity.RestoreDelivery("order-1", entity.DeliveryStatusFoodDelivered, "")

	ev := delivery.AddTip(decimal.RequireFromString("4"))
	next, err := delivery.ApplyEvent(msg(ev, t0).Header, ev)

	require.NoError(t, err)
	// 2 x 7.50 + 2.25 + 4
	assert.Equal(t, "21.25", next.Total.String())
	assert.True(t, ev.Total.Equal(next.Total))
}

func TestRehydrateDelivery_CorruptStream(t *testing.T) {
	_, err := entity.RehydrateDelivery([]entity.Message{msg(entity.FoodIsReady{OrderID: "o"}, t0)})
	assert.ErrorIs(t, err, entity.ErrCorruptStream)

	_, err = entity.RehydrateDelivery([]entity.Message{
		msg(createdDelivery("o"), t0),
		msg(createdDelivery("o"), t0),
	})
	assert.ErrorIs(t, err, entity.ErrCorruptStream)
}

func TestRehydrateDelivery_IgnoresOrderEvents(t *testing.T) {
	delivery, err := entity.RehydrateDelivery([]entity.Message{
		msg(createdDelivery("o"), t0),
		msg(entity.OrderInProgress{OrderID: "o"}, t0),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryStatusCreated, delivery.Status)
}
