package service

import (
	"context"
	"fmt"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// DeliveryFacade runs the commands of the delivery service against the
// delivery logs.
type DeliveryFacade struct {
	runner commandRunner
}

func NewDeliveryFacade(eventLog repository.EventLog, publisher messaging.Publisher, cfg FacadeConfig) *DeliveryFacade {
	return &DeliveryFacade{runner: newCommandRunner(eventLog, publisher, cfg)}
}

// OrderCreated opens the delivery of a placed order.
func (f *DeliveryFacade) OrderCreated(ctx context.Context, inbound entity.Header, ev entity.OrderCreated) error {
	return f.runner.run(ctx, ev.OrderID, inbound, func(history []entity.Message) (decision, error) {
		if len(history) > 0 {
			return decision{}, nil
		}
		return evolveDelivery(nil, entity.NewDelivery(ev)), nil
	})
}

func (f *DeliveryFacade) OrderCanceled(ctx context.Context, inbound entity.Header, ev entity.OrderCanceled) error {
	return f.onDelivery(ctx, inbound, ev.OrderID, "Failed to cancel a delivery", func(d *entity.Delivery) (entity.Event, error) {
		return d.Cancel(ev.Reason)
	})
}

func (f *DeliveryFacade) TipAddedToOrder(ctx context.Context, inbound entity.Header, ev entity.TipAddedToOrder) error {
	return f.onDelivery(ctx, inbound, ev.OrderID, "Failed to add tip to a delivery", func(d *entity.Delivery) (entity.Event, error) {
		return d.AddTip(ev.Tip), nil
	})
}

func (f *DeliveryFacade) PrepareFood(ctx context.Context, inbound entity.Header, cmd entity.PrepareFood) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to start food preparation", func(d *entity.Delivery) (entity.Event, error) {
		return d.StartFoodPreparation()
	})
}

func (f *DeliveryFacade) AssignDeliveryMan(ctx context.Context, inbound entity.Header, cmd entity.AssignDeliveryMan) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to assign a delivery man", func(d *entity.Delivery) (entity.Event, error) {
		return d.AssignDeliveryMan(cmd.DeliveryManID)
	})
}

func (f *DeliveryFacade) UnAssignDeliveryMan(ctx context.Context, inbound entity.Header, cmd entity.UnAssignDeliveryMan) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to un assign a delivery man", func(d *entity.Delivery) (entity.Event, error) {
		return d.UnAssignDeliveryMan()
	})
}

func (f *DeliveryFacade) FoodReady(ctx context.Context, inbound entity.Header, cmd entity.FoodReady) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to set food as ready", func(d *entity.Delivery) (entity.Event, error) {
		return d.FoodReady()
	})
}

func (f *DeliveryFacade) PickUpFood(ctx context.Context, inbound entity.Header, cmd entity.PickUpFood) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to set food as picked up", func(d *entity.Delivery) (entity.Event, error) {
		return d.PickUpFood()
	})
}

func (f *DeliveryFacade) DeliverFood(ctx context.Context, inbound entity.Header, cmd entity.DeliverFood) error {
	return f.onDelivery(ctx, inbound, cmd.OrderID, "Failed to set food as delivered", func(d *entity.Delivery) (entity.Event, error) {
		return d.DeliverFood()
	})
}

func (f *DeliveryFacade) onDelivery(ctx context.Context, inbound entity.Header, orderID, failure string, decide func(*entity.Delivery) (entity.Event, error)) error {
	return f.runner.run(ctx, orderID, inbound, func(history []entity.Message) (decision, error) {
		if len(history) == 0 {
			err := fmt.Errorf("%w: delivery %s", entity.ErrNotFound, orderID)
			return decision{
				event:    entity.DeliveryProcessingError{OrderID: orderID, Message: failure, Details: err.Error()},
				rejected: err,
			}, nil
		}
		delivery, err := entity.RehydrateDelivery(history)
		if err != nil {
			return decision{}, err
		}
		ev, err := decide(delivery)
		if err != nil {
			return decision{
				event:    entity.DeliveryProcessingError{OrderID: orderID, Message: failure, Details: err.Error()},
				append:   true,
				rejected: err,
			}, nil
		}
		return evolveDelivery(delivery, ev), nil
	})
}

// evolveDelivery accepts ev, checking it against delivery (nil before
// creation).
func evolveDelivery(delivery *entity.Delivery, ev entity.Event) decision {
	d := accept(ev)
	d.evolve = func(h entity.Header) (string, error) {
		var (
			next *entity.Delivery
			err  error
		)
		if delivery == nil {
			next, err = entity.RehydrateDelivery([]entity.Message{{Header: h, Body: ev}})
		} else {
			next, err = delivery.ApplyEvent(h, ev)
		}
		if err != nil {
			return "", err
		}
		return string(next.Status), nil
	}
	return d
}
