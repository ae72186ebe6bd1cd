package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// OrderingFacade runs the commands of the ordering service against the order
// logs.
type OrderingFacade struct {
	runner commandRunner
}

func NewOrderingFacade(eventLog repository.EventLog, publisher messaging.Publisher, cfg FacadeConfig) *OrderingFacade {
	return &OrderingFacade{runner: newCommandRunner(eventLog, publisher, cfg)}
}

// CreateOrder places a new order. Placing an order that already has a log is
// a no-op.
func (f *OrderingFacade) CreateOrder(ctx context.Context, inbound entity.Header, cmd entity.CreateOrder) error {
	if cmd.OrderID == "" {
		cmd.OrderID = orderIDFor(inbound)
	}
	return f.runner.run(ctx, cmd.OrderID, inbound, func(history []entity.Message) (decision, error) {
		if len(history) > 0 {
			return decision{}, nil
		}
		return evolveOrder(nil, entity.PlaceOrder(cmd)), nil
	})
}

// orderIDFor names an order placed without an id after the message that
// placed it, so a redelivered CreateOrder finds the same log.
func orderIDFor(inbound entity.Header) string {
	if inbound.MessageID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(inbound.MessageID)).String()
}

// evolveOrder accepts ev, checking it against order (nil before creation).
func evolveOrder(order *entity.Order, ev entity.Event) decision {
	d := accept(ev)
	d.evolve = func(h entity.Header) (string, error) {
		next, err := applyOrder(order, h, ev)
		if err != nil {
			return "", err
		}
		return string(next.Status), nil
	}
	return d
}

func applyOrder(order *entity.Order, h entity.Header, ev entity.Event) (*entity.Order, error) {
	if order == nil {
		return entity.RehydrateOrder([]entity.Message{{Header: h, Body: ev}})
	}
	return order.ApplyEvent(h, ev)
}

func (f *OrderingFacade) CancelOrder(ctx context.Context, inbound entity.Header, cmd entity.CancelOrder) error {
	return f.onOrder(ctx, inbound, cmd.OrderID, "Failed to cancel an order", func(o *entity.Order) (entity.Event, error) {
		return o.Cancel(cmd.Reason)
	})
}

func (f *OrderingFacade) AddTip(ctx context.Context, inbound entity.Header, cmd entity.AddTip) error {
	return f.onOrder(ctx, inbound, cmd.OrderID, "Failed to add tip to an order", func(o *entity.Order) (entity.Event, error) {
		return o.AddTip(cmd.Tip)
	})
}

// FoodInPreparation moves the order in progress once the kitchen started.
func (f *OrderingFacade) FoodInPreparation(ctx context.Context, inbound entity.Header, ev entity.FoodInPreparation) error {
	return f.onOrder(ctx, inbound, ev.OrderID, "Failed to set an order in progress", func(o *entity.Order) (entity.Event, error) {
		return o.SetInProgress()
	})
}

// FoodDelivered completes the order.
func (f *OrderingFacade) FoodDelivered(ctx context.Context, inbound entity.Header, ev entity.FoodDelivered) error {
	return f.onOrder(ctx, inbound, ev.OrderID, "Failed to complete an order", func(o *entity.Order) (entity.Event, error) {
		return o.Complete()
	})
}

func (f *OrderingFacade) onOrder(ctx context.Context, inbound entity.Header, orderID, failure string, decide func(*entity.Order) (entity.Event, error)) error {
	return f.runner.run(ctx, orderID, inbound, func(history []entity.Message) (decision, error) {
		if len(history) == 0 {
			err := fmt.Errorf("%w: order %s", entity.ErrNotFound, orderID)
			return decision{
				event:    entity.OrderProcessingError{OrderID: orderID, Message: failure, Details: err.Error()},
				rejected: err,
			}, nil
		}
		order, err := entity.RehydrateOrder(history)
		if err != nil {
			return decision{}, err
		}
		ev, err := decide(order)
		if err != nil {
			return decision{
				event:    entity.OrderProcessingError{OrderID: orderID, Message: failure, Details: err.Error()},
				append:   true,
				rejected: err,
			}, nil
		}
		return evolveOrder(order, ev), nil
	})
}
