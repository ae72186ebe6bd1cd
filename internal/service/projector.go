package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// DeliveryViewProjector keeps the delivery read model up to date from the
// delivery events on the channel.
type DeliveryViewProjector struct {
	views  repository.DeliveryViewRepository
	logger *slog.Logger
}

func NewDeliveryViewProjector(views repository.DeliveryViewRepository, logger *slog.Logger) *DeliveryViewProjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryViewProjector{views: views, logger: logger}
}

// Handle folds msg into its view. Messages that are not events are ignored.
func (p *DeliveryViewProjector) Handle(ctx context.Context, msg entity.Message) error {
	ev, ok := msg.Body.(entity.Event)
	if !ok {
		return nil
	}
	return ev.Accept(&viewFold{ctx: ctx, projector: p}, msg.Header)
}

// viewFold applies one event to the stored view.
type viewFold struct {
	ctx       context.Context
	projector *DeliveryViewProjector
}

func (f *viewFold) update(h entity.Header, mutate func(v *entity.DeliveryView)) error {
	view, found, err := f.projector.views.Get(f.ctx, h.EntityID)
	if err != nil {
		return fmt.Errorf("failed to load delivery view %s: %w", h.EntityID, err)
	}
	if !found {
		return &entity.CorruptStreamError{EntityID: h.EntityID, Type: h.Type, Reason: "no delivery view to update"}
	}
	mutate(&view)
	if err := f.projector.views.Save(f.ctx, view); err != nil {
		return fmt.Errorf("failed to save delivery view %s: %w", h.EntityID, err)
	}
	return nil
}

func (f *viewFold) status(h entity.Header, status entity.DeliveryStatus) error {
	return f.update(h, func(v *entity.DeliveryView) { v.Status = status })
}

func (f *viewFold) VisitDeliveryCreated(h entity.Header, e entity.DeliveryCreated) error {
	_, found, err := f.projector.views.Get(f.ctx, e.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load delivery view %s: %w", e.OrderID, err)
	}
	if found {
		f.projector.logger.Debug("Delivery view already exists", "order_id", e.OrderID)
		return nil
	}
	view := entity.DeliveryView{
		OrderID:        e.OrderID,
		CustomerID:     e.CustomerID,
		RestaurantID:   e.RestaurantID,
		Status:         entity.DeliveryStatusCreated,
		Address:        e.Address,
		Items:          slices.Clone(e.Items),
		DeliveryCharge: e.DeliveryCharge,
		Tip:            decimal.Zero,
		Total:          e.Total,
	}
	if err := f.projector.views.Save(f.ctx, view); err != nil {
		return fmt.Errorf("failed to save delivery view %s: %w", e.OrderID, err)
	}
	f.projector.logger.Info("Delivery view created", "order_id", e.OrderID)
	return nil
}

func (f *viewFold) VisitDeliveryCanceled(h entity.Header, _ entity.DeliveryCanceled) error {
	return f.status(h, entity.DeliveryStatusCanceled)
}

func (f *viewFold) VisitFoodInPreparation(h entity.Header, _ entity.FoodInPreparation) error {
	return f.status(h, entity.DeliveryStatusFoodInPreparation)
}

func (f *viewFold) VisitFoodIsReady(h entity.Header, _ entity.FoodIsReady) error {
	return f.status(h, entity.DeliveryStatusFoodReady)
}

func (f *viewFold) VisitFoodWasPickedUp(h entity.Header, _ entity.FoodWasPickedUp) error {
	return f.status(h, entity.DeliveryStatusFoodPicked)
}

func (f *viewFold) VisitFoodDelivered(h entity.Header, _ entity.FoodDelivered) error {
	return f.status(h, entity.DeliveryStatusFoodDelivered)
}

func (f *viewFold) VisitDeliveryManAssigned(h entity.Header, e entity.DeliveryManAssigned) error {
	return f.update(h, func(v *entity.DeliveryView) { v.DeliveryManID = e.DeliveryManID })
}

func (f *viewFold) VisitDeliveryManUnAssigned(h entity.Header, _ entity.DeliveryManUnAssigned) error {
	return f.update(h, func(v *entity.DeliveryView) { v.DeliveryManID = "" })
}

func (f *viewFold) VisitTipAddedToDelivery(h entity.Header, e entity.TipAddedToDelivery) error {
	return f.update(h, func(v *entity.DeliveryView) {
		v.Tip = e.Tip
		v.Total = e.Total
	})
}

func (f *viewFold) VisitDeliveryProcessingError(entity.Header, entity.DeliveryProcessingError) error {
	return nil
}

func (f *viewFold) VisitOrderCreated(entity.Header, entity.OrderCreated) error         { return nil }
func (f *viewFold) VisitOrderCanceled(entity.Header, entity.OrderCanceled) error       { return nil }
func (f *viewFold) VisitOrderInProgress(entity.Header, entity.OrderInProgress) error   { return nil }
func (f *viewFold) VisitTipAddedToOrder(entity.Header, entity.TipAddedToOrder) error   { return nil }
func (f *viewFold) VisitOrderCompleted(entity.Header, entity.OrderCompleted) error     { return nil }
func (f *viewFold) VisitOrderProcessingError(entity.Header, entity.OrderProcessingError) error {
	return nil
}

var _ entity.EventVisitor = (*viewFold)(nil)
