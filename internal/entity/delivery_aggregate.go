package entity

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

type DeliveryStatus string

const (
	DeliveryStatusCreated           DeliveryStatus = "CREATED"
	DeliveryStatusFoodInPreparation DeliveryStatus = "FOOD_IN_PREPARATION"
	DeliveryStatusFoodReady         DeliveryStatus = "FOOD_READY"
	DeliveryStatusFoodPicked        DeliveryStatus = "FOOD_PICKED"
	DeliveryStatusFoodDelivered     DeliveryStatus = "FOOD_DELIVERED"
	DeliveryStatusCanceled          DeliveryStatus = "CANCELED"
)

// Delivery tracks an order from the kitchen to the customer. ID is the order id.
type Delivery struct {
	AggregateBase
	CustomerID     string
	RestaurantID   string
	DeliveryManID  string
	Status         DeliveryStatus
	Address        string
	Items          []Item
	DeliveryCharge decimal.Decimal
	Tip            decimal.Decimal
	Total          decimal.Decimal
	Metadata       map[string]string
}

// NewDelivery decides the creation event of the delivery for a placed order.
func NewDelivery(order OrderCreated) DeliveryCreated {
	return DeliveryCreated{
		OrderID:        order.OrderID,
		CustomerID:     order.CustomerID,
		RestaurantID:   order.RestaurantID,
		Address:        order.Address,
		Items:          slices.Clone(order.Items),
		DeliveryCharge: order.DeliveryCharge,
		Total:          calculateTotal(order.Items, order.DeliveryCharge, decimal.Zero),
	}
}

func (d *Delivery) Cancel(reason string) (DeliveryCanceled, error) {
	if d.Status != DeliveryStatusCreated {
		return DeliveryCanceled{}, d.rejected("cancel delivery", "")
	}
	return DeliveryCanceled{OrderID: d.ID, Reason: reason}, nil
}

func (d *Delivery) StartFoodPreparation() (FoodInPreparation, error) {
	if d.Status != DeliveryStatusCreated {
		return FoodInPreparation{}, d.rejected("start food preparation for", "")
	}
	return FoodInPreparation{OrderID: d.ID}, nil
}

func (d *Delivery) FoodReady() (FoodIsReady, error) {
	if d.Status != DeliveryStatusFoodInPreparation {
		return FoodIsReady{}, d.rejected("set food ready for", "")
	}
	return FoodIsReady{OrderID: d.ID}, nil
}

func (d *Delivery) PickUpFood() (FoodWasPickedUp, error) {
	if d.Status != DeliveryStatusFoodReady {
		return FoodWasPickedUp{}, d.rejected("set food as picked up for", "")
	}
	return FoodWasPickedUp{OrderID: d.ID}, nil
}

func (d *Delivery) DeliverFood() (FoodDelivered, error) {
	if d.Status != DeliveryStatusFoodPicked {
		return FoodDelivered{}, d.rejected("set food as delivered for", "")
	}
	return FoodDelivered{OrderID: d.ID}, nil
}

func (d *Delivery) AssignDeliveryMan(deliveryManID string) (DeliveryManAssigned, error) {
	if d.DeliveryManID != "" {
		return DeliveryManAssigned{}, d.rejected("assign delivery man to", "delivery man "+d.DeliveryManID+" is already assigned")
	}
	if d.handedOver() {
		return DeliveryManAssigned{}, d.rejected("assign delivery man to", "")
	}
	return DeliveryManAssigned{OrderID: d.ID, DeliveryManID: deliveryManID}, nil
}

func (d *Delivery) UnAssignDeliveryMan() (DeliveryManUnAssigned, error) {
	if d.DeliveryManID == "" {
		return DeliveryManUnAssigned{}, d.rejected("un assign delivery man from", "no delivery man is assigned")
	}
	if d.handedOver() {
		return DeliveryManUnAssigned{}, d.rejected("un assign delivery man from", "")
	}
	return DeliveryManUnAssigned{OrderID: d.ID, DeliveryManID: d.DeliveryManID}, nil
}

// AddTip replaces the tip in any status.
func (d *Delivery) AddTip(tip decimal.Decimal) TipAddedToDelivery {
	return TipAddedToDelivery{
		OrderID: d.ID,
		Tip:     tip,
		Total:   calculateTotal(d.Items, d.DeliveryCharge, tip),
	}
}

// handedOver reports whether the delivery man can no longer change.
func (d *Delivery) handedOver() bool {
	switch d.Status {
	case DeliveryStatusCanceled, DeliveryStatusFoodPicked, DeliveryStatusFoodDelivered:
		return true
	}
	return false
}

func (d *Delivery) rejected(operation, reason string) error {
	return &TransitionError{EntityID: d.ID, Operation: operation, Status: string(d.Status), Reason: reason}
}

// ApplyEvent returns a new version of the delivery with ev folded in.
func (d *Delivery) ApplyEvent(h Header, ev Event) (*Delivery, error) {
	f := &deliveryFold{delivery: d.clone(), position: int(d.Version)}
	if err := ev.Accept(f, h); err != nil {
		return nil, err
	}
	f.delivery.Version++
	return f.delivery, nil
}

func (d *Delivery) clone() *Delivery {
	c := *d
	c.Items = slices.Clone(d.Items)
	c.Metadata = maps.Clone(d.Metadata)
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	return &c
}

// RehydrateDelivery folds history into a Delivery. An empty history yields nil.
func RehydrateDelivery(history []Message) (*Delivery, error) {
	f := &deliveryFold{}
	for i, msg := range history {
		f.position = i
		ev, ok := msg.Body.(Event)
		if !ok {
			return nil, &CorruptStreamError{EntityID: msg.Header.EntityID, Position: i, Type: msg.Header.Type, Reason: "not an event"}
		}
		if err := ev.Accept(f, msg.Header); err != nil {
			return nil, err
		}
		f.delivery.Version++
	}
	return f.delivery, nil
}

type deliveryFold struct {
	delivery *Delivery
	position int
}

func (f *deliveryFold) current(h Header) (*Delivery, error) {
	if f.delivery == nil {
		return nil, &CorruptStreamError{EntityID: h.EntityID, Position: f.position, Type: h.Type, Reason: "delivery stream must start with " + TypeDeliveryCreated}
	}
	return f.delivery, nil
}

func (f *deliveryFold) skip(h Header) error {
	_, err := f.current(h)
	return err
}

func (f *deliveryFold) transition(h Header, status DeliveryStatus, stampKey string) error {
	d, err := f.current(h)
	if err != nil {
		return err
	}
	d.Status = status
	d.Metadata[stampKey] = timestamp(h)
	return nil
}

func (f *deliveryFold) VisitDeliveryCreated(h Header, e DeliveryCreated) error {
	if f.delivery != nil {
		return &CorruptStreamError{EntityID: h.EntityID, Position: f.position, Type: h.Type, Reason: "delivery created twice"}
	}
	f.delivery = &Delivery{
		AggregateBase:  AggregateBase{ID: e.OrderID},
		CustomerID:     e.CustomerID,
		RestaurantID:   e.RestaurantID,
		Status:         DeliveryStatusCreated,
		Address:        e.Address,
		Items:          slices.Clone(e.Items),
		DeliveryCharge: e.DeliveryCharge,
		Tip:            decimal.Zero,
		Total:          calculateTotal(e.Items, e.DeliveryCharge, decimal.Zero),
		Metadata:       map[string]string{"creationTimestamp": timestamp(h)},
	}
	return nil
}

func (f *deliveryFold) VisitDeliveryCanceled(h Header, e DeliveryCanceled) error {
	if err := f.transition(h, DeliveryStatusCanceled, "cancellationTimestamp"); err != nil {
		return err
	}
	if e.Reason != "" {
		f.delivery.Metadata["cancellationReason"] = e.Reason
	}
	return nil
}

func (f *deliveryFold) VisitFoodInPreparation(h Header, _ FoodInPreparation) error {
	return f.transition(h, DeliveryStatusFoodInPreparation, "foodPreparationTimestamp")
}

func (f *deliveryFold) VisitFoodIsReady(h Header, _ FoodIsReady) error {
	return f.transition(h, DeliveryStatusFoodReady, "foodReadyTimestamp")
}

func (f *deliveryFold) VisitFoodWasPickedUp(h Header, _ FoodWasPickedUp) error {
	return f.transition(h, DeliveryStatusFoodPicked, "foodPickedUpTimestamp")
}

func (f *deliveryFold) VisitFoodDelivered(h Header, _ FoodDelivered) error {
	return f.transition(h, DeliveryStatusFoodDelivered, "foodDeliveredTimestamp")
}

func (f *deliveryFold) VisitDeliveryManAssigned(h Header, e DeliveryManAssigned) error {
	d, err := f.current(h)
	if err != nil {
		return err
	}
	d.DeliveryManID = e.DeliveryManID
	return nil
}

func (f *deliveryFold) VisitDeliveryManUnAssigned(h Header, _ DeliveryManUnAssigned) error {
	d, err := f.current(h)
	if err != nil {
		return err
	}
	d.DeliveryManID = ""
	return nil
}

func (f *deliveryFold) VisitTipAddedToDelivery(h Header, e TipAddedToDelivery) error {
	d, err := f.current(h)
	if err != nil {
		return err
	}
	d.Tip = e.Tip
	d.Total = calculateTotal(d.Items, d.DeliveryCharge, d.Tip)
	return nil
}

func (f *deliveryFold) VisitDeliveryProcessingError(h Header, _ DeliveryProcessingError) error {
	return f.skip(h)
}

func (f *deliveryFold) VisitOrderCreated(h Header, _ OrderCreated) error   { return f.skip(h) }
func (f *deliveryFold) VisitOrderCanceled(h Header, _ OrderCanceled) error { return f.skip(h) }
func (f *deliveryFold) VisitOrderInProgress(h Header, _ OrderInProgress) error {
	return f.skip(h)
}
func (f *deliveryFold) VisitTipAddedToOrder(h Header, _ TipAddedToOrder) error {
	return f.skip(h)
}
func (f *deliveryFold) VisitOrderCompleted(h Header, _ OrderCompleted) error { return f.skip(h) }
func (f *deliveryFold) VisitOrderProcessingError(h Header, _ OrderProcessingError) error {
	return f.skip(h)
}

var _ EventVisitor = (*deliveryFold)(nil)
