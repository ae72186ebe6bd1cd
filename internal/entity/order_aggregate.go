package entity

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "CREATED"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
)

// Order is the ordering service's aggregate. It is only ever built by folding
// the order's log, see RehydrateOrder.
type Order struct {
	AggregateBase
	CustomerID     string
	RestaurantID   string
	Status         OrderStatus
	Address        string
	Items          []Item
	DeliveryCharge decimal.Decimal
	Tip            decimal.Decimal
	Total          decimal.Decimal
	Metadata       map[string]string
}

// PlaceOrder decides the creation event for a new order. A missing order id
// is generated.
func PlaceOrder(cmd CreateOrder) OrderCreated {
	id := cmd.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	return OrderCreated{
		OrderID:        id,
		CustomerID:     cmd.CustomerID,
		RestaurantID:   cmd.RestaurantID,
		Address:        cmd.Address,
		Items:          slices.Clone(cmd.Items),
		DeliveryCharge: cmd.DeliveryCharge,
		Total:          calculateTotal(cmd.Items, cmd.DeliveryCharge, decimal.Zero),
	}
}

func (o *Order) Cancel(reason string) (OrderCanceled, error) {
	if o.Status != OrderStatusCreated {
		return OrderCanceled{}, o.rejected("cancel")
	}
	return OrderCanceled{OrderID: o.ID, Reason: reason}, nil
}

func (o *Order) SetInProgress() (OrderInProgress, error) {
	if o.Status != OrderStatusCreated {
		return OrderInProgress{}, o.rejected("set in progress")
	}
	return OrderInProgress{OrderID: o.ID}, nil
}

// AddTip replaces the tip. Terminal orders cannot be tipped.
func (o *Order) AddTip(tip decimal.Decimal) (TipAddedToOrder, error) {
	if o.Status == OrderStatusCanceled || o.Status == OrderStatusCompleted {
		return TipAddedToOrder{}, o.rejected("add tip to")
	}
	return TipAddedToOrder{
		OrderID: o.ID,
		Tip:     tip,
		Total:   calculateTotal(o.Items, o.DeliveryCharge, tip),
	}, nil
}

func (o *Order) Complete() (OrderCompleted, error) {
	if o.Status != OrderStatusInProgress {
		return OrderCompleted{}, o.rejected("complete")
	}
	return OrderCompleted{OrderID: o.ID}, nil
}

func (o *Order) rejected(operation string) error {
	return &TransitionError{EntityID: o.ID, Operation: operation, Status: string(o.Status)}
}

// ApplyEvent returns a new version of the order with ev folded in. The
// receiver is left untouched.
func (o *Order) ApplyEvent(h Header, ev Event) (*Order, error) {
	f := &orderFold{order: o.clone(), position: int(o.Version)}
	if err := ev.Accept(f, h); err != nil {
		return nil, err
	}
	f.order.Version++
	return f.order, nil
}

func (o *Order) clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Metadata = maps.Clone(o.Metadata)
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	return &c
}

// RehydrateOrder folds history into an Order. An empty history yields nil.
func RehydrateOrder(history []Message) (*Order, error) {
	f := &orderFold{}
	for i, msg := range history {
		f.position = i
		ev, ok := msg.Body.(Event)
		if !ok {
			return nil, &CorruptStreamError{EntityID: msg.Header.EntityID, Position: i, Type: msg.Header.Type, Reason: "not an event"}
		}
		if err := ev.Accept(f, msg.Header); err != nil {
			return nil, err
		}
		f.order.Version++
	}
	return f.order, nil
}

type orderFold struct {
	order    *Order
	position int
}

func (f *orderFold) current(h Header) (*Order, error) {
	if f.order == nil {
		return nil, &CorruptStreamError{EntityID: h.EntityID, Position: f.position, Type: h.Type, Reason: "order stream must start with " + TypeOrderCreated}
	}
	return f.order, nil
}

func (f *orderFold) skip(h Header) error {
	_, err := f.current(h)
	return err
}

func timestamp(h Header) string {
	return h.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (f *orderFold) VisitOrderCreated(h Header, e OrderCreated) error {
	if f.order != nil {
		return &CorruptStreamError{EntityID: h.EntityID, Position: f.position, Type: h.Type, Reason: "order created twice"}
	}
	f.order = &Order{
		AggregateBase:  AggregateBase{ID: e.OrderID},
		CustomerID:     e.CustomerID,
		RestaurantID:   e.RestaurantID,
		Status:         OrderStatusCreated,
		Address:        e.Address,
		Items:          slices.Clone(e.Items),
		DeliveryCharge: e.DeliveryCharge,
		Tip:            decimal.Zero,
		Total:          calculateTotal(e.Items, e.DeliveryCharge, decimal.Zero),
		Metadata:       map[string]string{"creationTimestamp": timestamp(h)},
	}
	return nil
}

func (f *orderFold) VisitOrderCanceled(h Header, e OrderCanceled) error {
	o, err := f.current(h)
	if err != nil {
		return err
	}
	o.Status = OrderStatusCanceled
	o.Metadata["cancellationTimestamp"] = timestamp(h)
	if e.Reason != "" {
		o.Metadata["cancellationReason"] = e.Reason
	}
	return nil
}

func (f *orderFold) VisitOrderInProgress(h Header, _ OrderInProgress) error {
	o, err := f.current(h)
	if err != nil {
		return err
	}
	o.Status = OrderStatusInProgress
	return nil
}

func (f *orderFold) VisitTipAddedToOrder(h Header, e TipAddedToOrder) error {
	o, err := f.current(h)
	if err != nil {
		return err
	}
	o.Tip = e.Tip
	o.Total = calculateTotal(o.Items, o.DeliveryCharge, o.Tip)
	return nil
}

func (f *orderFold) VisitOrderCompleted(h Header, _ OrderCompleted) error {
	o, err := f.current(h)
	if err != nil {
		return err
	}
	o.Status = OrderStatusCompleted
	return nil
}

func (f *orderFold) VisitOrderProcessingError(h Header, _ OrderProcessingError) error {
	return f.skip(h)
}

func (f *orderFold) VisitDeliveryCreated(h Header, _ DeliveryCreated) error   { return f.skip(h) }
func (f *orderFold) VisitDeliveryCanceled(h Header, _ DeliveryCanceled) error { return f.skip(h) }
func (f *orderFold) VisitFoodInPreparation(h Header, _ FoodInPreparation) error {
	return f.skip(h)
}
func (f *orderFold) VisitDeliveryManAssigned(h Header, _ DeliveryManAssigned) error {
	return f.skip(h)
}
func (f *orderFold) VisitDeliveryManUnAssigned(h Header, _ DeliveryManUnAssigned) error {
	return f.skip(h)
}
func (f *orderFold) VisitFoodIsReady(h Header, _ FoodIsReady) error         { return f.skip(h) }
func (f *orderFold) VisitFoodWasPickedUp(h Header, _ FoodWasPickedUp) error { return f.skip(h) }
func (f *orderFold) VisitFoodDelivered(h Header, _ FoodDelivered) error     { return f.skip(h) }
func (f *orderFold) VisitTipAddedToDelivery(h Header, _ TipAddedToDelivery) error {
	return f.skip(h)
}
func (f *orderFold) VisitDeliveryProcessingError(h Header, _ DeliveryProcessingError) error {
	return f.skip(h)
}

var _ EventVisitor = (*orderFold)(nil)
