package entity

// EventVisitor has one method per event kind published on the orders channel.
// Every fold implements it in full, so adding an event kind here fails the
// build of each fold that does not handle it yet.
type EventVisitor interface {
	VisitOrderCreated(Header, OrderCreated) error
	VisitOrderCanceled(Header, OrderCanceled) error
	VisitOrderInProgress(Header, OrderInProgress) error
	VisitTipAddedToOrder(Header, TipAddedToOrder) error
	VisitOrderCompleted(Header, OrderCompleted) error
	VisitOrderProcessingError(Header, OrderProcessingError) error

	VisitDeliveryCreated(Header, DeliveryCreated) error
	VisitDeliveryCanceled(Header, DeliveryCanceled) error
	VisitFoodInPreparation(Header, FoodInPreparation) error
	VisitDeliveryManAssigned(Header, DeliveryManAssigned) error
	VisitDeliveryManUnAssigned(Header, DeliveryManUnAssigned) error
	VisitFoodIsReady(Header, FoodIsReady) error
	VisitFoodWasPickedUp(Header, FoodWasPickedUp) error
	VisitFoodDelivered(Header, FoodDelivered) error
	VisitTipAddedToDelivery(Header, TipAddedToDelivery) error
	VisitDeliveryProcessingError(Header, DeliveryProcessingError) error
}

func (e OrderCreated) Accept(v EventVisitor, h Header) error  { return v.VisitOrderCreated(h, e) }
func (e OrderCanceled) Accept(v EventVisitor, h Header) error { return v.VisitOrderCanceled(h, e) }
func (e OrderInProgress) Accept(v EventVisitor, h Header) error {
	return v.VisitOrderInProgress(h, e)
}
func (e TipAddedToOrder) Accept(v EventVisitor, h Header) error {
	return v.VisitTipAddedToOrder(h, e)
}
func (e OrderCompleted) Accept(v EventVisitor, h Header) error { return v.VisitOrderCompleted(h, e) }
func (e OrderProcessingError) Accept(v EventVisitor, h Header) error {
	return v.VisitOrderProcessingError(h, e)
}

func (e DeliveryCreated) Accept(v EventVisitor, h Header) error {
	return v.VisitDeliveryCreated(h, e)
}
func (e DeliveryCanceled) Accept(v EventVisitor, h Header) error {
	return v.VisitDeliveryCanceled(h, e)
}
func (e FoodInPreparation) Accept(v EventVisitor, h Header) error {
	return v.VisitFoodInPreparation(h, e)
}
func (e DeliveryManAssigned) Accept(v EventVisitor, h Header) error {
	return v.VisitDeliveryManAssigned(h, e)
}
func (e DeliveryManUnAssigned) Accept(v EventVisitor, h Header) error {
	return v.VisitDeliveryManUnAssigned(h, e)
}
func (e FoodIsReady) Accept(v EventVisitor, h Header) error     { return v.VisitFoodIsReady(h, e) }
func (e FoodWasPickedUp) Accept(v EventVisitor, h Header) error { return v.VisitFoodWasPickedUp(h, e) }
func (e FoodDelivered) Accept(v EventVisitor, h Header) error   { return v.VisitFoodDelivered(h, e) }
func (e TipAddedToDelivery) Accept(v EventVisitor, h Header) error {
	return v.VisitTipAddedToDelivery(h, e)
}
func (e DeliveryProcessingError) Accept(v EventVisitor, h Header) error {
	return v.VisitDeliveryProcessingError(h, e)
}

// Compile-time checks that every event kind is an Event.
var (
	_ Event = OrderCreated{}
	_ Event = OrderCanceled{}
	_ Event = OrderInProgress{}
	_ Event = TipAddedToOrder{}
	_ Event = OrderCompleted{}
	_ Event = OrderProcessingError{}
	_ Event = DeliveryCreated{}
	_ Event = DeliveryCanceled{}
	_ Event = FoodInPreparation{}
	_ Event = DeliveryManAssigned{}
	_ Event = DeliveryManUnAssigned{}
	_ Event = FoodIsReady{}
	_ Event = FoodWasPickedUp{}
	_ Event = FoodDelivered{}
	_ Event = TipAddedToDelivery{}
	_ Event = DeliveryProcessingError{}
)
