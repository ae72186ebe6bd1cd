package entity

import "github.com/shopspring/decimal"

// Item is an order line.
type Item struct {
	Name         string          `json:"name" validate:"required"`
	Amount       int             `json:"amount" validate:"gt=0"`
	PricePerItem decimal.Decimal `json:"price_per_item" validate:"gte=0"`
}

// Message type tags as they appear in Header.Type.
const (
	TypeCreateOrder         = "CreateOrder"
	TypeCancelOrder         = "CancelOrder"
	TypeAddTip              = "AddTip"
	TypePrepareFood         = "PrepareFood"
	TypeAssignDeliveryMan   = "AssignDeliveryMan"
	TypeUnAssignDeliveryMan = "UnAssignDeliveryMan"
	TypeFoodReady           = "FoodReady"
	TypePickUpFood          = "PickUpFood"
	TypeDeliverFood         = "DeliverFood"

	TypeOrderCreated         = "OrderCreated"
	TypeOrderCanceled        = "OrderCanceled"
	TypeOrderInProgress      = "OrderInProgress"
	TypeTipAddedToOrder      = "TipAddedToOrder"
	TypeOrderCompleted       = "OrderCompleted"
	TypeOrderProcessingError = "OrderProcessingError"

	TypeDeliveryCreated         = "DeliveryCreated"
	TypeDeliveryCanceled        = "DeliveryCanceled"
	TypeFoodInPreparation       = "FoodInPreparation"
	TypeDeliveryManAssigned     = "DeliveryManAssigned"
	TypeDeliveryManUnAssigned   = "DeliveryManUnAssigned"
	TypeFoodIsReady             = "FoodIsReady"
	TypeFoodWasPickedUp         = "FoodWasPickedUp"
	TypeFoodDelivered           = "FoodDelivered"
	TypeTipAddedToDelivery      = "TipAddedToDelivery"
	TypeDeliveryProcessingError = "DeliveryProcessingError"
)

// Commands

type CreateOrder struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	RestaurantID   string          `json:"restaurant_id"`
	Items          []Item          `json:"items"`
	Address        string          `json:"address"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type AddTip struct {
	OrderID string          `json:"order_id"`
	Tip     decimal.Decimal `json:"tip"`
}

type PrepareFood struct {
	OrderID string `json:"order_id"`
}

type AssignDeliveryMan struct {
	OrderID       string `json:"order_id"`
	DeliveryManID string `json:"delivery_man_id"`
}

type UnAssignDeliveryMan struct {
	OrderID string `json:"order_id"`
}

type FoodReady struct {
	OrderID string `json:"order_id"`
}

type PickUpFood struct {
	OrderID string `json:"order_id"`
}

type DeliverFood struct {
	OrderID string `json:"order_id"`
}

func (c CreateOrder) MessageType() string         { return TypeCreateOrder }
func (c CancelOrder) MessageType() string         { return TypeCancelOrder }
func (c AddTip) MessageType() string              { return TypeAddTip }
func (c PrepareFood) MessageType() string         { return TypePrepareFood }
func (c AssignDeliveryMan) MessageType() string   { return TypeAssignDeliveryMan }
func (c UnAssignDeliveryMan) MessageType() string { return TypeUnAssignDeliveryMan }
func (c FoodReady) MessageType() string           { return TypeFoodReady }
func (c PickUpFood) MessageType() string          { return TypePickUpFood }
func (c DeliverFood) MessageType() string         { return TypeDeliverFood }

func (c CreateOrder) EntityID() string         { return c.OrderID }
func (c CancelOrder) EntityID() string         { return c.OrderID }
func (c AddTip) EntityID() string              { return c.OrderID }
func (c PrepareFood) EntityID() string         { return c.OrderID }
func (c AssignDeliveryMan) EntityID() string   { return c.OrderID }
func (c UnAssignDeliveryMan) EntityID() string { return c.OrderID }
func (c FoodReady) EntityID() string           { return c.OrderID }
func (c PickUpFood) EntityID() string          { return c.OrderID }
func (c DeliverFood) EntityID() string         { return c.OrderID }

// Order events

type OrderCreated struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	RestaurantID   string          `json:"restaurant_id"`
	Address        string          `json:"address"`
	Items          []Item          `json:"items"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
}

type OrderCanceled struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type OrderInProgress struct {
	OrderID string `json:"order_id"`
}

type TipAddedToOrder struct {
	OrderID string          `json:"order_id"`
	Tip     decimal.Decimal `json:"tip"`
	Total   decimal.Decimal `json:"total"`
}

type OrderCompleted struct {
	OrderID string `json:"order_id"`
}

type OrderProcessingError struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Delivery events

type DeliveryCreated struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	RestaurantID   string          `json:"restaurant_id"`
	Address        string          `json:"address"`
	Items          []Item          `json:"items"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
}

type DeliveryCanceled struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type FoodInPreparation struct {
	OrderID string `json:"order_id"`
}

type DeliveryManAssigned struct {
	OrderID       string `json:"order_id"`
	DeliveryManID string `json:"delivery_man_id"`
}

type DeliveryManUnAssigned struct {
	OrderID       string `json:"order_id"`
	DeliveryManID string `json:"delivery_man_id"`
}

type FoodIsReady struct {
	OrderID string `json:"order_id"`
}

type FoodWasPickedUp struct {
	OrderID string `json:"order_id"`
}

type FoodDelivered struct {
	OrderID string `json:"order_id"`
}

type TipAddedToDelivery struct {
	OrderID string          `json:"order_id"`
	Tip     decimal.Decimal `json:"tip"`
	Total   decimal.Decimal `json:"total"`
}

type DeliveryProcessingError struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e OrderCreated) MessageType() string            { return TypeOrderCreated }
func (e OrderCanceled) MessageType() string           { return TypeOrderCanceled }
func (e OrderInProgress) MessageType() string         { return TypeOrderInProgress }
func (e TipAddedToOrder) MessageType() string         { return TypeTipAddedToOrder }
func (e OrderCompleted) MessageType() string          { return TypeOrderCompleted }
func (e OrderProcessingError) MessageType() string    { return TypeOrderProcessingError }
func (e DeliveryCreated) MessageType() string         { return TypeDeliveryCreated }
func (e DeliveryCanceled) MessageType() string        { return TypeDeliveryCanceled }
func (e FoodInPreparation) MessageType() string       { return TypeFoodInPreparation }
func (e DeliveryManAssigned) MessageType() string     { return TypeDeliveryManAssigned }
func (e DeliveryManUnAssigned) MessageType() string   { return TypeDeliveryManUnAssigned }
func (e FoodIsReady) MessageType() string             { return TypeFoodIsReady }
func (e FoodWasPickedUp) MessageType() string         { return TypeFoodWasPickedUp }
func (e FoodDelivered) MessageType() string           { return TypeFoodDelivered }
func (e TipAddedToDelivery) MessageType() string      { return TypeTipAddedToDelivery }
func (e DeliveryProcessingError) MessageType() string { return TypeDeliveryProcessingError }

func (e OrderCreated) EntityID() string            { return e.OrderID }
func (e OrderCanceled) EntityID() string           { return e.OrderID }
func (e OrderInProgress) EntityID() string         { return e.OrderID }
func (e TipAddedToOrder) EntityID() string         { return e.OrderID }
func (e OrderCompleted) EntityID() string          { return e.OrderID }
func (e OrderProcessingError) EntityID() string    { return e.OrderID }
func (e DeliveryCreated) EntityID() string         { return e.OrderID }
func (e DeliveryCanceled) EntityID() string        { return e.OrderID }
func (e FoodInPreparation) EntityID() string       { return e.OrderID }
func (e DeliveryManAssigned) EntityID() string     { return e.OrderID }
func (e DeliveryManUnAssigned) EntityID() string   { return e.OrderID }
func (e FoodIsReady) EntityID() string             { return e.OrderID }
func (e FoodWasPickedUp) EntityID() string         { return e.OrderID }
func (e FoodDelivered) EntityID() string           { return e.OrderID }
func (e TipAddedToDelivery) EntityID() string      { return e.OrderID }
func (e DeliveryProcessingError) EntityID() string { return e.OrderID }

// calculateTotal is Σ(price × amount) + charge + tip.
func calculateTotal(items []Item, deliveryCharge, tip decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PricePerItem.Mul(decimal.NewFromInt(int64(item.Amount))))
	}
	return total.Add(deliveryCharge).Add(tip)
}
