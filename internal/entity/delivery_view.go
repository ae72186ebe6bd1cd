package entity

import "github.com/shopspring/decimal"

// DeliveryView is the query side snapshot of a delivery, keyed by order id.
type DeliveryView struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	RestaurantID   string          `json:"restaurant_id"`
	DeliveryManID  string          `json:"delivery_man_id,omitempty"`
	Status         DeliveryStatus  `json:"status"`
	Address        string          `json:"address"`
	Items          []Item          `json:"items"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Tip            decimal.Decimal `json:"tip"`
	Total          decimal.Decimal `json:"total"`
}
