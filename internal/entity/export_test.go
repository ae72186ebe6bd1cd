package entity

import "github.com/shopspring/decimal"

// RestoreOrder builds an order in an arbitrary state without replaying a log.
func RestoreOrder(id string, status OrderStatus, items []Item, deliveryCharge, tip decimal.Decimal) *Order {
	return &Order{
		AggregateBase:  AggregateBase{ID: id, Version: 1},
		CustomerID:     "customer-1",
		RestaurantID:   "restaurant-1",
		Status:         status,
		Address:        "Pizza street, Naples",
		Items:          items,
		DeliveryCharge: deliveryCharge,
		Tip:            tip,
		Total:          calculateTotal(items, deliveryCharge, tip),
		Metadata:       map[string]string{},
	}
}

// RestoreDelivery builds a delivery in an arbitrary state without replaying a log.
func RestoreDelivery(id string, status DeliveryStatus, deliveryManID string) *Delivery {
	items := []Item{{Name: "Pizza", Amount: 2, PricePerItem: decimal.RequireFromString("7.50")}}
	charge := decimal.RequireFromString("2.25")
	return &Delivery{
		AggregateBase:  AggregateBase{ID: id, Version: 1},
		CustomerID:     "customer-1",
		RestaurantID:   "restaurant-1",
		DeliveryManID:  deliveryManID,
		Status:         status,
		Address:        "Pizza street, Naples",
		Items:          items,
		DeliveryCharge: charge,
		Tip:            decimal.Zero,
		Total:          calculateTotal(items, charge, decimal.Zero),
		Metadata:       map[string]string{},
	}
}

var CalculateTotal = calculateTotal
