package models

import "time"

// Order statuses. Status advances monotonically except cancellation,
// which is reachable from any non-terminal state.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderInTransit = "in_transit"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is one product purchase. TotalPrice is a snapshot taken at
// creation time and does not track later price changes.
type Order struct {
	OrderID      string     `json:"orderId" bson:"orderid"`
	ProductID    string     `json:"productId" bson:"productid"`
	ProductName  string     `json:"productName" bson:"productname"`
	BuyerID      string     `json:"buyerId" bson:"buyerid"`
	Quantity     int        `json:"quantity" bson:"quantity"`
	TotalPrice   float64    `json:"totalPrice" bson:"total_price"`
	Status       string     `json:"status" bson:"status"`
	OrderDate    time.Time  `json:"orderDate" bson:"order_date"`
	DeliveryDate *time.Time `json:"deliveryDate,omitempty" bson:"delivery_date,omitempty"`
}
