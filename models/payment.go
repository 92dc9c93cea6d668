package models

import "time"

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Pending-checkout states. A record is claimed exactly once by the
// gateway callback; replays of the same correlation id see a
// non-pending record and do nothing.
const (
	CheckoutPending   = "pending"
	CheckoutCompleted = "completed"
	CheckoutFailed    = "failed"
	CheckoutExpired   = "expired"
)

// SnapshotItem freezes one cart line at checkout-initiation time.
// Finalization works off the snapshot, so mutating the cart while the
// payment is in flight cannot change what gets ordered.
type SnapshotItem struct {
	ProductID    string  `json:"productId" bson:"productid"`
	ProductName  string  `json:"productName" bson:"productname"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit" bson:"price_per_unit"`
	Subtotal     float64 `json:"subtotal" bson:"subtotal"`
}

// PendingCheckout is the durable correlation record between an STK push
// and its callback. It replaces session-carried state so finalization
// survives session loss.
type PendingCheckout struct {
	CheckoutRequestID string         `json:"checkoutRequestId" bson:"checkout_request_id"`
	BuyerID           string         `json:"buyerId" bson:"buyerid"`
	CartID            string         `json:"cartId" bson:"cartid"`
	Phone             string         `json:"phone" bson:"phone"`
	Amount            int            `json:"amount" bson:"amount"`
	Items             []SnapshotItem `json:"items" bson:"items"`
	Status            string         `json:"status" bson:"status"`
	CreatedAt         time.Time      `json:"createdAt" bson:"created_at"`
	ExpiresAt         time.Time      `json:"expiresAt" bson:"expires_at"`
}

// Payment records one initiated gateway charge. OrderIDs are filled in
// when the callback materializes orders.
type Payment struct {
	PaymentID         string    `json:"paymentId" bson:"paymentid"`
	BuyerID           string    `json:"buyerId" bson:"buyerid"`
	OrderIDs          []string  `json:"orderIds,omitempty" bson:"orderids,omitempty"`
	Amount            float64   `json:"amount" bson:"amount"`
	Method            string    `json:"method" bson:"method"` // mpesa, card, cod
	Status            string    `json:"status" bson:"status"`
	CheckoutRequestID string    `json:"checkoutRequestId" bson:"checkout_request_id"`
	Phone             string    `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updated_at"`
}
