package models

import "time"

// Cart is the single basket a buyer owns (one per buyer).
type Cart struct {
	CartID    string    `json:"cartId" bson:"cartid"`
	BuyerID   string    `json:"buyerId" bson:"buyerid"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// CartItem is one product selection inside a cart. An item is either
// active or saved for later, never both.
type CartItem struct {
	ItemID        string    `json:"itemId" bson:"itemid"`
	CartID        string    `json:"cartId" bson:"cartid"`
	ProductID     string    `json:"productId" bson:"productid"`
	ProductName   string    `json:"productName" bson:"productname"`
	Unit          string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	PricePerUnit  float64   `json:"pricePerUnit" bson:"price_per_unit"`
	SavedForLater bool      `json:"savedForLater" bson:"saved_for_later"`
	AddedAt       time.Time `json:"addedAt" bson:"addedAt"`
}

// Subtotal is the line total for this item.
func (it CartItem) Subtotal() float64 {
	return it.PricePerUnit * float64(it.Quantity)
}
