package models

import "time"

// Product categories mirror what farmers actually list.
var ProductCategories = []string{"vegetables", "fruits", "grains", "dairy", "poultry", "other"}

// Product is a farmer's listing. Quantity is the remaining stock and is
// only ever decremented through the bounded store primitive; it must never
// go negative. PricePerUnit is immutable after creation.
type Product struct {
	ProductID    string    `json:"productId" bson:"productid"`
	FarmerID     string    `json:"farmerId" bson:"farmerid"`
	Name         string    `json:"name" bson:"name"`
	Category     string    `json:"category" bson:"category"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	Unit         string    `json:"unit" bson:"unit"` // e.g. "kg"
	PricePerUnit float64   `json:"pricePerUnit" bson:"price_per_unit"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Available    bool      `json:"available" bson:"available"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
