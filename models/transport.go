package models

import "time"

// Transport job statuses. Once a driver accepts, driver and status flip
// together in a single conditional write.
const (
	JobPending   = "Pending"
	JobInTransit = "In Transit"
	JobDelivered = "Delivered"
	JobCancelled = "Cancelled"
)

// Urgency levels for a transport job.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// TransportRequest is the buyer-facing record that transport was asked
// for. At most one exists per order; it is immutable after creation.
type TransportRequest struct {
	RequestID        string    `json:"requestId" bson:"requestid"`
	OrderID          string    `json:"orderId" bson:"orderid"`
	PickupLocation   string    `json:"pickupLocation" bson:"pickup_location"`
	DeliveryLocation string    `json:"deliveryLocation" bson:"delivery_location"`
	Status           string    `json:"status" bson:"status"` // "available"
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
}

// TransportJob is the unit of work a driver claims from the pool.
// DriverID stays empty until exactly one driver wins the job.
type TransportJob struct {
	JobID            string    `json:"jobId" bson:"jobid"`
	OrderID          string    `json:"orderId" bson:"orderid"`
	DriverID         string    `json:"driverId,omitempty" bson:"driverid,omitempty"`
	PickupLocation   string    `json:"pickupLocation" bson:"pickup_location"`
	DeliveryLocation string    `json:"deliveryLocation" bson:"delivery_location"`
	Status           string    `json:"status" bson:"status"`
	Urgency          string    `json:"urgency" bson:"urgency"`
	TransportFee     float64   `json:"transportFee,omitempty" bson:"transport_fee,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updated_at"`
}

// TransporterRating is a buyer's one-time rating of a delivered job.
type TransporterRating struct {
	RatingID      string    `json:"ratingId" bson:"ratingid"`
	JobID         string    `json:"jobId" bson:"jobid"`
	TransporterID string    `json:"transporterId" bson:"transporterid"`
	BuyerID       string    `json:"buyerId" bson:"buyerid"`
	Rating        int       `json:"rating" bson:"rating"` // 1..5
	Comment       string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}
