package store

import (
	"context"
	"time"

	"mkulima/models"
)

// ProductUpdate carries the mutable product fields. Price is immutable
// after creation, so it is deliberately absent.
type ProductUpdate struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Description *string `json:"description,omitempty"`
	Available   *bool   `json:"available,omitempty"`
}

// BuyerStats backs the buyer dashboard.
type BuyerStats struct {
	TotalOrders       int            `json:"totalOrders"`
	PendingDeliveries int            `json:"pendingDeliveries"`
	TotalSpent        float64        `json:"totalSpent"`
	RecentOrders      []models.Order `json:"recentOrders"`
}

// TransporterStats backs the transporter dashboard.
type TransporterStats struct {
	Earnings      float64 `json:"earnings"`
	ActiveJobs    int     `json:"activeJobs"`
	DeliveredJobs int     `json:"deliveredJobs"`
	Rating        float64 `json:"rating"`
	RatingCount   int     `json:"ratingCount"`
}

type Products interface {
	Create(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, productID string) (models.Product, error)
	List(ctx context.Context, skip, limit int64) ([]models.Product, error)
	ListByFarmer(ctx context.Context, farmerID string) ([]models.Product, error)
	Update(ctx context.Context, productID, farmerID string, upd ProductUpdate) error
	Deactivate(ctx context.Context, productID, farmerID string) error

	// DecrementStock atomically subtracts up to want units and reports how
	// many it actually took. It clamps at zero instead of going negative;
	// applied == 0 with a nil error means the product was already sold out.
	DecrementStock(ctx context.Context, productID string, want int) (applied int, err error)

	// RestoreStock hands units back after a downstream write failed,
	// undoing a decrement. The product becomes available again.
	RestoreStock(ctx context.Context, productID string, qty int) error
}

type Carts interface {
	GetOrCreate(ctx context.Context, buyerID string) (models.Cart, error)
	Get(ctx context.Context, cartID string) (models.Cart, error)

	// AddItem increments the active item for the product if one exists,
	// otherwise inserts it. Returns ErrOutOfStock when the resulting
	// quantity would exceed the product's available stock.
	AddItem(ctx context.Context, cartID string, p models.Product, qty int) (models.CartItem, error)
	Items(ctx context.Context, cartID string) ([]models.CartItem, error)
	RemoveItem(ctx context.Context, cartID, itemID string) error
	SetSaved(ctx context.Context, cartID, itemID string, saved bool) error

	// AdjustQuantity applies delta clamped to [1, maxQty]. Hitting a
	// boundary is a no-op, not an error.
	AdjustQuantity(ctx context.Context, cartID, itemID string, delta, maxQty int) (models.CartItem, error)
	ClearActive(ctx context.Context, cartID string) error
}

type Orders interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, orderID string) (models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string, skip, limit int64) ([]models.Order, error)

	// UpdateStatus flips status to `to` only when the current status is in
	// `from`; otherwise ErrBadTransition.
	UpdateStatus(ctx context.Context, orderID string, from []string, to string) error
	BuyerStats(ctx context.Context, buyerID string) (BuyerStats, error)
}

type Checkouts interface {
	// Put stores a new pending checkout; the correlation id is unique.
	Put(ctx context.Context, pc models.PendingCheckout) error
	Get(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error)

	// Claim atomically flips pending -> completed and returns the record.
	// A replayed callback finds the record no longer pending and gets
	// ErrCheckoutNotPending, which makes finalization exactly-once.
	Claim(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error)
	Fail(ctx context.Context, checkoutRequestID string) error

	// ExpireStale marks pending records past their deadline as expired and
	// returns how many it touched.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type Payments interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (models.Payment, error)
	Complete(ctx context.Context, checkoutRequestID string, orderIDs []string) error
	Fail(ctx context.Context, checkoutRequestID string) error
}

type Transport interface {
	// CreateRequestWithJob persists the request/job pair as one boundary.
	// ErrDuplicateRequest when the order already has a request.
	CreateRequestWithJob(ctx context.Context, req models.TransportRequest, job models.TransportJob) error
	GetJob(ctx context.Context, jobID string) (models.TransportJob, error)
	ListJobsByStatus(ctx context.Context, status string, skip, limit int64) ([]models.TransportJob, error)
	ListJobsByDriver(ctx context.Context, driverID, status string) ([]models.TransportJob, error)

	// ClaimJob assigns the driver and flips Pending -> In Transit in one
	// conditional write. Exactly one concurrent caller wins; the rest get
	// ErrAlreadyTaken.
	ClaimJob(ctx context.Context, jobID, driverID string) error
	MarkDelivered(ctx context.Context, jobID, driverID string) error
	CancelJob(ctx context.Context, jobID string) error
	Stats(ctx context.Context, driverID string) (TransporterStats, error)
}

type Ratings interface {
	// Add inserts the rating; the job id is unique across ratings, so a
	// second rating for the same job fails with ErrDuplicateRating.
	Add(ctx context.Context, r models.TransporterRating) error
	AverageForTransporter(ctx context.Context, transporterID string) (avg float64, count int, err error)
}

type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (models.User, error)
	Get(ctx context.Context, userID string) (models.User, error)
	SetLastLogin(ctx context.Context, userID string, at time.Time) error
	SetRating(ctx context.Context, userID string, avg float64, count int) error
}
