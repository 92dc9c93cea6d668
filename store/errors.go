package store

import "errors"

// Sentinel errors shared by every store implementation. Handlers map
// these onto HTTP status codes; conflict-class errors must only ever be
// produced by atomic conditional writes, never by advisory pre-checks.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicate          = errors.New("duplicate resource")
	ErrNotOwner           = errors.New("caller does not own this resource")
	ErrAccessDenied       = errors.New("access denied")
	ErrAlreadyTaken       = errors.New("job already taken")
	ErrDuplicateRequest   = errors.New("transport already requested for this order")
	ErrDuplicateRating    = errors.New("job already rated")
	ErrOutOfStock         = errors.New("requested quantity exceeds available stock")
	ErrInsufficientStock  = errors.New("not enough stock remaining")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutNotPending = errors.New("checkout is not pending")
	ErrBadTransition      = errors.New("invalid status transition")
	ErrJobNotDelivered    = errors.New("job is not delivered yet")
)
