// Package memstore is a mutex-guarded, in-process implementation of the
// store interfaces. Tests run against it, and the server falls back to it
// when no MongoDB is configured.
package memstore

import (
	"sync"

	"mkulima/models"
	"mkulima/store"
)

// Store holds all state behind one mutex, so every store call is its own
// transactional boundary.
type Store struct {
	mu sync.Mutex

	users     map[string]*models.User // by userID
	usernames map[string]string       // username -> userID

	products map[string]*models.Product

	carts       map[string]*models.Cart // by cartID
	cartByBuyer map[string]string
	items       map[string]*models.CartItem // by itemID

	orders    map[string]*models.Order
	checkouts map[string]*models.PendingCheckout // by checkout_request_id
	payments  map[string]*models.Payment         // by checkout_request_id

	requests map[string]*models.TransportRequest // by orderID
	jobs     map[string]*models.TransportJob
	ratings  map[string]*models.TransporterRating // by jobID
}

func New() *Store {
	return &Store{
		users:       make(map[string]*models.User),
		usernames:   make(map[string]string),
		products:    make(map[string]*models.Product),
		carts:       make(map[string]*models.Cart),
		cartByBuyer: make(map[string]string),
		items:       make(map[string]*models.CartItem),
		orders:      make(map[string]*models.Order),
		checkouts:   make(map[string]*models.PendingCheckout),
		payments:    make(map[string]*models.Payment),
		requests:    make(map[string]*models.TransportRequest),
		jobs:        make(map[string]*models.TransportJob),
		ratings:     make(map[string]*models.TransporterRating),
	}
}

func (s *Store) Products() store.Products   { return &products{s} }
func (s *Store) Carts() store.Carts         { return &carts{s} }
func (s *Store) Orders() store.Orders       { return &orders{s} }
func (s *Store) Checkouts() store.Checkouts { return &checkouts{s} }
func (s *Store) Payments() store.Payments   { return &payments{s} }
func (s *Store) Transport() store.Transport { return &transport{s} }
func (s *Store) Ratings() store.Ratings     { return &ratings{s} }
func (s *Store) Users() store.Users         { return &users{s} }
