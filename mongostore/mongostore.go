// Package mongostore implements the store interfaces on MongoDB. Every
// conflict guard is a conditional write checked through ModifiedCount or a
// unique-index duplicate key, never an advisory read followed by a write.
package mongostore

import (
	"mkulima/store"

	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct{}

func New() *Store { return &Store{} }

func (s *Store) Products() store.Products   { return &products{} }
func (s *Store) Carts() store.Carts         { return &carts{} }
func (s *Store) Orders() store.Orders       { return &orders{} }
func (s *Store) Checkouts() store.Checkouts { return &checkouts{} }
func (s *Store) Payments() store.Payments   { return &payments{} }
func (s *Store) Transport() store.Transport { return &transport{} }
func (s *Store) Ratings() store.Ratings     { return &ratings{} }
func (s *Store) Users() store.Users         { return &users{} }

func isDup(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
