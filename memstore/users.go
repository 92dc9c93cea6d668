package memstore

import (
	"context"
	"time"

	"mkulima/models"
	"mkulima/store"
)

type users struct{ s *Store }

func (u *users) Create(ctx context.Context, usr *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, exists := u.s.usernames[usr.Username]; exists {
		return store.ErrDuplicate
	}
	cp := *usr
	u.s.users[usr.UserID] = &cp
	u.s.usernames[usr.Username] = usr.UserID
	return nil
}

func (u *users) GetByUsername(ctx context.Context, username string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	id, ok := u.s.usernames[username]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return *u.s.users[id], nil
}

func (u *users) Get(ctx context.Context, userID string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	usr, ok := u.s.users[userID]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return *usr, nil
}

func (u *users) SetLastLogin(ctx context.Context, userID string, at time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	usr, ok := u.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	usr.LastLogin = at
	return nil
}

func (u *users) SetRating(ctx context.Context, userID string, avg float64, count int) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	usr, ok := u.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	usr.Rating = avg
	usr.RatingCount = count
	return nil
}

var (
	_ store.Products  = (*products)(nil)
	_ store.Carts     = (*carts)(nil)
	_ store.Orders    = (*orders)(nil)
	_ store.Checkouts = (*checkouts)(nil)
	_ store.Payments  = (*payments)(nil)
	_ store.Transport = (*transport)(nil)
	_ store.Ratings   = (*ratings)(nil)
	_ store.Users     = (*users)(nil)
)
