package memstore

import (
	"context"
	"time"

	"mkulima/models"
	"mkulima/store"
)

type checkouts struct{ s *Store }

func (c *checkouts) Put(ctx context.Context, pc models.PendingCheckout) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, exists := c.s.checkouts[pc.CheckoutRequestID]; exists {
		return store.ErrDuplicate
	}
	cp := pc
	c.s.checkouts[pc.CheckoutRequestID] = &cp
	return nil
}

func (c *checkouts) Get(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	pc, ok := c.s.checkouts[checkoutRequestID]
	if !ok {
		return models.PendingCheckout{}, store.ErrNotFound
	}
	return *pc, nil
}

func (c *checkouts) Claim(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	pc, ok := c.s.checkouts[checkoutRequestID]
	if !ok {
		return models.PendingCheckout{}, store.ErrNotFound
	}
	if pc.Status != models.CheckoutPending {
		return models.PendingCheckout{}, store.ErrCheckoutNotPending
	}
	pc.Status = models.CheckoutCompleted
	return *pc, nil
}

func (c *checkouts) Fail(ctx context.Context, checkoutRequestID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	pc, ok := c.s.checkouts[checkoutRequestID]
	if !ok {
		return store.ErrNotFound
	}
	if pc.Status != models.CheckoutPending {
		return store.ErrCheckoutNotPending
	}
	pc.Status = models.CheckoutFailed
	return nil
}

func (c *checkouts) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var n int64
	for _, pc := range c.s.checkouts {
		if pc.Status == models.CheckoutPending && pc.ExpiresAt.Before(now) {
			pc.Status = models.CheckoutExpired
			n++
		}
	}
	return n, nil
}

type payments struct{ s *Store }

func (p *payments) Create(ctx context.Context, pay *models.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	cp := *pay
	p.s.payments[pay.CheckoutRequestID] = &cp
	return nil
}

func (p *payments) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (models.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	pay, ok := p.s.payments[checkoutRequestID]
	if !ok {
		return models.Payment{}, store.ErrNotFound
	}
	return *pay, nil
}

func (p *payments) Complete(ctx context.Context, checkoutRequestID string, orderIDs []string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	pay, ok := p.s.payments[checkoutRequestID]
	if !ok {
		return store.ErrNotFound
	}
	pay.Status = models.PaymentCompleted
	pay.OrderIDs = orderIDs
	pay.UpdatedAt = time.Now()
	return nil
}

func (p *payments) Fail(ctx context.Context, checkoutRequestID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	pay, ok := p.s.payments[checkoutRequestID]
	if !ok {
		return store.ErrNotFound
	}
	pay.Status = models.PaymentFailed
	pay.UpdatedAt = time.Now()
	return nil
}
