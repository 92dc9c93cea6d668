package memstore

import (
	"context"
	"sort"
	"time"

	"mkulima/models"
	"mkulima/store"

	"github.com/google/uuid"
)

type carts struct{ s *Store }

func (c *carts) GetOrCreate(ctx context.Context, buyerID string) (models.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if cartID, ok := c.s.cartByBuyer[buyerID]; ok {
		return *c.s.carts[cartID], nil
	}

	cart := &models.Cart{
		CartID:    uuid.New().String(),
		BuyerID:   buyerID,
		CreatedAt: time.Now(),
	}
	c.s.carts[cart.CartID] = cart
	c.s.cartByBuyer[buyerID] = cart.CartID
	return *cart, nil
}

func (c *carts) Get(ctx context.Context, cartID string) (models.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cart, ok := c.s.carts[cartID]
	if !ok {
		return models.Cart{}, store.ErrNotFound
	}
	return *cart, nil
}

func (c *carts) AddItem(ctx context.Context, cartID string, p models.Product, qty int) (models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.carts[cartID]; !ok {
		return models.CartItem{}, store.ErrNotFound
	}

	// Re-adding a product increments the existing active line.
	for _, it := range c.s.items {
		if it.CartID == cartID && it.ProductID == p.ProductID && !it.SavedForLater {
			if it.Quantity+qty > p.Quantity {
				return models.CartItem{}, store.ErrOutOfStock
			}
			it.Quantity += qty
			return *it, nil
		}
	}

	if qty > p.Quantity {
		return models.CartItem{}, store.ErrOutOfStock
	}

	item := &models.CartItem{
		ItemID:       uuid.New().String(),
		CartID:       cartID,
		ProductID:    p.ProductID,
		ProductName:  p.Name,
		Unit:         p.Unit,
		Quantity:     qty,
		PricePerUnit: p.PricePerUnit,
		AddedAt:      time.Now(),
	}
	c.s.items[item.ItemID] = item
	return *item, nil
}

func (c *carts) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := []models.CartItem{}
	for _, it := range c.s.items {
		if it.CartID == cartID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (c *carts) RemoveItem(ctx context.Context, cartID, itemID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	it, ok := c.s.items[itemID]
	if !ok {
		return store.ErrNotFound
	}
	if it.CartID != cartID {
		return store.ErrNotOwner
	}
	delete(c.s.items, itemID)
	return nil
}

func (c *carts) SetSaved(ctx context.Context, cartID, itemID string, saved bool) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	it, ok := c.s.items[itemID]
	if !ok {
		return store.ErrNotFound
	}
	if it.CartID != cartID {
		return store.ErrNotOwner
	}
	it.SavedForLater = saved
	return nil
}

func (c *carts) AdjustQuantity(ctx context.Context, cartID, itemID string, delta, maxQty int) (models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	it, ok := c.s.items[itemID]
	if !ok {
		return models.CartItem{}, store.ErrNotFound
	}
	if it.CartID != cartID {
		return models.CartItem{}, store.ErrNotOwner
	}

	q := it.Quantity + delta
	if q < 1 {
		q = 1
	}
	if maxQty > 0 && q > maxQty {
		q = maxQty
	}
	it.Quantity = q
	return *it, nil
}

func (c *carts) ClearActive(ctx context.Context, cartID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for id, it := range c.s.items {
		if it.CartID == cartID && !it.SavedForLater {
			delete(c.s.items, id)
		}
	}
	return nil
}
