package memstore

import (
	"context"
	"sort"
	"time"

	"mkulima/models"
	"mkulima/store"
)

type products struct{ s *Store }

func (p *products) Create(ctx context.Context, prod *models.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	cp := *prod
	p.s.products[prod.ProductID] = &cp
	return nil
}

func (p *products) Get(ctx context.Context, productID string) (models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	prod, ok := p.s.products[productID]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return *prod, nil
}

func (p *products) List(ctx context.Context, skip, limit int64) ([]models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	out := make([]models.Product, 0, len(p.s.products))
	for _, prod := range p.s.products {
		if prod.Available {
			out = append(out, *prod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if skip >= int64(len(out)) {
		return []models.Product{}, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *products) ListByFarmer(ctx context.Context, farmerID string) ([]models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	out := []models.Product{}
	for _, prod := range p.s.products {
		if prod.FarmerID == farmerID {
			out = append(out, *prod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (p *products) Update(ctx context.Context, productID, farmerID string, upd store.ProductUpdate) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	prod, ok := p.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if prod.FarmerID != farmerID {
		return store.ErrNotOwner
	}

	if upd.Name != nil {
		prod.Name = *upd.Name
	}
	if upd.Category != nil {
		prod.Category = *upd.Category
	}
	if upd.Quantity != nil && *upd.Quantity >= 0 {
		prod.Quantity = *upd.Quantity
	}
	if upd.Unit != nil {
		prod.Unit = *upd.Unit
	}
	if upd.Description != nil {
		prod.Description = *upd.Description
	}
	if upd.Available != nil {
		prod.Available = *upd.Available
	}
	prod.UpdatedAt = time.Now()
	return nil
}

func (p *products) Deactivate(ctx context.Context, productID, farmerID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	prod, ok := p.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if prod.FarmerID != farmerID {
		return store.ErrNotOwner
	}
	prod.Available = false
	prod.UpdatedAt = time.Now()
	return nil
}

func (p *products) DecrementStock(ctx context.Context, productID string, want int) (int, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	prod, ok := p.s.products[productID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if want <= 0 {
		return 0, nil
	}

	applied := want
	if prod.Quantity < applied {
		applied = prod.Quantity
	}
	prod.Quantity -= applied
	if prod.Quantity == 0 {
		prod.Available = false
	}
	prod.UpdatedAt = time.Now()
	return applied, nil
}

func (p *products) RestoreStock(ctx context.Context, productID string, qty int) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	prod, ok := p.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if qty <= 0 {
		return nil
	}
	prod.Quantity += qty
	prod.Available = true
	prod.UpdatedAt = time.Now()
	return nil
}
