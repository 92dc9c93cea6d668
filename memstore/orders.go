package memstore

import (
	"context"
	"sort"

	"mkulima/models"
	"mkulima/store"
)

type orders struct{ s *Store }

func (o *orders) Create(ctx context.Context, ord *models.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	cp := *ord
	o.s.orders[ord.OrderID] = &cp
	return nil
}

func (o *orders) Get(ctx context.Context, orderID string) (models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[orderID]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return *ord, nil
}

func (o *orders) ListByBuyer(ctx context.Context, buyerID string, skip, limit int64) ([]models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	out := []models.Order{}
	for _, ord := range o.s.orders {
		if ord.BuyerID == buyerID {
			out = append(out, *ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })

	if skip >= int64(len(out)) {
		return []models.Order{}, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *orders) UpdateStatus(ctx context.Context, orderID string, from []string, to string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	ord, ok := o.s.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	for _, f := range from {
		if ord.Status == f {
			ord.Status = to
			return nil
		}
	}
	return store.ErrBadTransition
}

func (o *orders) BuyerStats(ctx context.Context, buyerID string) (store.BuyerStats, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	var stats store.BuyerStats
	all := []models.Order{}
	for _, ord := range o.s.orders {
		if ord.BuyerID != buyerID {
			continue
		}
		all = append(all, *ord)
		stats.TotalOrders++
		stats.TotalSpent += ord.TotalPrice
		switch ord.Status {
		case models.OrderPending, models.OrderConfirmed, models.OrderInTransit:
			stats.PendingDeliveries++
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderDate.After(all[j].OrderDate) })
	if len(all) > 5 {
		all = all[:5]
	}
	stats.RecentOrders = all
	return stats, nil
}
