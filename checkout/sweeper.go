package checkout

import (
	"context"
	"log"
	"time"
)

// StartSweeper periodically expires pending checkouts whose payment
// window has lapsed, so an abandoned STK push cannot be finalized hours
// later. Runs until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Checkouts.ExpireStale(ctx, time.Now())
			if err != nil {
				log.Println("checkout sweeper:", err)
				continue
			}
			if n > 0 {
				log.Printf("checkout sweeper: expired %d stale checkouts", n)
			}
		}
	}
}
