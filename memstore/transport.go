package memstore

import (
	"context"
	"sort"
	"time"

	"mkulima/models"
	"mkulima/store"
)

type transport struct{ s *Store }

func (t *transport) CreateRequestWithJob(ctx context.Context, req models.TransportRequest, job models.TransportJob) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, exists := t.s.requests[req.OrderID]; exists {
		return store.ErrDuplicateRequest
	}
	rc, jc := req, job
	t.s.requests[req.OrderID] = &rc
	t.s.jobs[job.JobID] = &jc
	return nil
}

func (t *transport) GetJob(ctx context.Context, jobID string) (models.TransportJob, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	job, ok := t.s.jobs[jobID]
	if !ok {
		return models.TransportJob{}, store.ErrNotFound
	}
	return *job, nil
}

func (t *transport) ListJobsByStatus(ctx context.Context, status string, skip, limit int64) ([]models.TransportJob, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	out := []models.TransportJob{}
	for _, job := range t.s.jobs {
		if job.Status == status {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if skip >= int64(len(out)) {
		return []models.TransportJob{}, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *transport) ListJobsByDriver(ctx context.Context, driverID, status string) ([]models.TransportJob, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	out := []models.TransportJob{}
	for _, job := range t.s.jobs {
		if job.DriverID == driverID && (status == "" || job.Status == status) {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *transport) ClaimJob(ctx context.Context, jobID, driverID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	job, ok := t.s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != models.JobPending {
		return store.ErrAlreadyTaken
	}
	job.DriverID = driverID
	job.Status = models.JobInTransit
	job.UpdatedAt = time.Now()
	return nil
}

func (t *transport) MarkDelivered(ctx context.Context, jobID, driverID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	job, ok := t.s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.DriverID != driverID {
		return store.ErrNotOwner
	}
	if job.Status != models.JobInTransit {
		return store.ErrBadTransition
	}
	job.Status = models.JobDelivered
	job.UpdatedAt = time.Now()
	return nil
}

func (t *transport) CancelJob(ctx context.Context, jobID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	job, ok := t.s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status == models.JobDelivered || job.Status == models.JobCancelled {
		return store.ErrBadTransition
	}
	job.Status = models.JobCancelled
	job.UpdatedAt = time.Now()
	return nil
}

func (t *transport) Stats(ctx context.Context, driverID string) (store.TransporterStats, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var stats store.TransporterStats
	for _, job := range t.s.jobs {
		if job.DriverID != driverID {
			continue
		}
		switch job.Status {
		case models.JobDelivered:
			stats.DeliveredJobs++
			stats.Earnings += job.TransportFee
		case models.JobInTransit:
			stats.ActiveJobs++
		}
	}
	if u, ok := t.s.users[driverID]; ok {
		stats.Rating = u.Rating
		stats.RatingCount = u.RatingCount
	}
	return stats, nil
}

type ratings struct{ s *Store }

func (r *ratings) Add(ctx context.Context, rating models.TransporterRating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.ratings[rating.JobID]; exists {
		return store.ErrDuplicateRating
	}
	cp := rating
	r.s.ratings[rating.JobID] = &cp
	return nil
}

func (r *ratings) AverageForTransporter(ctx context.Context, transporterID string) (float64, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var sum, count int
	for _, rt := range r.s.ratings {
		if rt.TransporterID == transporterID {
			sum += rt.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}
