package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"mkulima/models"
	"mkulima/rdx"
	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

// RateTransporter records a buyer's one-time rating of a delivered job
// and refreshes the driver's profile aggregate.
func (h *Handlers) RateTransporter(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	jobID := ps.ByName("jobid")
	job, err := h.Transport.GetJob(ctx, jobID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Job not found")
		return
	}
	if job.Status != models.JobDelivered {
		utils.RespondWithError(w, store.HTTPStatus(store.ErrJobNotDelivered), "Job has not been delivered")
		return
	}

	order, err := h.Orders.Get(ctx, job.OrderID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Order not found")
		return
	}
	if order.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Only the order's buyer can rate this delivery")
		return
	}

	rating := models.TransporterRating{
		RatingID:      utils.GetUUID(),
		JobID:         jobID,
		TransporterID: job.DriverID,
		BuyerID:       buyerID,
		Rating:        body.Rating,
		Comment:       body.Comment,
		CreatedAt:     time.Now(),
	}
	if err := h.Ratings.Add(ctx, rating); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	h.refreshDriverRating(ctx, job.DriverID)
	utils.RespondWithJSON(w, http.StatusCreated, rating)
}

const (
	ratingLockTTL   = 5 * time.Second
	ratingLockRetry = 200 * time.Millisecond
)

// refreshDriverRating recomputes the driver's average under a short
// per-driver lock, so two concurrent raters do not interleave the
// read-recompute-write.
func (h *Handlers) refreshDriverRating(ctx context.Context, driverID string) {
	lockKey := "rating_lock:" + driverID

	// A holder mid-recompute may have read the ratings before this one
	// was stored, so skipping would drop it from the aggregate for good.
	// Wait for the lock instead; its TTL bounds the wait, and a Redis
	// error degrades to an unlocked recompute.
	for {
		acquired, err := rdx.RdxSetNX(lockKey, "1", ratingLockTTL)
		if err != nil {
			log.Println("rating lock error:", err)
			break
		}
		if acquired {
			defer rdx.RdxDel(lockKey)
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(ratingLockRetry):
		}
	}

	avg, count, err := h.Ratings.AverageForTransporter(ctx, driverID)
	if err != nil {
		log.Printf("rating aggregate for %s: %v", driverID, err)
		return
	}
	if err := h.Users.SetRating(ctx, driverID, avg, count); err != nil {
		log.Printf("rating update for %s: %v", driverID, err)
	}
}
