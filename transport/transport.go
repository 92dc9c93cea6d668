// Package transport covers the delivery side of the marketplace: buyers
// request transport for an order, drivers claim jobs from a shared pool,
// and delivered jobs can be rated once.
package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"mkulima/jobfeed"
	"mkulima/models"
	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Transport store.Transport
	Orders    store.Orders
	Ratings   store.Ratings
	Users     store.Users
	Feed      *jobfeed.Hub // optional, nil disables the live feed
}

func NewHandlers(transport store.Transport, orders store.Orders, ratings store.Ratings, users store.Users, feed *jobfeed.Hub) *Handlers {
	return &Handlers{Transport: transport, Orders: orders, Ratings: ratings, Users: users, Feed: feed}
}

func validUrgency(u string) bool {
	switch u {
	case models.UrgencyHigh, models.UrgencyMedium, models.UrgencyLow:
		return true
	}
	return false
}

// RequestTransport creates the request and its driver-facing job as one
// unit. An order gets at most one request; a repeat is a 409.
func (h *Handlers) RequestTransport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		OrderID          string  `json:"orderId"`
		PickupLocation   string  `json:"pickupLocation"`
		DeliveryLocation string  `json:"deliveryLocation"`
		Urgency          string  `json:"urgency"`
		TransportFee     float64 `json:"transportFee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	body.OrderID = strings.TrimSpace(body.OrderID)
	if body.OrderID == "" || body.PickupLocation == "" || body.DeliveryLocation == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if body.Urgency == "" {
		body.Urgency = models.UrgencyMedium
	}
	if !validUrgency(body.Urgency) {
		http.Error(w, "Invalid urgency", http.StatusBadRequest)
		return
	}

	order, err := h.Orders.Get(ctx, body.OrderID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Order not found")
		return
	}
	if order.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}
	if order.Status == models.OrderDelivered || order.Status == models.OrderCancelled {
		utils.RespondWithError(w, http.StatusBadRequest, "Order is already closed")
		return
	}

	now := time.Now()
	req := models.TransportRequest{
		RequestID:        utils.GetUUID(),
		OrderID:          order.OrderID,
		PickupLocation:   body.PickupLocation,
		DeliveryLocation: body.DeliveryLocation,
		Status:           "available",
		CreatedAt:        now,
	}
	job := models.TransportJob{
		JobID:            utils.GetUUID(),
		OrderID:          order.OrderID,
		PickupLocation:   body.PickupLocation,
		DeliveryLocation: body.DeliveryLocation,
		Status:           models.JobPending,
		Urgency:          body.Urgency,
		TransportFee:     body.TransportFee,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.Transport.CreateRequestWithJob(ctx, req, job); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	h.Feed.Publish("posted", job)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"request": req, "job": job})
}

// ListAvailableJobs returns the open job pool, newest first.
func (h *Handlers) ListAvailableJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	skip, limit := utils.ParsePagination(r, 20, 100)
	jobs, err := h.Transport.ListJobsByStatus(ctx, models.JobPending, skip, limit)
	if err != nil {
		log.Println("ListAvailableJobs error:", err)
		http.Error(w, "Could not load jobs", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, jobs)
}

// MyJobs lists the caller's claimed jobs, optionally filtered by status.
func (h *Handlers) MyJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	driverID := utils.GetUserIDFromRequest(r)
	if driverID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobs, err := h.Transport.ListJobsByDriver(ctx, driverID, r.URL.Query().Get("status"))
	if err != nil {
		log.Println("MyJobs error:", err)
		http.Error(w, "Could not load jobs", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, jobs)
}

// AcceptJob claims a pending job for the caller. The claim is a single
// conditional write, so of any number of concurrent accepts exactly one
// succeeds and the rest get a 409.
func (h *Handlers) AcceptJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	driverID := utils.GetUserIDFromRequest(r)
	if driverID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := ps.ByName("jobid")
	if err := h.Transport.ClaimJob(ctx, jobID, driverID); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	job, err := h.Transport.GetJob(ctx, jobID)
	if err != nil {
		log.Println("AcceptJob reload error:", err)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "accepted", "jobId": jobID})
		return
	}

	// Move the order along with the job. A failed transition is logged,
	// not surfaced: the claim already happened.
	if err := h.Orders.UpdateStatus(ctx, job.OrderID,
		[]string{models.OrderPending, models.OrderConfirmed}, models.OrderInTransit); err != nil {
		log.Printf("AcceptJob order %s transition: %v", job.OrderID, err)
	}

	h.Feed.Publish("claimed", job)
	utils.RespondWithJSON(w, http.StatusOK, job)
}

// MarkDelivered closes out a job the caller is driving.
func (h *Handlers) MarkDelivered(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	driverID := utils.GetUserIDFromRequest(r)
	if driverID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := ps.ByName("jobid")
	if err := h.Transport.MarkDelivered(ctx, jobID, driverID); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	job, err := h.Transport.GetJob(ctx, jobID)
	if err == nil {
		if err := h.Orders.UpdateStatus(ctx, job.OrderID,
			[]string{models.OrderInTransit, models.OrderConfirmed, models.OrderPending}, models.OrderDelivered); err != nil {
			log.Printf("MarkDelivered order %s transition: %v", job.OrderID, err)
		}
		h.Feed.Publish("delivered", job)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "delivered", "jobId": jobID})
}

// CancelJob lets the requesting buyer withdraw a job that has not been
// delivered yet.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := ps.ByName("jobid")
	job, err := h.Transport.GetJob(ctx, jobID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Job not found")
		return
	}

	order, err := h.Orders.Get(ctx, job.OrderID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Order not found")
		return
	}
	if order.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	if err := h.Transport.CancelJob(ctx, jobID); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	job.Status = models.JobCancelled
	h.Feed.Publish("cancelled", job)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "cancelled", "jobId": jobID})
}
