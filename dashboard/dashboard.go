// Package dashboard aggregates per-role summary views.
package dashboard

import (
	"context"
	"log"
	"net/http"
	"time"

	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Orders    store.Orders
	Products  store.Products
	Transport store.Transport
}

func NewHandlers(orders store.Orders, products store.Products, transport store.Transport) *Handlers {
	return &Handlers{Orders: orders, Products: products, Transport: transport}
}

// Buyer returns order counts, spend, and the most recent orders.
func (h *Handlers) Buyer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.Orders.BuyerStats(ctx, buyerID)
	if err != nil {
		log.Println("Buyer dashboard error:", err)
		http.Error(w, "Could not load dashboard", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

// Farmer returns the farmer's listings with a stock rollup.
func (h *Handlers) Farmer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	products, err := h.Products.ListByFarmer(ctx, farmerID)
	if err != nil {
		log.Println("Farmer dashboard error:", err)
		http.Error(w, "Could not load dashboard", http.StatusInternalServerError)
		return
	}

	active := 0
	totalStock := 0
	for _, p := range products {
		if p.Available {
			active++
		}
		totalStock += p.Quantity
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"totalProducts":  len(products),
		"activeProducts": active,
		"totalStock":     totalStock,
		"products":       products,
	})
}

// Transporter returns earnings, active job count, and the profile rating.
func (h *Handlers) Transporter(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	driverID := utils.GetUserIDFromRequest(r)
	if driverID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.Transport.Stats(ctx, driverID)
	if err != nil {
		log.Println("Transporter dashboard error:", err)
		http.Error(w, "Could not load dashboard", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}
