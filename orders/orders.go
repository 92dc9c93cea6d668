// Package orders exposes a buyer's order history.
package orders

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
	Orders store.Orders
}

func NewHandlers(orders store.Orders) *Handlers {
	return &Handlers{Orders: orders}
}

// ListMine returns the caller's orders, newest first.
func (h *Handlers) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	skip, limit := utils.ParsePagination(r, 20, 100)
	list, err := h.Orders.ListByBuyer(ctx, buyerID, skip, limit)
	if err != nil {
		log.Println("ListMine error:", err)
		http.Error(w, "Could not load orders", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Get returns one of the caller's orders.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Orders.Get(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Order not found")
		return
	}
	if order.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}
