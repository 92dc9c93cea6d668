package checkout

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"mkulima/models"
	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

// BuyNow creates a pending order for a single product, bypassing the
// cart. Stock is not reserved here; it is taken when the order is paid
// and finalized.
func (s *Service) BuyNow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}

	product, err := s.Products.Get(ctx, ps.ByName("productid"))
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Product not found")
		return
	}
	if !product.Available || product.Quantity == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Product is not available")
		return
	}

	order := models.Order{
		OrderID:     utils.GetUUID(),
		ProductID:   product.ProductID,
		ProductName: product.Name,
		BuyerID:     buyerID,
		Quantity:    body.Quantity,
		TotalPrice:  product.PricePerUnit * float64(body.Quantity),
		Status:      models.OrderPending,
		OrderDate:   time.Now(),
	}
	if err := s.Orders.Create(ctx, &order); err != nil {
		log.Println("BuyNow order create error:", err)
		http.Error(w, "Failed to create order", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, order)
}
