// Package catalog is the farmer-facing product listing surface plus the
// public browse endpoints.
package catalog

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"mkulima/models"
	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Products store.Products
}

func NewHandlers(products store.Products) *Handlers {
	return &Handlers{Products: products}
}

func validCategory(c string) bool {
	for _, known := range models.ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

type productRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Description  string  `json:"description"`
}

// AddProduct creates a listing owned by the calling farmer.
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body productRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" || body.Quantity < 0 || body.PricePerUnit <= 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if body.Category == "" {
		body.Category = "other"
	}
	if !validCategory(body.Category) {
		http.Error(w, "Unknown category", http.StatusBadRequest)
		return
	}
	if body.Unit == "" {
		body.Unit = "kg"
	}

	now := time.Now()
	product := models.Product{
		ProductID:    utils.GetUUID(),
		FarmerID:     farmerID,
		Name:         body.Name,
		Category:     body.Category,
		Quantity:     body.Quantity,
		Unit:         body.Unit,
		PricePerUnit: body.PricePerUnit,
		Description:  body.Description,
		Available:    body.Quantity > 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Products.Create(ctx, &product); err != nil {
		log.Println("AddProduct create error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// ListProducts is the public browse endpoint.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	skip, limit := utils.ParsePagination(r, 20, 100)
	products, err := h.Products.List(ctx, skip, limit)
	if err != nil {
		log.Println("ListProducts error:", err)
		http.Error(w, "Could not load products", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct returns a single listing.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := h.Products.Get(ctx, ps.ByName("productid"))
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Product not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

// MyProducts lists the calling farmer's own products, active or not.
func (h *Handlers) MyProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	products, err := h.Products.ListByFarmer(ctx, farmerID)
	if err != nil {
		log.Println("MyProducts error:", err)
		http.Error(w, "Could not load products", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, products)
}

// EditProduct applies a partial update to a listing the caller owns.
// Price is not editable; existing cart snapshots depend on it.
func (h *Handlers) EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var upd store.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if upd.Category != nil && !validCategory(*upd.Category) {
		http.Error(w, "Unknown category", http.StatusBadRequest)
		return
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		http.Error(w, "Quantity must not be negative", http.StatusBadRequest)
		return
	}

	if err := h.Products.Update(ctx, ps.ByName("productid"), farmerID, upd); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeactivateProduct pulls a listing from the catalog without deleting
// it; historical orders keep pointing at it.
func (h *Handlers) DeactivateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Products.Deactivate(ctx, ps.ByName("productid"), farmerID); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
