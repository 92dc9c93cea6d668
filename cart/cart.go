package cart

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

// Handlers exposes the cart engine over HTTP.
type Handlers struct {
	Carts    store.Carts
	Products store.Products
}

func NewHandlers(carts store.Carts, products store.Products) *Handlers {
	return &Handlers{Carts: carts, Products: products}
}

type cartView struct {
	Cart     models.Cart       `json:"cart"`
	Items    []models.CartItem `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Total    float64           `json:"total"`
}

// GetCart returns the buyer's cart, creating it lazily on first use.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := h.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		log.Println("GetCart GetOrCreate error:", err)
		http.Error(w, "Could not load cart", http.StatusInternalServerError)
		return
	}

	items, err := h.Carts.Items(ctx, c.CartID)
	if err != nil {
		log.Println("GetCart Items error:", err)
		http.Error(w, "Could not load cart items", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, cartView{
		Cart:     c,
		Items:    items,
		Subtotal: Subtotal(items),
		Total:    FullTotalWithFees(items, DefaultTaxRate, DefaultDeliveryFee),
	})
}

// AddToCart increments quantity if an active line for the product exists,
// or inserts a new CartItem.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Println("AddToCart decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}
	if body.ProductID == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	product, err := h.Products.Get(ctx, body.ProductID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Product not found")
		return
	}
	if !product.Available {
		utils.RespondWithError(w, http.StatusBadRequest, "Product is not available")
		return
	}

	c, err := h.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		log.Println("AddToCart GetOrCreate error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}

	item, err := h.Carts.AddItem(ctx, c.CartID, product, body.Quantity)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// RemoveItem deletes a line from the caller's cart.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := h.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		http.Error(w, "Could not load cart", http.StatusInternalServerError)
		return
	}

	if err := h.Carts.RemoveItem(ctx, c.CartID, ps.ByName("itemid")); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// AdjustQuantity applies a delta clamped to [1, product stock]. Hitting
// a boundary leaves the quantity unchanged rather than erroring.
func (h *Handlers) AdjustQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Delta == 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	c, err := h.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		http.Error(w, "Could not load cart", http.StatusInternalServerError)
		return
	}

	items, err := h.Carts.Items(ctx, c.CartID)
	if err != nil {
		http.Error(w, "Could not load cart items", http.StatusInternalServerError)
		return
	}

	itemID := ps.ByName("itemid")
	maxQty := 0
	for _, it := range items {
		if it.ItemID == itemID {
			if product, err := h.Products.Get(ctx, it.ProductID); err == nil {
				maxQty = product.Quantity
			}
			break
		}
	}

	item, err := h.Carts.AdjustQuantity(ctx, c.CartID, itemID, body.Delta, maxQty)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

// SetSaved moves a line between the active cart and saved-for-later.
func (h *Handlers) SetSaved(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Saved bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	c, err := h.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		http.Error(w, "Could not load cart", http.StatusInternalServerError)
		return
	}

	if err := h.Carts.SetSaved(ctx, c.CartID, ps.ByName("itemid"), body.Saved); err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
