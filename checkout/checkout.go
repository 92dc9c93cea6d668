// Package checkout drives the cart-to-payment-to-order state machine:
// STK push initiation, the durable pending-checkout record, and the
// asynchronous callback that materializes orders.
package checkout

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"mkulima/cart"
	"mkulima/models"
	"mkulima/mpesa"
	"mkulima/rdx"
	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
)

// Gateway is the narrow contract the state machine needs from the
// payment provider.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount int, reference, description string) (mpesa.STKPushResponse, error)
}

// checkoutLockTTL bounds how long a buyer's checkout lock is held.
const checkoutLockTTL = 10 * time.Second

// DefaultCheckoutTTL is how long an STK push may stay unanswered before
// the sweeper expires it.
const DefaultCheckoutTTL = 3 * time.Minute

// Service owns checkout initiation and callback finalization.
type Service struct {
	Carts     store.Carts
	Products  store.Products
	Orders    store.Orders
	Checkouts store.Checkouts
	Payments  store.Payments
	Gateway   Gateway

	// CheckoutTTL is the payment-pending window; zero means
	// DefaultCheckoutTTL.
	CheckoutTTL time.Duration
}

func NewService(carts store.Carts, products store.Products, orders store.Orders,
	checkouts store.Checkouts, payments store.Payments, gw Gateway) *Service {
	return &Service{
		Carts:     carts,
		Products:  products,
		Orders:    orders,
		Checkouts: checkouts,
		Payments:  payments,
		Gateway:   gw,
	}
}

func (s *Service) ttl() time.Duration {
	if s.CheckoutTTL > 0 {
		return s.CheckoutTTL
	}
	return DefaultCheckoutTTL
}

// NormalizePhone converts a local number to the gateway's international
// format: leading 0 becomes the 254 prefix, a leading + is stripped, and
// anything else passes through unchanged.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	case strings.HasPrefix(phone, "+"):
		return phone[1:]
	}
	return phone
}

func snapshotItems(items []models.CartItem) []models.SnapshotItem {
	out := make([]models.SnapshotItem, 0, len(items))
	for _, it := range items {
		if it.SavedForLater {
			continue
		}
		out = append(out, models.SnapshotItem{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit,
			Subtotal:     it.Subtotal(),
		})
	}
	return out
}

// Initiate runs the checkout path: it charges the unweighted cart sum.
func (s *Service) Initiate(ctx context.Context, buyerID, phone string) (models.PendingCheckout, error) {
	return s.initiate(ctx, buyerID, phone, false)
}

// InitiateWithFees runs the order-confirmation path: it charges the full
// total including tax and the flat delivery fee. The two amounts diverge
// by design; see cart.CheckoutTotal.
func (s *Service) InitiateWithFees(ctx context.Context, buyerID, phone string) (models.PendingCheckout, error) {
	return s.initiate(ctx, buyerID, phone, true)
}

func (s *Service) initiate(ctx context.Context, buyerID, phone string, withFees bool) (models.PendingCheckout, error) {
	var none models.PendingCheckout

	c, err := s.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		return none, err
	}
	items, err := s.Carts.Items(ctx, c.CartID)
	if err != nil {
		return none, err
	}

	snapshot := snapshotItems(items)
	if len(snapshot) == 0 {
		return none, store.ErrEmptyCart
	}

	var amount float64
	if withFees {
		amount = cart.FullTotalWithFees(items, cart.DefaultTaxRate, cart.DefaultDeliveryFee)
	} else {
		amount = cart.CheckoutTotal(items)
	}
	// The gateway takes whole units only; the fraction is truncated.
	amountInt := int(amount)

	normalized := NormalizePhone(phone)

	resp, err := s.Gateway.STKPush(ctx, normalized, amountInt, "Cart"+c.CartID, "Order Payment")
	if err != nil {
		// Nothing durable has been written yet.
		return none, err
	}

	now := time.Now()
	pc := models.PendingCheckout{
		CheckoutRequestID: resp.CheckoutRequestID,
		BuyerID:           buyerID,
		CartID:            c.CartID,
		Phone:             normalized,
		Amount:            amountInt,
		Items:             snapshot,
		Status:            models.CheckoutPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl()),
	}
	if err := s.Checkouts.Put(ctx, pc); err != nil {
		return none, err
	}

	payment := models.Payment{
		PaymentID:         utils.GetUUID(),
		BuyerID:           buyerID,
		Amount:            amount,
		Method:            "mpesa",
		Status:            models.PaymentPending,
		CheckoutRequestID: resp.CheckoutRequestID,
		Phone:             normalized,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Payments.Create(ctx, &payment); err != nil {
		// Without the payment row the callback could not be reconciled,
		// so close the checkout instead of leaving it claimable.
		if failErr := s.Checkouts.Fail(ctx, pc.CheckoutRequestID); failErr != nil {
			log.Println("checkout: close after payment create failure:", failErr)
		}
		return none, err
	}

	return pc, nil
}

// Finalize applies a gateway callback. Claiming the pending record flips
// it out of pending first, so a replayed callback for the same
// correlation id does nothing. Stock decrements are bounded: an order is
// only written for the quantity actually taken, and a sold-out product
// yields no order at all. A decrement whose order cannot be written is
// undone, and when no order materializes the cart stays untouched and
// the payment is flagged failed for reconciliation.
func (s *Service) Finalize(ctx context.Context, cb mpesa.StkCallback) error {
	if !cb.Succeeded() {
		if err := s.Checkouts.Fail(ctx, cb.CheckoutRequestID); err != nil {
			return err
		}
		if err := s.Payments.Fail(ctx, cb.CheckoutRequestID); err != nil {
			log.Println("checkout: payment fail mark:", err)
		}
		return nil
	}

	pc, err := s.Checkouts.Claim(ctx, cb.CheckoutRequestID)
	if err != nil {
		return err
	}

	orderIDs := make([]string, 0, len(pc.Items))
	for _, it := range pc.Items {
		applied, err := s.Products.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			log.Printf("checkout: stock decrement %s: %v", it.ProductID, err)
			continue
		}
		if applied == 0 {
			log.Printf("checkout: product %s sold out before finalization, skipping line", it.ProductID)
			continue
		}
		if applied < it.Quantity {
			log.Printf("checkout: product %s clamped from %d to %d", it.ProductID, it.Quantity, applied)
		}

		order := models.Order{
			OrderID:     utils.GetUUID(),
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			BuyerID:     pc.BuyerID,
			Quantity:    applied,
			TotalPrice:  it.PricePerUnit * float64(applied),
			Status:      models.OrderPending,
			OrderDate:   time.Now(),
		}
		if err := s.Orders.Create(ctx, &order); err != nil {
			log.Printf("checkout: order create for product %s: %v", it.ProductID, err)
			// Hand the units back; a decrement without an order would
			// silently lose the farmer's stock.
			if restoreErr := s.Products.RestoreStock(ctx, it.ProductID, applied); restoreErr != nil {
				log.Printf("checkout: stock restore %s: %v", it.ProductID, restoreErr)
			}
			continue
		}
		orderIDs = append(orderIDs, order.OrderID)
	}

	if len(orderIDs) == 0 {
		// Money was taken but no order materialized. Keep the cart so
		// the buyer can retry, and flag the payment for reconciliation
		// instead of completing it.
		if err := s.Payments.Fail(ctx, cb.CheckoutRequestID); err != nil {
			log.Println("checkout: payment fail mark:", err)
		}
		return nil
	}

	if err := s.Carts.ClearActive(ctx, pc.CartID); err != nil {
		log.Println("checkout: cart clear:", err)
	}
	if err := s.Payments.Complete(ctx, cb.CheckoutRequestID, orderIDs); err != nil {
		log.Println("checkout: payment complete mark:", err)
	}
	return nil
}

// ===== Handlers =====

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// Checkout initiates payment for the unweighted cart sum.
func (s *Service) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleInitiate(w, r, false)
}

// ConfirmOrder initiates payment for the full total with tax and fee.
func (s *Service) ConfirmOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleInitiate(w, r, true)
}

func (s *Service) handleInitiate(w http.ResponseWriter, r *http.Request, withFees bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.PhoneNumber) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Please enter a phone number")
		return
	}

	// One checkout in flight per buyer. A Redis error degrades to no
	// locking rather than blocking checkout.
	acquired, err := rdx.RdxSetNX("checkout_lock:"+buyerID, "1", checkoutLockTTL)
	if err == nil && !acquired {
		utils.RespondWithError(w, http.StatusTooManyRequests, "Checkout already in progress, please retry")
		return
	}
	defer rdx.RdxDel("checkout_lock:" + buyerID)

	var pc models.PendingCheckout
	if withFees {
		pc, err = s.InitiateWithFees(ctx, buyerID, body.PhoneNumber)
	} else {
		pc, err = s.Initiate(ctx, buyerID, body.PhoneNumber)
	}
	if err != nil {
		code := store.HTTPStatus(err)
		if code == http.StatusInternalServerError {
			// Gateway failures surface as bad-gateway, not our fault.
			code = http.StatusBadGateway
		}
		log.Println("checkout initiate error:", err)
		utils.RespondWithError(w, code, err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusAccepted, utils.M{
		"status":            "awaiting_confirmation",
		"checkoutRequestId": pc.CheckoutRequestID,
		"amount":            pc.Amount,
	})
}

// PaymentStatus reports where a buyer's checkout currently stands.
func (s *Service) PaymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := ps.ByName("checkoutid")

	// Short-lived cache keeps pollers off the store.
	if cached := rdx.RdxGet("checkout_status:" + buyerID + ":" + id); cached != "" {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"checkoutRequestId": id, "status": cached})
		return
	}

	pc, err := s.Checkouts.Get(ctx, id)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Checkout not found")
		return
	}
	if pc.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	if pc.Status != models.CheckoutPending {
		// Terminal states can be cached; pending must stay fresh.
		_ = rdx.RdxSet("checkout_status:"+buyerID+":"+id, pc.Status, 30*time.Second)
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"checkoutRequestId": id, "status": pc.Status})
}

// MpesaCallback receives the gateway's asynchronous result. Whatever
// happens internally, the gateway gets its plain acknowledgement;
// otherwise it keeps retrying.
func (s *Service) MpesaCallback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var payload mpesa.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Println("mpesa callback decode error:", err)
		w.Write([]byte("Received"))
		return
	}

	if err := s.Finalize(ctx, payload.Body.StkCallback); err != nil {
		log.Printf("mpesa callback error for %s: %v", payload.Body.StkCallback.CheckoutRequestID, err)
	}
	w.Write([]byte("Received"))
}
