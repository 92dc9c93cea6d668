package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mkulima/globals"
	"mkulima/models"

	"github.com/julienschmidt/httprouter"
)

func asBuyer(r *http.Request, buyerID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, buyerID))
}

func TestMpesaCallbackAlwaysAcks(t *testing.T) {
	svc, st, _ := newTestService(t)

	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 5)
	pc, err := svc.Initiate(context.Background(), "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	payloads := []string{
		// Real success.
		fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":0}}}`, pc.CheckoutRequestID),
		// Replay of the same callback.
		fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":0}}}`, pc.CheckoutRequestID),
		// Unknown correlation id.
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_unknown","ResultCode":0}}}`,
		// Malformed body.
		`{not json`,
	}
	for i, body := range payloads {
		r := httptest.NewRequest(http.MethodPost, "/api/payments/mpesa/callback", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()
		svc.MpesaCallback(w, r, nil)
		if w.Code != http.StatusOK {
			t.Errorf("payload %d: status = %d, want 200", i, w.Code)
		}
		if w.Body.String() != "Received" {
			t.Errorf("payload %d: body = %q, want Received", i, w.Body.String())
		}
	}

	// The gateway's retries must not have duplicated anything.
	list, _ := st.Orders().ListByBuyer(context.Background(), "buyer-1", 0, 10)
	if len(list) != 1 {
		t.Fatalf("got %d orders after retried callbacks, want 1", len(list))
	}
}

func TestCheckoutHandlerRequiresPhone(t *testing.T) {
	svc, st, _ := newTestService(t)
	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 2)

	body, _ := json.Marshal(map[string]string{"phoneNumber": ""})
	r := asBuyer(httptest.NewRequest(http.MethodPost, "/api/cart/checkout", bytes.NewReader(body)), "buyer-1")
	w := httptest.NewRecorder()
	svc.Checkout(w, r, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without a phone number", w.Code)
	}
}

func TestCheckoutHandlerAccepted(t *testing.T) {
	svc, st, _ := newTestService(t)
	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 5)

	body, _ := json.Marshal(map[string]string{"phoneNumber": "0712345678"})
	r := asBuyer(httptest.NewRequest(http.MethodPost, "/api/cart/checkout", bytes.NewReader(body)), "buyer-1")
	w := httptest.NewRecorder()
	svc.Checkout(w, r, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status            string `json:"status"`
		CheckoutRequestID string `json:"checkoutRequestId"`
		Amount            int    `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "awaiting_confirmation" || resp.CheckoutRequestID == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Amount != 100 {
		t.Errorf("amount = %d, want 100", resp.Amount)
	}
}

func TestPaymentStatusOwnership(t *testing.T) {
	svc, st, _ := newTestService(t)
	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 2)

	pc, err := svc.Initiate(context.Background(), "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	params := httprouter.Params{{Key: "checkoutid", Value: pc.CheckoutRequestID}}

	r := asBuyer(httptest.NewRequest(http.MethodGet, "/status", nil), "buyer-2")
	w := httptest.NewRecorder()
	svc.PaymentStatus(w, r, params)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign buyer status = %d, want 403", w.Code)
	}

	r = asBuyer(httptest.NewRequest(http.MethodGet, "/status", nil), "buyer-1")
	w = httptest.NewRecorder()
	svc.PaymentStatus(w, r, params)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != models.CheckoutPending {
		t.Errorf("status = %q, want pending", resp.Status)
	}
}

func TestBuyNowCreatesPendingOrderWithoutReservingStock(t *testing.T) {
	svc, st, _ := newTestService(t)
	p := seedProduct(t, st, "tomatoes", 10, 20)

	body, _ := json.Marshal(map[string]int{"quantity": 3})
	r := asBuyer(httptest.NewRequest(http.MethodPost, "/buy", bytes.NewReader(body)), "buyer-1")
	w := httptest.NewRecorder()
	svc.BuyNow(w, r, httprouter.Params{{Key: "productid", Value: p.ProductID}})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.Status != models.OrderPending || order.Quantity != 3 || order.TotalPrice != 60 {
		t.Errorf("order = %+v", order)
	}

	// Stock is untouched until the order is paid and finalized.
	got, _ := st.Products().Get(context.Background(), p.ProductID)
	if got.Quantity != 10 {
		t.Errorf("stock = %d, want 10", got.Quantity)
	}
}
