package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mkulima/memstore"
	"mkulima/models"
	"mkulima/mpesa"
	"mkulima/store"
)

type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	nextID string
	err    error
}

func (g *fakeGateway) STKPush(_ context.Context, phone string, amount int, reference, description string) (mpesa.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return mpesa.STKPushResponse{}, g.err
	}
	id := g.nextID
	if id == "" {
		id = fmt.Sprintf("ws_CO_%d", g.calls)
	}
	return mpesa.STKPushResponse{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: id,
		ResponseCode:      "0",
	}, nil
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *fakeGateway) {
	t.Helper()
	st := memstore.New()
	gw := &fakeGateway{}
	svc := NewService(st.Carts(), st.Products(), st.Orders(), st.Checkouts(), st.Payments(), gw)
	return svc, st, gw
}

func seedProduct(t *testing.T, st *memstore.Store, name string, qty int, price float64) models.Product {
	t.Helper()
	p := models.Product{
		ProductID:    "prod-" + name,
		FarmerID:     "farmer-1",
		Name:         name,
		Category:     "vegetables",
		Quantity:     qty,
		Unit:         "kg",
		PricePerUnit: price,
		Available:    true,
		CreatedAt:    time.Now(),
	}
	if err := st.Products().Create(context.Background(), &p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func addToCart(t *testing.T, st *memstore.Store, buyerID string, p models.Product, qty int) models.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := st.Carts().GetOrCreate(ctx, buyerID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if _, err := st.Carts().AddItem(ctx, c.CartID, p, qty); err != nil {
		t.Fatalf("add item: %v", err)
	}
	return c
}

func successCallback(id string) mpesa.StkCallback {
	return mpesa.StkCallback{CheckoutRequestID: id, ResultCode: 0}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{" 0712345678 ", "254712345678"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInitiateCreatesPendingCheckout(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p1 := seedProduct(t, st, "tomatoes", 50, 20) // 10 x 20 = 200
	p2 := seedProduct(t, st, "onions", 50, 25)   // 2 x 25 = 50
	addToCart(t, st, "buyer-1", p1, 10)
	addToCart(t, st, "buyer-1", p2, 2)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if pc.Amount != 250 {
		t.Errorf("amount = %d, want 250", pc.Amount)
	}
	if pc.Phone != "254712345678" {
		t.Errorf("phone = %q, want normalized 254712345678", pc.Phone)
	}
	if pc.Status != models.CheckoutPending {
		t.Errorf("status = %q, want pending", pc.Status)
	}
	if len(pc.Items) != 2 {
		t.Errorf("snapshot has %d items, want 2", len(pc.Items))
	}

	payment, err := st.Payments().GetByCheckoutID(ctx, pc.CheckoutRequestID)
	if err != nil {
		t.Fatalf("payment record missing: %v", err)
	}
	if payment.Status != models.PaymentPending {
		t.Errorf("payment status = %q, want pending", payment.Status)
	}
}

func TestInitiateWithFees(t *testing.T) {
	svc, st, _ := newTestService(t)

	p := seedProduct(t, st, "maize", 50, 25)
	addToCart(t, st, "buyer-1", p, 10) // subtotal 250

	pc, err := svc.InitiateWithFees(context.Background(), "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("InitiateWithFees: %v", err)
	}
	// 250 * 1.16 + 10 = 300
	if pc.Amount != 300 {
		t.Errorf("amount = %d, want 300", pc.Amount)
	}
}

func TestInitiateEmptyCart(t *testing.T) {
	svc, _, gw := newTestService(t)

	_, err := svc.Initiate(context.Background(), "buyer-1", "0712345678")
	if !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times for an empty cart", gw.calls)
	}
}

func TestInitiateGatewayFailureWritesNothing(t *testing.T) {
	svc, st, gw := newTestService(t)
	gw.err = errors.New("gateway down")

	p := seedProduct(t, st, "kale", 10, 30)
	addToCart(t, st, "buyer-1", p, 2)

	_, err := svc.Initiate(context.Background(), "buyer-1", "0712345678")
	if err == nil {
		t.Fatal("expected gateway error")
	}

	// No durable checkout should exist for any correlation id.
	if _, err := st.Checkouts().Get(context.Background(), "ws_CO_1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("checkout record exists after gateway failure: %v", err)
	}
}

func TestFinalizeCreatesOrdersAndClearsCart(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p1 := seedProduct(t, st, "tomatoes", 50, 20)
	p2 := seedProduct(t, st, "onions", 50, 25)
	c := addToCart(t, st, "buyer-1", p1, 10)
	addToCart(t, st, "buyer-1", p2, 2)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	list, err := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d orders, want 2 (one per cart line)", len(list))
	}
	for _, o := range list {
		if o.Status != models.OrderPending {
			t.Errorf("order %s status = %q, want pending", o.OrderID, o.Status)
		}
	}

	items, err := st.Carts().Items(ctx, c.CartID)
	if err != nil {
		t.Fatalf("cart items: %v", err)
	}
	for _, it := range items {
		if !it.SavedForLater {
			t.Errorf("active item %s survived finalization", it.ItemID)
		}
	}

	got, err := st.Products().Get(ctx, p1.ProductID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Quantity != 40 {
		t.Errorf("stock = %d, want 40 after taking 10", got.Quantity)
	}

	payment, err := st.Payments().GetByCheckoutID(ctx, pc.CheckoutRequestID)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if payment.Status != models.PaymentCompleted {
		t.Errorf("payment status = %q, want completed", payment.Status)
	}
	if len(payment.OrderIDs) != 2 {
		t.Errorf("payment links %d orders, want 2", len(payment.OrderIDs))
	}
}

func TestFinalizeReplayIsNoOp(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 5)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	err = svc.Finalize(ctx, successCallback(pc.CheckoutRequestID))
	if !errors.Is(err, store.ErrCheckoutNotPending) {
		t.Fatalf("replay err = %v, want ErrCheckoutNotPending", err)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 1 {
		t.Fatalf("replay duplicated orders: got %d, want 1", len(list))
	}
	got, _ := st.Products().Get(ctx, p.ProductID)
	if got.Quantity != 45 {
		t.Fatalf("replay decremented stock again: %d, want 45", got.Quantity)
	}
}

func TestFinalizeFailureLeavesCartIntact(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 50, 20)
	c := addToCart(t, st, "buyer-1", p, 5)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	cb := mpesa.StkCallback{CheckoutRequestID: pc.CheckoutRequestID, ResultCode: 1032, ResultDesc: "cancelled by user"}
	if err := svc.Finalize(ctx, cb); err != nil {
		t.Fatalf("Finalize(failure): %v", err)
	}

	got, _ := st.Checkouts().Get(ctx, pc.CheckoutRequestID)
	if got.Status != models.CheckoutFailed {
		t.Errorf("checkout status = %q, want failed", got.Status)
	}
	payment, _ := st.Payments().GetByCheckoutID(ctx, pc.CheckoutRequestID)
	if payment.Status != models.PaymentFailed {
		t.Errorf("payment status = %q, want failed", payment.Status)
	}

	items, _ := st.Carts().Items(ctx, c.CartID)
	if len(items) != 1 {
		t.Fatalf("cart was cleared on failed payment")
	}
	prod, _ := st.Products().Get(ctx, p.ProductID)
	if prod.Quantity != 50 {
		t.Errorf("stock changed on failed payment: %d, want 50", prod.Quantity)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 0 {
		t.Errorf("failed payment produced %d orders", len(list))
	}
}

func TestFinalizeClampsToRemainingStock(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 5, 20)
	addToCart(t, st, "buyer-1", p, 5)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// Another sale drains 2 units between initiation and callback.
	if _, err := st.Products().DecrementStock(ctx, p.ProductID, 2); err != nil {
		t.Fatalf("concurrent decrement: %v", err)
	}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 1 {
		t.Fatalf("got %d orders, want 1", len(list))
	}
	if list[0].Quantity != 3 {
		t.Errorf("order quantity = %d, want clamped 3", list[0].Quantity)
	}
	if list[0].TotalPrice != 60 {
		t.Errorf("order total = %v, want 60 (3 x 20)", list[0].TotalPrice)
	}

	prod, _ := st.Products().Get(ctx, p.ProductID)
	if prod.Quantity != 0 {
		t.Errorf("stock = %d, want 0", prod.Quantity)
	}
	if prod.Available {
		t.Error("sold-out product still marked available")
	}
}

func TestFinalizeSoldOutLineYieldsNoOrder(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 3, 20)
	addToCart(t, st, "buyer-1", p, 3)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// Everything is gone by callback time.
	if _, err := st.Products().DecrementStock(ctx, p.ProductID, 3); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 0 {
		t.Fatalf("sold-out line produced %d orders, want 0", len(list))
	}
}

func TestConcurrentFinalizeExactlyOnce(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 100, 20)
	addToCart(t, st, "buyer-1", p, 10)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Finalize(ctx, successCallback(pc.CheckoutRequestID))
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, store.ErrCheckoutNotPending) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d callbacks finalized, want exactly 1", wins)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 20)
	if len(list) != 1 {
		t.Fatalf("got %d orders, want 1", len(list))
	}
	prod, _ := st.Products().Get(ctx, p.ProductID)
	if prod.Quantity != 90 {
		t.Fatalf("stock = %d, want 90", prod.Quantity)
	}
}

func TestSweeperExpiresStaleCheckouts(t *testing.T) {
	svc, st, _ := newTestService(t)
	svc.CheckoutTTL = time.Millisecond
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 50, 20)
	addToCart(t, st, "buyer-1", p, 5)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	n, err := st.Checkouts().ExpireStale(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d checkouts, want 1", n)
	}

	// A late callback must no longer be able to finalize.
	err = svc.Finalize(ctx, successCallback(pc.CheckoutRequestID))
	if !errors.Is(err, store.ErrCheckoutNotPending) {
		t.Fatalf("late callback err = %v, want ErrCheckoutNotPending", err)
	}
}

// failingOrders wraps the real store and rejects order writes, for the
// whole batch or for one product.
type failingOrders struct {
	store.Orders
	failProduct string // empty fails every create
}

func (f *failingOrders) Create(ctx context.Context, o *models.Order) error {
	if f.failProduct == "" || o.ProductID == f.failProduct {
		return errors.New("orders collection down")
	}
	return f.Orders.Create(ctx, o)
}

func TestFinalizeOrderWriteFailureRestoresStock(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p := seedProduct(t, st, "tomatoes", 10, 20)
	c := addToCart(t, st, "buyer-1", p, 4)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	svc.Orders = &failingOrders{Orders: st.Orders()}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	prod, _ := st.Products().Get(ctx, p.ProductID)
	if prod.Quantity != 10 {
		t.Errorf("stock = %d, want 10 restored after failed order write", prod.Quantity)
	}
	if !prod.Available {
		t.Error("product left unavailable after restored stock")
	}

	items, _ := st.Carts().Items(ctx, c.CartID)
	if len(items) != 1 {
		t.Errorf("cart has %d items, want the line kept for retry", len(items))
	}

	payment, _ := st.Payments().GetByCheckoutID(ctx, pc.CheckoutRequestID)
	if payment.Status != models.PaymentFailed {
		t.Errorf("payment status = %q, want failed when no order materialized", payment.Status)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 0 {
		t.Errorf("got %d orders, want 0", len(list))
	}
}

func TestFinalizePartialOrderWriteFailure(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p1 := seedProduct(t, st, "tomatoes", 50, 20)
	p2 := seedProduct(t, st, "onions", 30, 25)
	addToCart(t, st, "buyer-1", p1, 10)
	addToCart(t, st, "buyer-1", p2, 2)

	pc, err := svc.Initiate(ctx, "buyer-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	svc.Orders = &failingOrders{Orders: st.Orders(), failProduct: p2.ProductID}

	if err := svc.Finalize(ctx, successCallback(pc.CheckoutRequestID)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// The healthy line materialized; the failed line's units went back.
	tomatoes, _ := st.Products().Get(ctx, p1.ProductID)
	if tomatoes.Quantity != 40 {
		t.Errorf("tomatoes stock = %d, want 40", tomatoes.Quantity)
	}
	onions, _ := st.Products().Get(ctx, p2.ProductID)
	if onions.Quantity != 30 {
		t.Errorf("onions stock = %d, want 30 restored", onions.Quantity)
	}

	list, _ := st.Orders().ListByBuyer(ctx, "buyer-1", 0, 10)
	if len(list) != 1 {
		t.Fatalf("got %d orders, want 1", len(list))
	}
	payment, _ := st.Payments().GetByCheckoutID(ctx, pc.CheckoutRequestID)
	if payment.Status != models.PaymentCompleted || len(payment.OrderIDs) != 1 {
		t.Errorf("payment = %q with %d orders, want completed with 1", payment.Status, len(payment.OrderIDs))
	}
}

type failingPayments struct {
	store.Payments
}

func (failingPayments) Create(ctx context.Context, p *models.Payment) error {
	return errors.New("payments collection down")
}

func TestInitiatePaymentRecordFailureClosesCheckout(t *testing.T) {
	svc, st, gw := newTestService(t)
	gw.nextID = "ws_CO_pay"
	svc.Payments = failingPayments{Payments: st.Payments()}

	p := seedProduct(t, st, "kale", 10, 30)
	addToCart(t, st, "buyer-1", p, 2)

	ctx := context.Background()
	if _, err := svc.Initiate(ctx, "buyer-1", "0712345678"); err == nil {
		t.Fatal("expected an error when the payment record cannot be written")
	}

	pc, err := st.Checkouts().Get(ctx, "ws_CO_pay")
	if err != nil {
		t.Fatalf("checkout record: %v", err)
	}
	if pc.Status != models.CheckoutFailed {
		t.Errorf("checkout status = %q, want failed", pc.Status)
	}

	// A late callback has nothing left to claim.
	err = svc.Finalize(ctx, successCallback("ws_CO_pay"))
	if !errors.Is(err, store.ErrCheckoutNotPending) {
		t.Fatalf("late callback err = %v, want ErrCheckoutNotPending", err)
	}
}
