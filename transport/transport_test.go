package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mkulima/globals"
	"mkulima/memstore"
	"mkulima/models"
	"mkulima/rdx"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
)

func newTestHandlers(t *testing.T) (*Handlers, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	h := NewHandlers(st.Transport(), st.Orders(), st.Ratings(), st.Users(), nil)
	return h, st
}

func seedOrder(t *testing.T, st *memstore.Store, buyerID string) models.Order {
	t.Helper()
	o := models.Order{
		OrderID:     "order-" + buyerID,
		ProductID:   "prod-1",
		ProductName: "tomatoes",
		BuyerID:     buyerID,
		Quantity:    5,
		TotalPrice:  100,
		Status:      models.OrderPending,
		OrderDate:   time.Now(),
	}
	if err := st.Orders().Create(context.Background(), &o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func seedJob(t *testing.T, st *memstore.Store, orderID string) models.TransportJob {
	t.Helper()
	now := time.Now()
	req := models.TransportRequest{
		RequestID:        "req-" + orderID,
		OrderID:          orderID,
		PickupLocation:   "Farm A",
		DeliveryLocation: "Market B",
		Status:           "available",
		CreatedAt:        now,
	}
	job := models.TransportJob{
		JobID:            "job-" + orderID,
		OrderID:          orderID,
		PickupLocation:   "Farm A",
		DeliveryLocation: "Market B",
		Status:           models.JobPending,
		Urgency:          models.UrgencyMedium,
		TransportFee:     150,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := st.Transport().CreateRequestWithJob(context.Background(), req, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func seedUser(t *testing.T, st *memstore.Store, userID, role string) {
	t.Helper()
	u := models.User{UserID: userID, Username: userID, Role: role, CreatedAt: time.Now()}
	if err := st.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID))
}

func jobParams(jobID string) httprouter.Params {
	return httprouter.Params{{Key: "jobid", Value: jobID}}
}

func TestRequestTransportDuplicate(t *testing.T) {
	h, st := newTestHandlers(t)
	order := seedOrder(t, st, "buyer-1")

	body, _ := json.Marshal(map[string]any{
		"orderId":          order.OrderID,
		"pickupLocation":   "Farm A",
		"deliveryLocation": "Market B",
		"urgency":          "high",
		"transportFee":     150,
	})

	do := func() *httptest.ResponseRecorder {
		r := asUser(httptest.NewRequest(http.MethodPost, "/api/transport/requests", bytes.NewReader(body)), "buyer-1")
		w := httptest.NewRecorder()
		h.RequestTransport(w, r, nil)
		return w
	}

	if w := do(); w.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if w := do(); w.Code != http.StatusConflict {
		t.Fatalf("duplicate request status = %d, want 409", w.Code)
	}
}

func TestRequestTransportForeignOrder(t *testing.T) {
	h, st := newTestHandlers(t)
	order := seedOrder(t, st, "buyer-1")

	body, _ := json.Marshal(map[string]any{
		"orderId":          order.OrderID,
		"pickupLocation":   "Farm A",
		"deliveryLocation": "Market B",
	})
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/transport/requests", bytes.NewReader(body)), "buyer-2")
	w := httptest.NewRecorder()
	h.RequestTransport(w, r, nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for someone else's order", w.Code)
	}
}

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	h, st := newTestHandlers(t)
	order := seedOrder(t, st, "buyer-1")
	job := seedJob(t, st, order.OrderID)

	const n = 20
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := asUser(httptest.NewRequest(http.MethodPost, "/api/transport/jobs/"+job.JobID+"/accept", nil),
				fmt.Sprintf("driver-%d", i))
			w := httptest.NewRecorder()
			h.AcceptJob(w, r, jobParams(job.JobID))
			codes <- w.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	wins, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if wins != 1 {
		t.Fatalf("%d drivers won the job, want exactly 1", wins)
	}
	if conflicts != n-1 {
		t.Fatalf("%d conflicts, want %d", conflicts, n-1)
	}

	got, err := st.Transport().GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != models.JobInTransit || got.DriverID == "" {
		t.Fatalf("job after claim: status=%q driver=%q", got.Status, got.DriverID)
	}

	order2, _ := st.Orders().Get(context.Background(), order.OrderID)
	if order2.Status != models.OrderInTransit {
		t.Errorf("order status = %q, want in_transit", order2.Status)
	}
}

func TestMarkDeliveredRequiresClaimingDriver(t *testing.T) {
	h, st := newTestHandlers(t)
	order := seedOrder(t, st, "buyer-1")
	job := seedJob(t, st, order.OrderID)

	if err := st.Transport().ClaimJob(context.Background(), job.JobID, "driver-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	r := asUser(httptest.NewRequest(http.MethodPost, "/api/transport/jobs/"+job.JobID+"/deliver", nil), "driver-2")
	w := httptest.NewRecorder()
	h.MarkDelivered(w, r, jobParams(job.JobID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign driver deliver status = %d, want 403", w.Code)
	}

	r = asUser(httptest.NewRequest(http.MethodPost, "/api/transport/jobs/"+job.JobID+"/deliver", nil), "driver-1")
	w = httptest.NewRecorder()
	h.MarkDelivered(w, r, jobParams(job.JobID))
	if w.Code != http.StatusOK {
		t.Fatalf("deliver status = %d, want 200: %s", w.Code, w.Body.String())
	}

	order2, _ := st.Orders().Get(context.Background(), order.OrderID)
	if order2.Status != models.OrderDelivered {
		t.Errorf("order status = %q, want delivered", order2.Status)
	}
}

func rateBody(t *testing.T, rating int) *bytes.Reader {
	t.Helper()
	b, _ := json.Marshal(map[string]any{"rating": rating, "comment": "on time"})
	return bytes.NewReader(b)
}

func TestRateTransporter(t *testing.T) {
	h, st := newTestHandlers(t)
	ctx := context.Background()

	seedUser(t, st, "driver-1", models.RoleTransporter)
	order := seedOrder(t, st, "buyer-1")
	job := seedJob(t, st, order.OrderID)

	// Rating before delivery is rejected.
	r := asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, 5)), "buyer-1")
	w := httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pre-delivery rating status = %d, want 400", w.Code)
	}

	if err := st.Transport().ClaimJob(ctx, job.JobID, "driver-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.Transport().MarkDelivered(ctx, job.JobID, "driver-1"); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	// Only the order's buyer may rate.
	r = asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, 5)), "buyer-2")
	w = httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign buyer rating status = %d, want 403", w.Code)
	}

	// Out-of-range rating.
	r = asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, 6)), "buyer-1")
	w = httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("rating 6 status = %d, want 400", w.Code)
	}

	// The real rating lands and updates the profile aggregate.
	r = asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, 4)), "buyer-1")
	w = httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusCreated {
		t.Fatalf("rating status = %d, want 201: %s", w.Code, w.Body.String())
	}

	driver, err := st.Users().Get(ctx, "driver-1")
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if driver.Rating != 4 || driver.RatingCount != 1 {
		t.Errorf("driver rating = %v/%d, want 4/1", driver.Rating, driver.RatingCount)
	}

	// One rating per job.
	r = asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, 1)), "buyer-1")
	w = httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusConflict {
		t.Fatalf("second rating status = %d, want 409", w.Code)
	}
	driver, _ = st.Users().Get(ctx, "driver-1")
	if driver.Rating != 4 || driver.RatingCount != 1 {
		t.Errorf("duplicate rating changed aggregate: %v/%d", driver.Rating, driver.RatingCount)
	}
}

func TestRatingAverageAcrossJobs(t *testing.T) {
	h, st := newTestHandlers(t)
	ctx := context.Background()

	seedUser(t, st, "driver-1", models.RoleTransporter)

	rate := func(i, stars int) {
		order := seedOrder(t, st, fmt.Sprintf("buyer-%d", i))
		job := seedJob(t, st, order.OrderID)
		if err := st.Transport().ClaimJob(ctx, job.JobID, "driver-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := st.Transport().MarkDelivered(ctx, job.JobID, "driver-1"); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		r := asUser(httptest.NewRequest(http.MethodPost, "/rate", rateBody(t, stars)), fmt.Sprintf("buyer-%d", i))
		w := httptest.NewRecorder()
		h.RateTransporter(w, r, jobParams(job.JobID))
		if w.Code != http.StatusCreated {
			t.Fatalf("rating %d status = %d: %s", i, w.Code, w.Body.String())
		}
	}

	rate(1, 5)
	rate(2, 3)
	rate(3, 4)

	driver, _ := st.Users().Get(ctx, "driver-1")
	if driver.RatingCount != 3 {
		t.Fatalf("rating count = %d, want 3", driver.RatingCount)
	}
	if driver.Rating != 4 {
		t.Errorf("average = %v, want 4", driver.Rating)
	}

	stats, err := st.Transport().Stats(ctx, "driver-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.DeliveredJobs != 3 {
		t.Errorf("delivered jobs = %d, want 3", stats.DeliveredJobs)
	}
	if stats.Earnings != 450 {
		t.Errorf("earnings = %v, want 450", stats.Earnings)
	}
}

func TestCancelJob(t *testing.T) {
	h, st := newTestHandlers(t)
	order := seedOrder(t, st, "buyer-1")
	job := seedJob(t, st, order.OrderID)

	// A stranger cannot cancel.
	r := asUser(httptest.NewRequest(http.MethodPost, "/cancel", nil), "buyer-2")
	w := httptest.NewRecorder()
	h.CancelJob(w, r, jobParams(job.JobID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel status = %d, want 403", w.Code)
	}

	r = asUser(httptest.NewRequest(http.MethodPost, "/cancel", nil), "buyer-1")
	w = httptest.NewRecorder()
	h.CancelJob(w, r, jobParams(job.JobID))
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", w.Code)
	}

	got, _ := st.Transport().GetJob(context.Background(), job.JobID)
	if got.Status != models.JobCancelled {
		t.Errorf("job status = %q, want cancelled", got.Status)
	}

	// Cancelled jobs cannot be claimed.
	r = asUser(httptest.NewRequest(http.MethodPost, "/accept", nil), "driver-1")
	w = httptest.NewRecorder()
	h.AcceptJob(w, r, jobParams(job.JobID))
	if w.Code != http.StatusConflict {
		t.Fatalf("claim of cancelled job status = %d, want 409", w.Code)
	}
}

func TestRatingRefreshSurvivesRedisOutage(t *testing.T) {
	prev := rdx.Conn
	rdx.Conn = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() {
		rdx.Conn.Close()
		rdx.Conn = prev
	})

	h, st := newTestHandlers(t)
	ctx := context.Background()
	seedUser(t, st, "driver-1", models.RoleTransporter)
	order := seedOrder(t, st, "buyer-1")
	job := seedJob(t, st, order.OrderID)
	if err := st.Transport().ClaimJob(ctx, job.JobID, "driver-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.Transport().MarkDelivered(ctx, job.JobID, "driver-1"); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"rating": 5})
	r := asUser(httptest.NewRequest(http.MethodPost, "/rate", bytes.NewReader(body)), "buyer-1")
	w := httptest.NewRecorder()
	h.RateTransporter(w, r, jobParams(job.JobID))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Even when the lock cannot be taken at all, the aggregate refresh
	// must run rather than drop the stored rating from the profile.
	u, err := st.Users().Get(ctx, "driver-1")
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	if u.Rating != 5 || u.RatingCount != 1 {
		t.Fatalf("profile rating = %v/%d, want 5/1", u.Rating, u.RatingCount)
	}
}
