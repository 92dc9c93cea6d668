package checkout

import (
	"net/http"
	"testing"

	"mkulima/models"
	"mkulima/utils"

	"go.mongodb.org/mongo-driver/bson"
)

func TestStoredStatusSurvivesRoundTrip(t *testing.T) {
	rec := models.IdempotencyRecord{
		Key:         "idem-1",
		Method:      http.MethodPost,
		Path:        "/api/cart/checkout",
		UserID:      "buyer-1",
		RequestHash: "abc",
		Response: utils.M{
			"status": http.StatusAccepted,
			"body":   utils.M{"status": "awaiting_confirmation"},
		},
	}

	raw, err := bson.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got models.IdempotencyRecord
	if err := bson.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The stored int comes back as a BSON integer type, not the Go int
	// it went in as; the replay must still recover 202.
	if code := storedStatus(got.Response["status"]); code != http.StatusAccepted {
		t.Fatalf("replayed status = %d, want %d", code, http.StatusAccepted)
	}
}

func TestStoredStatusNumericShapes(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{int(201), 201},
		{int32(202), 202},
		{int64(409), 409},
		{float64(429), 429},
		{nil, http.StatusOK},
		{"bogus", http.StatusOK},
	}
	for _, c := range cases {
		if got := storedStatus(c.in); got != c.want {
			t.Errorf("storedStatus(%#v) = %d, want %d", c.in, got, c.want)
		}
	}
}
