package checkout

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"mkulima/db"
	"mkulima/models"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyWindow = 24 * time.Hour

func requestFingerprint(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records the handler's status and body so they can be
// stored against the idempotency key.
type captureWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{w: w, statusCode: http.StatusOK}
}

func (c *captureWriter) Header() http.Header { return c.w.Header() }

func (c *captureWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func isDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// storedStatus recovers the response status from a replayed record. BSON
// hands numbers back as int32, int64, or float64 depending on how they
// were stored, so every numeric shape must be accepted.
func storedStatus(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return http.StatusOK
}

// Idempotent makes a mutating endpoint replay-safe when the client sends
// an Idempotency-Key header. The first request with a key runs the
// handler and stores its response; a replay with the same key and the
// same request body gets the stored response back, and a replay with a
// different body is rejected with 409. Requests without the header pass
// straight through. Disabled automatically when Mongo is not wired.
func Idempotent(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || db.IdempotencyCollection == nil {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		fp := requestFingerprint(r, body, userID)
		now := time.Now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: fp,
			CreatedAt:   now,
			ExpiresAt:   now.Add(idempotencyWindow),
		}

		ctx := r.Context()
		_, err = db.IdempotencyCollection.InsertOne(ctx, rec)
		if err == nil {
			cw := newCaptureWriter(w)
			next(cw, r, ps)

			var parsed interface{}
			if err := json.Unmarshal(cw.buf.Bytes(), &parsed); err != nil {
				parsed = cw.buf.String()
			}
			_, _ = db.IdempotencyCollection.UpdateOne(ctx,
				bson.M{"key": key},
				bson.M{"$set": bson.M{"response": utils.M{"status": cw.statusCode, "body": parsed}}},
			)
			return
		}

		if !isDuplicateKey(err) {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		var existing models.IdempotencyRecord
		if err := db.IdempotencyCollection.FindOne(ctx, bson.M{"key": key}).Decode(&existing); err != nil {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}
		if existing.RequestHash != fp {
			http.Error(w, "idempotency-key conflict", http.StatusConflict)
			return
		}
		if existing.Response != nil {
			utils.RespondWithJSON(w, storedStatus(existing.Response["status"]), existing.Response["body"])
			return
		}

		// Placeholder exists but no stored response yet: the original
		// request is still in flight. Run the handler; the store-level
		// guards keep the effects single-shot.
		next(w, r, ps)
	}
}
