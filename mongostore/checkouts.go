package mongostore

import (
	"context"
	"errors"
	"time"

	"mkulima/db"
	"mkulima/models"
	"mkulima/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type checkouts struct{}

func (checkouts) Put(ctx context.Context, pc models.PendingCheckout) error {
	_, err := db.CheckoutsCollection.InsertOne(ctx, pc)
	if isDup(err) {
		return store.ErrDuplicate
	}
	return err
}

func (checkouts) Get(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error) {
	var pc models.PendingCheckout
	err := db.CheckoutsCollection.FindOne(ctx, bson.M{"checkout_request_id": checkoutRequestID}).Decode(&pc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PendingCheckout{}, store.ErrNotFound
	}
	return pc, err
}

// Claim flips pending -> completed in one conditional write, so only the
// first callback delivery for a correlation id gets the record back.
func (checkouts) Claim(ctx context.Context, checkoutRequestID string) (models.PendingCheckout, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var pc models.PendingCheckout
	err := db.CheckoutsCollection.FindOneAndUpdate(ctx,
		bson.M{"checkout_request_id": checkoutRequestID, "status": models.CheckoutPending},
		bson.M{"$set": bson.M{"status": models.CheckoutCompleted}},
		opts,
	).Decode(&pc)
	if err == nil {
		return pc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.PendingCheckout{}, err
	}

	n, err := db.CheckoutsCollection.CountDocuments(ctx, bson.M{"checkout_request_id": checkoutRequestID})
	if err != nil {
		return models.PendingCheckout{}, err
	}
	if n == 0 {
		return models.PendingCheckout{}, store.ErrNotFound
	}
	return models.PendingCheckout{}, store.ErrCheckoutNotPending
}

func (checkouts) Fail(ctx context.Context, checkoutRequestID string) error {
	res, err := db.CheckoutsCollection.UpdateOne(ctx,
		bson.M{"checkout_request_id": checkoutRequestID, "status": models.CheckoutPending},
		bson.M{"$set": bson.M{"status": models.CheckoutFailed}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	n, err := db.CheckoutsCollection.CountDocuments(ctx, bson.M{"checkout_request_id": checkoutRequestID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrCheckoutNotPending
}

func (checkouts) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.CheckoutsCollection.UpdateMany(ctx,
		bson.M{"status": models.CheckoutPending, "expires_at": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.CheckoutExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

type payments struct{}

func (payments) Create(ctx context.Context, p *models.Payment) error {
	_, err := db.PaymentsCollection.InsertOne(ctx, p)
	return err
}

func (payments) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (models.Payment, error) {
	var p models.Payment
	err := db.PaymentsCollection.FindOne(ctx, bson.M{"checkout_request_id": checkoutRequestID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Payment{}, store.ErrNotFound
	}
	return p, err
}

func (payments) Complete(ctx context.Context, checkoutRequestID string, orderIDs []string) error {
	res, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"checkout_request_id": checkoutRequestID},
		bson.M{"$set": bson.M{
			"status":     models.PaymentCompleted,
			"orderids":   orderIDs,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (payments) Fail(ctx context.Context, checkoutRequestID string) error {
	res, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"checkout_request_id": checkoutRequestID},
		bson.M{"$set": bson.M{"status": models.PaymentFailed, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
