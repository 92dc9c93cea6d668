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

type products struct{}

func (products) Create(ctx context.Context, p *models.Product) error {
	_, err := db.ProductsCollection.InsertOne(ctx, p)
	return err
}

func (products) Get(ctx context.Context, productID string) (models.Product, error) {
	var p models.Product
	err := db.ProductsCollection.FindOne(ctx, bson.M{"productid": productID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, store.ErrNotFound
	}
	return p, err
}

func (products) List(ctx context.Context, skip, limit int64) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := db.ProductsCollection.Find(ctx, bson.M{"available": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

func (products) ListByFarmer(ctx context.Context, farmerID string) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := db.ProductsCollection.Find(ctx, bson.M{"farmerid": farmerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

func (products) Update(ctx context.Context, productID, farmerID string, upd store.ProductUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Quantity != nil && *upd.Quantity >= 0 {
		set["quantity"] = *upd.Quantity
	}
	if upd.Unit != nil {
		set["unit"] = *upd.Unit
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Available != nil {
		set["available"] = *upd.Available
	}

	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "farmerid": farmerID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ownershipError(ctx, productID)
	}
	return nil
}

func (products) Deactivate(ctx context.Context, productID, farmerID string) error {
	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "farmerid": farmerID},
		bson.M{"$set": bson.M{"available": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ownershipError(ctx, productID)
	}
	return nil
}

// ownershipError distinguishes a missing product from one owned by
// someone else after a scoped update matched nothing.
func ownershipError(ctx context.Context, productID string) error {
	n, err := db.ProductsCollection.CountDocuments(ctx, bson.M{"productid": productID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrNotOwner
}

func (products) DecrementStock(ctx context.Context, productID string, want int) (int, error) {
	if want <= 0 {
		return 0, nil
	}

	// Fast path: enough stock, take all of it in one conditional write.
	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "quantity": bson.M{"$gte": want}},
		bson.M{"$inc": bson.M{"quantity": -want}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount > 0 {
		markSoldOutIfEmpty(ctx, productID)
		return want, nil
	}

	// Clamp path: take whatever remains, CAS on the exact quantity so a
	// concurrent decrement cannot drive the count negative.
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var p models.Product
		err := db.ProductsCollection.FindOne(ctx, bson.M{"productid": productID}).Decode(&p)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, store.ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if p.Quantity <= 0 {
			return 0, nil
		}
		if p.Quantity >= want {
			// Stock came back between attempts; retry the fast path.
			res, err := db.ProductsCollection.UpdateOne(ctx,
				bson.M{"productid": productID, "quantity": bson.M{"$gte": want}},
				bson.M{"$inc": bson.M{"quantity": -want}, "$set": bson.M{"updated_at": time.Now()}},
			)
			if err != nil {
				return 0, err
			}
			if res.ModifiedCount > 0 {
				markSoldOutIfEmpty(ctx, productID)
				return want, nil
			}
			continue
		}

		res, err := db.ProductsCollection.UpdateOne(ctx,
			bson.M{"productid": productID, "quantity": p.Quantity},
			bson.M{"$set": bson.M{"quantity": 0, "available": false, "updated_at": time.Now()}},
		)
		if err != nil {
			return 0, err
		}
		if res.ModifiedCount > 0 {
			return p.Quantity, nil
		}
	}
}

func (products) RestoreStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{
			"$inc": bson.M{"quantity": qty},
			"$set": bson.M{"available": true, "updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// markSoldOutIfEmpty flips availability once stock hits zero.
func markSoldOutIfEmpty(ctx context.Context, productID string) {
	_, _ = db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "quantity": 0},
		bson.M{"$set": bson.M{"available": false}},
	)
}
