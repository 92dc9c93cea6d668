package mongostore

import (
	"context"
	"errors"
	"time"

	"mkulima/db"
	"mkulima/models"
	"mkulima/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type carts struct{}

func (carts) GetOrCreate(ctx context.Context, buyerID string) (models.Cart, error) {
	var cart models.Cart
	err := db.CartsCollection.FindOne(ctx, bson.M{"buyerid": buyerID}).Decode(&cart)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, err
	}

	cart = models.Cart{
		CartID:    uuid.New().String(),
		BuyerID:   buyerID,
		CreatedAt: time.Now(),
	}
	if _, err := db.CartsCollection.InsertOne(ctx, cart); err != nil {
		if isDup(err) {
			// Lost the race to another request for the same buyer.
			err = db.CartsCollection.FindOne(ctx, bson.M{"buyerid": buyerID}).Decode(&cart)
			return cart, err
		}
		return models.Cart{}, err
	}
	return cart, nil
}

func (carts) Get(ctx context.Context, cartID string) (models.Cart, error) {
	var cart models.Cart
	err := db.CartsCollection.FindOne(ctx, bson.M{"cartid": cartID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, store.ErrNotFound
	}
	return cart, err
}

func (carts) AddItem(ctx context.Context, cartID string, p models.Product, qty int) (models.CartItem, error) {
	// Soft stock check against the current active line, enforced again by
	// the bounded decrement at finalization.
	var existing models.CartItem
	err := db.CartItemsCollection.FindOne(ctx, bson.M{
		"cartid":          cartID,
		"productid":       p.ProductID,
		"saved_for_later": false,
	}).Decode(&existing)
	switch {
	case err == nil:
		if existing.Quantity+qty > p.Quantity {
			return models.CartItem{}, store.ErrOutOfStock
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		if qty > p.Quantity {
			return models.CartItem{}, store.ErrOutOfStock
		}
	default:
		return models.CartItem{}, err
	}

	filter := bson.M{
		"cartid":          cartID,
		"productid":       p.ProductID,
		"saved_for_later": false,
	}
	update := bson.M{
		"$inc": bson.M{"quantity": qty},
		"$setOnInsert": bson.M{
			"itemid":         uuid.New().String(),
			"productname":    p.Name,
			"unit":           p.Unit,
			"price_per_unit": p.PricePerUnit,
			"addedAt":        time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var item models.CartItem
	if err := db.CartItemsCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item); err != nil {
		return models.CartItem{}, err
	}
	return item, nil
}

func (carts) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	opts := options.Find().SetSort(bson.M{"addedAt": 1})
	cur, err := db.CartItemsCollection.Find(ctx, bson.M{"cartid": cartID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.CartItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// itemOwnedBy loads an item and verifies it belongs to the caller's cart.
func itemOwnedBy(ctx context.Context, cartID, itemID string) (models.CartItem, error) {
	var item models.CartItem
	err := db.CartItemsCollection.FindOne(ctx, bson.M{"itemid": itemID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CartItem{}, store.ErrNotFound
	}
	if err != nil {
		return models.CartItem{}, err
	}
	if item.CartID != cartID {
		return models.CartItem{}, store.ErrNotOwner
	}
	return item, nil
}

func (carts) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if _, err := itemOwnedBy(ctx, cartID, itemID); err != nil {
		return err
	}
	_, err := db.CartItemsCollection.DeleteOne(ctx, bson.M{"itemid": itemID, "cartid": cartID})
	return err
}

func (carts) SetSaved(ctx context.Context, cartID, itemID string, saved bool) error {
	if _, err := itemOwnedBy(ctx, cartID, itemID); err != nil {
		return err
	}
	_, err := db.CartItemsCollection.UpdateOne(ctx,
		bson.M{"itemid": itemID, "cartid": cartID},
		bson.M{"$set": bson.M{"saved_for_later": saved}},
	)
	return err
}

func (carts) AdjustQuantity(ctx context.Context, cartID, itemID string, delta, maxQty int) (models.CartItem, error) {
	item, err := itemOwnedBy(ctx, cartID, itemID)
	if err != nil {
		return models.CartItem{}, err
	}

	q := item.Quantity + delta
	if q < 1 {
		q = 1
	}
	if maxQty > 0 && q > maxQty {
		q = maxQty
	}
	if q == item.Quantity {
		return item, nil
	}

	item.Quantity = q
	_, err = db.CartItemsCollection.UpdateOne(ctx,
		bson.M{"itemid": itemID, "cartid": cartID},
		bson.M{"$set": bson.M{"quantity": q}},
	)
	return item, err
}

func (carts) ClearActive(ctx context.Context, cartID string) error {
	_, err := db.CartItemsCollection.DeleteMany(ctx, bson.M{
		"cartid":          cartID,
		"saved_for_later": false,
	})
	return err
}
