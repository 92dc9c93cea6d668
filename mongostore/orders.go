package mongostore

import (
	"context"
	"errors"

	"mkulima/db"
	"mkulima/models"
	"mkulima/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orders struct{}

func (orders) Create(ctx context.Context, o *models.Order) error {
	_, err := db.OrdersCollection.InsertOne(ctx, o)
	return err
}

func (orders) Get(ctx context.Context, orderID string) (models.Order, error) {
	var o models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, store.ErrNotFound
	}
	return o, err
}

func (orders) ListByBuyer(ctx context.Context, buyerID string, skip, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.M{"order_date": -1}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := db.OrdersCollection.Find(ctx, bson.M{"buyerid": buyerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}

func (orders) UpdateStatus(ctx context.Context, orderID string, from []string, to string) error {
	res, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"orderid": orderID, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	n, err := db.OrdersCollection.CountDocuments(ctx, bson.M{"orderid": orderID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrBadTransition
}

func (orders) BuyerStats(ctx context.Context, buyerID string) (store.BuyerStats, error) {
	var stats store.BuyerStats

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"buyerid": buyerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"spent": bson.M{"$sum": "$total_price"},
			"pending": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$status", bson.A{
					models.OrderPending, models.OrderConfirmed, models.OrderInTransit,
				}}}, 1, 0,
			}}},
		}}},
	}

	cur, err := db.OrdersCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)

	var agg []struct {
		Total   int     `bson:"total"`
		Spent   float64 `bson:"spent"`
		Pending int     `bson:"pending"`
	}
	if err := cur.All(ctx, &agg); err != nil {
		return stats, err
	}
	if len(agg) > 0 {
		stats.TotalOrders = agg[0].Total
		stats.TotalSpent = agg[0].Spent
		stats.PendingDeliveries = agg[0].Pending
	}

	recent, err := (orders{}).ListByBuyer(ctx, buyerID, 0, 5)
	if err != nil {
		return stats, err
	}
	stats.RecentOrders = recent
	return stats, nil
}
