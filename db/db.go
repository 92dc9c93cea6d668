package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection             *mongo.Collection
	ProductsCollection         *mongo.Collection
	CartsCollection            *mongo.Collection
	CartItemsCollection        *mongo.Collection
	OrdersCollection           *mongo.Collection
	PaymentsCollection         *mongo.Collection
	CheckoutsCollection        *mongo.Collection
	TransportRequestCollection *mongo.Collection
	TransportJobsCollection    *mongo.Collection
	RatingsCollection          *mongo.Collection
	IdempotencyCollection      *mongo.Collection
	Client                     *mongo.Client
)

// Connect initializes the MongoDB connection and binds the collections.
func Connect(ctx context.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	database := Client.Database("mkulima")
	UserCollection = database.Collection("users")
	ProductsCollection = database.Collection("products")
	CartsCollection = database.Collection("carts")
	CartItemsCollection = database.Collection("cartitems")
	OrdersCollection = database.Collection("orders")
	PaymentsCollection = database.Collection("payments")
	CheckoutsCollection = database.Collection("checkouts")
	TransportRequestCollection = database.Collection("transportrequests")
	TransportJobsCollection = database.Collection("transportjobs")
	RatingsCollection = database.Collection("ratings")
	IdempotencyCollection = database.Collection("idempotency")

	return EnsureIndexes(ctx)
}

// EnsureIndexes creates the unique indexes the conflict guards rely on.
// Duplicate-key errors from these indexes are what turn concurrent or
// repeated writes into store.Err* conflicts.
func EnsureIndexes(ctx context.Context) error {
	type idx struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}

	specs := []idx{
		{UserCollection, []mongo.IndexModel{
			{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true).SetName("unique_username")},
		}},
		{CartsCollection, []mongo.IndexModel{
			{Keys: bson.M{"buyerid": 1}, Options: options.Index().SetUnique(true).SetName("unique_buyer_cart")},
		}},
		{CheckoutsCollection, []mongo.IndexModel{
			{Keys: bson.M{"checkout_request_id": 1}, Options: options.Index().SetUnique(true).SetName("unique_checkout_request")},
		}},
		{TransportRequestCollection, []mongo.IndexModel{
			{Keys: bson.M{"orderid": 1}, Options: options.Index().SetUnique(true).SetName("unique_order_request")},
		}},
		{RatingsCollection, []mongo.IndexModel{
			{Keys: bson.M{"jobid": 1}, Options: options.Index().SetUnique(true).SetName("unique_job_rating")},
		}},
		{IdempotencyCollection, []mongo.IndexModel{
			{Keys: bson.M{"key": 1}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		}},
	}

	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.models); err != nil {
			return err
		}
	}
	return nil
}
