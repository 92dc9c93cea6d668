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
)

type users struct{}

func (users) Create(ctx context.Context, u *models.User) error {
	_, err := db.UserCollection.InsertOne(ctx, u)
	if isDup(err) {
		return store.ErrDuplicate
	}
	return err
}

func (users) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (users) Get(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (users) SetLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"last_login": at}},
	)
	return err
}

func (users) SetRating(ctx context.Context, userID string, avg float64, count int) error {
	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"rating": avg, "rating_count": count}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

var (
	_ store.Products  = products{}
	_ store.Carts     = carts{}
	_ store.Orders    = orders{}
	_ store.Checkouts = checkouts{}
	_ store.Payments  = payments{}
	_ store.Transport = transport{}
	_ store.Ratings   = ratings{}
	_ store.Users     = users{}
)
