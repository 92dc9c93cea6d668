package mongostore

import (
	"context"
	"errors"
	"log"
	"time"

	"mkulima/db"
	"mkulima/models"
	"mkulima/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transport struct{}

func (transport) CreateRequestWithJob(ctx context.Context, req models.TransportRequest, job models.TransportJob) error {
	// The unique index on orderid is the duplicate guard.
	if _, err := db.TransportRequestCollection.InsertOne(ctx, req); err != nil {
		if isDup(err) {
			return store.ErrDuplicateRequest
		}
		return err
	}

	if _, err := db.TransportJobsCollection.InsertOne(ctx, job); err != nil {
		// Compensate so the pair stays all-or-nothing.
		if _, delErr := db.TransportRequestCollection.DeleteOne(ctx, bson.M{"requestid": req.RequestID}); delErr != nil {
			log.Printf("CreateRequestWithJob: failed to roll back request %s: %v", req.RequestID, delErr)
		}
		return err
	}
	return nil
}

func (transport) GetJob(ctx context.Context, jobID string) (models.TransportJob, error) {
	var job models.TransportJob
	err := db.TransportJobsCollection.FindOne(ctx, bson.M{"jobid": jobID}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TransportJob{}, store.ErrNotFound
	}
	return job, err
}

func (transport) ListJobsByStatus(ctx context.Context, status string, skip, limit int64) ([]models.TransportJob, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := db.TransportJobsCollection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TransportJob
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.TransportJob{}
	}
	return out, nil
}

func (transport) ListJobsByDriver(ctx context.Context, driverID, status string) ([]models.TransportJob, error) {
	filter := bson.M{"driverid": driverID}
	if status != "" {
		filter["status"] = status
	}

	cur, err := db.TransportJobsCollection.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TransportJob
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.TransportJob{}
	}
	return out, nil
}

// ClaimJob assigns driver and status together; the status filter makes it
// a compare-and-set, so exactly one concurrent driver wins.
func (transport) ClaimJob(ctx context.Context, jobID, driverID string) error {
	res, err := db.TransportJobsCollection.UpdateOne(ctx,
		bson.M{"jobid": jobID, "status": models.JobPending},
		bson.M{"$set": bson.M{
			"driverid":   driverID,
			"status":     models.JobInTransit,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	n, err := db.TransportJobsCollection.CountDocuments(ctx, bson.M{"jobid": jobID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrAlreadyTaken
}

func (t transport) MarkDelivered(ctx context.Context, jobID, driverID string) error {
	res, err := db.TransportJobsCollection.UpdateOne(ctx,
		bson.M{"jobid": jobID, "driverid": driverID, "status": models.JobInTransit},
		bson.M{"$set": bson.M{"status": models.JobDelivered, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.DriverID != driverID {
		return store.ErrNotOwner
	}
	return store.ErrBadTransition
}

func (transport) CancelJob(ctx context.Context, jobID string) error {
	res, err := db.TransportJobsCollection.UpdateOne(ctx,
		bson.M{"jobid": jobID, "status": bson.M{"$in": bson.A{models.JobPending, models.JobInTransit}}},
		bson.M{"$set": bson.M{"status": models.JobCancelled, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	n, err := db.TransportJobsCollection.CountDocuments(ctx, bson.M{"jobid": jobID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrBadTransition
}

func (transport) Stats(ctx context.Context, driverID string) (store.TransporterStats, error) {
	var stats store.TransporterStats

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"driverid": driverID, "status": models.JobDelivered}}},
		{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"earnings": bson.M{"$sum": "$transport_fee"},
			"count":    bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.TransportJobsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)

	var agg []struct {
		Earnings float64 `bson:"earnings"`
		Count    int     `bson:"count"`
	}
	if err := cur.All(ctx, &agg); err != nil {
		return stats, err
	}
	if len(agg) > 0 {
		stats.Earnings = agg[0].Earnings
		stats.DeliveredJobs = agg[0].Count
	}

	active, err := db.TransportJobsCollection.CountDocuments(ctx, bson.M{
		"driverid": driverID,
		"status":   models.JobInTransit,
	})
	if err != nil {
		return stats, err
	}
	stats.ActiveJobs = int(active)

	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": driverID}).Decode(&u); err == nil {
		stats.Rating = u.Rating
		stats.RatingCount = u.RatingCount
	}
	return stats, nil
}

type ratings struct{}

func (ratings) Add(ctx context.Context, r models.TransporterRating) error {
	// Unique index on jobid rejects a second rating for the same job.
	_, err := db.RatingsCollection.InsertOne(ctx, r)
	if isDup(err) {
		return store.ErrDuplicateRating
	}
	return err
}

func (ratings) AverageForTransporter(ctx context.Context, transporterID string) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"transporterid": transporterID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.RatingsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var agg []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cur.All(ctx, &agg); err != nil {
		return 0, 0, err
	}
	if len(agg) == 0 {
		return 0, 0, nil
	}
	return agg[0].Avg, agg[0].Count, nil
}
