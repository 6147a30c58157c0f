package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const runLogCollectionName = "run_logs"

// mongoRunLogRepository implements repository.RunLogRepository (read-only view).
type mongoRunLogRepository struct {
	collection *mongo.Collection
}

// NewMongoRunLogRepository creates a new run-log repository.
func NewMongoRunLogRepository(db *mongo.Database) repository.RunLogRepository {
	return &mongoRunLogRepository{
		collection: db.Collection(runLogCollectionName),
	}
}

// GetByWorkoutID retrieves the log for a workout, if one exists.
func (r *mongoRunLogRepository) GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (*domain.RunLog, error) {
	var log domain.RunLog
	filter := bson.M{"workoutId": workoutID}
	err := r.collection.FindOne(ctx, filter).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// ListByUserSince retrieves all logs completed on or after the given time.
func (r *mongoRunLogRepository) ListByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.RunLog, error) {
	filter := bson.M{
		"userId":      userID,
		"completedAt": bson.M{"$gte": since},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.RunLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureRunLogIndexes creates indexes for the run log collection.
func EnsureRunLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workoutId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "completedAt", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: failed to create indexes for %s: %v", collection.Name(), err)
	}
}
