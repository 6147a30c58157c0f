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

const workoutCollectionName = "scheduled_workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new scheduled-workout repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Create inserts a new scheduled workout.
func (r *mongoWorkoutRepository) Create(ctx context.Context, workout *domain.ScheduledWorkout) (primitive.ObjectID, error) {
	if workout.UserID == primitive.NilObjectID || workout.ActivityType == "" {
		return primitive.NilObjectID, errors.New("workout requires userId and activityType")
	}
	workout.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now
	if workout.Status == "" {
		workout.Status = domain.StatusScheduled
	}

	result, err := r.collection.InsertOne(ctx, workout)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted workout ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single workout by its ID, scoped to the owning user.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	var workout domain.ScheduledWorkout
	filter := bson.M{"_id": id, "userId": userID}
	err := r.collection.FindOne(ctx, filter).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// FindRunOnDate retrieves the RUN workout on the given calendar date, if any.
func (r *mongoWorkoutRepository) FindRunOnDate(ctx context.Context, userID primitive.ObjectID, date time.Time, excludeID *primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)
	filter := bson.M{
		"userId":        userID,
		"activityType":  domain.ActivityRun,
		"scheduledDate": bson.M{"$gte": dayStart, "$lt": dayEnd},
	}
	if excludeID != nil {
		filter["_id"] = bson.M{"$ne": *excludeID}
	}

	var workout domain.ScheduledWorkout
	findOptions := options.FindOne().SetSort(bson.D{{Key: "scheduledDate", Value: 1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// ListRange retrieves workouts within [from, to], sorted by date ascending.
func (r *mongoWorkoutRepository) ListRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time, runsOnly bool) ([]domain.ScheduledWorkout, error) {
	filter := bson.M{
		"userId":        userID,
		"scheduledDate": bson.M{"$gte": from, "$lte": to},
	}
	if runsOnly {
		filter["activityType"] = domain.ActivityRun
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workouts []domain.ScheduledWorkout
	if err := cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// LastScheduled retrieves the workout with the latest scheduled date.
func (r *mongoWorkoutRepository) LastScheduled(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	var workout domain.ScheduledWorkout
	filter := bson.M{"userId": userID}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "scheduledDate", Value: -1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// Update replaces the mutable fields of an existing workout.
func (r *mongoWorkoutRepository) Update(ctx context.Context, workout *domain.ScheduledWorkout) error {
	if workout.ID == primitive.NilObjectID {
		return errors.New("workout ID is required for update")
	}
	workout.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": workout.ID, "userId": workout.UserID}
	update := bson.M{"$set": bson.M{
		"scheduledDate":     workout.ScheduledDate,
		"activityType":      workout.ActivityType,
		"targetDistanceKm":  workout.TargetDistanceKm,
		"targetDurationMin": workout.TargetDurationMin,
		"targetRpe":         workout.TargetRpe,
		"description":       workout.Description,
		"reasoningNote":     workout.ReasoningNote,
		"status":            workout.Status,
		"updatedAt":         workout.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureWorkoutIndexes creates the indexes the scheduler queries rely on.
// The partial unique index on (userId, scheduledDate) for RUN workouts backs
// the one-run-per-day invariant at the storage level as well.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"activityType": domain.ActivityRun}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	// Index creation failure is not fatal; the engine re-checks the
	// invariant before every write.
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: failed to create indexes for %s: %v", collection.Name(), err)
	}
}
