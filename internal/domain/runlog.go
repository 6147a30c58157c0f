package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunLog records what actually happened for a scheduled workout.
// Zero or one log exists per workout. Logs are written by the run logging
// flow; the mutation engine only reads them (completion checks, performance
// analysis).
type RunLog struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutID         primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	CompletedAt       time.Time          `bson:"completedAt" json:"completedAt"`
	ActualDistanceKm  *float64           `bson:"actualDistanceKm,omitempty" json:"actualDistanceKm,omitempty"`
	ActualDurationMin *int               `bson:"actualDurationMin,omitempty" json:"actualDurationMin,omitempty"`
	ActualRpe         *int               `bson:"actualRpe,omitempty" json:"actualRpe,omitempty"`
	PainReported      bool               `bson:"painReported" json:"painReported"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
}
