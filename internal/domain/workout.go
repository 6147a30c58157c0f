package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType distinguishes what kind of session a scheduled workout is.
type ActivityType string

const (
	ActivityRun        ActivityType = "RUN"
	ActivityRest       ActivityType = "REST"
	ActivityCrossTrain ActivityType = "CROSS_TRAIN"
)

// WorkoutStatus tracks the lifecycle of a scheduled workout.
// Workouts are never deleted; they are marked SKIPPED instead.
type WorkoutStatus string

const (
	StatusScheduled WorkoutStatus = "SCHEDULED"
	StatusCompleted WorkoutStatus = "COMPLETED"
	StatusSkipped   WorkoutStatus = "SKIPPED"
)

// ScheduledWorkout represents one planned training session.
// ScheduledDate is always normalized to midnight UTC; the time of day is
// irrelevant. For a given user at most one RUN workout may exist per calendar
// date. REST and CROSS_TRAIN entries are exempt from that constraint.
type ScheduledWorkout struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	ScheduledDate     time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	ActivityType      ActivityType       `bson:"activityType" json:"activityType"`
	TargetDistanceKm  *float64           `bson:"targetDistanceKm,omitempty" json:"targetDistanceKm,omitempty"`
	TargetDurationMin *int               `bson:"targetDurationMin,omitempty" json:"targetDurationMin,omitempty"`
	TargetRpe         *int               `bson:"targetRpe,omitempty" json:"targetRpe,omitempty"` // 1-10 perceived effort
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	ReasoningNote     string             `bson:"reasoningNote,omitempty" json:"reasoningNote,omitempty"` // audit trail for automated changes
	Status            WorkoutStatus      `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsRun reports whether this workout counts against the one-run-per-day rule.
func (w *ScheduledWorkout) IsRun() bool {
	return w.ActivityType == ActivityRun
}
