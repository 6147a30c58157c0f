package repository

import (
	"context"
	"time"

	"truepace/coach/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn with all store operations inside one transaction.
// If fn returns an error nothing it wrote is observable afterwards. The
// mutation executor uses this to make a whole batch all-or-nothing.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WorkoutRepository defines the interface for interacting with scheduled workouts.
// Dates passed in are expected to be normalized to midnight UTC.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.ScheduledWorkout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, userID, id primitive.ObjectID) (*domain.ScheduledWorkout, error)
	// FindRunOnDate returns the RUN workout on the given calendar date, if any.
	// A workout matching excludeID is ignored, so a reschedule does not
	// collide with itself.
	FindRunOnDate(ctx context.Context, userID primitive.ObjectID, date time.Time, excludeID *primitive.ObjectID) (*domain.ScheduledWorkout, error)
	// ListRange returns workouts with from <= scheduledDate <= to, sorted by
	// date ascending. With runsOnly set, only RUN workouts are returned.
	ListRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time, runsOnly bool) ([]domain.ScheduledWorkout, error)
	// LastScheduled returns the latest workout on the user's plan.
	LastScheduled(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduledWorkout, error)
	Update(ctx context.Context, workout *domain.ScheduledWorkout) error
}

// RunLogRepository provides read access to run logs. The mutation engine never
// writes run logs; they are owned by the logging flow.
type RunLogRepository interface {
	GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (*domain.RunLog, error)
	ListByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.RunLog, error)
}

// ProfileRepository defines the interface for interacting with runner profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// NotificationRepository defines the interface for interacting with notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]domain.Notification, error)
	Update(ctx context.Context, n *domain.Notification) error
}
