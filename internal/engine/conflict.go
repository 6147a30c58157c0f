package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// maxCascadeDays bounds how long a contiguous block of conflicting runs a
	// cascade will walk. Together with maxProbeDays it caps the work any one
	// reschedule can do, so a pathological schedule cannot spin the engine.
	maxCascadeDays = 30
	// maxProbeDays bounds the forward search for a free date per workout.
	maxProbeDays = 30
)

// ConflictPolicy selects how a reschedule behaves when the target date
// already holds a run.
type ConflictPolicy string

const (
	// PolicyShiftForward moves the colliding runs forward a day each to make
	// room. Default: it preserves forward progress without dropping workouts.
	PolicyShiftForward ConflictPolicy = "shift_forward"
	// PolicyError rejects the operation with a ConflictError instead.
	PolicyError ConflictPolicy = "error"
)

// ShiftedWorkout records one workout displaced by a cascade or batch shift.
type ShiftedWorkout struct {
	WorkoutID primitive.ObjectID `json:"workoutId"`
	OldDate   time.Time          `json:"oldDate"`
	NewDate   time.Time          `json:"newDate"`
}

// ConflictResolver finds conflict-free placements for runs. After any of its
// operations succeeds, no two RUN workouts for the user share a calendar date.
type ConflictResolver struct {
	workouts repository.WorkoutRepository
}

// NewConflictResolver creates a conflict resolver over the given store.
func NewConflictResolver(workouts repository.WorkoutRepository) *ConflictResolver {
	return &ConflictResolver{workouts: workouts}
}

// Place checks whether desired is free for a run (ignoring excludeID). A free
// date is returned as-is, making repeated calls with an already-free date a
// no-op.
func (c *ConflictResolver) Place(ctx context.Context, userID primitive.ObjectID, desired time.Time, excludeID *primitive.ObjectID) (time.Time, bool, error) {
	desired = Midnight(desired)
	_, err := c.workouts.FindRunOnDate(ctx, userID, desired, excludeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return desired, true, nil
		}
		return time.Time{}, false, err
	}
	return desired, false, nil
}

// ResolveDate settles a run onto desired under the given policy. With
// PolicyShiftForward a conflict triggers a cascade: the contiguous block of
// occupied dates starting at desired all move forward one day, freeing the
// target. The returned shifts list the displaced workouts in chronological
// order; it is empty when the date was already free.
func (c *ConflictResolver) ResolveDate(ctx context.Context, userID primitive.ObjectID, desired time.Time, excludeID *primitive.ObjectID, policy ConflictPolicy) (time.Time, []ShiftedWorkout, error) {
	desired, free, err := c.Place(ctx, userID, desired, excludeID)
	if err != nil {
		return time.Time{}, nil, err
	}
	if free {
		return desired, nil, nil
	}

	if policy == PolicyError {
		return time.Time{}, nil, &ConflictError{Date: desired}
	}

	shifts, err := c.CascadeShift(ctx, userID, desired, excludeID)
	if err != nil {
		return time.Time{}, nil, err
	}
	return desired, shifts, nil
}

// CascadeShift frees fromDate by moving the contiguous block of conflicting
// runs forward one day each. The block walk is bounded to maxCascadeDays.
//
// Writes are applied from the far end of the block backward, so each workout
// lands on the slot its successor just vacated; the landing date is still
// re-checked against the store and probed forward in case a concurrent writer
// occupied it. Returned shifts are in chronological order.
func (c *ConflictResolver) CascadeShift(ctx context.Context, userID primitive.ObjectID, fromDate time.Time, excludeID *primitive.ObjectID) ([]ShiftedWorkout, error) {
	fromDate = Midnight(fromDate)

	var block []*domain.ScheduledWorkout
	for i := 0; i < maxCascadeDays; i++ {
		date := fromDate.AddDate(0, 0, i)
		w, err := c.workouts.FindRunOnDate(ctx, userID, date, excludeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				break
			}
			return nil, err
		}
		block = append(block, w)
	}
	if len(block) == 0 {
		return nil, nil
	}

	// The workout being placed counts as a free slot while probing: it is
	// about to vacate its current date, so a displaced run may land there
	// instead of over-shifting past it.
	landingExcludes := func(w *domain.ScheduledWorkout) []primitive.ObjectID {
		ids := []primitive.ObjectID{w.ID}
		if excludeID != nil {
			ids = append(ids, *excludeID)
		}
		return ids
	}

	shifts := make([]ShiftedWorkout, len(block))
	for i := len(block) - 1; i >= 0; i-- {
		w := block[i]
		oldDate := Midnight(w.ScheduledDate)
		newDate, err := c.probeForward(ctx, userID, oldDate.AddDate(0, 0, 1), landingExcludes(w)...)
		if err != nil {
			return nil, err
		}

		w.ScheduledDate = newDate
		w.ReasoningNote = fmt.Sprintf("Shifted from %s to make room for a rescheduled run", oldDate.Format("2006-01-02"))
		if err := c.workouts.Update(ctx, w); err != nil {
			return nil, err
		}
		shifts[i] = ShiftedWorkout{WorkoutID: w.ID, OldDate: oldDate, NewDate: newDate}
	}
	return shifts, nil
}

// ShiftBatch moves an explicit list of workouts by a signed day offset. Each
// landing date is resolved independently against existing runs with the same
// forward probe, so a batch shift cannot stack two runs on one day.
func (c *ConflictResolver) ShiftBatch(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, offsetDays int) ([]ShiftedWorkout, error) {
	var shifts []ShiftedWorkout
	for _, id := range ids {
		w, err := c.workouts.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}

		oldDate := Midnight(w.ScheduledDate)
		target := oldDate.AddDate(0, 0, offsetDays)
		newDate := target
		if w.IsRun() {
			newDate, err = c.probeForward(ctx, userID, target, w.ID)
			if err != nil {
				return nil, err
			}
		}

		w.ScheduledDate = newDate
		if err := c.workouts.Update(ctx, w); err != nil {
			return nil, err
		}
		shifts = append(shifts, ShiftedWorkout{WorkoutID: w.ID, OldDate: oldDate, NewDate: newDate})
	}
	return shifts, nil
}

// probeForward walks day by day from the given date until it finds a free one,
// up to maxProbeDays ahead. A date counts as free when it holds no run, or
// only a run in the exclude list, i.e. one that is leaving that date as part
// of the same operation.
func (c *ConflictResolver) probeForward(ctx context.Context, userID primitive.ObjectID, from time.Time, exclude ...primitive.ObjectID) (time.Time, error) {
	from = Midnight(from)
	for i := 0; i < maxProbeDays; i++ {
		date := from.AddDate(0, 0, i)
		occupant, err := c.workouts.FindRunOnDate(ctx, userID, date, nil)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return date, nil
			}
			return time.Time{}, err
		}
		for _, id := range exclude {
			if occupant.ID == id {
				return date, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no free date within %d days of %s", maxProbeDays, from.Format("2006-01-02"))
}
