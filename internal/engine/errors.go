package engine

import (
	"errors"
	"fmt"
	"time"

	"truepace/coach/internal/domain"
)

// ErrAmbiguous is reserved for a stricter matching mode where a reference
// that fits more than one workout equally well is rejected instead of picking
// the earliest. The current resolver never returns it.
var ErrAmbiguous = errors.New("reference matches more than one workout")

// ParseError reports a date expression that could not be interpreted. It
// carries the offending string for user-facing messaging.
type ParseError struct {
	Expr string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid date format %q: use a specific date (YYYY-MM-DD) or a day of the week", e.Expr)
}

// Candidate describes a workout near the search window, offered back to the
// caller when a reference could not be resolved.
type Candidate struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// NotFoundError reports a workout reference that resolved to nothing. The
// candidate listing lets the caller (or the model driving it) reformulate with
// an exact date or description.
type NotFoundError struct {
	Ref        string
	Message    string
	Candidates []Candidate
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("no workout found matching %q: specify an exact date or a clearer description", e.Ref)
}

// ConflictError reports a reschedule rejected under the strict conflict
// policy because a run already occupies the target date.
type ConflictError struct {
	Date time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a run is already scheduled for %s", e.Date.Format("2006-01-02"))
}

// ExecutionError wraps a domain error raised while executing one invocation of
// a batch. The whole batch's transaction is rolled back when it surfaces.
type ExecutionError struct {
	Index int
	Tool  string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("invocation %d (%s) failed: %v", e.Index, e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func candidateFromWorkout(w *domain.ScheduledWorkout) Candidate {
	return Candidate{
		ID:          w.ID.Hex(),
		Date:        w.ScheduledDate,
		Description: w.Description,
	}
}
