package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// Fuzzy matching searches a bounded window around today.
	fuzzyWindowBefore = 7
	fuzzyWindowAfter  = 14
	// At most this many nearby workouts are listed on a failed resolution.
	maxCandidates = 10
	// Reference tokens shorter than this carry no matching signal.
	minTokenLen = 3
)

var (
	// Symbolic references the model emits for not-yet-resolved workouts,
	// e.g. "today_workout", "tuesday_run", "current_run", "placeholder".
	symbolicDayRe = regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday|monday|tuesday|wednesday|thursday|friday|saturday|sunday)_(?:workout|run)\b`)
	placeholderRe = regexp.MustCompile(`(?i)placeholder|current_run|today_run`)

	isoSubstringRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	nonAlphanumRe  = regexp.MustCompile(`[^a-z0-9]+`)
)

// IsSymbolicRef reports whether ref is a relative-slot token ("tuesday_workout",
// "current_run") rather than a literal id or free-text description.
func IsSymbolicRef(ref string) bool {
	return symbolicDayRe.MatchString(ref) || placeholderRe.MatchString(ref)
}

// Resolver turns a workout reference (symbolic token, literal id, or free
// text) into exactly one stored workout. It is read-only: resolution never
// mutates the schedule. Strategies are tried in rank order and the first that
// matches wins.
type Resolver struct {
	workouts repository.WorkoutRepository
}

// NewResolver creates a resolver over the given workout store.
func NewResolver(workouts repository.WorkoutRepository) *Resolver {
	return &Resolver{workouts: workouts}
}

// Resolve maps ref to a single scheduled workout for the user. Failures are
// typed: a *NotFoundError carries guidance and up to ten nearby candidates.
// Malformed input never panics or errors fatally; it degrades to NotFound.
func (r *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID, ref string, today time.Time) (*domain.ScheduledWorkout, error) {
	today = Midnight(today)

	type strategy func(ctx context.Context, userID primitive.ObjectID, ref string, today time.Time) (*domain.ScheduledWorkout, bool, error)
	strategies := []strategy{
		r.resolveSymbolic,
		r.resolveLiteralID,
		r.resolveFuzzy,
	}

	for _, try := range strategies {
		workout, matched, err := try(ctx, userID, ref, today)
		if err != nil {
			return nil, err
		}
		if matched {
			return workout, nil
		}
	}

	return nil, r.notFound(ctx, userID, ref, today)
}

// resolveSymbolic handles relative-slot tokens like "tuesday_workout". A
// recognized token either resolves to the run on that date or fails hard:
// falling through to fuzzy matching would silently pick a different day.
func (r *Resolver) resolveSymbolic(ctx context.Context, userID primitive.ObjectID, ref string, today time.Time) (*domain.ScheduledWorkout, bool, error) {
	var dayToken string
	if m := symbolicDayRe.FindStringSubmatch(ref); m != nil {
		dayToken = strings.ToLower(m[1])
	} else if placeholderRe.MatchString(ref) {
		dayToken = "today"
	} else {
		return nil, false, nil
	}

	date, err := ParseDate(dayToken, today)
	if err != nil {
		return nil, false, nil
	}

	workout, err := r.workouts.FindRunOnDate(ctx, userID, date, nil)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, &NotFoundError{
				Ref: ref,
				Message: fmt.Sprintf(
					"no run found for %s (%s): specify an exact date or check the training plan",
					dayToken, date.Format("2006-01-02"),
				),
			}
		}
		return nil, false, err
	}
	return workout, true, nil
}

// resolveLiteralID attempts an exact id lookup scoped to the user.
func (r *Resolver) resolveLiteralID(ctx context.Context, userID primitive.ObjectID, ref string, _ time.Time) (*domain.ScheduledWorkout, bool, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(ref))
	if err != nil {
		return nil, false, nil
	}
	workout, err := r.workouts.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil // fall through to fuzzy
		}
		return nil, false, err
	}
	return workout, true, nil
}

// resolveFuzzy scores the user's workouts in a bounded window around today
// against the reference text.
func (r *Resolver) resolveFuzzy(ctx context.Context, userID primitive.ObjectID, ref string, today time.Time) (*domain.ScheduledWorkout, bool, error) {
	from := today.AddDate(0, 0, -fuzzyWindowBefore)
	to := today.AddDate(0, 0, fuzzyWindowAfter)
	candidates, err := r.workouts.ListRange(ctx, userID, from, to, false)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	// An embedded ISO date narrows the field to that day before text matching.
	if isoDate := isoSubstringRe.FindString(ref); isoDate != "" {
		date, err := time.Parse(isoDateLayout, isoDate)
		if err == nil {
			if match := matchOnDate(candidates, Midnight(date), ref, isoDate); match != nil {
				return match, true, nil
			}
			return nil, false, nil
		}
	}

	tokens := referenceTokens(ref)
	if len(tokens) == 0 {
		return nil, false, nil
	}

	var best *domain.ScheduledWorkout
	bestScore := 0
	for i := range candidates {
		score := 0
		description := strings.ToLower(candidates[i].Description)
		for _, token := range tokens {
			if strings.Contains(description, token) {
				score++
			}
		}
		// Ties break toward the earliest date; candidates are date-sorted.
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// matchOnDate picks the best candidate on a specific date: exact description
// match of the non-date text, then substring containment, then the first
// workout that day.
func matchOnDate(candidates []domain.ScheduledWorkout, date time.Time, ref, isoDate string) *domain.ScheduledWorkout {
	var onDate []*domain.ScheduledWorkout
	for i := range candidates {
		if SameDay(candidates[i].ScheduledDate, date) {
			onDate = append(onDate, &candidates[i])
		}
	}
	if len(onDate) == 0 {
		return nil
	}

	remainder := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(ref, isoDate, " ")))
	remainder = strings.Trim(remainder, " -_:")
	if remainder != "" {
		for _, w := range onDate {
			if strings.ToLower(strings.TrimSpace(w.Description)) == remainder {
				return w
			}
		}
		for _, w := range onDate {
			if strings.Contains(strings.ToLower(w.Description), remainder) {
				return w
			}
		}
	}
	return onDate[0]
}

// referenceTokens normalizes ref to lowercase alphanumeric tokens, dropping
// ones too short to be meaningful.
func referenceTokens(ref string) []string {
	parts := nonAlphanumRe.Split(strings.ToLower(ref), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) >= minTokenLen {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// notFound builds the terminal NotFoundError with a listing of nearby
// workouts to aid disambiguation.
func (r *Resolver) notFound(ctx context.Context, userID primitive.ObjectID, ref string, today time.Time) error {
	nf := &NotFoundError{Ref: ref}

	from := today.AddDate(0, 0, -fuzzyWindowBefore)
	to := today.AddDate(0, 0, fuzzyWindowAfter)
	nearby, err := r.workouts.ListRange(ctx, userID, from, to, false)
	if err != nil {
		return fmt.Errorf("listing nearby workouts for %q: %w", ref, err)
	}
	for i := range nearby {
		if len(nf.Candidates) >= maxCandidates {
			break
		}
		nf.Candidates = append(nf.Candidates, candidateFromWorkout(&nearby[i]))
	}
	return nf
}
