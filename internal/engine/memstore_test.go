package engine

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"
)

// memStore is an in-memory WorkoutRepository for engine tests. It mirrors the
// mongo repository's contract: midnight-UTC dates, date-sorted ListRange, and
// typed ErrNotFound.
type memStore struct {
	workouts map[primitive.ObjectID]*domain.ScheduledWorkout
}

func newMemStore() *memStore {
	return &memStore{workouts: make(map[primitive.ObjectID]*domain.ScheduledWorkout)}
}

func (s *memStore) add(w domain.ScheduledWorkout) primitive.ObjectID {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	w.ScheduledDate = Midnight(w.ScheduledDate)
	copied := w
	s.workouts[w.ID] = &copied
	return w.ID
}

func (s *memStore) Create(_ context.Context, workout *domain.ScheduledWorkout) (primitive.ObjectID, error) {
	workout.ID = s.add(*workout)
	return workout.ID, nil
}

func (s *memStore) GetByID(_ context.Context, userID, id primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	w, ok := s.workouts[id]
	if !ok || w.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *memStore) FindRunOnDate(_ context.Context, userID primitive.ObjectID, date time.Time, excludeID *primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	date = Midnight(date)
	for _, w := range s.workouts {
		if w.UserID != userID || !w.IsRun() || !SameDay(w.ScheduledDate, date) {
			continue
		}
		if excludeID != nil && w.ID == *excludeID {
			continue
		}
		copied := *w
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ListRange(_ context.Context, userID primitive.ObjectID, from, to time.Time, runsOnly bool) ([]domain.ScheduledWorkout, error) {
	from, to = Midnight(from), Midnight(to)
	var out []domain.ScheduledWorkout
	for _, w := range s.workouts {
		if w.UserID != userID {
			continue
		}
		if runsOnly && !w.IsRun() {
			continue
		}
		if w.ScheduledDate.Before(from) || w.ScheduledDate.After(to) {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (s *memStore) LastScheduled(_ context.Context, userID primitive.ObjectID) (*domain.ScheduledWorkout, error) {
	var last *domain.ScheduledWorkout
	for _, w := range s.workouts {
		if w.UserID != userID {
			continue
		}
		if last == nil || w.ScheduledDate.After(last.ScheduledDate) {
			last = w
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	copied := *last
	return &copied, nil
}

func (s *memStore) Update(_ context.Context, workout *domain.ScheduledWorkout) error {
	if _, ok := s.workouts[workout.ID]; !ok {
		return repository.ErrNotFound
	}
	workout.ScheduledDate = Midnight(workout.ScheduledDate)
	copied := *workout
	s.workouts[workout.ID] = &copied
	return nil
}

func (s *memStore) get(id primitive.ObjectID) *domain.ScheduledWorkout {
	return s.workouts[id]
}

func (s *memStore) snapshot() map[primitive.ObjectID]*domain.ScheduledWorkout {
	snap := make(map[primitive.ObjectID]*domain.ScheduledWorkout, len(s.workouts))
	for id, w := range s.workouts {
		copied := *w
		snap[id] = &copied
	}
	return snap
}

// memTransactor implements repository.Transactor with snapshot semantics:
// if fn fails the store is restored, mirroring a rolled-back transaction.
type memTransactor struct {
	store *memStore
}

func (t *memTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.workouts = snap
		return err
	}
	return nil
}

// memProfiles is an in-memory ProfileRepository.
type memProfiles struct {
	profiles map[primitive.ObjectID]*domain.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[primitive.ObjectID]*domain.Profile)}
}

func (s *memProfiles) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memProfiles) Upsert(_ context.Context, profile *domain.Profile) error {
	copied := *profile
	s.profiles[profile.ID] = &copied
	return nil
}

// --- shared test fixtures ---

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func runOn(userID primitive.ObjectID, day time.Time, description string) domain.ScheduledWorkout {
	return domain.ScheduledWorkout{
		UserID:        userID,
		ScheduledDate: day,
		ActivityType:  domain.ActivityRun,
		Description:   description,
		Status:        domain.StatusScheduled,
	}
}
