package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"truepace/coach/internal/domain"
)

func newTestExecutor(store *memStore, profiles *memProfiles, today time.Time) *Executor {
	resolver := NewResolver(store)
	conflicts := NewConflictResolver(store)
	injuries := NewInjuryPlanner(store, conflicts)
	exec := NewExecutor(resolver, conflicts, injuries, store, profiles, &memTransactor{store: store}, zap.NewNop())
	exec.now = func() time.Time { return today }
	return exec
}

func TestIsAffirmative(t *testing.T) {
	for _, msg := range []string{"yes", "Yes please", "ok do it", "sure", "go ahead", "confirmed"} {
		assert.True(t, IsAffirmative(msg), msg)
	}
	for _, msg := range []string{"no", "not yet", "maybe later", "what would change?"} {
		assert.False(t, IsAffirmative(msg), msg)
	}
}

func TestExecuteBatch_EmptyBatch(t *testing.T) {
	exec := newTestExecutor(newMemStore(), newMemProfiles(), date(2026, time.March, 10))
	res, err := exec.ExecuteBatch(context.Background(), primitive.NewObjectID(), nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, res.State)
	assert.Empty(t, res.Outcomes)
}

func TestExecuteBatch_UnconfirmedParksTheBatch(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	id := store.add(runOn(userID, date(2026, time.March, 12), "Easy Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	invs := []Invocation{{
		Tool: ToolRescheduleWorkout,
		Args: map[string]any{"workoutId": id.Hex(), "newDate": "friday", "reason": "rain"},
	}}
	res, err := exec.ExecuteBatch(ctx, userID, invs, "can you move my run?")
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingConfirmation, res.State)
	assert.True(t, res.RequiresConfirmation)
	require.Len(t, res.Pending, 1)
	assert.Equal(t, ToolRescheduleWorkout, res.Pending[0].Tool)

	// Nothing moved.
	assert.Equal(t, date(2026, time.March, 12), store.get(id).ScheduledDate)
}

func TestExecuteBatch_AffirmativeReplyConfirmsWholeBatch(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10) // Tuesday
	id := store.add(runOn(userID, date(2026, time.March, 12), "Easy Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	invs := []Invocation{{
		Tool: ToolRescheduleWorkout,
		Args: map[string]any{"workoutId": id.Hex(), "newDate": "friday", "reason": "rain"},
	}}
	res, err := exec.ExecuteBatch(ctx, userID, invs, "yes please")
	require.NoError(t, err)

	assert.Equal(t, StateExecuted, res.State)
	require.Len(t, res.Outcomes, 1)
	assert.True(t, res.Outcomes[0].Success)
	assert.Equal(t, date(2026, time.March, 13), store.get(id).ScheduledDate)
}

func TestExecuteBatch_ConfirmedFlagSkipsTheGate(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	id := store.add(runOn(userID, date(2026, time.March, 12), "Easy Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	invs := []Invocation{NewInvocation(ToolRescheduleWorkout, map[string]any{
		"workoutId": id.Hex(), "newDate": "2026-03-18", "reason": "travel", "confirmed": true,
	})}
	res, err := exec.ExecuteBatch(ctx, userID, invs, "I'll be traveling")
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, res.State)
	assert.Equal(t, date(2026, time.March, 18), store.get(id).ScheduledDate)
}

func TestExecuteBatch_FailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	id := store.add(runOn(userID, date(2026, time.March, 12), "Easy Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	invs := []Invocation{
		{
			Tool:      ToolRescheduleWorkout,
			Args:      map[string]any{"workoutId": id.Hex(), "newDate": "2026-03-18", "reason": "travel"},
			Confirmed: true,
		},
		{
			// Second invocation references a workout that does not exist.
			Tool:      ToolRescheduleWorkout,
			Args:      map[string]any{"workoutId": primitive.NewObjectID().Hex(), "newDate": "2026-03-19", "reason": "travel"},
			Confirmed: true,
		},
	}
	res, err := exec.ExecuteBatch(ctx, userID, invs, "")
	require.Error(t, err)
	assert.Equal(t, StateRejected, res.State)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Index)
	assert.Equal(t, ToolRescheduleWorkout, execErr.Tool)
	var nf *NotFoundError
	assert.True(t, errors.As(execErr.Err, &nf))

	// The first invocation's write was rolled back.
	assert.Equal(t, date(2026, time.March, 12), store.get(id).ScheduledDate)
}

func TestExecuteBatch_UnknownTool(t *testing.T) {
	exec := newTestExecutor(newMemStore(), newMemProfiles(), date(2026, time.March, 10))
	res, err := exec.ExecuteBatch(context.Background(), primitive.NewObjectID(),
		[]Invocation{{Tool: "deleteEverything", Confirmed: true}}, "")
	require.Error(t, err)
	assert.Equal(t, StateRejected, res.State)
	assert.Contains(t, err.Error(), "deleteEverything")
}

func TestReschedule_CascadeReportedInOutcome(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 9)

	moving := store.add(runOn(userID, date(2026, time.March, 15), "Run C"))
	blocker := store.add(runOn(userID, date(2026, time.March, 10), "Run A"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool:      ToolRescheduleWorkout,
		Args:      map[string]any{"workoutId": moving.Hex(), "newDate": "2026-03-10", "reason": "weather"},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1)
	outcome := res.Outcomes[0]
	// Moved workout plus the displaced one.
	require.Len(t, outcome.Modified, 2)
	assert.Equal(t, date(2026, time.March, 10), store.get(moving).ScheduledDate)
	assert.Equal(t, date(2026, time.March, 11), store.get(blocker).ScheduledDate)
}

func TestReschedule_StrictPolicySurfacesConflict(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 9)

	moving := store.add(runOn(userID, date(2026, time.March, 15), "Run C"))
	store.add(runOn(userID, date(2026, time.March, 10), "Run A"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	_, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolRescheduleWorkout,
		Args: map[string]any{
			"workoutId": moving.Hex(), "newDate": "2026-03-10",
			"reason": "weather", "resolveStrategy": "error",
		},
		Confirmed: true,
	}}, "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestReschedule_BatchShiftVariant(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 9)

	a := store.add(runOn(userID, date(2026, time.March, 10), "Run A"))
	b := store.add(runOn(userID, date(2026, time.March, 12), "Run B"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolRescheduleWorkout,
		Args: map[string]any{
			"workoutId":  "placeholder",
			"newDate":    "today",
			"reason":     "vacation",
			"workoutIds": []any{b.Hex(), a.Hex()},
			"shiftDays":  float64(7),
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Len(t, res.Outcomes[0].Modified, 2)
	assert.Equal(t, date(2026, time.March, 17), store.get(a).ScheduledDate)
	assert.Equal(t, date(2026, time.March, 19), store.get(b).ScheduledDate)
}

func TestUpdateParameters_FeedbackScenario(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)

	run := runOn(userID, today, "Easy Run 5km")
	run.TargetDistanceKm = floatPtr(5)
	run.TargetRpe = intPtr(4)
	id := store.add(run)
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolUpdateWorkoutParams,
		Args: map[string]any{
			"workoutId":        "today_workout",
			"userFeedback":     "feeling really tired",
			"adjustmentIntent": "decrease",
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)

	w := store.get(id)
	assert.Equal(t, 4.0, *w.TargetDistanceKm)
	assert.Equal(t, 2, *w.TargetRpe)
	assert.Equal(t, "Easy Run 4km", w.Description)
	assert.Contains(t, w.ReasoningNote, "Adjusted from feedback")
}

func TestUpdateParameters_SymbolicRefWithTargetDate(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)

	// The run sits on the 20th, outside what "saturday_workout" would parse
	// to; the explicit target date must find it directly.
	run := runOn(userID, date(2026, time.March, 20), "Long Run 10km")
	run.TargetDistanceKm = floatPtr(10)
	id := store.add(run)
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolUpdateWorkoutParams,
		Args: map[string]any{
			"workoutId":        "saturday_workout",
			"userFeedback":     "feeling strong",
			"adjustmentIntent": "increase",
			"targetDate":       "2026-03-20",
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, 12.0, *store.get(id).TargetDistanceKm) // 10 * 1.2
}

func TestAdaptPlan_ReduceIntensity(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)

	run := runOn(userID, date(2026, time.March, 12), "Easy Run")
	run.TargetDistanceKm = floatPtr(10)
	run.TargetDurationMin = intPtr(60)
	id := store.add(run)
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolAdaptTrainingPlan,
		Args: map[string]any{
			"adjustmentType": "reduce_intensity",
			"reason":         "coming back from a break",
			"duration":       float64(7),
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)

	w := store.get(id)
	assert.InDelta(t, 8.0, *w.TargetDistanceKm, 1e-9) // 10 * 0.8
	assert.Equal(t, 54, *w.TargetDurationMin)         // 60 * 0.9
}

func TestAdaptPlan_AddRestIsDeterministic(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)

	var ids []primitive.ObjectID
	for i := 0; i < 6; i++ {
		ids = append(ids, store.add(runOn(userID, today.AddDate(0, 0, i), "Run")))
	}
	exec := newTestExecutor(store, newMemProfiles(), today)

	_, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolAdaptTrainingPlan,
		Args: map[string]any{
			"adjustmentType": "add_rest",
			"reason":         "too much load",
			"duration":       float64(7),
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)

	// Every third run becomes a rest day.
	assert.Equal(t, domain.ActivityRun, store.get(ids[0]).ActivityType)
	assert.Equal(t, domain.ActivityRun, store.get(ids[1]).ActivityType)
	assert.Equal(t, domain.ActivityRest, store.get(ids[2]).ActivityType)
	assert.Equal(t, domain.ActivityRest, store.get(ids[5]).ActivityType)
	assert.Nil(t, store.get(ids[2]).TargetDistanceKm)
}

func TestAdaptPlan_UnknownTypeRejected(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	store.add(runOn(userID, date(2026, time.March, 11), "Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	_, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool:      ToolAdaptTrainingPlan,
		Args:      map[string]any{"adjustmentType": "double_everything", "reason": "x", "duration": float64(7)},
		Confirmed: true,
	}}, "")
	require.Error(t, err)
}

func TestGenerateNextWeek(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	profiles := newMemProfiles()
	today := date(2026, time.March, 10)

	require.NoError(t, profiles.Upsert(ctx, &domain.Profile{ID: userID, Goal: domain.Goal10K}))
	store.add(runOn(userID, date(2026, time.March, 14), "Last Planned Run"))
	exec := newTestExecutor(store, profiles, today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolGenerateNextWeek,
		Args: map[string]any{
			"performanceAnalysis": map[string]any{"completionRate": 0.95, "averageRpe": 4.0},
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)

	created := res.Outcomes[0].Modified
	assert.Len(t, created, 14, "two weeks appended day by day")

	// New entries start the day after the last scheduled workout.
	generated, err := store.ListRange(ctx, userID, date(2026, time.March, 15), date(2026, time.March, 28), false)
	require.NoError(t, err)
	assert.Len(t, generated, 14)

	// Strong recent training: 10K base distance scaled up by 1.1.
	var sawRun bool
	for _, w := range generated {
		if w.ActivityType != domain.ActivityRun {
			continue
		}
		sawRun = true
		require.NotNil(t, w.TargetDistanceKm)
		assert.InDelta(t, 8.8, *w.TargetDistanceKm, 1e-9)
	}
	assert.True(t, sawRun)
}

func TestGenerateNextWeek_LowCompletionReducesIntensity(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	profiles := newMemProfiles()
	today := date(2026, time.March, 10)

	require.NoError(t, profiles.Upsert(ctx, &domain.Profile{ID: userID, Goal: domain.Goal5K}))
	store.add(runOn(userID, date(2026, time.March, 14), "Last Planned Run"))
	exec := newTestExecutor(store, profiles, today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolGenerateNextWeek,
		Args: map[string]any{
			"performanceAnalysis": map[string]any{"completionRate": 0.5, "averageRpe": 6.0},
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)

	for _, m := range res.Outcomes[0].Modified {
		if m.ActivityType != domain.ActivityRun {
			continue
		}
		w := store.get(mustObjectID(t, m.ID))
		require.NotNil(t, w.TargetDistanceKm)
		assert.InDelta(t, 4.0, *w.TargetDistanceKm, 1e-9) // 5 * 0.8
	}
}

func TestGenerateNextWeek_ZeroCompletionReducesIntensity(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	profiles := newMemProfiles()
	today := date(2026, time.March, 10)

	require.NoError(t, profiles.Upsert(ctx, &domain.Profile{ID: userID, Goal: domain.Goal5K}))
	store.add(runOn(userID, date(2026, time.March, 14), "Last Planned Run"))
	exec := newTestExecutor(store, profiles, today)

	// Completing nothing is the worst completion rate there is; it gets the
	// same reduction as any other rate under 0.7.
	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolGenerateNextWeek,
		Args: map[string]any{
			"performanceAnalysis": map[string]any{"completionRate": 0.0, "averageRpe": 6.0},
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)

	for _, m := range res.Outcomes[0].Modified {
		if m.ActivityType != domain.ActivityRun {
			continue
		}
		w := store.get(mustObjectID(t, m.ID))
		require.NotNil(t, w.TargetDistanceKm)
		assert.InDelta(t, 4.0, *w.TargetDistanceKm, 1e-9)
	}
}

func TestGenerateNextWeek_NoProfile(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	store.add(runOn(userID, date(2026, time.March, 14), "Last Planned Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	_, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool:      ToolGenerateNextWeek,
		Args:      map[string]any{"performanceAnalysis": map[string]any{}},
		Confirmed: true,
	}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user profile not found")
}

func TestInjuryResponse_EndToEnd(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	store := newMemStore()
	today := date(2026, time.March, 10)
	id := store.add(runOn(userID, date(2026, time.March, 11), "Tempo Run"))
	exec := newTestExecutor(store, newMemProfiles(), today)

	res, err := exec.ExecuteBatch(ctx, userID, []Invocation{{
		Tool: ToolHandleInjuryResponse,
		Args: map[string]any{
			"injuryType":   "strain",
			"affectedArea": "calf",
			"severity":     "moderate",
			"action":       "rest_only",
		},
		Confirmed: true,
	}}, "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.True(t, res.Outcomes[0].Success)

	// Moderate: 7 downtime days; the run moves from the 11th to the 18th.
	assert.Equal(t, date(2026, time.March, 18), store.get(id).ScheduledDate)
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
