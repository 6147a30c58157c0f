package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (e *Executor) rescheduleWorkout(ctx context.Context, userID primitive.ObjectID, args map[string]any, today time.Time) (ToolOutcome, error) {
	a, err := decodeArgs[RescheduleArgs](args)
	if err != nil {
		return ToolOutcome{}, err
	}

	// Batch-shift variant: an explicit id list moved by a signed day offset.
	if len(a.WorkoutIDs) > 0 && a.ShiftDays != 0 {
		ids := make([]primitive.ObjectID, 0, len(a.WorkoutIDs))
		for _, raw := range a.WorkoutIDs {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				return ToolOutcome{}, fmt.Errorf("invalid workout id %q", raw)
			}
			ids = append(ids, id)
		}
		shifts, err := e.conflicts.ShiftBatch(ctx, userID, ids, a.ShiftDays)
		if err != nil {
			return ToolOutcome{}, err
		}
		outcome := ToolOutcome{
			Tool:    ToolRescheduleWorkout,
			Success: true,
			Reasoning: []string{
				fmt.Sprintf("shifted %d workouts by %+d days: %s", len(shifts), a.ShiftDays, a.Reason),
			},
		}
		for _, s := range shifts {
			outcome.Modified = append(outcome.Modified, ModifiedWorkout{
				ID:     s.WorkoutID.Hex(),
				Date:   s.NewDate,
				Change: fmt.Sprintf("moved %s -> %s", s.OldDate.Format("2006-01-02"), s.NewDate.Format("2006-01-02")),
			})
		}
		return outcome, nil
	}

	workout, err := e.resolver.Resolve(ctx, userID, a.WorkoutID, today)
	if err != nil {
		return ToolOutcome{}, err
	}
	desired, err := ParseDate(a.NewDate, today)
	if err != nil {
		return ToolOutcome{}, err
	}

	policy := PolicyShiftForward
	if a.ResolveStrategy == string(PolicyError) {
		policy = PolicyError
	}
	finalDate, shifts, err := e.conflicts.ResolveDate(ctx, userID, desired, &workout.ID, policy)
	if err != nil {
		return ToolOutcome{}, err
	}

	oldDate := Midnight(workout.ScheduledDate)
	intensityNote := "intensity preserved"
	if !a.PreserveIntensity {
		intensityNote = "intensity unchanged"
	}
	workout.ScheduledDate = finalDate
	workout.ReasoningNote = fmt.Sprintf("Rescheduled: %s (%s)", a.Reason, intensityNote)
	if err := e.workouts.Update(ctx, workout); err != nil {
		return ToolOutcome{}, err
	}

	outcome := ToolOutcome{
		Tool:    ToolRescheduleWorkout,
		Success: true,
		Modified: []ModifiedWorkout{{
			ID:           workout.ID.Hex(),
			Date:         finalDate,
			ActivityType: workout.ActivityType,
			Description:  workout.Description,
			Change:       fmt.Sprintf("moved %s -> %s", oldDate.Format("2006-01-02"), finalDate.Format("2006-01-02")),
		}},
		Reasoning: []string{fmt.Sprintf("rescheduled to %s: %s", finalDate.Format("2006-01-02"), a.Reason)},
	}
	for _, s := range shifts {
		outcome.Modified = append(outcome.Modified, ModifiedWorkout{
			ID:     s.WorkoutID.Hex(),
			Date:   s.NewDate,
			Change: fmt.Sprintf("shifted forward %s -> %s", s.OldDate.Format("2006-01-02"), s.NewDate.Format("2006-01-02")),
		})
		outcome.Reasoning = append(outcome.Reasoning,
			fmt.Sprintf("existing run shifted from %s to %s to make room", s.OldDate.Format("2006-01-02"), s.NewDate.Format("2006-01-02")))
	}
	return outcome, nil
}

func (e *Executor) updateWorkoutParameters(ctx context.Context, userID primitive.ObjectID, args map[string]any, today time.Time) (ToolOutcome, error) {
	a, err := decodeArgs[UpdateParametersArgs](args)
	if err != nil {
		return ToolOutcome{}, err
	}

	workout, err := e.locateForUpdate(ctx, userID, a, today)
	if err != nil {
		return ToolOutcome{}, err
	}

	policy := ClassifyFeedback(a.UserFeedback, AdjustmentIntent(a.AdjustmentIntent))
	mutated := ApplyPolicy(workout, policy)

	reasoning := []string{policy.Reason}
	if a.TargetDate != "" {
		desired, err := ParseDate(a.TargetDate, today)
		if err != nil {
			return ToolOutcome{}, err
		}
		finalDate, _, err := e.conflicts.ResolveDate(ctx, userID, desired, &workout.ID, PolicyShiftForward)
		if err != nil {
			return ToolOutcome{}, err
		}
		workout.ScheduledDate = finalDate
		reasoning = append(reasoning, fmt.Sprintf("rescheduled to %s", finalDate.Format("2006-01-02")))
	}

	workout.ReasoningNote = fmt.Sprintf("Adjusted from feedback: %s. %s. Intent: %s", a.UserFeedback, policy.Reason, a.AdjustmentIntent)
	if err := e.workouts.Update(ctx, workout); err != nil {
		return ToolOutcome{}, err
	}

	change := "parameters adjusted"
	if mutated.DistanceKm == nil && mutated.Rpe == nil && mutated.DurationMin == nil {
		change = "feedback recorded"
	}
	return ToolOutcome{
		Tool:      ToolUpdateWorkoutParams,
		Success:   true,
		Modified:  []ModifiedWorkout{modifiedFromWorkout(workout, change)},
		Reasoning: reasoning,
	}, nil
}

// locateForUpdate finds the workout to adjust. A symbolic reference with an
// explicit target date searches that date directly; the model often sends
// "tuesday_workout" together with the date it means.
func (e *Executor) locateForUpdate(ctx context.Context, userID primitive.ObjectID, a UpdateParametersArgs, today time.Time) (*domain.ScheduledWorkout, error) {
	if a.TargetDate != "" && IsSymbolicRef(a.WorkoutID) {
		date, err := ParseDate(a.TargetDate, today)
		if err == nil {
			workout, err := e.workouts.FindRunOnDate(ctx, userID, date, nil)
			if err == nil {
				return workout, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
	}
	return e.resolver.Resolve(ctx, userID, a.WorkoutID, today)
}

func (e *Executor) adaptTrainingPlan(ctx context.Context, userID primitive.ObjectID, args map[string]any, today time.Time) (ToolOutcome, error) {
	a, err := decodeArgs[AdaptPlanArgs](args)
	if err != nil {
		return ToolOutcome{}, err
	}
	if a.AdjustmentType == "extend_plan" {
		return ToolOutcome{
			Tool:      ToolAdaptTrainingPlan,
			Success:   true,
			Reasoning: []string{"plan extension is handled by generateNextWeek"},
		}, nil
	}

	duration := a.Duration
	if duration <= 0 {
		duration = 7
	}
	runs, err := e.workouts.ListRange(ctx, userID, today, today.AddDate(0, 0, duration), true)
	if err != nil {
		return ToolOutcome{}, err
	}
	if len(a.TargetWorkouts) > 0 {
		wanted := make(map[string]bool, len(a.TargetWorkouts))
		for _, id := range a.TargetWorkouts {
			wanted[id] = true
		}
		filtered := runs[:0]
		for _, w := range runs {
			if wanted[w.ID.Hex()] {
				filtered = append(filtered, w)
			}
		}
		runs = filtered
	}

	outcome := ToolOutcome{Tool: ToolAdaptTrainingPlan, Success: true}
	for i := range runs {
		w := &runs[i]
		switch a.AdjustmentType {
		case "reduce_intensity":
			if w.TargetDistanceKm != nil {
				d := *w.TargetDistanceKm * 0.8
				w.TargetDistanceKm = &d
			}
			if w.TargetDurationMin != nil {
				m := int(math.Round(float64(*w.TargetDurationMin) * 0.9))
				w.TargetDurationMin = &m
			}
		case "increase_intensity":
			if w.TargetDistanceKm != nil {
				d := *w.TargetDistanceKm * 1.1
				w.TargetDistanceKm = &d
			}
		case "add_rest":
			// Every third affected run becomes a rest day. Deterministic on
			// purpose, so the same request always yields the same plan.
			if i%3 != 2 {
				continue
			}
			w.ActivityType = domain.ActivityRest
			w.TargetDistanceKm = nil
			w.TargetDurationMin = nil
		default:
			return ToolOutcome{}, fmt.Errorf("unknown adjustment type %q", a.AdjustmentType)
		}

		w.ReasoningNote = fmt.Sprintf("Adapted: %s", a.Reason)
		if err := e.workouts.Update(ctx, w); err != nil {
			return ToolOutcome{}, err
		}
		outcome.Modified = append(outcome.Modified, modifiedFromWorkout(w, a.AdjustmentType))
	}
	outcome.Reasoning = []string{
		fmt.Sprintf("%s applied to %d workouts over %d days: %s", a.AdjustmentType, len(outcome.Modified), duration, a.Reason),
	}
	return outcome, nil
}

func (e *Executor) handleInjuryResponse(ctx context.Context, userID primitive.ObjectID, args map[string]any, today time.Time) (ToolOutcome, error) {
	req, err := decodeArgs[InjuryRequest](args)
	if err != nil {
		return ToolOutcome{}, err
	}
	modified, reasoning, err := e.injuries.Apply(ctx, userID, req, today)
	if err != nil {
		return ToolOutcome{}, err
	}
	return ToolOutcome{
		Tool:      ToolHandleInjuryResponse,
		Success:   true,
		Modified:  modified,
		Reasoning: reasoning,
	}, nil
}

// Base run distance per goal, in km.
var goalBaseDistance = map[domain.Goal]float64{
	domain.Goal5K:  5,
	domain.Goal10K: 8,
}

func (e *Executor) generateNextWeek(ctx context.Context, userID primitive.ObjectID, args map[string]any) (ToolOutcome, error) {
	a, err := decodeArgs[GenerateNextWeekArgs](args)
	if err != nil {
		return ToolOutcome{}, err
	}

	profile, err := e.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ToolOutcome{}, errors.New("user profile not found")
		}
		return ToolOutcome{}, err
	}
	last, err := e.workouts.LastScheduled(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ToolOutcome{}, errors.New("no existing workouts to extend from")
		}
		return ToolOutcome{}, err
	}

	perf := a.PerformanceAnalysis
	intensity := 1.0
	switch {
	case perf.CompletionRate < 0.7:
		intensity = 0.8
	case perf.AverageRpe > 7:
		intensity = 0.9
	case perf.CompletionRate > 0.9 && perf.AverageRpe > 0 && perf.AverageRpe < 5:
		intensity = 1.1
	}

	baseDistance, ok := goalBaseDistance[profile.Goal]
	if !ok {
		baseDistance = 3
	}
	runDescription := "Maintenance Run"
	if a.MaintainProgression {
		runDescription = "Progression Run"
	}

	start := Midnight(last.ScheduledDate).AddDate(0, 0, 1)
	outcome := ToolOutcome{Tool: ToolGenerateNextWeek, Success: true}
	for offset := 0; offset < 14; offset++ {
		date := start.AddDate(0, 0, offset)
		w := &domain.ScheduledWorkout{
			UserID:        userID,
			ScheduledDate: date,
			Status:        domain.StatusScheduled,
		}

		switch {
		case int(date.Weekday())%3 == 0:
			// Re-check before writing a run; a concurrent request may have
			// placed one here between our read and this write.
			if _, free, err := e.conflicts.Place(ctx, userID, date, nil); err != nil {
				return ToolOutcome{}, err
			} else if !free {
				outcome.Reasoning = append(outcome.Reasoning,
					fmt.Sprintf("skipped %s: a run is already scheduled", date.Format("2006-01-02")))
				continue
			}
			distance := baseDistance * intensity
			duration := int(math.Round(30 * intensity))
			w.ActivityType = domain.ActivityRun
			w.TargetDistanceKm = &distance
			w.TargetDurationMin = &duration
			w.Description = runDescription
			w.ReasoningNote = fmt.Sprintf("Generated from %.0f%% completion rate", perf.CompletionRate*100)
		case int(date.Weekday())%5 == 0:
			duration := 45
			w.ActivityType = domain.ActivityCrossTrain
			w.TargetDurationMin = &duration
			w.Description = "Cross Training"
			w.ReasoningNote = "Active recovery day"
		default:
			w.ActivityType = domain.ActivityRest
			w.Description = "Rest Day"
			w.ReasoningNote = "Recovery day"
		}

		if _, err := e.workouts.Create(ctx, w); err != nil {
			return ToolOutcome{}, err
		}
		outcome.Modified = append(outcome.Modified, modifiedFromWorkout(w, "created"))
	}
	outcome.Reasoning = append(outcome.Reasoning,
		fmt.Sprintf("generated %d days of plan starting %s", 14, start.Format("2006-01-02")))
	return outcome, nil
}
