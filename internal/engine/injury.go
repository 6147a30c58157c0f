package engine

import (
	"context"
	"fmt"
	"time"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InjurySeverity grades a reported injury.
type InjurySeverity string

const (
	SeverityMild     InjurySeverity = "mild"
	SeverityModerate InjurySeverity = "moderate"
	SeveritySevere   InjurySeverity = "severe"
)

// InjuryAction is the recommended response to an injury report.
type InjuryAction string

const (
	ActionRestOnly         InjuryAction = "rest_only"
	ActionCrossTrain       InjuryAction = "cross_train"
	ActionMedicalAttention InjuryAction = "medical_attention"
	ActionReduceIntensity  InjuryAction = "reduce_intensity"
)

// downtimeBySeverity maps severity to suspended-running days. Unknown
// severities get the mild duration.
var downtimeBySeverity = map[InjurySeverity]int{
	SeveritySevere:   14,
	SeverityModerate: 7,
	SeverityMild:     3,
}

const defaultDowntimeDays = 3

// InjuryPlanEntry is one explicit instruction from an upstream classifier:
// what to do with a specific workout.
type InjuryPlanEntry struct {
	WorkoutID string `json:"workoutId"`
	Action    string `json:"action"` // REST, CROSS_TRAIN or RESCHEDULE
	NewDate   string `json:"newDate,omitempty"`
}

// InjuryRequest carries an injury report into the planner.
type InjuryRequest struct {
	InjuryType      string            `json:"injuryType"`
	AffectedArea    string            `json:"affectedArea"`
	Severity        InjurySeverity    `json:"severity"`
	Action          InjuryAction      `json:"action"`
	DowntimeDays    *int              `json:"downtimeDays,omitempty"`
	RecommendedPlan []InjuryPlanEntry `json:"recommendedPlan,omitempty"`
}

// InjuryPlanner clears the downtime window of running load and pushes the
// displaced volume past it. Rest or cross-train rows are created in the window
// so recovery days stay visible on the plan; the runs themselves move forward
// by the downtime length, conflict-probed.
type InjuryPlanner struct {
	workouts  repository.WorkoutRepository
	conflicts *ConflictResolver
}

// NewInjuryPlanner creates an injury planner.
func NewInjuryPlanner(workouts repository.WorkoutRepository, conflicts *ConflictResolver) *InjuryPlanner {
	return &InjuryPlanner{workouts: workouts, conflicts: conflicts}
}

// Downtime resolves the suspension length in days: an explicit value wins,
// otherwise the severity table decides.
func (p *InjuryPlanner) Downtime(req InjuryRequest) int {
	if req.DowntimeDays != nil && *req.DowntimeDays > 0 {
		return *req.DowntimeDays
	}
	if days, ok := downtimeBySeverity[req.Severity]; ok {
		return days
	}
	return defaultDowntimeDays
}

// Apply executes the injury response. With a recommended plan present it is
// applied verbatim; otherwise the severity-derived downtime window is
// processed. Returns the modified workouts and human-readable reasoning.
func (p *InjuryPlanner) Apply(ctx context.Context, userID primitive.ObjectID, req InjuryRequest, today time.Time) ([]ModifiedWorkout, []string, error) {
	today = Midnight(today)

	if len(req.RecommendedPlan) > 0 {
		return p.applyExplicitPlan(ctx, userID, req, today)
	}
	return p.applyDowntimeWindow(ctx, userID, req, today)
}

func (p *InjuryPlanner) applyExplicitPlan(ctx context.Context, userID primitive.ObjectID, req InjuryRequest, today time.Time) ([]ModifiedWorkout, []string, error) {
	note := injuryNote(req)
	var modified []ModifiedWorkout
	reasoning := []string{fmt.Sprintf("applied recommended plan with %d entries", len(req.RecommendedPlan))}

	for _, entry := range req.RecommendedPlan {
		id, err := primitive.ObjectIDFromHex(entry.WorkoutID)
		if err != nil {
			return nil, nil, fmt.Errorf("recommended plan references invalid workout id %q", entry.WorkoutID)
		}
		w, err := p.workouts.GetByID(ctx, userID, id)
		if err != nil {
			return nil, nil, err
		}

		switch entry.Action {
		case "REST":
			convertToRest(w, note)
		case "CROSS_TRAIN":
			convertToCrossTrain(w, note)
		case "RESCHEDULE":
			date, err := ParseDate(entry.NewDate, today)
			if err != nil {
				return nil, nil, err
			}
			newDate, err := p.conflicts.probeForward(ctx, userID, date, w.ID)
			if err != nil {
				return nil, nil, err
			}
			w.ScheduledDate = newDate
			w.ReasoningNote = note
		default:
			return nil, nil, fmt.Errorf("recommended plan entry has unknown action %q", entry.Action)
		}

		if err := p.workouts.Update(ctx, w); err != nil {
			return nil, nil, err
		}
		modified = append(modified, modifiedFromWorkout(w, entry.Action))
	}
	return modified, reasoning, nil
}

func (p *InjuryPlanner) applyDowntimeWindow(ctx context.Context, userID primitive.ObjectID, req InjuryRequest, today time.Time) ([]ModifiedWorkout, []string, error) {
	downtime := p.Downtime(req)
	note := injuryNote(req)
	windowEnd := today.AddDate(0, 0, downtime-1)

	runs, err := p.workouts.ListRange(ctx, userID, today, windowEnd, true)
	if err != nil {
		return nil, nil, err
	}

	crossTrain := req.Action == ActionCrossTrain && req.Severity != SeveritySevere
	reasoning := []string{
		fmt.Sprintf("%d downtime days (%s severity)", downtime, req.Severity),
		fmt.Sprintf("%d runs in the window converted and pushed past it", len(runs)),
	}

	var modified []ModifiedWorkout
	for i := range runs {
		run := runs[i]
		originalDate := Midnight(run.ScheduledDate)

		// Derived recovery row keeps the window populated.
		derived := &domain.ScheduledWorkout{
			UserID:        userID,
			ScheduledDate: originalDate,
			Status:        domain.StatusScheduled,
			ReasoningNote: note,
		}
		if crossTrain {
			convertToCrossTrainFrom(derived, &run)
		} else {
			derived.ActivityType = domain.ActivityRest
			derived.Description = "Rest Day"
		}
		if _, err := p.workouts.Create(ctx, derived); err != nil {
			return nil, nil, err
		}
		modified = append(modified, modifiedFromWorkout(derived, string(derived.ActivityType)))

		// The displaced run reappears after the downtime window ends.
		target := originalDate.AddDate(0, 0, downtime)
		newDate, err := p.conflicts.probeForward(ctx, userID, target, run.ID)
		if err != nil {
			return nil, nil, err
		}
		run.ScheduledDate = newDate
		run.ReasoningNote = fmt.Sprintf("%s; moved %d days past the downtime window", note, downtime)
		if err := p.workouts.Update(ctx, &run); err != nil {
			return nil, nil, err
		}
		modified = append(modified, modifiedFromWorkout(&run, "RESCHEDULE"))
	}
	return modified, reasoning, nil
}

func injuryNote(req InjuryRequest) string {
	return fmt.Sprintf("Injury response: %s - %s (%s)", req.InjuryType, req.AffectedArea, req.Severity)
}

func convertToRest(w *domain.ScheduledWorkout, note string) {
	w.ActivityType = domain.ActivityRest
	w.TargetDistanceKm = nil
	w.TargetDurationMin = nil
	w.TargetRpe = nil
	w.Description = "Rest Day"
	w.ReasoningNote = note
}

func convertToCrossTrain(w *domain.ScheduledWorkout, note string) {
	src := *w
	convertToCrossTrainFrom(w, &src)
	w.ReasoningNote = note
}

// convertToCrossTrainFrom fills dst as a cross-training session with halved
// distance and reduced duration relative to src's targets.
func convertToCrossTrainFrom(dst *domain.ScheduledWorkout, src *domain.ScheduledWorkout) {
	dst.ActivityType = domain.ActivityCrossTrain
	dst.Description = "Cross Training"

	distance := 5.0
	if src.TargetDistanceKm != nil {
		distance = *src.TargetDistanceKm
	}
	distance *= 0.5
	dst.TargetDistanceKm = &distance

	duration := 30
	if src.TargetDurationMin != nil {
		duration = *src.TargetDurationMin
	}
	duration = int(float64(duration) * 0.7)
	dst.TargetDurationMin = &duration
	dst.TargetRpe = nil
}
