package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"truepace/coach/internal/domain"
)

// Tool names the external orchestrator may invoke.
const (
	ToolRescheduleWorkout    = "rescheduleWorkout"
	ToolUpdateWorkoutParams  = "updateWorkoutParameters"
	ToolAdaptTrainingPlan    = "adaptTrainingPlan"
	ToolHandleInjuryResponse = "handleInjuryResponse"
	ToolGenerateNextWeek     = "generateNextWeek"
)

// Invocation is one proposed tool call: ephemeral, never persisted. Confirmed
// mirrors the payload's confirmed flag; the gate may flip it for the whole
// batch when the user replies affirmatively.
type Invocation struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Confirmed bool           `json:"confirmed"`
}

// NewInvocation builds an invocation from a raw tool call, reading the
// confirmed flag out of the arguments.
func NewInvocation(tool string, args map[string]any) Invocation {
	confirmed, _ := args["confirmed"].(bool)
	return Invocation{Tool: tool, Args: args, Confirmed: confirmed}
}

// decodeArgs maps loosely-typed tool-call arguments onto a typed struct via a
// JSON round trip, tolerating missing optional fields.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode tool arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode tool arguments: %w", err)
	}
	return out, nil
}

// RescheduleArgs parameterizes rescheduleWorkout. Either a single workout
// reference with a new date, or an explicit id list with a signed day offset.
type RescheduleArgs struct {
	WorkoutID         string   `json:"workoutId"`
	NewDate           string   `json:"newDate"`
	Reason            string   `json:"reason"`
	PreserveIntensity bool     `json:"preserveIntensity"`
	WorkoutIDs        []string `json:"workoutIds,omitempty"`
	ShiftDays         int      `json:"shiftDays,omitempty"`
	ResolveStrategy   string   `json:"resolveStrategy,omitempty"` // "shift_forward" (default) or "error"
}

// UpdateParametersArgs parameterizes updateWorkoutParameters.
type UpdateParametersArgs struct {
	WorkoutID        string `json:"workoutId"`
	UserFeedback     string `json:"userFeedback"`
	AdjustmentIntent string `json:"adjustmentIntent"` // increase, decrease or maintain
	Context          string `json:"context,omitempty"`
	TargetDate       string `json:"targetDate,omitempty"`
}

// AdaptPlanArgs parameterizes adaptTrainingPlan.
type AdaptPlanArgs struct {
	AdjustmentType string   `json:"adjustmentType"` // reduce_intensity, add_rest, increase_intensity, extend_plan
	Reason         string   `json:"reason"`
	Duration       int      `json:"duration"` // days ahead to affect
	TargetWorkouts []string `json:"targetWorkouts,omitempty"`
}

// PerformanceInput is the slice of the performance analysis the generator
// actually consumes.
type PerformanceInput struct {
	CompletionRate float64 `json:"completionRate"`
	AverageRpe     float64 `json:"averageRpe"`
}

// GenerateNextWeekArgs parameterizes generateNextWeek.
type GenerateNextWeekArgs struct {
	PerformanceAnalysis PerformanceInput `json:"performanceAnalysis"`
	MaintainProgression bool             `json:"maintainProgression"`
}

// BatchState tracks a batch through the confirmation gate.
type BatchState string

const (
	StateProposed             BatchState = "proposed"
	StateAwaitingConfirmation BatchState = "awaiting_confirmation"
	StateExecuted             BatchState = "executed"
	StateRejected             BatchState = "rejected"
)

// ModifiedWorkout describes one workout a tool changed or created.
type ModifiedWorkout struct {
	ID           string              `json:"id"`
	Date         time.Time           `json:"date"`
	ActivityType domain.ActivityType `json:"activityType"`
	Description  string              `json:"description,omitempty"`
	Change       string              `json:"change"`
}

// ToolOutcome is the structured result of one executed invocation.
type ToolOutcome struct {
	Tool      string            `json:"tool"`
	Success   bool              `json:"success"`
	Modified  []ModifiedWorkout `json:"modified,omitempty"`
	Reasoning []string          `json:"reasoning,omitempty"`
}

// BatchResult is what the executor hands back for a whole batch: either a
// deferral asking for confirmation, or the per-invocation outcomes.
type BatchResult struct {
	State                BatchState    `json:"state"`
	RequiresConfirmation bool          `json:"requiresConfirmation,omitempty"`
	Pending              []Invocation  `json:"pending,omitempty"`
	Outcomes             []ToolOutcome `json:"outcomes,omitempty"`
}

func modifiedFromWorkout(w *domain.ScheduledWorkout, change string) ModifiedWorkout {
	return ModifiedWorkout{
		ID:           w.ID.Hex(),
		Date:         w.ScheduledDate,
		ActivityType: w.ActivityType,
		Description:  w.Description,
		Change:       change,
	}
}
