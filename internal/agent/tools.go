package agent

import (
	"truepace/coach/internal/engine"

	"google.golang.org/genai"
)

// toolDeclarations describes the five mutation-engine operations to the model.
// Every schema carries the shared "confirmed" flag the confirmation gate
// reads; the model is instructed to set it only after the user explicitly
// agreed to the change.
func toolDeclarations() []*genai.FunctionDeclaration {
	confirmed := &genai.Schema{
		Type:        genai.TypeBoolean,
		Description: "Set true only when the user has explicitly confirmed this change",
	}

	return []*genai.FunctionDeclaration{
		{
			Name:        engine.ToolRescheduleWorkout,
			Description: "Move a workout to a different date, or shift a list of workouts by a day offset",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"workoutId":         {Type: genai.TypeString, Description: "Workout id or symbolic reference like today_workout or tuesday_workout"},
					"newDate":           {Type: genai.TypeString, Description: "Target date: YYYY-MM-DD, a weekday name, today or tomorrow"},
					"reason":            {Type: genai.TypeString, Description: "Why the workout is being moved"},
					"preserveIntensity": {Type: genai.TypeBoolean},
					"workoutIds":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Explicit ids for a batch shift"},
					"shiftDays":         {Type: genai.TypeInteger, Description: "Signed day offset for a batch shift"},
					"resolveStrategy":   {Type: genai.TypeString, Description: "shift_forward (default) or error"},
					"confirmed":         confirmed,
				},
				Required: []string{"workoutId", "newDate", "reason"},
			},
		},
		{
			Name:        engine.ToolUpdateWorkoutParams,
			Description: "Adjust a workout's distance, duration and effort based on how the user feels",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"workoutId":        {Type: genai.TypeString, Description: "Workout id or symbolic reference"},
					"userFeedback":     {Type: genai.TypeString, Description: "The user's own words about how they feel"},
					"adjustmentIntent": {Type: genai.TypeString, Description: "increase, decrease or maintain", Enum: []string{"increase", "decrease", "maintain"}},
					"context":          {Type: genai.TypeString},
					"targetDate":       {Type: genai.TypeString, Description: "New date if the workout should also move"},
					"confirmed":        confirmed,
				},
				Required: []string{"workoutId", "userFeedback", "adjustmentIntent"},
			},
		},
		{
			Name:        engine.ToolAdaptTrainingPlan,
			Description: "Systematically adjust multiple upcoming workouts",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"adjustmentType": {Type: genai.TypeString, Enum: []string{"reduce_intensity", "add_rest", "increase_intensity", "extend_plan"}},
					"reason":         {Type: genai.TypeString},
					"duration":       {Type: genai.TypeInteger, Description: "How many days ahead to affect"},
					"targetWorkouts": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"confirmed":      confirmed,
				},
				Required: []string{"adjustmentType", "reason", "duration"},
			},
		},
		{
			Name:        engine.ToolHandleInjuryResponse,
			Description: "Clear the schedule of running load after an injury report and push the displaced runs past the downtime window",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"injuryType":   {Type: genai.TypeString},
					"affectedArea": {Type: genai.TypeString},
					"severity":     {Type: genai.TypeString, Enum: []string{"mild", "moderate", "severe"}},
					"action":       {Type: genai.TypeString, Enum: []string{"rest_only", "cross_train", "medical_attention", "reduce_intensity"}},
					"downtimeDays": {Type: genai.TypeInteger, Description: "Overrides the severity-based downtime"},
					"recommendedPlan": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"workoutId": {Type: genai.TypeString},
								"action":    {Type: genai.TypeString, Enum: []string{"REST", "CROSS_TRAIN", "RESCHEDULE"}},
								"newDate":   {Type: genai.TypeString},
							},
							Required: []string{"workoutId", "action"},
						},
					},
					"confirmed": confirmed,
				},
				Required: []string{"injuryType", "affectedArea", "severity", "action"},
			},
		},
		{
			Name:        engine.ToolGenerateNextWeek,
			Description: "Generate the next two weeks of training from performance data",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"performanceAnalysis": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"completionRate": {Type: genai.TypeNumber},
							"averageRpe":     {Type: genai.TypeNumber},
						},
					},
					"maintainProgression": {Type: genai.TypeBoolean},
					"confirmed":           confirmed,
				},
				Required: []string{"performanceAnalysis"},
			},
		},
	}
}
