package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"truepace/coach/internal/domain"
)

// AdjustmentIntent declares which direction the user wants to move a workout.
type AdjustmentIntent string

const (
	IntentDecrease AdjustmentIntent = "decrease"
	IntentIncrease AdjustmentIntent = "increase"
	IntentMaintain AdjustmentIntent = "maintain"
)

// AdjustmentPolicy is the bounded numeric mutation derived from classifying a
// piece of user feedback.
type AdjustmentPolicy struct {
	IntensityMultiplier float64
	RpeDelta            int
	DurationMultiplier  float64
	LabelPrefix         string
	Reason              string
}

// Identity reports whether applying the policy changes nothing numerically.
func (p AdjustmentPolicy) Identity() bool {
	return p.IntensityMultiplier == 1.0 && p.RpeDelta == 0 && p.DurationMultiplier == 1.0
}

// feedbackCategory pairs trigger keywords with the policy they select.
// Categories are evaluated in slice order; the first whose keyword appears in
// the feedback wins, so priority is explicit and new categories slot in
// without touching control flow.
type feedbackCategory struct {
	keywords []string
	policy   AdjustmentPolicy
}

var decreaseCategories = []feedbackCategory{
	{
		keywords: []string{"cold", "sick", "flu", "unwell"},
		policy:   AdjustmentPolicy{0.5, -3, 0.6, "Recovery", "illness reported: major intensity reduction for recovery"},
	},
	{
		keywords: []string{"injury", "pain", "hurt", "sore"},
		policy:   AdjustmentPolicy{0.4, -4, 0.5, "Rehab", "injury concern: very conservative adjustment for safety"},
	},
	{
		keywords: []string{"tired", "fatigue", "exhausted", "drained"},
		policy:   AdjustmentPolicy{0.7, -2, 0.8, "Easy", "fatigue reported: moderate intensity reduction"},
	},
	{
		keywords: []string{"busy", "time", "short", "quick"},
		policy:   AdjustmentPolicy{0.9, 0, 0.6, "Quick", "time constraint: intensity kept, duration shortened"},
	},
	{
		keywords: []string{"stress", "overwhelmed", "mental"},
		policy:   AdjustmentPolicy{0.8, -1, 0.7, "Light", "mental stress: overall load reduced"},
	},
}

var defaultDecrease = AdjustmentPolicy{0.75, -1, 0.8, "Easy", "general decrease: moderate intensity reduction"}

var increaseCategories = []feedbackCategory{
	{
		keywords: []string{"good", "great", "strong", "energetic"},
		policy:   AdjustmentPolicy{1.2, 1, 1.1, "Progressive", "feeling strong: progressive overload applied"},
	},
	{
		keywords: []string{"race", "competition", "event"},
		policy:   AdjustmentPolicy{1.3, 2, 1.0, "Peak", "race preparation: peak intensity applied"},
	},
	{
		keywords: []string{"behind", "catch", "makeup"},
		policy:   AdjustmentPolicy{1.15, 1, 1.2, "Catch-up", "making up missed workouts: balanced increase"},
	},
}

var defaultIncrease = AdjustmentPolicy{1.1, 1, 1.1, "Challenging", "general increase: moderate intensity boost"}

var maintainPolicy = AdjustmentPolicy{1.0, 0, 1.0, "", "maintaining current load; feedback recorded"}

// ClassifyFeedback maps free-text feedback plus a declared intent to an
// adjustment policy by keyword lookup over the lowercase text.
func ClassifyFeedback(feedback string, intent AdjustmentIntent) AdjustmentPolicy {
	text := strings.ToLower(feedback)

	match := func(categories []feedbackCategory, fallback AdjustmentPolicy) AdjustmentPolicy {
		for _, cat := range categories {
			for _, kw := range cat.keywords {
				if strings.Contains(text, kw) {
					return cat.policy
				}
			}
		}
		return fallback
	}

	switch intent {
	case IntentDecrease:
		return match(decreaseCategories, defaultDecrease)
	case IntentIncrease:
		return match(increaseCategories, defaultIncrease)
	default:
		return maintainPolicy
	}
}

// workoutKind classifies a workout by its description so clamps and label
// substitutions match the session type.
type workoutKind struct {
	name          string
	minDistanceKm float64
	minRpe        int
	maxRpe        int
	// Description fragments rewritten with the policy's label prefix, applied
	// in order, first occurrence only.
	labelSwaps [][2]string
}

var (
	intervalKind = workoutKind{
		name: "interval", minDistanceKm: 2, minRpe: 1, maxRpe: 10,
		labelSwaps: [][2]string{
			{"Goal Pace", "%s Pace"},
			{"10K Goal Pace Intervals", "%s Intervals"},
			{"Easy Intervals", "%s Intervals"},
		},
	}
	tempoKind = workoutKind{
		name: "tempo", minDistanceKm: 3, minRpe: 3, maxRpe: 10,
		labelSwaps: [][2]string{
			{"Tempo", "%s Tempo"},
			{"Easy Tempo", "%s Tempo"},
		},
	}
	longKind = workoutKind{
		name: "long", minDistanceKm: 5, minRpe: 2, maxRpe: 8,
		labelSwaps: [][2]string{
			{"Long", "%s Long"},
			{"Easy Long", "%s Long"},
		},
	}
	regularKind = workoutKind{
		name: "regular", minDistanceKm: 2, minRpe: 1, maxRpe: 10,
		labelSwaps: [][2]string{
			{"Run", "%s Run"},
		},
	}
)

var descriptionKmRe = regexp.MustCompile(`\d+(?:\.\d+)?km`)

func classifyWorkoutKind(description string) workoutKind {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "interval"):
		return intervalKind
	case strings.Contains(d, "tempo"):
		return tempoKind
	case strings.Contains(d, "long"):
		return longKind
	default:
		return regularKind
	}
}

// MutatedFields summarizes what ApplyPolicy changed on a workout.
type MutatedFields struct {
	DistanceKm  *float64 `json:"distanceKm,omitempty"`
	DurationMin *int     `json:"durationMin,omitempty"`
	Rpe         *int     `json:"rpe,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ApplyPolicy mutates the workout's numeric targets according to the policy,
// clamped to the bands of its workout type, and rewrites the description's
// numeric substring and label fragment. The workout is modified in place; the
// caller persists it.
func ApplyPolicy(w *domain.ScheduledWorkout, policy AdjustmentPolicy) MutatedFields {
	var mutated MutatedFields
	if policy.Identity() {
		return mutated
	}

	kind := classifyWorkoutKind(w.Description)
	description := w.Description

	if w.TargetDistanceKm != nil {
		newDistance := math.Max(kind.minDistanceKm, math.Round(*w.TargetDistanceKm*policy.IntensityMultiplier))
		w.TargetDistanceKm = &newDistance
		mutated.DistanceKm = &newDistance
		description = descriptionKmRe.ReplaceAllString(description, fmt.Sprintf("%gkm", newDistance))
	}
	if w.TargetDurationMin != nil {
		newDuration := int(math.Round(float64(*w.TargetDurationMin) * policy.DurationMultiplier))
		w.TargetDurationMin = &newDuration
		mutated.DurationMin = &newDuration
	}
	if w.TargetRpe != nil {
		newRpe := *w.TargetRpe + policy.RpeDelta
		if newRpe < kind.minRpe {
			newRpe = kind.minRpe
		}
		if newRpe > kind.maxRpe {
			newRpe = kind.maxRpe
		}
		w.TargetRpe = &newRpe
		mutated.Rpe = &newRpe
	}

	if policy.LabelPrefix != "" {
		for _, swap := range kind.labelSwaps {
			replacement := fmt.Sprintf(swap[1], policy.LabelPrefix)
			// Already carries the label, e.g. "Easy Run" under an Easy policy.
			if strings.Contains(description, replacement) {
				continue
			}
			description = strings.Replace(description, swap[0], replacement, 1)
		}
	}

	if description != w.Description {
		w.Description = description
		mutated.Description = description
	}
	return mutated
}
