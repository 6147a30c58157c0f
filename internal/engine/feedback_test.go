package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truepace/coach/internal/domain"
)

func TestClassifyFeedback_DecreaseCategories(t *testing.T) {
	tests := []struct {
		name       string
		feedback   string
		multiplier float64
		rpeDelta   int
		duration   float64
		prefix     string
	}{
		{"illness", "caught a cold over the weekend", 0.5, -3, 0.6, "Recovery"},
		{"injury", "my knee hurts a bit", 0.4, -4, 0.5, "Rehab"},
		{"fatigue", "feeling really tired today", 0.7, -2, 0.8, "Easy"},
		{"time pressure", "super busy week at work", 0.9, 0, 0.6, "Quick"},
		{"stress", "very stressed lately", 0.8, -1, 0.7, "Light"},
		{"generic", "just want to take it down a notch", 0.75, -1, 0.8, "Easy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ClassifyFeedback(tt.feedback, IntentDecrease)
			assert.Equal(t, tt.multiplier, p.IntensityMultiplier)
			assert.Equal(t, tt.rpeDelta, p.RpeDelta)
			assert.Equal(t, tt.duration, p.DurationMultiplier)
			assert.Equal(t, tt.prefix, p.LabelPrefix)
		})
	}
}

func TestClassifyFeedback_IncreaseCategories(t *testing.T) {
	tests := []struct {
		name       string
		feedback   string
		multiplier float64
		rpeDelta   int
		prefix     string
	}{
		{"feeling strong", "feeling great and strong", 1.2, 1, "Progressive"},
		{"race prep", "I have a race coming up", 1.3, 2, "Peak"},
		{"catch up", "I'm behind on my plan", 1.15, 1, "Catch-up"},
		{"generic", "push me a little more", 1.1, 1, "Challenging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ClassifyFeedback(tt.feedback, IntentIncrease)
			assert.Equal(t, tt.multiplier, p.IntensityMultiplier)
			assert.Equal(t, tt.rpeDelta, p.RpeDelta)
			assert.Equal(t, tt.prefix, p.LabelPrefix)
		})
	}
}

func TestClassifyFeedback_IllnessBeatsFatigue(t *testing.T) {
	// "sick and tired" matches both tables; illness is checked first.
	p := ClassifyFeedback("I'm sick and tired", IntentDecrease)
	assert.Equal(t, 0.5, p.IntensityMultiplier)
	assert.Equal(t, "Recovery", p.LabelPrefix)
}

func TestClassifyFeedback_Maintain(t *testing.T) {
	p := ClassifyFeedback("feeling sick actually", IntentMaintain)
	assert.True(t, p.Identity(), "maintain ignores keywords entirely")
}

func TestApplyPolicy_FatigueOnRegularRun(t *testing.T) {
	w := &domain.ScheduledWorkout{
		ActivityType:     domain.ActivityRun,
		Description:      "Easy Run 5km",
		TargetDistanceKm: floatPtr(5),
		TargetRpe:        intPtr(4),
	}

	policy := ClassifyFeedback("really tired", IntentDecrease)
	mutated := ApplyPolicy(w, policy)

	// 5 * 0.7 = 3.5, rounds to 4.
	require.NotNil(t, mutated.DistanceKm)
	assert.Equal(t, 4.0, *w.TargetDistanceKm)
	require.NotNil(t, mutated.Rpe)
	assert.Equal(t, 2, *w.TargetRpe)
	assert.Equal(t, "Easy Run 4km", w.Description)
}

func TestApplyPolicy_DistanceFloors(t *testing.T) {
	tests := []struct {
		description string
		distance    float64
		floor       float64
	}{
		{"Interval Session 3km", 3, 2},
		{"Tempo Run 4km", 4, 3},
		{"Long Run 6km", 6, 5},
		{"Easy Run 3km", 3, 2},
	}
	for _, tt := range tests {
		w := &domain.ScheduledWorkout{
			ActivityType:     domain.ActivityRun,
			Description:      tt.description,
			TargetDistanceKm: floatPtr(tt.distance),
		}
		// Rehab policy cuts distance to 40%; the per-type floor must hold.
		ApplyPolicy(w, ClassifyFeedback("knee pain", IntentDecrease))
		assert.Equal(t, tt.floor, *w.TargetDistanceKm, tt.description)
	}
}

func TestApplyPolicy_RpeClamps(t *testing.T) {
	// Tempo RPE floor is 3: a heavy reduction cannot push it below.
	w := &domain.ScheduledWorkout{
		ActivityType: domain.ActivityRun,
		Description:  "Tempo Run 6km",
		TargetRpe:    intPtr(5),
	}
	ApplyPolicy(w, ClassifyFeedback("knee pain", IntentDecrease))
	assert.Equal(t, 3, *w.TargetRpe)

	// Long-run RPE ceiling is 8 even during race prep.
	w = &domain.ScheduledWorkout{
		ActivityType: domain.ActivityRun,
		Description:  "Long Run 12km",
		TargetRpe:    intPtr(7),
	}
	ApplyPolicy(w, ClassifyFeedback("race next month", IntentIncrease))
	assert.Equal(t, 8, *w.TargetRpe)
}

func TestApplyPolicy_DurationRounds(t *testing.T) {
	w := &domain.ScheduledWorkout{
		ActivityType:      domain.ActivityRun,
		Description:       "Easy Run",
		TargetDurationMin: intPtr(45),
	}
	// Quick policy: duration * 0.6 = 27.
	ApplyPolicy(w, ClassifyFeedback("busy day, keep it short", IntentDecrease))
	assert.Equal(t, 27, *w.TargetDurationMin)
}

func TestApplyPolicy_NilTargetsUntouched(t *testing.T) {
	w := &domain.ScheduledWorkout{
		ActivityType: domain.ActivityRun,
		Description:  "Easy Run",
	}
	mutated := ApplyPolicy(w, ClassifyFeedback("tired", IntentDecrease))
	assert.Nil(t, mutated.DistanceKm)
	assert.Nil(t, mutated.DurationMin)
	assert.Nil(t, mutated.Rpe)
	assert.Nil(t, w.TargetDistanceKm)
}

func TestApplyPolicy_MaintainIsNoOp(t *testing.T) {
	w := &domain.ScheduledWorkout{
		ActivityType:     domain.ActivityRun,
		Description:      "Easy Run 5km",
		TargetDistanceKm: floatPtr(5),
	}
	mutated := ApplyPolicy(w, maintainPolicy)
	assert.Equal(t, MutatedFields{}, mutated)
	assert.Equal(t, 5.0, *w.TargetDistanceKm)
	assert.Equal(t, "Easy Run 5km", w.Description)
}

func TestApplyPolicy_LabelSwap(t *testing.T) {
	w := &domain.ScheduledWorkout{
		ActivityType:     domain.ActivityRun,
		Description:      "Tempo Run 6km",
		TargetDistanceKm: floatPtr(6),
	}
	ApplyPolicy(w, ClassifyFeedback("really tired", IntentDecrease))
	assert.Contains(t, w.Description, "Easy Tempo")
}
