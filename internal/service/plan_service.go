package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/engine"
	"truepace/coach/internal/repository"
)

// --- Error Definitions ---
var (
	ErrNoPlan = errors.New("user has no scheduled workouts")
)

// analysisWindowWeeks is how far back performance analysis looks.
const analysisWindowWeeks = 8

// PerformanceAnalysis summarizes recent training against the plan.
type PerformanceAnalysis struct {
	CompletionRate    float64   `json:"completionRate"`
	AverageRpe        float64   `json:"averageRpe"`
	InjuryRate        float64   `json:"injuryRate"`
	WeeklyDistances   []float64 `json:"weeklyDistances"`
	Trend             string    `json:"trend"` // improving, stable, declining
	Consistency       float64   `json:"consistency"`
	WorkoutsPlanned   int       `json:"workoutsPlanned"`
	WorkoutsCompleted int       `json:"workoutsCompleted"`
	DataQuality       string    `json:"dataQuality"` // high, medium, low
}

type PlanService interface {
	// GetWeek returns the workouts for the calendar week offset from the
	// current one (0 = this week, 1 = next).
	GetWeek(ctx context.Context, userID primitive.ObjectID, weekOffset int) ([]domain.ScheduledWorkout, error)

	// AnalyzePerformance computes completion, effort and injury statistics
	// over the recent training window.
	AnalyzePerformance(ctx context.Context, userID primitive.ObjectID) (*PerformanceAnalysis, error)

	// IsLastWeekOfPlan reports whether the plan runs out within seven days.
	IsLastWeekOfPlan(ctx context.Context, userID primitive.ObjectID) (bool, error)

	// ExtendPlanIfNeeded generates the next training block when the plan is
	// about to run out. Returns nil when nothing needed doing.
	ExtendPlanIfNeeded(ctx context.Context, userID primitive.ObjectID) (*engine.BatchResult, error)
}

// --- Service Implementation ---

type planService struct {
	workouts repository.WorkoutRepository
	runLogs  repository.RunLogRepository
	executor *engine.Executor
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	workouts repository.WorkoutRepository,
	runLogs repository.RunLogRepository,
	executor *engine.Executor,
	logger *zap.Logger,
) PlanService {
	return &planService{
		workouts: workouts,
		runLogs:  runLogs,
		executor: executor,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *planService) GetWeek(ctx context.Context, userID primitive.ObjectID, weekOffset int) ([]domain.ScheduledWorkout, error) {
	today := engine.Midnight(s.now().UTC())
	// Week starts on Monday.
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -daysSinceMonday+7*weekOffset)
	end := start.AddDate(0, 0, 6)

	workouts, err := s.workouts.ListRange(ctx, userID, start, end, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list week: %w", err)
	}
	return workouts, nil
}

func (s *planService) AnalyzePerformance(ctx context.Context, userID primitive.ObjectID) (*PerformanceAnalysis, error) {
	today := engine.Midnight(s.now().UTC())
	since := today.AddDate(0, 0, -7*analysisWindowWeeks)

	planned, err := s.workouts.ListRange(ctx, userID, since, today, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned runs: %w", err)
	}
	logs, err := s.runLogs.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}

	analysis := &PerformanceAnalysis{
		WorkoutsPlanned: len(planned),
		Trend:           "stable",
		DataQuality:     "low",
	}

	completed := 0
	for _, w := range planned {
		if w.Status == domain.StatusCompleted {
			completed++
		}
	}
	analysis.WorkoutsCompleted = completed
	if len(planned) > 0 {
		analysis.CompletionRate = float64(completed) / float64(len(planned))
	}

	var rpeSum float64
	rpeCount := 0
	painCount := 0
	weekly := make([]float64, analysisWindowWeeks)
	weeklyRuns := make([]int, analysisWindowWeeks)
	for _, log := range logs {
		if log.ActualRpe != nil {
			rpeSum += float64(*log.ActualRpe)
			rpeCount++
		}
		if log.PainReported {
			painCount++
		}
		week := int(log.CompletedAt.Sub(since).Hours() / 24 / 7)
		if week >= 0 && week < analysisWindowWeeks {
			if log.ActualDistanceKm != nil {
				weekly[week] += *log.ActualDistanceKm
			}
			weeklyRuns[week]++
		}
	}
	if rpeCount > 0 {
		analysis.AverageRpe = rpeSum / float64(rpeCount)
	}
	if len(logs) > 0 {
		analysis.InjuryRate = float64(painCount) / float64(len(logs))
	}
	analysis.WeeklyDistances = weekly
	analysis.Trend = distanceTrend(weekly)
	analysis.Consistency = stddev(weeklyRuns)

	switch {
	case len(logs) >= 12:
		analysis.DataQuality = "high"
	case len(logs) >= 4:
		analysis.DataQuality = "medium"
	}

	return analysis, nil
}

func (s *planService) IsLastWeekOfPlan(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	last, err := s.workouts.LastScheduled(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNoPlan
		}
		return false, fmt.Errorf("failed to find end of plan: %w", err)
	}
	today := engine.Midnight(s.now().UTC())
	return !last.ScheduledDate.After(today.AddDate(0, 0, 7)), nil
}

func (s *planService) ExtendPlanIfNeeded(ctx context.Context, userID primitive.ObjectID) (*engine.BatchResult, error) {
	lastWeek, err := s.IsLastWeekOfPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !lastWeek {
		return nil, nil
	}

	analysis, err := s.AnalyzePerformance(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan nearly exhausted, generating next block",
		zap.String("userId", userID.Hex()),
		zap.Float64("completionRate", analysis.CompletionRate),
		zap.Float64("averageRpe", analysis.AverageRpe))

	inv := engine.Invocation{
		Tool: engine.ToolGenerateNextWeek,
		Args: map[string]any{
			"performanceAnalysis": map[string]any{
				"completionRate": analysis.CompletionRate,
				"averageRpe":     analysis.AverageRpe,
			},
		},
		Confirmed: true, // scheduled extension, not a user-driven mutation
	}
	return s.executor.ExecuteBatch(ctx, userID, []engine.Invocation{inv}, "")
}

// distanceTrend compares the two halves of the weekly distance series.
func distanceTrend(weekly []float64) string {
	half := len(weekly) / 2
	if half == 0 {
		return "stable"
	}
	var first, second float64
	for i, d := range weekly {
		if i < half {
			first += d
		} else {
			second += d
		}
	}
	switch {
	case second > first*1.1:
		return "improving"
	case second < first*0.9:
		return "declining"
	default:
		return "stable"
	}
}

func stddev(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(counts)))
}
