package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"truepace/coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// affirmativeRe detects an explicit yes in the user's latest message. One
// affirmative reply confirms every pending invocation in the batch. The gate
// is deliberately coarse-grained (carried over product behavior; selective
// confirmation of a subset is an open product decision).
var affirmativeRe = regexp.MustCompile(`(?i)\b(?:yes|yep|yeah|y|confirm|confirmed|do it|go ahead|apply|please do it|ok|okay|sure)\b`)

// Executor gates proposed tool invocations behind explicit confirmation and
// runs a confirmed batch as one atomic transaction. A batch moves
// Proposed -> AwaitingConfirmation or straight to Executed; any domain error
// mid-batch rejects the whole batch with nothing committed.
type Executor struct {
	resolver  *Resolver
	conflicts *ConflictResolver
	injuries  *InjuryPlanner
	workouts  repository.WorkoutRepository
	profiles  repository.ProfileRepository
	tx        repository.Transactor
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutor creates the mutation executor.
func NewExecutor(
	resolver *Resolver,
	conflicts *ConflictResolver,
	injuries *InjuryPlanner,
	workouts repository.WorkoutRepository,
	profiles repository.ProfileRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		resolver:  resolver,
		conflicts: conflicts,
		injuries:  injuries,
		workouts:  workouts,
		profiles:  profiles,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

// IsAffirmative reports whether a user message reads as explicit consent.
func IsAffirmative(message string) bool {
	return affirmativeRe.MatchString(message)
}

// ExecuteBatch runs one batch of proposed invocations for a user.
//
// If any invocation lacks confirmation and the latest user message is not an
// affirmative reply, nothing executes: the batch parks in
// AwaitingConfirmation and the pending invocations are returned so the caller
// can ask the user. Otherwise every invocation runs in order inside one
// transaction; the first failure aborts the transaction and surfaces as an
// *ExecutionError naming the failing invocation.
func (e *Executor) ExecuteBatch(ctx context.Context, userID primitive.ObjectID, invocations []Invocation, lastUserMessage string) (*BatchResult, error) {
	if len(invocations) == 0 {
		return &BatchResult{State: StateExecuted}, nil
	}

	if IsAffirmative(lastUserMessage) {
		for i := range invocations {
			invocations[i].Confirmed = true
		}
	}
	for _, inv := range invocations {
		if !inv.Confirmed {
			e.logger.Info("batch awaiting confirmation",
				zap.String("userId", userID.Hex()),
				zap.Int("invocations", len(invocations)),
			)
			return &BatchResult{
				State:                StateAwaitingConfirmation,
				RequiresConfirmation: true,
				Pending:              invocations,
			}, nil
		}
	}

	today := Midnight(e.now())
	outcomes := make([]ToolOutcome, 0, len(invocations))

	err := e.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for i, inv := range invocations {
			outcome, err := e.execute(txCtx, userID, inv, today)
			if err != nil {
				return &ExecutionError{Index: i, Tool: inv.Tool, Err: err}
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("batch rejected",
			zap.String("userId", userID.Hex()),
			zap.Error(err),
		)
		return &BatchResult{State: StateRejected}, err
	}

	e.logger.Info("batch executed",
		zap.String("userId", userID.Hex()),
		zap.Int("invocations", len(invocations)),
	)
	return &BatchResult{State: StateExecuted, Outcomes: outcomes}, nil
}

func (e *Executor) execute(ctx context.Context, userID primitive.ObjectID, inv Invocation, today time.Time) (ToolOutcome, error) {
	switch inv.Tool {
	case ToolRescheduleWorkout:
		return e.rescheduleWorkout(ctx, userID, inv.Args, today)
	case ToolUpdateWorkoutParams:
		return e.updateWorkoutParameters(ctx, userID, inv.Args, today)
	case ToolAdaptTrainingPlan:
		return e.adaptTrainingPlan(ctx, userID, inv.Args, today)
	case ToolHandleInjuryResponse:
		return e.handleInjuryResponse(ctx, userID, inv.Args, today)
	case ToolGenerateNextWeek:
		return e.generateNextWeek(ctx, userID, inv.Args)
	default:
		return ToolOutcome{}, fmt.Errorf("unknown tool %q", inv.Tool)
	}
}
