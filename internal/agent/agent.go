package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"truepace/coach/internal/engine"
	"truepace/coach/internal/repository"
)

// Message is a single turn of the coaching conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResult is what a conversation turn produced: the assistant's text, the
// tool calls the model proposed, and the batch result if any were executed.
type ChatResult struct {
	RequestID string              `json:"requestId"`
	Response  string              `json:"response"`
	ToolCalls []engine.Invocation `json:"toolCalls,omitempty"`
	Batch     *engine.BatchResult `json:"batch,omitempty"`
}

// Agent drives the coaching conversation: it sends the user's messages plus
// schedule context to Gemini, collects the tool calls the model proposes, and
// hands them to the mutation executor.
type Agent struct {
	client   *genai.Client
	model    string
	executor *engine.Executor
	workouts repository.WorkoutRepository
	profiles repository.ProfileRepository
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Agent backed by the Gemini API.
func New(ctx context.Context, apiKey, model string, exec *engine.Executor, workouts repository.WorkoutRepository, profiles repository.ProfileRepository, logger *zap.Logger) (*Agent, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Agent{
		client:   client,
		model:    model,
		executor: exec,
		workouts: workouts,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Close releases the underlying API client. The genai client holds no
// resources that need explicit release, so this is a no-op.
func (a *Agent) Close() error {
	return nil
}

// Chat runs one conversation turn. The last message must be from the user; it
// doubles as the confirmation text the executor checks before applying any
// previously proposed mutations.
func (a *Agent) Chat(ctx context.Context, userID primitive.ObjectID, messages []Message) (*ChatResult, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != "user" {
		return nil, errors.New("conversation must end with a user message")
	}
	requestID := uuid.NewString()
	userMessage := messages[len(messages)-1].Content

	system, err := a.buildSystemPrompt(ctx, userID)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: toolDeclarations()},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	result := &ChatResult{RequestID: requestID, Response: resp.Text()}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return result, nil
	}

	invocations := make([]engine.Invocation, 0, len(calls))
	for _, call := range calls {
		invocations = append(invocations, engine.NewInvocation(call.Name, call.Args))
	}
	result.ToolCalls = invocations

	a.logger.Info("model proposed tool calls",
		zap.String("requestId", requestID),
		zap.String("userId", userID.Hex()),
		zap.Int("count", len(invocations)))

	batch, err := a.executor.ExecuteBatch(ctx, userID, invocations, userMessage)
	result.Batch = batch
	if err != nil {
		// The rejected batch and proposed tool calls travel with the error so
		// the handler can surface the typed failure, not a blank 500.
		return result, err
	}

	if summary := a.summarize(ctx, batch); summary != "" {
		result.Response = summary
	} else if result.Response == "" {
		result.Response = fallbackSummary(batch)
	}
	return result, nil
}

// buildSystemPrompt assembles profile and upcoming-schedule context so date
// expressions and symbolic references in the model's tool calls line up with
// what the engine will resolve them against.
func (a *Agent) buildSystemPrompt(ctx context.Context, userID primitive.ObjectID) (string, error) {
	today := engine.Midnight(a.now().UTC())

	var b strings.Builder
	b.WriteString("You are TruePace, a personal running coach. ")
	b.WriteString("You manage the user's training schedule through tool calls.\n\n")
	fmt.Fprintf(&b, "Today is %s (%s).\n", today.Format("2006-01-02"), today.Weekday())

	profile, err := a.profiles.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if profile != nil {
		fmt.Fprintf(&b, "Runner: goal %s, experience %s.\n", profile.Goal, profile.ExperienceLevel)
	}

	upcoming, err := a.workouts.ListRange(ctx, userID, today, today.AddDate(0, 0, 7), false)
	if err != nil {
		return "", err
	}
	if len(upcoming) > 0 {
		b.WriteString("\nUpcoming schedule:\n")
		for _, w := range upcoming {
			fmt.Fprintf(&b, "- %s [%s] %s %s (id %s)\n",
				w.ScheduledDate.Format("2006-01-02"), w.ScheduledDate.Weekday(),
				w.ActivityType, w.Description, w.ID.Hex())
		}
	}

	b.WriteString(`
Rules:
- Pass dates exactly as the user said them (weekday names, "today", "tomorrow", or YYYY-MM-DD); the engine interprets them.
- Weekday names always mean the next future occurrence.
- To reference a workout by its day, use tokens like today_workout or tuesday_workout instead of guessing ids.
- Never set confirmed=true unless the user explicitly agreed to the change in this conversation. Propose first, apply after consent.
- When the user reports pain or injury, use the injury tool rather than individual reschedules.`)

	return b.String(), nil
}

// summarize asks the model for a short recap of what was (or was not)
// applied. Best effort: on any failure the caller falls back to a canned line.
func (a *Agent) summarize(ctx context.Context, batch *engine.BatchResult) string {
	if batch == nil {
		return ""
	}
	prompt := fmt.Sprintf(
		"Summarize this training plan update for the runner in one or two friendly sentences. State: %s. Outcomes: %s",
		batch.State, describeOutcomes(batch))
	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		a.logger.Warn("summary generation failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

func describeOutcomes(batch *engine.BatchResult) string {
	if batch.State == engine.StateAwaitingConfirmation {
		parts := make([]string, 0, len(batch.Pending))
		for _, inv := range batch.Pending {
			parts = append(parts, inv.Tool)
		}
		return "pending confirmation: " + strings.Join(parts, ", ")
	}
	parts := make([]string, 0, len(batch.Outcomes))
	for _, o := range batch.Outcomes {
		parts = append(parts, fmt.Sprintf("%s: %s", o.Tool, strings.Join(o.Reasoning, ", ")))
	}
	return strings.Join(parts, "; ")
}

func fallbackSummary(batch *engine.BatchResult) string {
	switch batch.State {
	case engine.StateAwaitingConfirmation:
		return "I have some changes ready for your plan. Reply \"yes\" to apply them."
	case engine.StateExecuted:
		return "Done, your plan is updated."
	case engine.StateRejected:
		return "I couldn't apply those changes to your plan."
	default:
		return "Your plan is unchanged."
	}
}
