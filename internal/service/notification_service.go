package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/engine"
	"truepace/coach/internal/repository"
)

// --- Error Definitions ---
var (
	ErrNotificationNotOwned = errors.New("notification does not belong to this user")
	ErrAlreadyResponded     = errors.New("notification was already responded to")
	ErrNotActionable        = errors.New("notification does not expect a response")
)

type NotificationService interface {
	List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error

	// Respond handles the user's decision on an actionable notification.
	// Approving an injury notification dispatches its stored plan-mutation
	// payload through the engine as a confirmed invocation; an explicit
	// downtimeDays overrides the severity-derived duration in that payload.
	Respond(ctx context.Context, userID, notificationID primitive.ObjectID, approved bool, message string, downtimeDays *int) (*engine.BatchResult, error)
}

// --- Service Implementation ---

type notificationService struct {
	notifications repository.NotificationRepository
	executor      *engine.Executor
	logger        *zap.Logger
}

// NewNotificationService creates a new instance of notificationService.
func NewNotificationService(
	notifications repository.NotificationRepository,
	executor *engine.Executor,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		executor:      executor,
		logger:        logger,
	}
}

func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotificationNotOwned
	}
	if n.Read {
		return nil
	}
	n.Read = true
	return s.notifications.Update(ctx, n)
}

func (s *notificationService) Respond(ctx context.Context, userID, notificationID primitive.ObjectID, approved bool, message string, downtimeDays *int) (*engine.BatchResult, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotificationNotOwned
	}
	if n.Responded {
		return nil, ErrAlreadyResponded
	}
	if n.Type != domain.NotificationInjury {
		return nil, ErrNotActionable
	}

	var batch *engine.BatchResult
	if approved && n.Payload != nil {
		payload := n.Payload
		if downtimeDays != nil && *downtimeDays > 0 {
			// The user's answer can carry its own downtime length, which wins
			// over whatever the stored injury payload proposed.
			payload = make(map[string]any, len(n.Payload)+1)
			for k, v := range n.Payload {
				payload[k] = v
			}
			payload["downtimeDays"] = *downtimeDays
		}
		inv := engine.NewInvocation(engine.ToolHandleInjuryResponse, payload)
		inv.Confirmed = true // responding to the notification is the consent
		batch, err = s.executor.ExecuteBatch(ctx, userID, []engine.Invocation{inv}, message)
		if err != nil {
			return nil, fmt.Errorf("failed to apply injury response: %w", err)
		}
	}

	n.Read = true
	n.Responded = true
	n.Response = map[string]any{
		"approved":    approved,
		"message":     message,
		"respondedAt": time.Now().UTC(),
	}
	if downtimeDays != nil {
		n.Response["downtimeDays"] = *downtimeDays
	}
	if err := s.notifications.Update(ctx, n); err != nil {
		return nil, err
	}

	confirmation := &domain.Notification{
		UserID:    userID,
		Type:      domain.NotificationConfirmation,
		Title:     "Plan updated",
		Body:      responseBody(approved, batch),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.notifications.Create(ctx, confirmation); err != nil {
		// The mutation already went through; losing the follow-up note is tolerable.
		s.logger.Warn("failed to create confirmation notification",
			zap.String("userId", userID.Hex()), zap.Error(err))
	}

	return batch, nil
}

func responseBody(approved bool, batch *engine.BatchResult) string {
	if !approved {
		return "Understood, your plan stays as it is."
	}
	if batch == nil || len(batch.Outcomes) == 0 || len(batch.Outcomes[0].Reasoning) == 0 {
		return "Your plan has been adjusted."
	}
	return strings.Join(batch.Outcomes[0].Reasoning, "; ")
}
