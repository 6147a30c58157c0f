package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/repository"
	"truepace/coach/internal/service"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// --- DTOs ---

type respondRequest struct {
	Approved     bool   `json:"approved"`
	Message      string `json:"message"`
	DowntimeDays *int   `json:"downtimeDays,omitempty"`
}

// List returns the user's notifications. "unread=true" filters to unread ones.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notificationService.List(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.String("userId", userID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve notifications.")
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid notification ID format.")
		return
	}

	err = h.notificationService.MarkRead(c.Request.Context(), userID, notificationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Notification not found.")
	case errors.Is(err, service.ErrNotificationNotOwned):
		abortWithError(c, http.StatusForbidden, "Notification belongs to another user.")
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, "Failed to update notification.")
	default:
		c.Status(http.StatusNoContent)
	}
}

// Respond records the user's decision on an actionable notification and, on
// approval, applies the plan mutation it proposed.
func (h *NotificationHandler) Respond(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid notification ID format.")
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	batch, err := h.notificationService.Respond(c.Request.Context(), userID, notificationID, req.Approved, req.Message, req.DowntimeDays)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Notification not found.")
	case errors.Is(err, service.ErrNotificationNotOwned):
		abortWithError(c, http.StatusForbidden, "Notification belongs to another user.")
	case errors.Is(err, service.ErrAlreadyResponded):
		abortWithError(c, http.StatusConflict, "Notification was already responded to.")
	case errors.Is(err, service.ErrNotActionable):
		abortWithError(c, http.StatusBadRequest, "Notification does not expect a response.")
	case err != nil:
		h.logger.Error("notification response failed",
			zap.String("userId", userID.Hex()),
			zap.String("notificationId", notificationID.Hex()),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to process response.")
	default:
		c.JSON(http.StatusOK, gin.H{"batch": batch})
	}
}
