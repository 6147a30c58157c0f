package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truepace/coach/internal/agent"
	"truepace/coach/internal/engine"
)

type ChatHandler struct {
	agent  *agent.Agent
	logger *zap.Logger
}

func NewChatHandler(a *agent.Agent, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{agent: a, logger: logger}
}

// --- DTOs ---

type chatRequest struct {
	Messages []agent.Message `json:"messages" binding:"required,min=1"`
}

// Chat handles one turn of the coaching conversation. The response carries the
// assistant text plus any batch state so the client can render a confirmation
// prompt when mutations are pending.
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.agent.Chat(c.Request.Context(), userID, req.Messages)
	if err != nil {
		h.logger.Error("chat turn failed", zap.String("userId", userID.Hex()), zap.Error(err))
		status, payload := engineErrorResponse(err)
		if result != nil {
			payload["toolCalls"] = result.ToolCalls
		}
		c.AbortWithStatusJSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, result)
}

// engineErrorResponse maps the engine's error taxonomy onto a status code and
// a structured body. NotFound and date-parse failures come back as actionable
// guidance (candidate listing, offending expression) instead of an opaque 500.
func engineErrorResponse(err error) (int, gin.H) {
	payload := gin.H{"error": "Failed to process message.", "details": err.Error()}

	var execErr *engine.ExecutionError
	if errors.As(err, &execErr) {
		payload["failedInvocation"] = execErr.Index
		payload["failedTool"] = execErr.Tool
	}

	var notFound *engine.NotFoundError
	if errors.As(err, &notFound) {
		payload["error"] = notFound.Error()
		if len(notFound.Candidates) > 0 {
			payload["candidates"] = notFound.Candidates
		}
		return http.StatusNotFound, payload
	}
	var parseErr *engine.ParseError
	if errors.As(err, &parseErr) {
		payload["error"] = parseErr.Error()
		payload["expression"] = parseErr.Expr
		return http.StatusBadRequest, payload
	}
	var conflict *engine.ConflictError
	if errors.As(err, &conflict) {
		payload["error"] = conflict.Error()
		return http.StatusConflict, payload
	}
	return http.StatusInternalServerError, payload
}
