package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truepace/coach/internal/domain"
	"truepace/coach/internal/service"
)

type PlanHandler struct {
	planService service.PlanService
	logger      *zap.Logger
}

func NewPlanHandler(planService service.PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, logger: logger}
}

// --- DTOs ---

type weekResponse struct {
	Workouts []domain.ScheduledWorkout `json:"workouts"`
	LastWeek bool                      `json:"lastWeekOfPlan"`
}

// GetWeek returns the workouts for a calendar week. Query param "offset"
// selects the week relative to the current one (default 0).
func (h *PlanHandler) GetWeek(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid offset parameter.")
			return
		}
	}

	workouts, err := h.planService.GetWeek(c.Request.Context(), userID, offset)
	if err != nil {
		h.logger.Error("failed to load week", zap.String("userId", userID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve schedule.")
		return
	}

	lastWeek, err := h.planService.IsLastWeekOfPlan(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, service.ErrNoPlan) {
		abortWithError(c, http.StatusInternalServerError, "Failed to check plan horizon.")
		return
	}

	if workouts == nil {
		workouts = []domain.ScheduledWorkout{}
	}
	c.JSON(http.StatusOK, weekResponse{Workouts: workouts, LastWeek: lastWeek})
}

// GetPerformance returns the recent-training performance analysis.
func (h *PlanHandler) GetPerformance(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	analysis, err := h.planService.AnalyzePerformance(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("performance analysis failed", zap.String("userId", userID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to analyze performance.")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// ExtendPlan generates the next training block when the plan is about to run
// out. Idempotent: responds with extended=false when the plan still has road
// ahead.
func (h *PlanHandler) ExtendPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	batch, err := h.planService.ExtendPlanIfNeeded(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoPlan) {
			abortWithError(c, http.StatusNotFound, "No training plan found.")
			return
		}
		h.logger.Error("plan extension failed", zap.String("userId", userID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to extend plan.")
		return
	}

	if batch == nil {
		c.JSON(http.StatusOK, gin.H{"extended": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extended": true, "batch": batch})
}
