package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truepace/coach/internal/agent"
	"truepace/coach/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	coachAgent *agent.Agent,
	planService service.PlanService,
	notificationService service.NotificationService,
	logger *zap.Logger,
) {
	chatHandler := NewChatHandler(coachAgent, logger)
	planHandler := NewPlanHandler(planService, logger)
	notificationHandler := NewNotificationHandler(notificationService, logger)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.POST("/chat", chatHandler.Chat)

		planGroup := protected.Group("/plan")
		{
			planGroup.GET("/week", planHandler.GetWeek)
			planGroup.GET("/performance", planHandler.GetPerformance)
			planGroup.POST("/extend", planHandler.ExtendPlan)
		}

		notificationGroup := protected.Group("/notifications")
		{
			notificationGroup.GET("", notificationHandler.List)
			notificationGroup.POST("/:id/read", notificationHandler.MarkRead)
			notificationGroup.POST("/:id/respond", notificationHandler.Respond)
		}
	}
}
