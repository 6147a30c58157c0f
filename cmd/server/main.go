package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truepace/coach/internal/agent"
	"truepace/coach/internal/api"
	"truepace/coach/internal/config"
	"truepace/coach/internal/engine"
	"truepace/coach/internal/repository/mongo"
	"truepace/coach/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting TruePace coach server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("Could not load config", zap.Error(err))
	}
	logger.Info("Configuration loaded")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("Database connection established")

	// --- Ensure Indexes ---
	go func() { // Run index creation in the background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureWorkoutIndexes(ctx, appDB.Collection("scheduled_workouts"))
		mongo.EnsureRunLogIndexes(ctx, appDB.Collection("run_logs"))
		mongo.EnsureNotificationIndexes(ctx, appDB.Collection("notifications"))
		logger.Info("Index creation process completed")
	}()

	// --- Initialize Repositories ---
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	runLogRepo := mongo.NewMongoRunLogRepository(appDB)
	profileRepo := mongo.NewMongoProfileRepository(appDB)
	notificationRepo := mongo.NewMongoNotificationRepository(appDB)
	transactor := mongo.NewTransactor(dbClient)

	// --- Initialize Engine ---
	resolver := engine.NewResolver(workoutRepo)
	conflicts := engine.NewConflictResolver(workoutRepo)
	injuries := engine.NewInjuryPlanner(workoutRepo, conflicts)
	executor := engine.NewExecutor(resolver, conflicts, injuries, workoutRepo, profileRepo, transactor, logger)

	// --- Initialize Agent ---
	coachAgent, err := agent.New(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, executor, workoutRepo, profileRepo, logger)
	if err != nil {
		logger.Fatal("Failed to initialize coaching agent", zap.Error(err))
	}
	defer coachAgent.Close()

	// --- Initialize Services ---
	planService := service.NewPlanService(workoutRepo, runLogRepo, executor, logger)
	notificationService := service.NewNotificationService(notificationRepo, executor, logger)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default()

	api.SetupRoutes(router, cfg.JWT.Secret, coachAgent, planService, notificationService, logger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Server starting", zap.String("address", cfg.Server.Address))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
