package main

import (
	"context"
	"fmt"
	"os"

	"github.com/movierec/movierec-backend/internal/app"
	rediscache "github.com/movierec/movierec-backend/internal/clients/redis"
	"github.com/movierec/movierec-backend/internal/db"
	"github.com/movierec/movierec-backend/internal/handlers"
	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/repos"
	"github.com/movierec/movierec-backend/internal/scheduler"
	"github.com/movierec/movierec-backend/internal/server"
	"github.com/movierec/movierec-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Loading configuration failed", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis recommendation cache
	log.Info("Setting up recommendation cache from main...")
	recCache, err := rediscache.NewRecCache(log)
	if err != nil {
		log.Error("Could not init recommendation cache", "error", err)
		os.Exit(1)
	}
	defer recCache.Close()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	movieRepo := repos.NewMovieRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	estimatorService := services.NewEstimatorService(thePG, log, ratingRepo, recCache, cfg.Model, cfg.TopN, cfg.ModelSeed)
	movieStatsService := services.NewMovieStatsService(thePG, log, ratingRepo, recCache, cfg.StatUsersLowerLimit)
	recommendationService := services.NewRecommendationService(thePG, log, userRepo, movieRepo, ratingRepo, recCache, cfg.TopN, cfg.DefaultRating)
	ratingService := services.NewRatingService(thePG, log, userRepo, movieRepo, ratingRepo, recCache, cfg.DefaultRating)
	userService := services.NewUserService(thePG, log, userRepo, movieRepo, ratingRepo)
	movieService := services.NewMovieService(thePG, log, movieRepo, ratingRepo, cfg.DefaultRating)

	// Scheduler
	log.Info("Setting up recompute scheduler from main...")
	sched := scheduler.New(log)
	sched.AddJob(scheduler.JobRecomputeRecommendations, cfg.RecomputeInterval, estimatorService.RecomputeRecommendations)
	sched.AddJob(scheduler.JobRecomputeStatistics, cfg.StatsInterval, movieStatsService.CalcRatingStats)
	sched.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	userHandler := handlers.NewUserHandler(userService)
	movieHandler := handlers.NewMovieHandler(movieService)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	adminHandler := handlers.NewAdminHandler(sched)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		UserHandler:           userHandler,
		MovieHandler:          movieHandler,
		RatingHandler:         ratingHandler,
		RecommendationHandler: recommendationHandler,
		AdminHandler:          adminHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
