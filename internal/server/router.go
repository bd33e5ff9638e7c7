package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/movierec/movierec-backend/internal/handlers"
	"github.com/movierec/movierec-backend/internal/middleware"
)

type RouterConfig struct {
	UserHandler           *handlers.UserHandler
	MovieHandler          *handlers.MovieHandler
	RatingHandler         *handlers.RatingHandler
	RecommendationHandler *handlers.RecommendationHandler
	AdminHandler          *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID())

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.GET("/", handlers.Hello)

		// User
		api.GET("/user/:user_id", cfg.UserHandler.GetUser)
		api.PUT("/user", cfg.UserHandler.AddUser)
		api.DELETE("/user/:user_id", cfg.UserHandler.DeleteUser)
		api.GET("/user/:user_id/ratings/latest", cfg.UserHandler.GetUserRatings)
		api.GET("/user/:user_id/ratings/top", cfg.UserHandler.GetUserTopRatings)

		// Movie
		api.GET("/movie/:movie_id", cfg.MovieHandler.GetMovie)
		api.GET("/movies/top", cfg.MovieHandler.GetTopMovies)

		// Rating
		api.POST("/user/:user_id/rating/:movie_id", cfg.RatingHandler.SetRating)
		api.DELETE("/user/:user_id/rating/:movie_id", cfg.RatingHandler.DeleteRating)
		api.POST("/user/:user_id/watched/:movie_id", cfg.RatingHandler.SetWatched)

		// Recommendations
		api.GET("/user/:user_id/recommendations", cfg.RecommendationHandler.GetRecommendations)

		// Admin
		api.POST("/admin/recompute", cfg.AdminHandler.TriggerRecompute)
	}

	return router
}
