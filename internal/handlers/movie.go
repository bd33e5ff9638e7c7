package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movierec/movierec-backend/internal/services"
)

type MovieHandler struct {
	movieService services.MovieService
}

func NewMovieHandler(movieService services.MovieService) *MovieHandler {
	return &MovieHandler{movieService: movieService}
}

func (mh *MovieHandler) GetMovie(c *gin.Context) {
	movieID, err := strconv.ParseInt(c.Param("movie_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie_id"})
		return
	}
	movie, err := mh.movieService.GetMovie(c.Request.Context(), movieID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

func (mh *MovieHandler) GetTopMovies(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	var ratingLimit *float64
	if raw := c.Query("rating_limit"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rating_limit"})
			return
		}
		ratingLimit = &parsed
	}

	movies, err := mh.movieService.GetTopMovies(c.Request.Context(), limit, ratingLimit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "movies": movies})
}
