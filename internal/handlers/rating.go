package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movierec/movierec-backend/internal/services"
)

type RatingHandler struct {
	ratingService services.RatingService
}

func NewRatingHandler(ratingService services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

func ratingPairParams(c *gin.Context) (int64, int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, 0, false
	}
	movieID, err := strconv.ParseInt(c.Param("movie_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie_id"})
		return 0, 0, false
	}
	return userID, movieID, true
}

type setRatingRequest struct {
	Rating float64 `json:"rating"`
}

func (rh *RatingHandler) SetRating(c *gin.Context) {
	userID, movieID, ok := ratingPairParams(c)
	if !ok {
		return
	}
	var req setRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := rh.ratingService.SetMovieRating(c.Request.Context(), userID, movieID, req.Rating)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (rh *RatingHandler) DeleteRating(c *gin.Context) {
	userID, movieID, ok := ratingPairParams(c)
	if !ok {
		return
	}
	if err := rh.ratingService.DeleteMovieRating(c.Request.Context(), userID, movieID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "movie_id": movieID, "msg": "deleted"})
}

type setWatchedRequest struct {
	Watched *bool `json:"watched" binding:"required"`
}

func (rh *RatingHandler) SetWatched(c *gin.Context) {
	userID, movieID, ok := ratingPairParams(c)
	if !ok {
		return
	}
	var req setWatchedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rh.ratingService.SetMovieWatched(c.Request.Context(), userID, movieID, *req.Watched); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "movie_id": movieID, "watched": *req.Watched})
}
