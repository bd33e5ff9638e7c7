package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	rediscache "github.com/movierec/movierec-backend/internal/clients/redis"
	"github.com/movierec/movierec-backend/internal/logger"
	apperrors "github.com/movierec/movierec-backend/internal/pkg/errors"
	"github.com/movierec/movierec-backend/internal/repos"
	"github.com/movierec/movierec-backend/internal/types"
)

type RatingService interface {
	// SetMovieRating upserts an explicit rating, rounded to the half step.
	SetMovieRating(ctx context.Context, userID, movieID int64, rating float64) (*types.Rating, error)
	DeleteMovieRating(ctx context.Context, userID, movieID int64) error
	// SetMovieWatched upserts an implicit rating valued at the movie's
	// cached average (default rating when no stat is cached); watched =
	// false deletes the pair's rating instead.
	SetMovieWatched(ctx context.Context, userID, movieID int64, watched bool) error
}

type ratingService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	movieRepo     repos.MovieRepo
	ratingRepo    repos.RatingRepo
	cache         rediscache.RecCache
	defaultRating float64
}

func NewRatingService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, movieRepo repos.MovieRepo, ratingRepo repos.RatingRepo, cache rediscache.RecCache, defaultRating float64) RatingService {
	return &ratingService{
		db:            db,
		log:           baseLog.With("service", "RatingService"),
		userRepo:      userRepo,
		movieRepo:     movieRepo,
		ratingRepo:    ratingRepo,
		cache:         cache,
		defaultRating: defaultRating,
	}
}

// RoundRating snaps a rating to the 0.5 step grid.
func RoundRating(rating float64) float64 {
	return math.Round(rating*2) / 2
}

func (rs *ratingService) SetMovieRating(ctx context.Context, userID, movieID int64, rating float64) (*types.Rating, error) {
	rs.log.Debug("Setting movie rating", "user_id", userID, "movie_id", movieID, "rating", rating)

	if rating < 0.5 || rating > 5.0 {
		return nil, fmt.Errorf("rating %v out of range [0.5, 5.0]: %w", rating, apperrors.ErrInvalidArgument)
	}

	if err := rs.requireUserAndMovie(ctx, userID, movieID); err != nil {
		return nil, err
	}

	movieRating := &types.Rating{
		UserID:     userID,
		MovieID:    movieID,
		Rating:     RoundRating(rating),
		IsImplicit: false,
		Ts:         time.Now().UTC(),
	}
	if err := rs.ratingRepo.Upsert(ctx, nil, movieRating); err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	if err := rs.cache.IncrRatingCount(ctx, userID); err != nil {
		rs.log.Warn("Incrementing rating counter failed", "user_id", userID, "error", err)
	}

	return movieRating, nil
}

func (rs *ratingService) DeleteMovieRating(ctx context.Context, userID, movieID int64) error {
	rs.log.Debug("Deleting movie rating", "user_id", userID, "movie_id", movieID)

	deleted, err := rs.ratingRepo.Delete(ctx, nil, userID, movieID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if !deleted {
		return fmt.Errorf("rating (%d, %d): %w", userID, movieID, apperrors.ErrNotFound)
	}

	if err := rs.cache.DecrRatingCount(ctx, userID); err != nil {
		rs.log.Warn("Decrementing rating counter failed", "user_id", userID, "error", err)
	}
	return nil
}

func (rs *ratingService) SetMovieWatched(ctx context.Context, userID, movieID int64, watched bool) error {
	rs.log.Debug("Setting movie watched", "user_id", userID, "movie_id", movieID, "watched", watched)

	if !watched {
		return rs.DeleteMovieRating(ctx, userID, movieID)
	}

	if err := rs.requireUserAndMovie(ctx, userID, movieID); err != nil {
		return err
	}

	implicitRating := rs.defaultRating
	if avg, ok, err := rs.cache.GetMovieAvg(ctx, movieID); err != nil {
		rs.log.Warn("Reading cached movie average failed, using default rating", "movie_id", movieID, "error", err)
	} else if ok {
		implicitRating = avg
	}

	movieRating := &types.Rating{
		UserID:     userID,
		MovieID:    movieID,
		Rating:     implicitRating,
		IsImplicit: true,
		Ts:         time.Now().UTC(),
	}
	if err := rs.ratingRepo.Upsert(ctx, nil, movieRating); err != nil {
		return fmt.Errorf("upsert implicit rating: %w", err)
	}

	if err := rs.cache.IncrRatingCount(ctx, userID); err != nil {
		rs.log.Warn("Incrementing rating counter failed", "user_id", userID, "error", err)
	}
	return nil
}

func (rs *ratingService) requireUserAndMovie(ctx context.Context, userID, movieID int64) error {
	user, err := rs.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	movie, err := rs.movieRepo.GetByID(ctx, nil, movieID)
	if err != nil {
		return fmt.Errorf("get movie %d: %w", movieID, err)
	}
	if movie == nil {
		return fmt.Errorf("movie %d: %w", movieID, apperrors.ErrNotFound)
	}
	return nil
}
