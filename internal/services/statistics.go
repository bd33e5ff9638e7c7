package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	rediscache "github.com/movierec/movierec-backend/internal/clients/redis"
	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/repos"
)

// MovieStatsService recomputes per-movie voter counts and average ratings
// over explicit ratings and overwrites the cached stats. Implicit
// "watched" ratings are excluded so auto-ratings cannot reinforce their own
// popularity.
type MovieStatsService interface {
	CalcRatingStats(ctx context.Context) error
}

type movieStatsService struct {
	db              *gorm.DB
	log             *logger.Logger
	ratingRepo      repos.RatingRepo
	cache           rediscache.RecCache
	usersLowerLimit int64
}

func NewMovieStatsService(db *gorm.DB, baseLog *logger.Logger, ratingRepo repos.RatingRepo, cache rediscache.RecCache, usersLowerLimit int64) MovieStatsService {
	return &movieStatsService{
		db:              db,
		log:             baseLog.With("service", "MovieStatsService"),
		ratingRepo:      ratingRepo,
		cache:           cache,
		usersLowerLimit: usersLowerLimit,
	}
}

func (ms *movieStatsService) CalcRatingStats(ctx context.Context) error {
	aggStart := time.Now()
	stats, err := ms.ratingRepo.AggregateExplicitByMovie(ctx, nil, ms.usersLowerLimit)
	if err != nil {
		ms.log.Error("Aggregating movie statistics failed", "error", err)
		return err
	}
	ms.log.Info("Movie statistics computed", "movies", len(stats), "elapsed", time.Since(aggStart))

	if err := ms.cache.SetMovieStats(ctx, stats); err != nil {
		ms.log.Error("Persisting movie statistics failed", "error", err)
		return err
	}
	return nil
}
