package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	rediscache "github.com/movierec/movierec-backend/internal/clients/redis"
	"github.com/movierec/movierec-backend/internal/logger"
	apperrors "github.com/movierec/movierec-backend/internal/pkg/errors"
	"github.com/movierec/movierec-backend/internal/repos"
	"github.com/movierec/movierec-backend/internal/types"
)

// RecommendationService is the online serving merger. Precedence per
// request: personalized cached candidates, corrected for anything the user
// rated or watched since the last batch run, topped up from the popularity
// fallback; pure fallback for cold users or cache misses.
type RecommendationService interface {
	Recommend(ctx context.Context, userID int64) ([]*types.Movie, error)
}

type recommendationService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	movieRepo     repos.MovieRepo
	ratingRepo    repos.RatingRepo
	cache         rediscache.RecCache
	topN          int
	defaultRating float64
}

func NewRecommendationService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, movieRepo repos.MovieRepo, ratingRepo repos.RatingRepo, cache rediscache.RecCache, topN int, defaultRating float64) RecommendationService {
	return &recommendationService{
		db:            db,
		log:           baseLog.With("service", "RecommendationService"),
		userRepo:      userRepo,
		movieRepo:     movieRepo,
		ratingRepo:    ratingRepo,
		cache:         cache,
		topN:          topN,
		defaultRating: defaultRating,
	}
}

func (rs *recommendationService) Recommend(ctx context.Context, userID int64) ([]*types.Movie, error) {
	rs.log.Debug("Getting movie recommendations", "user_id", userID)

	user, err := rs.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}

	candidates, err := rs.cache.GetCandidateList(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get candidate list for user %d: %w", userID, err)
	}
	if candidates == nil {
		rs.log.Debug("No cached candidates, falling back to popularity", "user_id", userID)
		return rs.fallback(ctx, userID, rs.topN, nil)
	}

	// One exclusion snapshot per request; the staleness filter and the
	// candidate fetch must not disagree on what the user has rated.
	ratedIDs, err := rs.ratingRepo.RatedMovieIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("rated movie ids for user %d: %w", userID, err)
	}
	rated := make(map[int64]bool, len(ratedIDs))
	for _, id := range ratedIDs {
		rated[id] = true
	}

	kept := make([]int64, 0, len(candidates))
	for _, cand := range candidates {
		if rated[cand.MovieID] {
			continue
		}
		kept = append(kept, cand.MovieID)
		if len(kept) == rs.topN {
			break
		}
	}

	result, err := rs.moviesInOrder(ctx, kept)
	if err != nil {
		return nil, err
	}

	if len(result) < rs.topN {
		rs.log.Debug("Extending cached candidates with popularity fallback",
			"user_id", userID,
			"cached", len(result),
			"missing", rs.topN-len(result),
		)
		extra, err := rs.fallback(ctx, userID, rs.topN-len(result), kept)
		if err != nil {
			return nil, err
		}
		result = append(result, extra...)
	}

	return result, nil
}

// fallback returns the most popular well-rated movies the user has never
// rated or watched, excluding excludeIDs: voter count descending, then
// average rating descending, over ratings >= the configured threshold.
func (rs *recommendationService) fallback(ctx context.Context, userID int64, limit int, excludeIDs []int64) ([]*types.Movie, error) {
	rs.log.Debug("Falling back to average top movie recommendations",
		"user_id", userID,
		"limit", limit,
		"exclude_movie_ids", excludeIDs,
	)

	rows, err := rs.ratingRepo.PopularMovies(ctx, nil, rs.defaultRating, &userID, excludeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("popularity fallback for user %d: %w", userID, err)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.MovieID
	}
	return rs.moviesInOrder(ctx, ids)
}

// moviesInOrder fetches the movies for ids and returns them in the given
// order, skipping ids with no movie row.
func (rs *recommendationService) moviesInOrder(ctx context.Context, ids []int64) ([]*types.Movie, error) {
	if len(ids) == 0 {
		return []*types.Movie{}, nil
	}
	movies, err := rs.movieRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("get movies: %w", err)
	}
	byID := make(map[int64]*types.Movie, len(movies))
	for _, m := range movies {
		byID[m.MovieID] = m
	}
	out := make([]*types.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
