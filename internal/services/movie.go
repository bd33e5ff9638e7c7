package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/movierec/movierec-backend/internal/logger"
	apperrors "github.com/movierec/movierec-backend/internal/pkg/errors"
	"github.com/movierec/movierec-backend/internal/repos"
	"github.com/movierec/movierec-backend/internal/types"
)

type MovieService interface {
	GetMovie(ctx context.Context, movieID int64) (*types.Movie, error)
	// GetTopMovies lists movies by voter count then average rating over
	// ratings >= ratingLimit (nil means the configured default).
	GetTopMovies(ctx context.Context, limit int, ratingLimit *float64) ([]types.RatedMovie, error)
}

type movieService struct {
	db            *gorm.DB
	log           *logger.Logger
	movieRepo     repos.MovieRepo
	ratingRepo    repos.RatingRepo
	defaultRating float64
}

func NewMovieService(db *gorm.DB, baseLog *logger.Logger, movieRepo repos.MovieRepo, ratingRepo repos.RatingRepo, defaultRating float64) MovieService {
	return &movieService{
		db:            db,
		log:           baseLog.With("service", "MovieService"),
		movieRepo:     movieRepo,
		ratingRepo:    ratingRepo,
		defaultRating: defaultRating,
	}
}

func (ms *movieService) GetMovie(ctx context.Context, movieID int64) (*types.Movie, error) {
	ms.log.Debug("Getting movie info", "movie_id", movieID)
	movie, err := ms.movieRepo.GetByID(ctx, nil, movieID)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", movieID, err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", movieID, apperrors.ErrNotFound)
	}
	return movie, nil
}

func (ms *movieService) GetTopMovies(ctx context.Context, limit int, ratingLimit *float64) ([]types.RatedMovie, error) {
	minRating := ms.defaultRating
	if ratingLimit != nil {
		if *ratingLimit <= 0.5 || *ratingLimit >= 5.0 {
			return nil, fmt.Errorf("rating_limit %v out of range (0.5, 5.0): %w", *ratingLimit, apperrors.ErrInvalidArgument)
		}
		minRating = *ratingLimit
	}
	ms.log.Debug("Getting top movies", "limit", limit, "rating_limit", minRating)

	rows, err := ms.ratingRepo.PopularMovies(ctx, nil, minRating, nil, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("top movies: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.MovieID
	}
	movies, err := ms.movieRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("top movie payloads: %w", err)
	}
	byID := make(map[int64]*types.Movie, len(movies))
	for _, m := range movies {
		byID[m.MovieID] = m
	}

	out := make([]types.RatedMovie, 0, len(rows))
	for _, row := range rows {
		movie, ok := byID[row.MovieID]
		if !ok {
			continue
		}
		out = append(out, types.RatedMovie{
			AvgRating: row.AvgRating,
			Votes:     row.Votes,
			Movie:     movie,
		})
	}
	return out, nil
}
