package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/types"
)

// PopularityRow is one movie's standing in the popularity ranking:
// how many voters rated it at or above the threshold and their average.
type PopularityRow struct {
	MovieID   int64
	Votes     int64
	AvgRating float64
}

type RatingRepo interface {
	// Upsert inserts or replaces the rating for the (user, movie) pair.
	Upsert(ctx context.Context, tx *gorm.DB, rating *types.Rating) error
	Get(ctx context.Context, tx *gorm.DB, userID, movieID int64) (*types.Rating, error)
	// Delete removes the pair's rating; returns false when none existed.
	Delete(ctx context.Context, tx *gorm.DB, userID, movieID int64) (bool, error)
	// All returns every rating, explicit and implicit, for model training.
	All(ctx context.Context, tx *gorm.DB) ([]types.Rating, error)
	// ByUser returns the user's ratings ordered by the given column spec.
	ByUser(ctx context.Context, tx *gorm.DB, userID int64, order string, limit int) ([]types.Rating, error)
	// RatedMovieIDs returns every movie id the user rated or watched.
	RatedMovieIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]int64, error)
	// PopularMovies ranks movies by voter count then average rating over
	// ratings >= minRating. When excludeRatedBy is non-nil, movies that
	// user has rated or watched are left out; excludeIDs are always left
	// out.
	PopularMovies(ctx context.Context, tx *gorm.DB, minRating float64, excludeRatedBy *int64, excludeIDs []int64, limit int) ([]PopularityRow, error)
	// AggregateExplicitByMovie computes per-movie voter count and average
	// over explicit ratings only, keeping movies with more than
	// lowerLimit voters.
	AggregateExplicitByMovie(ctx context.Context, tx *gorm.DB, lowerLimit int64) ([]types.MovieStat, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	repoLog := baseLog.With("repo", "RatingRepo")
	return &ratingRepo{db: db, log: repoLog}
}

func (rr *ratingRepo) Upsert(ctx context.Context, tx *gorm.DB, rating *types.Rating) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "is_implicit", "ts"}),
		}).
		Create(rating).Error
}

func (rr *ratingRepo) Get(ctx context.Context, tx *gorm.DB, userID, movieID int64) (*types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.Rating
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *ratingRepo) Delete(ctx context.Context, tx *gorm.DB, userID, movieID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	res := transaction.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&types.Rating{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (rr *ratingRepo) All(ctx context.Context, tx *gorm.DB) ([]types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []types.Rating
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *ratingRepo) ByUser(ctx context.Context, tx *gorm.DB, userID int64, order string, limit int) ([]types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	query := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(order)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []types.Rating
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *ratingRepo) RatedMovieIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var ids []int64
	if err := transaction.WithContext(ctx).
		Model(&types.Rating{}).
		Where("user_id = ?", userID).
		Pluck("movie_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (rr *ratingRepo) PopularMovies(ctx context.Context, tx *gorm.DB, minRating float64, excludeRatedBy *int64, excludeIDs []int64, limit int) ([]PopularityRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.Rating{}).
		Select("movie_id, COUNT(user_id) AS votes, AVG(rating) AS avg_rating").
		Where("rating >= ?", minRating).
		Group("movie_id").
		Order("votes DESC").
		Order("avg_rating DESC")

	if excludeRatedBy != nil {
		rated := transaction.Model(&types.Rating{}).
			Select("movie_id").
			Where("user_id = ?", *excludeRatedBy)
		query = query.Where("movie_id NOT IN (?)", rated)
	}
	if len(excludeIDs) > 0 {
		query = query.Where("movie_id NOT IN ?", excludeIDs)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []PopularityRow
	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *ratingRepo) AggregateExplicitByMovie(ctx context.Context, tx *gorm.DB, lowerLimit int64) ([]types.MovieStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []types.MovieStat
	if err := transaction.WithContext(ctx).
		Model(&types.Rating{}).
		Select("movie_id, COUNT(user_id) AS voter_count, AVG(rating) AS avg_rating").
		Where("is_implicit = ?", false).
		Group("movie_id").
		Having("COUNT(user_id) > ?", lowerLimit).
		Order("voter_count DESC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *ratingRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Rating{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
