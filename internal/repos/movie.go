package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/types"
)

type MovieRepo interface {
	Create(ctx context.Context, tx *gorm.DB, movies []*types.Movie) ([]*types.Movie, error)
	GetByID(ctx context.Context, tx *gorm.DB, movieID int64) (*types.Movie, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, movieIDs []int64) ([]*types.Movie, error)
}

type movieRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMovieRepo(db *gorm.DB, baseLog *logger.Logger) MovieRepo {
	repoLog := baseLog.With("repo", "MovieRepo")
	return &movieRepo{db: db, log: repoLog}
}

func (mr *movieRepo) Create(ctx context.Context, tx *gorm.DB, movies []*types.Movie) ([]*types.Movie, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	if len(movies) == 0 {
		return []*types.Movie{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&movies).Error; err != nil {
		return nil, err
	}
	return movies, nil
}

func (mr *movieRepo) GetByID(ctx context.Context, tx *gorm.DB, movieID int64) (*types.Movie, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var result types.Movie
	err := transaction.WithContext(ctx).
		Where("movie_id = ?", movieID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (mr *movieRepo) GetByIDs(ctx context.Context, tx *gorm.DB, movieIDs []int64) ([]*types.Movie, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.Movie
	if len(movieIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("movie_id IN ?", movieIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
