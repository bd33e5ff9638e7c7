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

type UserService interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	AddUser(ctx context.Context, gender string, yearOfBirth int) (*types.User, error)
	DeleteUser(ctx context.Context, userID int64) error
	// GetUserRatings returns the user's ratings newest first.
	GetUserRatings(ctx context.Context, userID int64, limit int) ([]types.UserRating, error)
	// GetUserTopRatings returns the user's ratings best first, newest
	// first within a rating.
	GetUserTopRatings(ctx context.Context, userID int64, limit int) ([]types.UserRating, error)
}

type userService struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	movieRepo  repos.MovieRepo
	ratingRepo repos.RatingRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, movieRepo repos.MovieRepo, ratingRepo repos.RatingRepo) UserService {
	return &userService{
		db:         db,
		log:        baseLog.With("service", "UserService"),
		userRepo:   userRepo,
		movieRepo:  movieRepo,
		ratingRepo: ratingRepo,
	}
}

func (us *userService) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	us.log.Debug("Getting user info", "user_id", userID)
	user, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	return user, nil
}

func (us *userService) AddUser(ctx context.Context, gender string, yearOfBirth int) (*types.User, error) {
	us.log.Debug("Adding user", "gender", gender, "year_of_birth", yearOfBirth)
	user := &types.User{Gender: gender, YearOfBirth: yearOfBirth}
	created, err := us.userRepo.Create(ctx, nil, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (us *userService) DeleteUser(ctx context.Context, userID int64) error {
	us.log.Debug("Deleting user", "user_id", userID)
	deleted, err := us.userRepo.Delete(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	if !deleted {
		return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	return nil
}

func (us *userService) GetUserRatings(ctx context.Context, userID int64, limit int) ([]types.UserRating, error) {
	us.log.Debug("Getting user ratings", "user_id", userID, "limit", limit)
	return us.ratingsWithMovies(ctx, userID, "ts DESC", limit)
}

func (us *userService) GetUserTopRatings(ctx context.Context, userID int64, limit int) ([]types.UserRating, error) {
	us.log.Debug("Getting user top ratings", "user_id", userID, "limit", limit)
	return us.ratingsWithMovies(ctx, userID, "rating DESC, ts DESC", limit)
}

func (us *userService) ratingsWithMovies(ctx context.Context, userID int64, order string, limit int) ([]types.UserRating, error) {
	user, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}

	ratings, err := us.ratingRepo.ByUser(ctx, nil, userID, order, limit)
	if err != nil {
		return nil, fmt.Errorf("ratings for user %d: %w", userID, err)
	}

	ids := make([]int64, len(ratings))
	for i, r := range ratings {
		ids[i] = r.MovieID
	}
	movies, err := us.movieRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("movies for user %d ratings: %w", userID, err)
	}
	byID := make(map[int64]*types.Movie, len(movies))
	for _, m := range movies {
		byID[m.MovieID] = m
	}

	out := make([]types.UserRating, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, types.UserRating{
			IsImplicit: r.IsImplicit,
			Rating:     r.Rating,
			Ts:         r.Ts,
			Movie:      byID[r.MovieID],
		})
	}
	return out, nil
}
