package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/movierec/movierec-backend/internal/pkg/errors"
)

func newMovieService(t *testing.T) (MovieService, *fixture) {
	t.Helper()
	fx := newFixture(t)
	return NewMovieService(fx.db, fx.log, fx.movieRepo, fx.ratingRepo, 3.5), fx
}

func TestGetMovie(t *testing.T) {
	svc, fx := newMovieService(t)
	createMovie(t, fx.db, 10, "present")

	got, err := svc.GetMovie(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if got.Title != "present" {
		t.Fatalf("got = %+v", got)
	}

	if _, err := svc.GetMovie(context.Background(), 99); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTopMoviesRatingLimitValidation(t *testing.T) {
	svc, _ := newMovieService(t)

	for _, limit := range []float64{0.5, 5.0, 0.0, 6.0} {
		ratingLimit := limit
		_, err := svc.GetTopMovies(context.Background(), 10, &ratingLimit)
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Errorf("rating_limit %v: err = %v, want ErrInvalidArgument", limit, err)
		}
	}
}

func TestGetTopMovies(t *testing.T) {
	svc, fx := newMovieService(t)
	ctx := context.Background()

	createMovie(t, fx.db, 10, "two voters")
	createMovie(t, fx.db, 11, "one voter")
	createRating(t, fx.db, 1, 10, 4.0, false)
	createRating(t, fx.db, 2, 10, 5.0, false)
	createRating(t, fx.db, 1, 11, 5.0, false)
	createRating(t, fx.db, 2, 11, 2.0, false)

	got, err := svc.GetTopMovies(ctx, 10, nil)
	if err != nil {
		t.Fatalf("GetTopMovies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d movies, want 2", len(got))
	}
	if got[0].Movie.MovieID != 10 || got[0].Votes != 2 || got[0].AvgRating != 4.5 {
		t.Fatalf("first = %+v, want movie 10 with 2 votes avg 4.5", got[0])
	}
	if got[1].Movie.MovieID != 11 || got[1].Votes != 1 || got[1].AvgRating != 5.0 {
		t.Fatalf("second = %+v, want movie 11 with 1 qualifying vote", got[1])
	}

	t.Run("custom_rating_limit", func(t *testing.T) {
		ratingLimit := 4.5
		got, err := svc.GetTopMovies(ctx, 10, &ratingLimit)
		if err != nil {
			t.Fatalf("GetTopMovies: %v", err)
		}
		for _, rm := range got {
			if rm.AvgRating < 4.5 {
				t.Fatalf("movie %d avg %v below the requested limit", rm.Movie.MovieID, rm.AvgRating)
			}
		}
	})
}
