package services

import (
	"context"
	"testing"

	"github.com/movierec/movierec-backend/internal/types"
)

func TestCalcRatingStats(t *testing.T) {
	cache := newFakeCache()
	fx := newFixture(t)
	svc := NewMovieStatsService(fx.db, fx.log, fx.ratingRepo, cache, 2)
	ctx := context.Background()

	// movie 10: 3 explicit voters, avg 4.0; movie 11: 2 explicit voters
	// (at the lower limit) plus implicit noise; movie 12: implicit only.
	createRating(t, fx.db, 1, 10, 3.0, false)
	createRating(t, fx.db, 2, 10, 4.0, false)
	createRating(t, fx.db, 3, 10, 5.0, false)
	createRating(t, fx.db, 1, 11, 4.0, false)
	createRating(t, fx.db, 2, 11, 4.0, false)
	createRating(t, fx.db, 3, 11, 5.0, true)
	createRating(t, fx.db, 1, 12, 5.0, true)

	if err := svc.CalcRatingStats(ctx); err != nil {
		t.Fatalf("CalcRatingStats: %v", err)
	}

	stat, err := cache.GetMovieStat(ctx, 10)
	if err != nil {
		t.Fatalf("GetMovieStat: %v", err)
	}
	if stat == nil || stat.VoterCount != 3 || stat.AvgRating != 4.0 {
		t.Fatalf("movie 10 stat = %+v, want 3 voters avg 4.0", stat)
	}

	for _, movieID := range []int64{11, 12} {
		stat, err := cache.GetMovieStat(ctx, movieID)
		if err != nil {
			t.Fatalf("GetMovieStat(%d): %v", movieID, err)
		}
		if stat != nil {
			t.Fatalf("movie %d cached despite too few explicit voters: %+v", movieID, stat)
		}
	}
}

func TestCalcRatingStatsOverwritesExisting(t *testing.T) {
	cache := newFakeCache()
	cache.stats[10] = types.MovieStat{MovieID: 10, VoterCount: 50, AvgRating: 4.9}
	fx := newFixture(t)
	svc := NewMovieStatsService(fx.db, fx.log, fx.ratingRepo, cache, 0)
	ctx := context.Background()

	createRating(t, fx.db, 1, 10, 4.0, false)

	if err := svc.CalcRatingStats(ctx); err != nil {
		t.Fatalf("CalcRatingStats: %v", err)
	}

	fresh, err := cache.GetMovieStat(ctx, 10)
	if err != nil {
		t.Fatalf("GetMovieStat: %v", err)
	}
	if fresh == nil || fresh.VoterCount != 1 || fresh.AvgRating != 4.0 {
		t.Fatalf("movie 10 stat = %+v, want the recomputed 1 voter avg 4.0", fresh)
	}
}
