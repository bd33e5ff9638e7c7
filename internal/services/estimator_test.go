package services

import (
	"context"
	"errors"
	"testing"

	"github.com/movierec/movierec-backend/internal/recommender"
)

var estimatorTestParams = recommender.SVDParams{
	NFactors: 4,
	NEpochs:  60,
	LRAll:    0.01,
	RegAll:   0.02,
}

func TestRecomputeRecommendationsFillsCache(t *testing.T) {
	cache := newFakeCache()
	fx := newFixture(t)
	svc := NewEstimatorService(fx.db, fx.log, fx.ratingRepo, cache, estimatorTestParams, 2, 42)
	ctx := context.Background()

	// Three users over five movies, each user leaving two movies unseen.
	ratings := []struct {
		user, movie int64
		rating      float64
	}{
		{1, 10, 5.0}, {1, 11, 4.5}, {1, 12, 1.0},
		{2, 10, 4.5}, {2, 13, 2.0}, {2, 14, 5.0},
		{3, 11, 4.0}, {3, 12, 1.5}, {3, 14, 4.5},
	}
	for _, r := range ratings {
		createRating(t, fx.db, r.user, r.movie, r.rating, false)
	}

	if err := svc.RecomputeRecommendations(ctx); err != nil {
		t.Fatalf("RecomputeRecommendations: %v", err)
	}

	rated := map[int64]map[int64]bool{}
	for _, r := range ratings {
		if rated[r.user] == nil {
			rated[r.user] = map[int64]bool{}
		}
		rated[r.user][r.movie] = true
	}

	for _, userID := range []int64{1, 2, 3} {
		list := cache.candidateList(userID)
		if list == nil {
			t.Fatalf("no candidate list for user %d", userID)
		}
		if len(list) != 2 {
			t.Fatalf("user %d list = %v, want 2 candidates", userID, list)
		}
		for _, cand := range list {
			if rated[userID][cand.MovieID] {
				t.Errorf("user %d: candidate %d was already rated", userID, cand.MovieID)
			}
		}
		if list[0].Score < list[1].Score {
			t.Errorf("user %d list not score-descending: %v", userID, list)
		}
	}
}

func TestRecomputeRecommendationsDeterministic(t *testing.T) {
	fx := newFixture(t)
	createRating(t, fx.db, 1, 10, 5.0, false)
	createRating(t, fx.db, 1, 11, 1.0, false)
	createRating(t, fx.db, 2, 10, 4.5, false)
	createRating(t, fx.db, 2, 12, 2.0, false)
	ctx := context.Background()

	first := newFakeCache()
	second := newFakeCache()
	for _, cache := range []*fakeCache{first, second} {
		svc := NewEstimatorService(fx.db, fx.log, fx.ratingRepo, cache, estimatorTestParams, 2, 42)
		if err := svc.RecomputeRecommendations(ctx); err != nil {
			t.Fatalf("RecomputeRecommendations: %v", err)
		}
	}

	for _, userID := range []int64{1, 2} {
		a, b := first.candidateList(userID), second.candidateList(userID)
		if len(a) != len(b) {
			t.Fatalf("user %d: list lengths differ: %v vs %v", userID, a, b)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("user %d: runs diverge at %d: %v vs %v", userID, i, a, b)
			}
		}
	}
}

func TestRecomputeRecommendationsEmptyDataset(t *testing.T) {
	cache := newFakeCache()
	fx := newFixture(t)
	svc := NewEstimatorService(fx.db, fx.log, fx.ratingRepo, cache, estimatorTestParams, 2, 42)

	err := svc.RecomputeRecommendations(context.Background())
	if !errors.Is(err, recommender.ErrEmptyTrainset) {
		t.Fatalf("err = %v, want ErrEmptyTrainset", err)
	}
}

func TestFindBestParamsReturnsGridMember(t *testing.T) {
	fx := newFixture(t)
	svc := NewEstimatorService(fx.db, fx.log, fx.ratingRepo, newFakeCache(), estimatorTestParams, 2, 42)
	ctx := context.Background()

	for u := int64(1); u <= 4; u++ {
		for m := int64(10); m <= 15; m++ {
			rating := 2.0
			if (u+m)%2 == 0 {
				rating = 4.5
			}
			createRating(t, fx.db, u, m, rating, false)
		}
	}

	grid := recommender.ParamGrid{
		NFactors: []int{2, 4},
		NEpochs:  []int{10},
		LRAll:    []float64{0.005, 0.01},
		RegAll:   []float64{0.02},
	}
	result, err := svc.FindBestParams(ctx, grid)
	if err != nil {
		t.Fatalf("FindBestParams: %v", err)
	}

	member := func(p recommender.SVDParams) bool {
		okF := p.NFactors == 2 || p.NFactors == 4
		okL := p.LRAll == 0.005 || p.LRAll == 0.01
		return okF && okL && p.NEpochs == 10 && p.RegAll == 0.02
	}
	if !member(result.BestRMSEParams) {
		t.Fatalf("BestRMSEParams %+v not in the grid", result.BestRMSEParams)
	}
	if !member(result.BestMAEParams) {
		t.Fatalf("BestMAEParams %+v not in the grid", result.BestMAEParams)
	}
	if result.BestRMSE <= 0 {
		t.Fatalf("BestRMSE = %v, want positive", result.BestRMSE)
	}
}
