package recommender

import (
	"errors"
	"math"
	"testing"
)

func polarizedRatings() []RatingTriple {
	// Movie 10 is loved, movie 11 is hated, across several users.
	return []RatingTriple{
		{UserID: 1, MovieID: 10, Rating: 5.0},
		{UserID: 1, MovieID: 11, Rating: 1.0},
		{UserID: 2, MovieID: 10, Rating: 4.5},
		{UserID: 2, MovieID: 11, Rating: 1.5},
		{UserID: 3, MovieID: 10, Rating: 5.0},
		{UserID: 3, MovieID: 11, Rating: 0.5},
		{UserID: 4, MovieID: 10, Rating: 4.5},
		{UserID: 4, MovieID: 11, Rating: 1.0},
	}
}

func defaultTestParams() SVDParams {
	return SVDParams{NFactors: 4, NEpochs: 100, LRAll: 0.01, RegAll: 0.02}
}

func TestTrainSVDEmptySet(t *testing.T) {
	if _, err := TrainSVD(nil, defaultTestParams(), 1); !errors.Is(err, ErrEmptyTrainset) {
		t.Fatalf("TrainSVD(nil) err = %v, want ErrEmptyTrainset", err)
	}
}

func TestPredictColdEntity(t *testing.T) {
	model, err := TrainSVD(polarizedRatings(), defaultTestParams(), 1)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}

	cases := []struct {
		name    string
		userID  int64
		movieID int64
	}{
		{name: "unknown_user", userID: 99, movieID: 10},
		{name: "unknown_movie", userID: 1, movieID: 99},
		{name: "both_unknown", userID: 99, movieID: 98},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := model.Predict(tc.userID, tc.movieID); !errors.Is(err, ErrColdEntity) {
				t.Fatalf("Predict(%d, %d) err = %v, want ErrColdEntity", tc.userID, tc.movieID, err)
			}
		})
	}
}

func TestTrainSVDDeterministicWithSeed(t *testing.T) {
	ratings := polarizedRatings()
	params := defaultTestParams()

	m1, err := TrainSVD(ratings, params, 42)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}
	m2, err := TrainSVD(ratings, params, 42)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}

	for _, r := range ratings {
		p1, err := m1.Predict(r.UserID, r.MovieID)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		p2, err := m2.Predict(r.UserID, r.MovieID)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if p1 != p2 {
			t.Fatalf("Predict(%d, %d) differs across identical trainings: %v vs %v", r.UserID, r.MovieID, p1, p2)
		}
	}
}

func TestTrainSVDGlobalMean(t *testing.T) {
	ratings := polarizedRatings()
	model, err := TrainSVD(ratings, defaultTestParams(), 1)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}

	var sum float64
	for _, r := range ratings {
		sum += r.Rating
	}
	want := sum / float64(len(ratings))
	if got := model.GlobalMean(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("GlobalMean() = %v, want %v", got, want)
	}
}

func TestTrainSVDLearnsItemQuality(t *testing.T) {
	model, err := TrainSVD(polarizedRatings(), defaultTestParams(), 1)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}

	loved, err := model.Predict(1, 10)
	if err != nil {
		t.Fatalf("Predict(1, 10): %v", err)
	}
	hated, err := model.Predict(1, 11)
	if err != nil {
		t.Fatalf("Predict(1, 11): %v", err)
	}
	if loved <= hated {
		t.Fatalf("model did not learn item quality: loved=%v hated=%v", loved, hated)
	}
	if math.IsNaN(loved) || math.IsInf(loved, 0) {
		t.Fatalf("prediction is not finite: %v", loved)
	}
}

func TestModelUsersAndItems(t *testing.T) {
	model, err := TrainSVD(polarizedRatings(), defaultTestParams(), 1)
	if err != nil {
		t.Fatalf("TrainSVD: %v", err)
	}

	users := model.Users()
	if len(users) != 4 {
		t.Fatalf("Users() len = %d, want 4", len(users))
	}
	items := model.Items()
	if len(items) != 2 {
		t.Fatalf("Items() len = %d, want 2", len(items))
	}
	// first-seen order
	if users[0] != 1 || items[0] != 10 {
		t.Fatalf("first-seen order broken: users[0]=%d items[0]=%d", users[0], items[0])
	}
}
