package recommender

import (
	"sort"

	"github.com/movierec/movierec-backend/internal/types"
)

// TopN scores, for every training user, every movie the user has not rated
// (the anti-testset) and keeps the n highest-scoring ones. Lists are sorted
// descending by predicted score; equal scores order by ascending movie id so
// the output is deterministic.
//
// This is O(users x items); it runs on the batch path, not per request.
func TopN(model *SVDModel, ratings []RatingTriple, n int) map[int64][]types.ScoredMovie {
	rated := make(map[int64]map[int64]bool, len(model.Users()))
	for _, r := range ratings {
		if rated[r.UserID] == nil {
			rated[r.UserID] = make(map[int64]bool)
		}
		rated[r.UserID][r.MovieID] = true
	}

	items := model.Items()
	out := make(map[int64][]types.ScoredMovie, len(rated))

	for _, userID := range model.Users() {
		seen := rated[userID]
		candidates := make([]types.ScoredMovie, 0, len(items)-len(seen))
		for _, movieID := range items {
			if seen[movieID] {
				continue
			}
			est, err := model.Predict(userID, movieID)
			if err != nil {
				// both ids come from the trained model
				continue
			}
			candidates = append(candidates, types.ScoredMovie{MovieID: movieID, Score: est})
		}

		sortCandidates(candidates)
		if len(candidates) > n {
			candidates = candidates[:n]
		}
		out[userID] = candidates
	}

	return out
}

// sortCandidates orders by score descending, equal scores by movie id
// ascending.
func sortCandidates(candidates []types.ScoredMovie) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].MovieID < candidates[j].MovieID
	})
}
