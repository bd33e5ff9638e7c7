package recommender

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// ParamGrid is the Cartesian grid swept by GridSearch.
type ParamGrid struct {
	NFactors []int
	NEpochs  []int
	LRAll    []float64
	RegAll   []float64
}

// DefaultParamGrid mirrors the offline sweep used to pick the production
// defaults.
func DefaultParamGrid() ParamGrid {
	return ParamGrid{
		NFactors: []int{10, 30, 50},
		NEpochs:  []int{10, 30, 50},
		LRAll:    []float64{0.002, 0.005, 0.008, 0.01},
		RegAll:   []float64{0.2, 0.4, 0.6, 0.8},
	}
}

func (g ParamGrid) combinations() []SVDParams {
	var out []SVDParams
	for _, nf := range g.NFactors {
		for _, ne := range g.NEpochs {
			for _, lr := range g.LRAll {
				for _, reg := range g.RegAll {
					out = append(out, SVDParams{NFactors: nf, NEpochs: ne, LRAll: lr, RegAll: reg})
				}
			}
		}
	}
	return out
}

// GridSearchResult holds, independently per metric, the parameter
// combination with the lowest mean cross-fold error.
type GridSearchResult struct {
	BestRMSEParams SVDParams
	BestRMSE       float64
	BestMAEParams  SVDParams
	BestMAE        float64
}

type comboScore struct {
	rmse float64
	mae  float64
}

// GridSearch runs k-fold cross-validation over the grid. Combinations are
// evaluated concurrently up to parallelism; fold assignment and training are
// seeded, so the result does not depend on the degree of parallelism.
func GridSearch(ctx context.Context, ratings []RatingTriple, grid ParamGrid, k int, seed int64, parallelism int) (GridSearchResult, error) {
	if len(ratings) == 0 {
		return GridSearchResult{}, ErrEmptyTrainset
	}
	if k < 2 {
		k = 2
	}
	if parallelism < 1 {
		parallelism = 1
	}

	folds := splitFolds(ratings, k, seed)
	combos := grid.combinations()
	scores := make([]comboScore, len(combos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for ci, combo := range combos {
		ci, combo := ci, combo
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			score, err := crossValidate(folds, combo, seed)
			if err != nil {
				return err
			}
			scores[ci] = score
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return GridSearchResult{}, err
	}

	result := GridSearchResult{BestRMSE: math.Inf(1), BestMAE: math.Inf(1)}
	for ci, score := range scores {
		if score.rmse < result.BestRMSE {
			result.BestRMSE = score.rmse
			result.BestRMSEParams = combos[ci]
		}
		if score.mae < result.BestMAE {
			result.BestMAE = score.mae
			result.BestMAEParams = combos[ci]
		}
	}
	return result, nil
}

// splitFolds shuffles the ratings with a seeded RNG and partitions them into
// k near-equal folds.
func splitFolds(ratings []RatingTriple, k int, seed int64) [][]RatingTriple {
	shuffled := make([]RatingTriple, len(ratings))
	copy(shuffled, ratings)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	folds := make([][]RatingTriple, k)
	for i, r := range shuffled {
		folds[i%k] = append(folds[i%k], r)
	}
	return folds
}

func crossValidate(folds [][]RatingTriple, params SVDParams, seed int64) (comboScore, error) {
	var sumRMSE, sumMAE float64
	evaluated := 0

	for held := range folds {
		var train []RatingTriple
		for fi, fold := range folds {
			if fi != held {
				train = append(train, fold...)
			}
		}
		if len(train) == 0 || len(folds[held]) == 0 {
			continue
		}

		model, err := TrainSVD(train, params, seed)
		if err != nil {
			return comboScore{}, err
		}

		var sqErr, absErr float64
		for _, r := range folds[held] {
			est := model.predictOrMean(r.UserID, r.MovieID)
			diff := r.Rating - est
			sqErr += diff * diff
			absErr += math.Abs(diff)
		}
		n := float64(len(folds[held]))
		sumRMSE += math.Sqrt(sqErr / n)
		sumMAE += absErr / n
		evaluated++
	}

	if evaluated == 0 {
		return comboScore{}, ErrEmptyTrainset
	}
	return comboScore{
		rmse: sumRMSE / float64(evaluated),
		mae:  sumMAE / float64(evaluated),
	}, nil
}
