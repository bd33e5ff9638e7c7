package recommender

import (
	"errors"
	"math/rand"
)

var (
	// ErrColdEntity means the model has no learned vector for the user or
	// movie. The serving layer handles it by falling back; it is never
	// surfaced to API callers.
	ErrColdEntity = errors.New("no trained vector for entity")
	// ErrEmptyTrainset means training was attempted with zero ratings.
	ErrEmptyTrainset = errors.New("empty training set")
)

// RatingTriple is one observed (user, movie, rating) training example.
type RatingTriple struct {
	UserID  int64
	MovieID int64
	Rating  float64
}

// SVDParams are the hyperparameters of the biased matrix factorization
// model. The learning rate and regularization strength apply uniformly to
// biases and factors.
type SVDParams struct {
	NFactors int
	NEpochs  int
	LRAll    float64
	RegAll   float64
}

// SVDModel predicts ratings as mu + b_u + b_i + q_i . p_u, with latent
// vectors and biases fit by SGD over the training set.
type SVDModel struct {
	params     SVDParams
	seed       int64
	globalMean float64

	userIndex map[int64]int
	itemIndex map[int64]int

	userBias    []float64
	itemBias    []float64
	userFactors [][]float64
	itemFactors [][]float64
}

const factorInitStdDev = 0.1

// TrainSVD fits the model over the full rating set. The same seed and the
// same ratings always produce the same model.
func TrainSVD(ratings []RatingTriple, params SVDParams, seed int64) (*SVDModel, error) {
	if len(ratings) == 0 {
		return nil, ErrEmptyTrainset
	}

	m := &SVDModel{
		params:    params,
		seed:      seed,
		userIndex: make(map[int64]int),
		itemIndex: make(map[int64]int),
	}

	var sum float64
	for _, r := range ratings {
		sum += r.Rating
		if _, ok := m.userIndex[r.UserID]; !ok {
			m.userIndex[r.UserID] = len(m.userIndex)
		}
		if _, ok := m.itemIndex[r.MovieID]; !ok {
			m.itemIndex[r.MovieID] = len(m.itemIndex)
		}
	}
	m.globalMean = sum / float64(len(ratings))

	rng := rand.New(rand.NewSource(seed))

	nUsers := len(m.userIndex)
	nItems := len(m.itemIndex)
	m.userBias = make([]float64, nUsers)
	m.itemBias = make([]float64, nItems)
	m.userFactors = newFactorMatrix(rng, nUsers, params.NFactors)
	m.itemFactors = newFactorMatrix(rng, nItems, params.NFactors)

	order := make([]int, len(ratings))
	for i := range order {
		order[i] = i
	}

	lr := params.LRAll
	reg := params.RegAll
	for epoch := 0; epoch < params.NEpochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for _, idx := range order {
			r := ratings[idx]
			u := m.userIndex[r.UserID]
			i := m.itemIndex[r.MovieID]

			pu := m.userFactors[u]
			qi := m.itemFactors[i]

			est := m.globalMean + m.userBias[u] + m.itemBias[i] + dot(pu, qi)
			e := r.Rating - est

			m.userBias[u] += lr * (e - reg*m.userBias[u])
			m.itemBias[i] += lr * (e - reg*m.itemBias[i])
			for f := 0; f < params.NFactors; f++ {
				puf := pu[f]
				qif := qi[f]
				pu[f] += lr * (e*qif - reg*puf)
				qi[f] += lr * (e*puf - reg*qif)
			}
		}
	}

	return m, nil
}

// Predict estimates the rating user would give movie. Both must have been
// seen in training; otherwise ErrColdEntity.
func (m *SVDModel) Predict(userID, movieID int64) (float64, error) {
	u, okU := m.userIndex[userID]
	i, okI := m.itemIndex[movieID]
	if !okU || !okI {
		return 0, ErrColdEntity
	}
	return m.globalMean + m.userBias[u] + m.itemBias[i] + dot(m.userFactors[u], m.itemFactors[i]), nil
}

// predictOrMean is Predict with a partial fallback for held-out evaluation:
// missing user or item contributions are dropped, down to the global mean.
func (m *SVDModel) predictOrMean(userID, movieID int64) float64 {
	est := m.globalMean
	if u, ok := m.userIndex[userID]; ok {
		est += m.userBias[u]
		if i, ok := m.itemIndex[movieID]; ok {
			est += m.itemBias[i] + dot(m.userFactors[u], m.itemFactors[i])
		}
	} else if i, ok := m.itemIndex[movieID]; ok {
		est += m.itemBias[i]
	}
	return est
}

// GlobalMean returns the mean of all training ratings.
func (m *SVDModel) GlobalMean() float64 { return m.globalMean }

// Users returns every user id seen in training, in first-seen order.
func (m *SVDModel) Users() []int64 {
	out := make([]int64, len(m.userIndex))
	for id, idx := range m.userIndex {
		out[idx] = id
	}
	return out
}

// Items returns every movie id seen in training, in first-seen order.
func (m *SVDModel) Items() []int64 {
	out := make([]int64, len(m.itemIndex))
	for id, idx := range m.itemIndex {
		out[idx] = id
	}
	return out
}

func newFactorMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	mat := make([][]float64, rows)
	for r := range mat {
		row := make([]float64, cols)
		for c := range row {
			row[c] = rng.NormFloat64() * factorInitStdDev
		}
		mat[r] = row
	}
	return mat
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
