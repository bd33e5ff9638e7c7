package types

// ScoredMovie is one entry of a user's cached candidate list: a movie id
// with the model's predicted rating.
type ScoredMovie struct {
	MovieID int64   `json:"movie_id"`
	Score   float64 `json:"score"`
}
