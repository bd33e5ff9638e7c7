package types

import (
	"strings"
	"time"
)

type User struct {
	UserID      int64  `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Gender      string `gorm:"column:gender" json:"gender"`
	YearOfBirth int    `gorm:"column:year_of_birth" json:"year_of_birth"`
}

func (User) TableName() string { return "recommendation_users" }

type Movie struct {
	MovieID     int64  `gorm:"column:movie_id;primaryKey;autoIncrement" json:"movie_id"`
	Title       string `gorm:"column:title;not null" json:"title"`
	Year        int    `gorm:"column:year" json:"year"`
	Genres      string `gorm:"column:genres" json:"genres"`
	Description string `gorm:"column:description" json:"description"`
}

func (Movie) TableName() string { return "recommendation_movies" }

// GenreList splits the '|'-joined wire form into its ordered parts.
func (m *Movie) GenreList() []string {
	if m.Genres == "" {
		return nil
	}
	return strings.Split(m.Genres, "|")
}

// Rating holds one explicit or implicit rating per (user, movie) pair.
// Implicit ratings come from "watched" events and share the key with
// explicit ones; an explicit rating overwrites an implicit one.
type Rating struct {
	UserID     int64     `gorm:"column:user_id;primaryKey" json:"user_id"`
	MovieID    int64     `gorm:"column:movie_id;primaryKey" json:"movie_id"`
	Rating     float64   `gorm:"column:rating" json:"rating"`
	IsImplicit bool      `gorm:"column:is_implicit;not null;default:false" json:"is_implicit"`
	Ts         time.Time `gorm:"column:ts" json:"ts"`
}

func (Rating) TableName() string { return "recommendation_ratings" }

// UserRating is the wire shape for a rating joined with its movie.
type UserRating struct {
	IsImplicit bool      `json:"is_implicit"`
	Rating     float64   `json:"rating"`
	Ts         time.Time `json:"ts"`
	Movie      *Movie    `json:"movie"`
}

// RatedMovie is the wire shape for a popularity-ranked movie.
type RatedMovie struct {
	AvgRating float64 `json:"avg_rating"`
	Votes     int64   `json:"votes"`
	Movie     *Movie  `json:"movie"`
}

// MovieStat is the cached per-movie aggregate over explicit ratings.
type MovieStat struct {
	MovieID    int64
	VoterCount int64
	AvgRating  float64
}
