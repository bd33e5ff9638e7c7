package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/repos"
	"github.com/movierec/movierec-backend/internal/types"
)

// fixture bundles an in-memory database with the repos the services need.
type fixture struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	movieRepo  repos.MovieRepo
	ratingRepo repos.RatingRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	log := testLog(t)
	return &fixture{
		db:         db,
		log:        log,
		userRepo:   repos.NewUserRepo(db, log),
		movieRepo:  repos.NewMovieRepo(db, log),
		ratingRepo: repos.NewRatingRepo(db, log),
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.User{}, &types.Movie{}, &types.Rating{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func createUser(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	if err := db.Create(&types.User{UserID: id}).Error; err != nil {
		t.Fatalf("create user %d: %v", id, err)
	}
}

func createMovie(t *testing.T, db *gorm.DB, id int64, title string) {
	t.Helper()
	if err := db.Create(&types.Movie{MovieID: id, Title: title}).Error; err != nil {
		t.Fatalf("create movie %d: %v", id, err)
	}
}

func createRating(t *testing.T, db *gorm.DB, userID, movieID int64, rating float64, implicit bool) {
	t.Helper()
	err := db.Create(&types.Rating{
		UserID:     userID,
		MovieID:    movieID,
		Rating:     rating,
		IsImplicit: implicit,
		Ts:         time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("create rating (%d, %d): %v", userID, movieID, err)
	}
}

func movieIDs(movies []*types.Movie) []int64 {
	ids := make([]int64, len(movies))
	for i, m := range movies {
		ids[i] = m.MovieID
	}
	return ids
}

// fakeCache is an in-memory stand-in for the Redis candidate cache.
type fakeCache struct {
	mu       sync.Mutex
	lists    map[int64][]types.ScoredMovie
	stats    map[int64]types.MovieStat
	counters map[int64]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		lists:    make(map[int64][]types.ScoredMovie),
		stats:    make(map[int64]types.MovieStat),
		counters: make(map[int64]int64),
	}
}

func (f *fakeCache) GetCandidateList(ctx context.Context, userID int64) ([]types.ScoredMovie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.lists[userID]
	if !ok {
		return nil, nil
	}
	out := make([]types.ScoredMovie, len(list))
	copy(out, list)
	return out, nil
}

func (f *fakeCache) SetCandidateLists(ctx context.Context, lists map[int64][]types.ScoredMovie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for userID, list := range lists {
		stored := make([]types.ScoredMovie, len(list))
		copy(stored, list)
		f.lists[userID] = stored
	}
	return nil
}

func (f *fakeCache) GetMovieStat(ctx context.Context, movieID int64) (*types.MovieStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stat, ok := f.stats[movieID]
	if !ok {
		return nil, nil
	}
	return &stat, nil
}

func (f *fakeCache) GetMovieAvg(ctx context.Context, movieID int64) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stat, ok := f.stats[movieID]
	if !ok {
		return 0, false, nil
	}
	return stat.AvgRating, true, nil
}

func (f *fakeCache) SetMovieStats(ctx context.Context, stats []types.MovieStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range stats {
		f.stats[s.MovieID] = s
	}
	return nil
}

func (f *fakeCache) IncrRatingCount(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[userID]++
	return nil
}

func (f *fakeCache) DecrRatingCount(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[userID]--
	return nil
}

func (f *fakeCache) Close() error { return nil }

func (f *fakeCache) counter(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[userID]
}

func (f *fakeCache) candidateList(userID int64) []types.ScoredMovie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[userID]
}
