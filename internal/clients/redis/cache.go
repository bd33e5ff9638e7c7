package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/types"
	"github.com/movierec/movierec-backend/internal/utils"
)

// RecCache is the recommendation cache: per-user candidate lists, per-movie
// rating statistics and per-user rating counters. Everything in it is derived
// from the rating store and replaced wholesale by the batch jobs; it is never
// a source of truth.
type RecCache interface {
	GetCandidateList(ctx context.Context, userID int64) ([]types.ScoredMovie, error)
	SetCandidateLists(ctx context.Context, lists map[int64][]types.ScoredMovie) error
	GetMovieStat(ctx context.Context, movieID int64) (*types.MovieStat, error)
	GetMovieAvg(ctx context.Context, movieID int64) (float64, bool, error)
	SetMovieStats(ctx context.Context, stats []types.MovieStat) error
	IncrRatingCount(ctx context.Context, userID int64) error
	DecrRatingCount(ctx context.Context, userID int64) error
	Close() error
}

type recCache struct {
	log       *logger.Logger
	rdb       *goredis.Client
	chunkSize int
}

func NewRecCache(log *logger.Logger) (RecCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	host := utils.GetEnv("REDIS_HOST", "localhost", log)
	port := utils.GetEnv("REDIS_PORT", "6379", log)
	dbNum := utils.GetEnvAsInt("REDIS_DB", 0, log)
	chunkSize := utils.GetEnvAsInt("REDIS_CHUNK_SIZE", 1000, log)
	if chunkSize < 1 {
		chunkSize = 1
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        host + ":" + port,
		DB:          dbNum,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &recCache{
		log:       log.With("client", "RecCache"),
		rdb:       rdb,
		chunkSize: chunkSize,
	}, nil
}

func candidateKey(userID int64) string { return "u" + strconv.FormatInt(userID, 10) }
func countsKey(movieID int64) string {
	return "m" + strconv.FormatInt(movieID, 10) + "#counts"
}
func avgKey(movieID int64) string { return "m" + strconv.FormatInt(movieID, 10) + "#avg" }
func counterKey(userID int64) string {
	return "n_ratings_" + strconv.FormatInt(userID, 10)
}

func (c *recCache) GetCandidateList(ctx context.Context, userID int64) ([]types.ScoredMovie, error) {
	raw, err := c.rdb.Get(ctx, candidateKey(userID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get candidate list: %w", err)
	}
	return decodeCandidateList(raw)
}

func (c *recCache) SetCandidateLists(ctx context.Context, lists map[int64][]types.ScoredMovie) error {
	start := time.Now()

	pipe := c.rdb.TxPipeline()
	counter := 0
	for uid, candidates := range lists {
		pipe.Set(ctx, candidateKey(uid), encodeCandidateList(candidates), 0)
		counter++
		if counter%c.chunkSize == 0 {
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Error("Candidate list chunk write failed, keeping prior chunks", "written", counter-c.chunkSize, "error", err)
				return fmt.Errorf("candidate list chunk write: %w", err)
			}
			c.log.Debug("Current number of keys sent to redis", "count", counter)
			pipe = c.rdb.TxPipeline()
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("Candidate list final chunk write failed", "error", err)
		return fmt.Errorf("candidate list chunk write: %w", err)
	}

	c.log.Info("Candidate lists sent to redis", "keys", counter, "elapsed", time.Since(start))
	return nil
}

func (c *recCache) GetMovieStat(ctx context.Context, movieID int64) (*types.MovieStat, error) {
	counts, err := c.rdb.Get(ctx, countsKey(movieID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get movie counts: %w", err)
	}
	avg, err := c.rdb.Get(ctx, avgKey(movieID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get movie avg: %w", err)
	}

	voterCount, err := strconv.ParseInt(counts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt movie counts value %q: %w", counts, err)
	}
	avgRating, err := strconv.ParseFloat(avg, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt movie avg value %q: %w", avg, err)
	}

	return &types.MovieStat{MovieID: movieID, VoterCount: voterCount, AvgRating: avgRating}, nil
}

func (c *recCache) GetMovieAvg(ctx context.Context, movieID int64) (float64, bool, error) {
	raw, err := c.rdb.Get(ctx, avgKey(movieID)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get movie avg: %w", err)
	}
	avg, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt movie avg value %q: %w", raw, err)
	}
	return avg, true, nil
}

func (c *recCache) SetMovieStats(ctx context.Context, stats []types.MovieStat) error {
	start := time.Now()

	pipe := c.rdb.TxPipeline()
	counter := 0
	for _, stat := range stats {
		pipe.Set(ctx, countsKey(stat.MovieID), strconv.FormatInt(stat.VoterCount, 10), 0)
		pipe.Set(ctx, avgKey(stat.MovieID), strconv.FormatFloat(stat.AvgRating, 'f', -1, 64), 0)
		counter += 2
		if counter%c.chunkSize == 0 {
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Error("Movie stat chunk write failed, keeping prior chunks", "written", counter-c.chunkSize, "error", err)
				return fmt.Errorf("movie stat chunk write: %w", err)
			}
			c.log.Debug("Current number of keys sent to redis", "count", counter)
			pipe = c.rdb.TxPipeline()
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("Movie stat final chunk write failed", "error", err)
		return fmt.Errorf("movie stat chunk write: %w", err)
	}

	c.log.Info("Movie stats sent to redis", "keys", counter, "elapsed", time.Since(start))
	return nil
}

func (c *recCache) IncrRatingCount(ctx context.Context, userID int64) error {
	return c.rdb.Incr(ctx, counterKey(userID)).Err()
}

func (c *recCache) DecrRatingCount(ctx context.Context, userID int64) error {
	return c.rdb.Decr(ctx, counterKey(userID)).Err()
}

func (c *recCache) Close() error {
	return c.rdb.Close()
}

// encodeCandidateList renders a candidate list as "id:score;id:score;...".
func encodeCandidateList(candidates []types.ScoredMovie) string {
	parts := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		parts = append(parts, strconv.FormatInt(cand.MovieID, 10)+":"+strconv.FormatFloat(cand.Score, 'f', 4, 64))
	}
	return strings.Join(parts, ";")
}

// decodeCandidateList parses "id:score;..." values. Bare "id;id;..." values
// from older writers parse with score 0.
func decodeCandidateList(raw string) ([]types.ScoredMovie, error) {
	if raw == "" {
		return []types.ScoredMovie{}, nil
	}
	parts := strings.Split(raw, ";")
	out := make([]types.ScoredMovie, 0, len(parts))
	for _, part := range parts {
		idStr, scoreStr, hasScore := strings.Cut(part, ":")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt candidate list entry %q: %w", part, err)
		}
		var score float64
		if hasScore {
			score, err = strconv.ParseFloat(scoreStr, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt candidate list score %q: %w", part, err)
			}
		}
		out = append(out, types.ScoredMovie{MovieID: id, Score: score})
	}
	return out, nil
}
