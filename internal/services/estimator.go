package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	rediscache "github.com/movierec/movierec-backend/internal/clients/redis"
	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/recommender"
	"github.com/movierec/movierec-backend/internal/repos"
)

// EstimatorService is the batch recompute path: it trains the rating model
// over the full rating history, generates per-user top-N candidate lists and
// replaces the cached lists wholesale.
type EstimatorService interface {
	RecomputeRecommendations(ctx context.Context) error
	// FindBestParams runs the offline k-fold grid search and returns the
	// per-metric optimal hyperparameters.
	FindBestParams(ctx context.Context, grid recommender.ParamGrid) (recommender.GridSearchResult, error)
}

type estimatorService struct {
	db         *gorm.DB
	log        *logger.Logger
	ratingRepo repos.RatingRepo
	cache      rediscache.RecCache
	params     recommender.SVDParams
	topN       int
	seed       int64
}

func NewEstimatorService(db *gorm.DB, baseLog *logger.Logger, ratingRepo repos.RatingRepo, cache rediscache.RecCache, params recommender.SVDParams, topN int, seed int64) EstimatorService {
	return &estimatorService{
		db:         db,
		log:        baseLog.With("service", "EstimatorService"),
		ratingRepo: ratingRepo,
		cache:      cache,
		params:     params,
		topN:       topN,
		seed:       seed,
	}
}

func (es *estimatorService) loadDataset(ctx context.Context) ([]recommender.RatingTriple, error) {
	start := time.Now()
	ratings, err := es.ratingRepo.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	triples := make([]recommender.RatingTriple, len(ratings))
	for i, r := range ratings {
		triples[i] = recommender.RatingTriple{UserID: r.UserID, MovieID: r.MovieID, Rating: r.Rating}
	}
	es.log.Info("Dataset loaded", "ratings", len(triples), "elapsed", time.Since(start))
	return triples, nil
}

func (es *estimatorService) RecomputeRecommendations(ctx context.Context) error {
	totalStart := time.Now()

	triples, err := es.loadDataset(ctx)
	if err != nil {
		es.log.Error("Loading dataset failed", "error", err)
		return err
	}

	trainStart := time.Now()
	es.log.Debug("Training final model using whole data set", "params", es.params)
	model, err := recommender.TrainSVD(triples, es.params, es.seed)
	if err != nil {
		es.log.Error("Training failed", "error", err)
		return err
	}
	es.log.Info("Final model trained", "elapsed", time.Since(trainStart))

	topnStart := time.Now()
	es.log.Debug("Scoring anti-testset and selecting top-N...", "top_n", es.topN)
	predictions := recommender.TopN(model, triples, es.topN)
	es.log.Info("Top-N predictions computed", "users", len(predictions), "elapsed", time.Since(topnStart))

	if err := es.cache.SetCandidateLists(ctx, predictions); err != nil {
		es.log.Error("Persisting candidate lists failed", "error", err)
		return err
	}

	es.log.Info("Recommendations recomputed", "top_n", es.topN, "elapsed", time.Since(totalStart))
	return nil
}

func (es *estimatorService) FindBestParams(ctx context.Context, grid recommender.ParamGrid) (recommender.GridSearchResult, error) {
	triples, err := es.loadDataset(ctx)
	if err != nil {
		return recommender.GridSearchResult{}, err
	}

	start := time.Now()
	result, err := recommender.GridSearch(ctx, triples, grid, 3, es.seed, 4)
	if err != nil {
		es.log.Error("Grid search failed", "error", err)
		return recommender.GridSearchResult{}, err
	}
	es.log.Info("Grid search finished",
		"elapsed", time.Since(start),
		"best_rmse", result.BestRMSE,
		"best_rmse_params", result.BestRMSEParams,
		"best_mae", result.BestMAE,
		"best_mae_params", result.BestMAEParams,
	)
	return result, nil
}
