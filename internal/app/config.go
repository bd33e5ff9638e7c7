package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/movierec/movierec-backend/internal/logger"
	"github.com/movierec/movierec-backend/internal/recommender"
	"github.com/movierec/movierec-backend/internal/utils"
)

type Config struct {
	Port string

	TopN                int
	DefaultRating       float64
	StatUsersLowerLimit int64

	Model     recommender.SVDParams
	ModelSeed int64

	RecomputeInterval time.Duration
	StatsInterval     time.Duration
}

// fileConfig is the optional YAML layer. Environment variables override
// anything set here; the struct carries the hard defaults.
type fileConfig struct {
	Port                 string  `yaml:"port"`
	TopN                 int     `yaml:"top_n"`
	DefaultRating        float64 `yaml:"default_rating"`
	StatUsersLowerLimit  int64   `yaml:"stat_movie_users_lower_limit"`
	ModelNFactors        int     `yaml:"model_n_factors"`
	ModelNEpochs         int     `yaml:"model_n_epochs"`
	ModelLRAll           float64 `yaml:"model_lr_all"`
	ModelRegAll          float64 `yaml:"model_reg_all"`
	ModelSeed            int64   `yaml:"model_seed"`
	RecomputeIntervalMin int     `yaml:"recompute_interval_min"`
	StatsIntervalMin     int     `yaml:"stats_interval_min"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	fc := fileConfig{
		Port:                 "8080",
		TopN:                 20,
		DefaultRating:        3.5,
		StatUsersLowerLimit:  5,
		ModelNFactors:        50,
		ModelNEpochs:         50,
		ModelLRAll:           0.008,
		ModelRegAll:          0.2,
		ModelSeed:            1,
		RecomputeIntervalMin: 15,
		StatsIntervalMin:     30,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg := Config{
		Port:                utils.GetEnv("PORT", fc.Port, log),
		TopN:                utils.GetEnvAsInt("TOP_N", fc.TopN, log),
		DefaultRating:       utils.GetEnvAsFloat("DEFAULT_RATING", fc.DefaultRating, log),
		StatUsersLowerLimit: utils.GetEnvAsInt64("STAT_MOVIE_USERS_LOWER_LIMIT", fc.StatUsersLowerLimit, log),
		Model: recommender.SVDParams{
			NFactors: utils.GetEnvAsInt("MODEL_N_FACTORS", fc.ModelNFactors, log),
			NEpochs:  utils.GetEnvAsInt("MODEL_N_EPOCHS", fc.ModelNEpochs, log),
			LRAll:    utils.GetEnvAsFloat("MODEL_LR_ALL", fc.ModelLRAll, log),
			RegAll:   utils.GetEnvAsFloat("MODEL_REG_ALL", fc.ModelRegAll, log),
		},
		ModelSeed:         utils.GetEnvAsInt64("MODEL_SEED", fc.ModelSeed, log),
		RecomputeInterval: time.Duration(utils.GetEnvAsInt("RECOMPUTE_INTERVAL_MIN", fc.RecomputeIntervalMin, log)) * time.Minute,
		StatsInterval:     time.Duration(utils.GetEnvAsInt("STATS_INTERVAL_MIN", fc.StatsIntervalMin, log)) * time.Minute,
	}
	return cfg, nil
}
