package rating

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/config"
)

// NewEloStrategy builds the Elo strategy described by cfg.
func NewEloStrategy(cfg config.EloConfig) EloStrategy {
	return EloStrategy{
		K:          cfg.K,
		Start:      cfg.Start,
		Difficulty: cfg.Difficulty,
		Min:        cfg.Min,
		Max:        cfg.Max,
	}
}

// NewAggregator returns the aggregator selected by cfg. The database backend keeps
// ratings in process memory when db is nil.
func NewAggregator(cfg config.RatingConfig, db *sqlx.DB, tokenSource TokenSource) (Aggregator, error) {
	strategy := NewEloStrategy(cfg.Elo)
	switch cfg.Backend {
	case config.RatingBackendDatabase, "":
		if db == nil {
			return NewMemoryAggregator(strategy), nil
		}
		return NewDBAggregator(db, strategy), nil
	case config.RatingBackendRemote:
		opts := []RemoteOption{WithTimeout(cfg.Remote.Timeout)}
		if tokenSource != nil {
			opts = append(opts, WithTokenSource(tokenSource))
		}
		return NewRemoteAggregator(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Path, cfg.Remote.RetryAttempts, opts...), nil
	case config.RatingBackendNone:
		return NopAggregator{}, nil
	default:
		return nil, fmt.Errorf("unsupported rating backend %q", cfg.Backend)
	}
}
