package rating

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/leakdrill/internal/config"
)

func TestNewEloStrategy(t *testing.T) {
	got := NewEloStrategy(config.EloConfig{K: 16, Start: 1200, Difficulty: 1100, Min: 0, Max: 2400})
	assert.Equal(t, EloStrategy{K: 16, Start: 1200, Difficulty: 1100, Min: 0, Max: 2400}, got)
}

func TestNewAggregator(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	elo := config.EloConfig{K: 32, Start: 1000, Difficulty: 1000, Min: 100, Max: 3000}

	tests := []struct {
		name    string
		cfg     config.RatingConfig
		db      *sqlx.DB
		check   func(t *testing.T, a Aggregator)
		wantErr bool
	}{
		{
			name: "database",
			cfg:  config.RatingConfig{Backend: config.RatingBackendDatabase, Elo: elo},
			db:   db,
			check: func(t *testing.T, a Aggregator) {
				assert.IsType(t, &DBAggregator{}, a)
			},
		},
		{
			name: "database without a connection keeps ratings in memory",
			cfg:  config.RatingConfig{Backend: config.RatingBackendDatabase, Elo: elo},
			check: func(t *testing.T, a Aggregator) {
				assert.IsType(t, &MemoryAggregator{}, a)
			},
		},
		{
			name: "remote",
			cfg: config.RatingConfig{
				Backend: config.RatingBackendRemote,
				Elo:     elo,
				Remote:  config.RemoteRatingConfig{BaseURL: "https://ratings.example.com", Path: "/rpc", RetryAttempts: 2, Timeout: time.Second},
			},
			check: func(t *testing.T, a Aggregator) {
				remote, ok := a.(*RemoteAggregator)
				require.True(t, ok)
				assert.NoError(t, remote.Close())
			},
		},
		{
			name: "none",
			cfg:  config.RatingConfig{Backend: config.RatingBackendNone},
			check: func(t *testing.T, a Aggregator) {
				assert.Equal(t, NopAggregator{}, a)
			},
		},
		{
			name:    "unknown",
			cfg:     config.RatingConfig{Backend: "spreadsheet"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAggregator(tt.cfg, tt.db, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}
