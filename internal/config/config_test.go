package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			CORS: CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Database: DatabaseConfig{
			Driver:   DriverMySQL,
			Host:     "localhost",
			Port:     3306,
			Database: "leakdrill",
			Username: "user",
		},
		Scheduling: SchedulingConfig{
			IntervalDays: []int{1, 2, 3, 5, 8, 13, 14},
			RetryAfter:   10 * time.Minute,
		},
		Rating: RatingConfig{
			Backend: RatingBackendDatabase,
			Elo:     EloConfig{K: 32, Start: 1000, Difficulty: 1000, Min: 100, Max: 3000},
			Remote: RemoteRatingConfig{
				Path:          "/rest/v1/rpc/record_skill_outcome",
				RetryAttempts: 3,
				Timeout:       5 * time.Second,
			},
		},
	}
}

func TestConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		env               map[string]string
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name:          "no config file uses defaults",
			configContent: "",
			want:          defaultConfig,
		},
		{
			name: "custom values",
			configContent: `server:
  port: 9090
database:
  driver: postgres
  host: db.internal
  port: 5432
scheduling:
  interval_days: [1, 3, 7]
  retry_after: 5m
rating:
  backend: none
`,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Server.Port = 9090
				cfg.Database.Driver = DriverPostgres
				cfg.Database.Host = "db.internal"
				cfg.Database.Port = 5432
				cfg.Scheduling.IntervalDays = []int{1, 3, 7}
				cfg.Scheduling.RetryAfter = 5 * time.Minute
				cfg.Rating.Backend = RatingBackendNone
				return cfg
			},
		},
		{
			name: "explicit config file path",
			configContent: `database:
  driver: memory
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Database.Driver = DriverMemory
				return cfg
			},
		},
		{
			name:          "secrets come from the environment",
			configContent: "",
			env: map[string]string{
				"DB_PASSWORD":          "db-secret",
				"LEAKDRILL_JWT_SECRET": "jwt-secret",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Database.Password = "db-secret"
				cfg.Auth.JWTSecret = "jwt-secret"
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `server:
  port: 9090
  invalid yaml format here [[[
`,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown database driver",
			configContent: `database:
  driver: sqlite
`,
			wantErrorContains: []string{"invalid configuration", "driver"},
		},
		{
			name: "non-positive interval",
			configContent: `scheduling:
  interval_days: [1, 0, 3]
`,
			wantErrorContains: []string{"invalid configuration", "interval_days"},
		},
		{
			name: "remote rating backend without base url",
			configContent: `rating:
  backend: remote
`,
			wantErrorContains: []string{"rating.remote.base_url is required when the rating backend is remote"},
		},
		{
			name: "missing public key file",
			configContent: `auth:
  public_key_file: /nonexistent/key.pem
`,
			wantErrorContains: []string{"auth.public_key_file must be an existing and readable file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tempDir := t.TempDir()

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "leakdrill.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.configContent), 0644))
			} else {
				if tt.configContent != "" {
					require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644))
				}
				t.Chdir(tempDir)
			}

			loader, err := NewConfigLoader(configPath)
			require.NoError(t, err)
			got, err := loader.Load()

			if len(tt.wantErrorContains) > 0 {
				assert.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}
