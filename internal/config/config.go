package config

import (
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Rating     RatingConfig     `mapstructure:"rating"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql postgres memory"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds" validate:"min=0"`
}

// AuthConfig selects how bearer tokens are verified. Exactly one of the key sources is used,
// checked in the order JWKS URL, public key file, shared secret.
type AuthConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	PublicKeyFile string   `mapstructure:"public_key_file" validate:"omitempty,file"`
	JWKSURL       string   `mapstructure:"jwks_url" validate:"omitempty,url"`
	Issuer        string   `mapstructure:"issuer"`
	Audience      []string `mapstructure:"audience"`
}

type SchedulingConfig struct {
	IntervalDays []int         `mapstructure:"interval_days" validate:"min=1,dive,gt=0"`
	RetryAfter   time.Duration `mapstructure:"retry_after" validate:"min=0"`
}

const (
	RatingBackendDatabase = "database"
	RatingBackendRemote   = "remote"
	RatingBackendNone     = "none"
)

type RatingConfig struct {
	Backend string             `mapstructure:"backend" validate:"oneof=database remote none"`
	Elo     EloConfig          `mapstructure:"elo"`
	Remote  RemoteRatingConfig `mapstructure:"remote"`
}

type EloConfig struct {
	K          float64 `mapstructure:"k" validate:"gt=0"`
	Start      float64 `mapstructure:"start"`
	Difficulty float64 `mapstructure:"difficulty"`
	Min        float64 `mapstructure:"min"`
	Max        float64 `mapstructure:"max" validate:"gtfield=Min"`
}

type RemoteRatingConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey        string        `mapstructure:"api_key"`
	Path          string        `mapstructure:"path"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/leakdrill")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.driver", DriverMySQL)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "leakdrill")
	v.SetDefault("database.username", "user")
	v.SetDefault("scheduling.interval_days", []int{1, 2, 3, 5, 8, 13, 14})
	v.SetDefault("scheduling.retry_after", 10*time.Minute)
	v.SetDefault("rating.backend", RatingBackendDatabase)
	v.SetDefault("rating.elo.k", 32.0)
	v.SetDefault("rating.elo.start", 1000.0)
	v.SetDefault("rating.elo.difficulty", 1000.0)
	v.SetDefault("rating.elo.min", 100.0)
	v.SetDefault("rating.elo.max", 3000.0)
	v.SetDefault("rating.remote.path", "/rest/v1/rpc/record_skill_outcome")
	v.SetDefault("rating.remote.retry_attempts", 3)
	v.SetDefault("rating.remote.timeout", 5*time.Second)

	// Secrets are bound to environment variables so they stay out of config files
	bindings := map[string]string{
		"database.password":      "DB_PASSWORD",
		"auth.jwt_secret":        "LEAKDRILL_JWT_SECRET",
		"auth.jwks_url":          "LEAKDRILL_JWKS_URL",
		"rating.remote.base_url": "RATING_BASE_URL",
		"rating.remote.api_key":  "RATING_API_KEY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
