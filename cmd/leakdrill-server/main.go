package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/leakdrill/internal/auth"
	"github.com/at-ishikawa/leakdrill/internal/bootstrap"
	"github.com/at-ishikawa/leakdrill/internal/config"
	"github.com/at-ishikawa/leakdrill/internal/database"
	"github.com/at-ishikawa/leakdrill/internal/rating"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
	"github.com/at-ishikawa/leakdrill/internal/server"
	"github.com/at-ishikawa/leakdrill/internal/trainer"
)

var (
	configFile string
	envFiles   []string
)

func main() {
	var debugMode bool
	rootCmd := &cobra.Command{
		Use:           "leakdrill-server",
		Short:         "Leak drill scheduling service HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return loadEnvFiles(envFiles)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the config")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}

// loadEnvFiles loads the given dotenv files, or ./.env when it exists. Variables already
// set in the environment win.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("godotenv.Load(%v) > %w", files, err)
	}
	return nil
}

func run(ctx context.Context) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	handler, cleanup, err := newHandler(ctx, cfg)
	if err != nil {
		return err
	}
	app.AddShutdownHook(cleanup)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.CORSMiddleware(h2c.NewHandler(handler, &http2.Server{}), cfg.Server.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		slog.Default().Info("Starting server",
			"addr", srv.Addr,
			"database", cfg.Database.Driver,
			"ratingBackend", cfg.Rating.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

// newHandler wires the store, the rating backend and authentication into the drill service.
// cleanup releases what was opened.
func newHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(context.Context) error, error) {
	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.NewVerifier() > %w", err)
	}

	policy, err := schedule.NewPolicy(cfg.Scheduling.IntervalDays, cfg.Scheduling.RetryAfter)
	if err != nil {
		return nil, nil, fmt.Errorf("schedule.NewPolicy() > %w", err)
	}

	s, db, err := database.OpenStore(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database.OpenStore() > %w", err)
	}
	closers := []io.Closer{}
	if db != nil {
		closers = append(closers, db)
	}

	aggregator, err := rating.NewAggregator(cfg.Rating, db, auth.Token)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("rating.NewAggregator() > %w", err), closeAll(closers))
	}
	if c, ok := aggregator.(io.Closer); ok {
		closers = append(closers, c)
	}

	drillHandler, err := server.NewDrillHandler(trainer.New(s, policy, aggregator))
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("server.NewDrillHandler() > %w", err), closeAll(closers))
	}
	path, h := server.NewDrillServiceHandler(drillHandler, connect.WithInterceptors(auth.NewInterceptor(verifier)))

	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux, func(context.Context) error { return closeAll(closers) }, nil
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
