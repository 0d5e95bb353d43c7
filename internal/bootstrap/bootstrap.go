// Package bootstrap provides application lifecycle helpers.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const DefaultShutdownTimeout = 10 * time.Second

// App runs a service and releases its resources through shutdown hooks.
type App struct {
	mu              sync.Mutex
	hooks           []func(ctx context.Context) error
	shutdownTimeout time.Duration
}

// Option configures an App.
type Option func(*App)

// WithShutdownTimeout bounds how long the shutdown hooks may take together.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		a.shutdownTimeout = d
	}
}

// New creates a new App.
func New(opts ...Option) *App {
	a := &App{shutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddShutdownHook registers a function to call during shutdown.
// Hooks run in reverse order (LIFO). Thread-safe.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run executes run until it returns or the process receives SIGINT or SIGTERM.
// The shutdown hooks run exactly once either way. The error of run is joined with
// the hook errors.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Default().Info("Shutting down", "timeout", a.shutdownTimeout)
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelShutdown()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
