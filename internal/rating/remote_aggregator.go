package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"
)

// TokenSource returns the caller's bearer token, if the request carried one.
type TokenSource func(ctx context.Context) (string, bool)

// RemoteAggregator calls a hosted "record outcome" RPC, such as a database function
// exposed by a backend-as-a-service, and returns its snapshot.
type RemoteAggregator struct {
	httpClient       *resty.Client
	path             string
	maxRetryAttempts uint
	tokenSource      TokenSource
}

// RemoteOption configures a RemoteAggregator.
type RemoteOption func(*RemoteAggregator)

// WithTokenSource forwards the caller's token so the remote side can scope the write to the user.
func WithTokenSource(source TokenSource) RemoteOption {
	return func(a *RemoteAggregator) {
		a.tokenSource = source
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(a *RemoteAggregator) {
		a.httpClient.SetTimeout(timeout)
	}
}

type recordOutcomeRequest struct {
	EventID     string    `json:"p_training_event_id,omitempty"`
	UserID      string    `json:"p_user_id"`
	LeakTag     string    `json:"p_leak_tag"`
	IsCorrect   bool      `json:"p_is_correct"`
	PracticedAt time.Time `json:"p_practiced_at"`
}

// NewRemoteAggregator creates a RemoteAggregator posting to baseURL+path.
func NewRemoteAggregator(baseURL, apiKey, path string, retryAttempts uint, opts ...RemoteOption) *RemoteAggregator {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey)
		client.SetAuthToken(apiKey)
	}

	a := &RemoteAggregator{
		httpClient:       client,
		path:             path,
		maxRetryAttempts: retryAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases the underlying HTTP client.
func (a *RemoteAggregator) Close() error {
	return a.httpClient.Close()
}

// Record implements Aggregator. An outcome with an EventID is sent with it as the
// idempotency key, so the remote side applies it once however often it is retried.
// Without one, only requests that never reached the server are retried.
func (a *RemoteAggregator) Record(ctx context.Context, userID string, outcome Outcome) (*Snapshot, error) {
	keyed := outcome.EventID != ""
	var result *Snapshot
	if err := retry.Do(
		func() error {
			snapshot, err := a.record(ctx, userID, outcome)
			if err != nil {
				if !isRetryableError(err, keyed) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = snapshot
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(a.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().Info("Retrying skill rating call",
				"attempt", n+1,
				"leakTag", outcome.LeakTag,
				"error", err)
		}),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *RemoteAggregator) record(ctx context.Context, userID string, outcome Outcome) (*Snapshot, error) {
	req := a.httpClient.R().
		SetContext(ctx).
		SetBody(recordOutcomeRequest{
			EventID:     outcome.EventID,
			UserID:      userID,
			LeakTag:     outcome.LeakTag.String(),
			IsCorrect:   outcome.Correct,
			PracticedAt: outcome.PracticedAt,
		}).
		SetResult(&Snapshot{})
	if outcome.EventID != "" {
		req.SetHeader("Idempotency-Key", outcome.EventID)
	}
	if a.tokenSource != nil {
		if token, ok := a.tokenSource(ctx); ok {
			req.SetAuthToken(token)
		}
	}

	response, err := req.Post(a.path)
	if err != nil {
		return nil, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return nil, &responseError{status: response.StatusCode(), body: response.String()}
	}

	snapshot, ok := response.Result().(*Snapshot)
	if !ok || snapshot == nil {
		return nil, fmt.Errorf("empty skill rating response: %s", response.String())
	}
	if snapshot.LeakTag == "" {
		snapshot.LeakTag = outcome.LeakTag
	}
	return snapshot, nil
}

type responseError struct {
	status int
	body   string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.status, e.body)
}

// isRetryableError reports whether a failed call may be sent again. Rate limiting and
// failed dials never reached the handler. Server errors and other transport failures
// may have been applied, so they are retried only when the call carries an idempotency key.
func isRetryableError(err error, keyed bool) bool {
	if err == nil {
		return false
	}
	var re *responseError
	if errors.As(err, &re) {
		if re.status == http.StatusTooManyRequests {
			return true
		}
		return keyed && re.status >= http.StatusInternalServerError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return keyed
}
