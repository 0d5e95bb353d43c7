// Package rating maintains the rolling per-leak proficiency statistics of a user.
//
// The engine only depends on the Aggregator contract. How the rating number moves
// is a Strategy, so the formula can be swapped without touching callers.
package rating

import (
	"context"
	"math"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/leak"
)

//go:generate mockgen -source=rating.go -destination=../mocks/rating/mock_rating.go -package=mock_rating

// Outcome is what the engine reports after grading one attempt.
type Outcome struct {
	// EventID is the training event being recorded. Aggregators use it to apply an outcome once.
	EventID     string
	LeakTag     leak.Tag
	Correct     bool
	PracticedAt time.Time
}

// Snapshot is the aggregated state of one leak after an outcome is recorded.
type Snapshot struct {
	LeakTag        leak.Tag   `json:"leak_tag" yaml:"leak_tag"`
	Rating         float64    `json:"rating" yaml:"rating"`
	StreakCorrect  int        `json:"streak_correct" yaml:"streak_correct"`
	Attempts7d     int        `json:"attempts_7d" yaml:"attempts_7d"`
	Correct7d      int        `json:"correct_7d" yaml:"correct_7d"`
	Attempts30d    int        `json:"attempts_30d" yaml:"attempts_30d"`
	Correct30d     int        `json:"correct_30d" yaml:"correct_30d"`
	TotalAttempts  int        `json:"total_attempts" yaml:"total_attempts"`
	TotalCorrect   int        `json:"total_correct" yaml:"total_correct"`
	LastPracticeAt *time.Time `json:"last_practice_at,omitempty" yaml:"last_practice_at,omitempty"`
	LastMistakeAt  *time.Time `json:"last_mistake_at,omitempty" yaml:"last_mistake_at,omitempty"`
}

// Aggregator records an outcome and returns the updated statistics atomically.
// A nil snapshot with a nil error means the aggregator has nothing to report.
type Aggregator interface {
	Record(ctx context.Context, userID string, outcome Outcome) (*Snapshot, error)
}

// Strategy decides how the rating moves after one outcome.
type Strategy interface {
	Initial() float64
	Next(current float64, correct bool) float64
}

const (
	Window7d  = 7 * 24 * time.Hour
	Window30d = 30 * 24 * time.Hour
)

// EloStrategy scores each attempt as a game against a drill of fixed difficulty.
type EloStrategy struct {
	K          float64
	Start      float64
	Difficulty float64
	Min        float64
	Max        float64
}

// DefaultStrategy returns the Elo strategy used when nothing else is configured.
func DefaultStrategy() EloStrategy {
	return EloStrategy{K: 32, Start: 1000, Difficulty: 1000, Min: 100, Max: 3000}
}

func (s EloStrategy) Initial() float64 {
	return s.Start
}

func (s EloStrategy) Next(current float64, correct bool) float64 {
	expected := 1 / (1 + math.Pow(10, (s.Difficulty-current)/400))
	score := 0.0
	if correct {
		score = 1
	}
	next := math.Round(current + s.K*(score-expected))
	return math.Min(s.Max, math.Max(s.Min, next))
}

// Apply folds one outcome into the cumulative part of a snapshot: rating, streak,
// totals and last timestamps. Window counts are left to the caller.
func Apply(prev Snapshot, outcome Outcome, strategy Strategy) Snapshot {
	next := prev
	next.LeakTag = outcome.LeakTag
	next.Rating = strategy.Next(prev.Rating, outcome.Correct)
	next.TotalAttempts++

	practicedAt := outcome.PracticedAt
	next.LastPracticeAt = &practicedAt
	if outcome.Correct {
		next.StreakCorrect++
		next.TotalCorrect++
	} else {
		next.StreakCorrect = 0
		next.LastMistakeAt = &practicedAt
	}
	return next
}

// NewSnapshot returns the empty state of a leak that has never been practiced.
func NewSnapshot(tag leak.Tag, strategy Strategy) Snapshot {
	return Snapshot{LeakTag: tag, Rating: strategy.Initial()}
}

// NopAggregator records nothing and reports no snapshot.
type NopAggregator struct{}

func (NopAggregator) Record(context.Context, string, Outcome) (*Snapshot, error) {
	return nil, nil
}
