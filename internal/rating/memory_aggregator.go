package rating

import (
	"context"
	"sync"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/leak"
)

type ratingKey struct {
	userID string
	tag    leak.Tag
}

type practice struct {
	at      time.Time
	correct bool
}

// MemoryAggregator keeps statistics in process memory. It backs the in-memory store.
type MemoryAggregator struct {
	strategy Strategy

	mu        sync.Mutex
	snapshots map[ratingKey]Snapshot
	history   map[ratingKey][]practice
}

// NewMemoryAggregator creates a new MemoryAggregator.
func NewMemoryAggregator(strategy Strategy) *MemoryAggregator {
	return &MemoryAggregator{
		strategy:  strategy,
		snapshots: make(map[ratingKey]Snapshot),
		history:   make(map[ratingKey][]practice),
	}
}

// Record implements Aggregator.
func (a *MemoryAggregator) Record(_ context.Context, userID string, outcome Outcome) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := ratingKey{userID: userID, tag: outcome.LeakTag}
	prev, ok := a.snapshots[key]
	if !ok {
		prev = NewSnapshot(outcome.LeakTag, a.strategy)
	}
	next := Apply(prev, outcome, a.strategy)

	a.history[key] = appendRecent(a.history[key], practice{at: outcome.PracticedAt, correct: outcome.Correct})
	next.Attempts7d, next.Correct7d = countWindow(a.history[key], outcome.PracticedAt.Add(-Window7d))
	next.Attempts30d, next.Correct30d = countWindow(a.history[key], outcome.PracticedAt.Add(-Window30d))

	a.snapshots[key] = next
	return &next, nil
}

// appendRecent adds p and drops practices that fell out of the widest window.
func appendRecent(history []practice, p practice) []practice {
	cutoff := p.at.Add(-Window30d)
	kept := history[:0]
	for _, h := range history {
		if h.at.After(cutoff) {
			kept = append(kept, h)
		}
	}
	return append(kept, p)
}

func countWindow(history []practice, after time.Time) (attempts, correct int) {
	for _, p := range history {
		if !p.at.After(after) {
			continue
		}
		attempts++
		if p.correct {
			correct++
		}
	}
	return attempts, correct
}
