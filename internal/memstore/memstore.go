// Package memstore implements store.Store in process memory, for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/store"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

type data struct {
	entries map[string]queue.Entry
	events  map[string]training.Event
}

func newData() *data {
	return &data{
		entries: make(map[string]queue.Entry),
		events:  make(map[string]training.Event),
	}
}

func (d *data) clone() *data {
	c := &data{
		entries: make(map[string]queue.Entry, len(d.entries)),
		events:  make(map[string]training.Event, len(d.events)),
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.events {
		c.events[k] = v
	}
	return c
}

// accessor serializes access to a data set.
type accessor interface {
	read(fn func(d *data) error) error
	write(fn func(d *data) error) error
}

// Store keeps queue entries and training events in maps guarded by a mutex.
// A transaction works on a copy that replaces the live data on commit.
type Store struct {
	mu   sync.RWMutex
	data *data
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) read(fn func(d *data) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Queue returns a queue repository outside any transaction.
func (s *Store) Queue() queue.Repository {
	return &queueRepository{access: s}
}

// Events returns an event log outside any transaction.
func (s *Store) Events() training.EventLog {
	return &eventLog{access: s}
}

// InTx holds the write lock while fn runs, so transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &txView{data: s.data.clone()}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	s.data = staged.data
	return nil
}

type txView struct {
	data *data
}

func (v *txView) read(fn func(d *data) error) error  { return fn(v.data) }
func (v *txView) write(fn func(d *data) error) error { return fn(v.data) }

func (v *txView) Queue() queue.Repository   { return &queueRepository{access: v} }
func (v *txView) Events() training.EventLog { return &eventLog{access: v} }

type queueRepository struct {
	access accessor
}

func (r *queueRepository) FindByID(_ context.Context, id string) (*queue.Entry, error) {
	var found *queue.Entry
	err := r.access.read(func(d *data) error {
		if e, ok := d.entries[id]; ok {
			found = &e
		}
		return nil
	})
	return found, err
}

func (r *queueRepository) FindByUserAndLeak(_ context.Context, userID string, tag leak.Tag) (*queue.Entry, error) {
	var found *queue.Entry
	err := r.access.read(func(d *data) error {
		for _, e := range d.entries {
			if e.UserID == userID && e.LeakTag == tag {
				found = &e
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *queueRepository) FindByUser(_ context.Context, userID string) ([]queue.Entry, error) {
	var entries []queue.Entry
	err := r.access.read(func(d *data) error {
		for _, e := range d.entries {
			if e.UserID == userID {
				entries = append(entries, e)
			}
		}
		return nil
	})
	sortEntries(entries)
	return entries, err
}

func (r *queueRepository) FindDue(_ context.Context, userID string, now time.Time, limit int) ([]queue.Entry, error) {
	var entries []queue.Entry
	err := r.access.read(func(d *data) error {
		for _, e := range d.entries {
			if e.UserID == userID && !e.DueAt.After(now) {
				entries = append(entries, e)
			}
		}
		return nil
	})
	sortEntries(entries)
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, err
}

func sortEntries(entries []queue.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].DueAt.Equal(entries[j].DueAt) {
			return entries[i].DueAt.Before(entries[j].DueAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

func (r *queueRepository) Create(_ context.Context, entry *queue.Entry) error {
	return r.access.write(func(d *data) error {
		for _, e := range d.entries {
			if e.UserID == entry.UserID && e.LeakTag == entry.LeakTag {
				return queue.ErrAlreadyExists
			}
		}
		d.entries[entry.ID] = *entry
		return nil
	})
}

func (r *queueRepository) Advance(_ context.Context, a queue.Advance) error {
	return r.access.write(func(d *data) error {
		e, ok := d.entries[a.ID]
		if !ok || e.UserID != a.UserID || e.Version != a.ExpectedVersion {
			return queue.ErrVersionConflict
		}
		drillID := a.LastDrillID
		e.Status = a.Next.Status
		e.DueAt = a.Next.DueAt
		e.Repetition = a.Next.Repetition
		e.LastScore = a.LastScore
		e.LastDrillID = &drillID
		e.Version++
		e.UpdatedAt = a.UpdatedAt
		d.entries[a.ID] = e
		return nil
	})
}

type eventLog struct {
	access accessor
}

func (l *eventLog) Append(_ context.Context, event *training.Event) error {
	return l.access.write(func(d *data) error {
		if _, ok := d.events[event.ID]; ok {
			return fmt.Errorf("event %s: %w", event.ID, training.ErrEventExists)
		}
		d.events[event.ID] = *event
		return nil
	})
}

func (l *eventLog) FindByID(_ context.Context, id string) (*training.Event, error) {
	var found *training.Event
	err := l.access.read(func(d *data) error {
		if e, ok := d.events[id]; ok {
			found = &e
		}
		return nil
	})
	return found, err
}

func (l *eventLog) FindByUser(_ context.Context, userID string, since time.Time) ([]training.Event, error) {
	var events []training.Event
	err := l.access.read(func(d *data) error {
		for _, e := range d.events {
			if e.UserID == userID && !e.CreatedAt.Before(since) {
				events = append(events, e)
			}
		}
		return nil
	})
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, err
}

func (l *eventLog) UpdateMistakeReason(_ context.Context, userID, id string, reason drill.MistakeReason) error {
	return l.access.write(func(d *data) error {
		e, ok := d.events[id]
		if !ok || e.UserID != userID || e.IsCorrect {
			return nil
		}
		e.MistakeReason = &reason
		d.events[id] = e
		return nil
	})
}
