package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
)

// NewEntry returns an entry due at now that has never been attempted.
func NewEntry(id, userID string, tag leak.Tag, now time.Time) Entry {
	return Entry{
		ID:         id,
		UserID:     userID,
		LeakTag:    leak.Normalize(tag.String()),
		Status:     schedule.StatusScheduled,
		DueAt:      now,
		Repetition: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Enqueue stores entry unless the user already has one for the same leak.
// It returns the stored entry and whether it was created by this call.
func Enqueue(ctx context.Context, repo Repository, entry Entry) (*Entry, bool, error) {
	existing, err := repo.FindByUserAndLeak(ctx, entry.UserID, entry.LeakTag)
	if err != nil {
		return nil, false, fmt.Errorf("FindByUserAndLeak(%s, %s) > %w", entry.UserID, entry.LeakTag, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	err = repo.Create(ctx, &entry)
	if errors.Is(err, ErrAlreadyExists) {
		existing, err = repo.FindByUserAndLeak(ctx, entry.UserID, entry.LeakTag)
		if err != nil {
			return nil, false, fmt.Errorf("FindByUserAndLeak(%s, %s) > %w", entry.UserID, entry.LeakTag, err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("entry for %s vanished after a duplicate insert", entry.LeakTag)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Create() > %w", err)
	}
	return &entry, true, nil
}
