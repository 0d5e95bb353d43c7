// Package training provides the append-only log of graded drill attempts.
package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/leak"
)

//go:generate mockgen -source=event_log.go -destination=../mocks/training/mock_event_log.go -package=mock_training

// ErrEventExists is returned by Append when an event with the same id was already written.
var ErrEventExists = errors.New("training: event already exists")

// Event is one graded attempt. Only MistakeReason may change after it is written.
type Event struct {
	ID            string               `db:"id" json:"id" yaml:"id"`
	UserID        string               `db:"user_id" json:"user_id" yaml:"user_id"`
	Scenario      drill.Scenario       `db:"scenario" json:"scenario" yaml:"-"`
	DrillType     drill.Type           `db:"drill_type" json:"drill_type" yaml:"drill_type"`
	UserAnswer    string               `db:"user_answer" json:"user_answer" yaml:"user_answer"`
	CorrectAnswer string               `db:"correct_answer" json:"correct_answer" yaml:"correct_answer"`
	IsCorrect     bool                 `db:"is_correct" json:"is_correct" yaml:"is_correct"`
	LeakTag       leak.Tag             `db:"leak_tag" json:"leak_tag" yaml:"leak_tag"`
	MistakeTag    *leak.Tag            `db:"mistake_tag" json:"mistake_tag" yaml:"mistake_tag"`
	MistakeReason *drill.MistakeReason `db:"mistake_reason" json:"mistake_reason" yaml:"mistake_reason"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at" yaml:"created_at"`
}

// EventLog defines operations on the training event log. There is no delete.
type EventLog interface {
	Append(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id string) (*Event, error)
	FindByUser(ctx context.Context, userID string, since time.Time) ([]Event, error)
	UpdateMistakeReason(ctx context.Context, userID, id string, reason drill.MistakeReason) error
}

const eventColumns = "id, user_id, scenario, drill_type, user_answer, correct_answer, is_correct, leak_tag, mistake_tag, mistake_reason, created_at"

// DBEventLog implements EventLog on top of a *sqlx.DB or *sqlx.Tx.
type DBEventLog struct {
	db sqlx.ExtContext
}

// NewDBEventLog creates a new DBEventLog.
func NewDBEventLog(db sqlx.ExtContext) *DBEventLog {
	return &DBEventLog{db: db}
}

// Append inserts a new event.
func (l *DBEventLog) Append(ctx context.Context, e *Event) error {
	if _, err := l.db.ExecContext(ctx,
		l.db.Rebind(`INSERT INTO training_events (id, user_id, scenario, drill_type, user_answer, correct_answer, is_correct, leak_tag, mistake_tag, mistake_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.UserID, e.Scenario, e.DrillType, e.UserAnswer, e.CorrectAnswer, e.IsCorrect,
		e.LeakTag, e.MistakeTag, e.MistakeReason, e.CreatedAt); err != nil {
		return fmt.Errorf("db.ExecContext(insert training_event) > %w", err)
	}
	return nil
}

// FindByID returns the event with id, or nil if not found.
func (l *DBEventLog) FindByID(ctx context.Context, id string) (*Event, error) {
	var e Event
	err := sqlx.GetContext(ctx, l.db, &e,
		l.db.Rebind("SELECT "+eventColumns+" FROM training_events WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(training_event) > %w", err)
	}
	if err := e.Scenario.Decode(e.DrillType); err != nil {
		return nil, fmt.Errorf("decode scenario of training_event %s > %w", e.ID, err)
	}
	return &e, nil
}

// FindByUser returns a user's events created at or after since, oldest first.
func (l *DBEventLog) FindByUser(ctx context.Context, userID string, since time.Time) ([]Event, error) {
	var events []Event
	if err := sqlx.SelectContext(ctx, l.db, &events,
		l.db.Rebind("SELECT "+eventColumns+" FROM training_events WHERE user_id = ? AND created_at >= ? ORDER BY created_at, id"),
		userID, since); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(training_events by user) > %w", err)
	}
	for i := range events {
		if err := events[i].Scenario.Decode(events[i].DrillType); err != nil {
			return nil, fmt.Errorf("decode scenario of training_event %s > %w", events[i].ID, err)
		}
	}
	return events, nil
}

// UpdateMistakeReason sets the reason of one of the user's missed attempts.
// Unknown ids, other users' events and correct attempts are left untouched without error.
func (l *DBEventLog) UpdateMistakeReason(ctx context.Context, userID, id string, reason drill.MistakeReason) error {
	if _, err := l.db.ExecContext(ctx,
		l.db.Rebind("UPDATE training_events SET mistake_reason = ? WHERE id = ? AND user_id = ? AND is_correct = ?"),
		reason, id, userID, false); err != nil {
		return fmt.Errorf("db.ExecContext(update training_event mistake_reason) > %w", err)
	}
	return nil
}
