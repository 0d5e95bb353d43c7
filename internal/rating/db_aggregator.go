package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/leak"
)

type ratingRow struct {
	UserID         string     `db:"user_id"`
	LeakTag        leak.Tag   `db:"leak_tag"`
	Rating         float64    `db:"rating"`
	StreakCorrect  int        `db:"streak_correct"`
	TotalAttempts  int        `db:"total_attempts"`
	TotalCorrect   int        `db:"total_correct"`
	LastPracticeAt *time.Time `db:"last_practice_at"`
	LastMistakeAt  *time.Time `db:"last_mistake_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type windowCount struct {
	Attempts int `db:"attempts"`
	Correct  int `db:"correct"`
}

const ratingColumns = "user_id, leak_tag, rating, streak_correct, total_attempts, total_correct, last_practice_at, last_mistake_at, updated_at"

// DBAggregator keeps cumulative statistics in skill_ratings and counts the
// rolling windows from training_events.
type DBAggregator struct {
	db       *sqlx.DB
	strategy Strategy
}

// NewDBAggregator creates a new DBAggregator.
func NewDBAggregator(db *sqlx.DB, strategy Strategy) *DBAggregator {
	return &DBAggregator{db: db, strategy: strategy}
}

// Record implements Aggregator. The row is created before it is locked, so two
// first outcomes for the same leak serialize on the row instead of racing to insert it.
func (a *DBAggregator) Record(ctx context.Context, userID string, outcome Outcome) (*Snapshot, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := a.ensureRow(ctx, tx, userID, outcome.LeakTag, outcome.PracticedAt); err != nil {
		return nil, err
	}

	var row ratingRow
	if err := tx.GetContext(ctx, &row,
		tx.Rebind("SELECT "+ratingColumns+" FROM skill_ratings WHERE user_id = ? AND leak_tag = ? FOR UPDATE"),
		userID, outcome.LeakTag); err != nil {
		return nil, fmt.Errorf("tx.GetContext(skill_ratings) > %w", err)
	}

	next := Apply(row.snapshot(), outcome, a.strategy)
	if err := a.save(ctx, tx, userID, next, outcome.PracticedAt); err != nil {
		return nil, err
	}

	if err := a.fillWindows(ctx, tx, userID, &next, outcome.PracticedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit() > %w", err)
	}
	return &next, nil
}

// ensureRow inserts the initial snapshot unless the row already exists.
func (a *DBAggregator) ensureRow(ctx context.Context, tx *sqlx.Tx, userID string, tag leak.Tag, now time.Time) error {
	query := `INSERT INTO skill_ratings (` + ratingColumns + `)
		VALUES (?, ?, ?, 0, 0, 0, NULL, NULL, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`
	if sqlx.BindType(tx.DriverName()) == sqlx.DOLLAR {
		query = `INSERT INTO skill_ratings (` + ratingColumns + `)
		VALUES (?, ?, ?, 0, 0, 0, NULL, NULL, ?)
		ON CONFLICT (user_id, leak_tag) DO NOTHING`
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), userID, tag, a.strategy.Initial(), now); err != nil {
		return fmt.Errorf("tx.ExecContext(insert skill_ratings) > %w", err)
	}
	return nil
}

func (a *DBAggregator) save(ctx context.Context, tx *sqlx.Tx, userID string, s Snapshot, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE skill_ratings
		SET rating = ?, streak_correct = ?, total_attempts = ?, total_correct = ?, last_practice_at = ?, last_mistake_at = ?, updated_at = ?
		WHERE user_id = ? AND leak_tag = ?`),
		s.Rating, s.StreakCorrect, s.TotalAttempts, s.TotalCorrect, s.LastPracticeAt, s.LastMistakeAt, now,
		userID, s.LeakTag); err != nil {
		return fmt.Errorf("tx.ExecContext(update skill_ratings) > %w", err)
	}
	return nil
}

func (a *DBAggregator) fillWindows(ctx context.Context, tx *sqlx.Tx, userID string, s *Snapshot, at time.Time) error {
	query := tx.Rebind(`SELECT COUNT(*) AS attempts, COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct
		FROM training_events WHERE user_id = ? AND leak_tag = ? AND created_at > ?`)

	var week, month windowCount
	if err := tx.GetContext(ctx, &week, query, userID, s.LeakTag, at.Add(-Window7d)); err != nil {
		return fmt.Errorf("tx.GetContext(7d window) > %w", err)
	}
	if err := tx.GetContext(ctx, &month, query, userID, s.LeakTag, at.Add(-Window30d)); err != nil {
		return fmt.Errorf("tx.GetContext(30d window) > %w", err)
	}
	s.Attempts7d, s.Correct7d = week.Attempts, week.Correct
	s.Attempts30d, s.Correct30d = month.Attempts, month.Correct
	return nil
}

func (r ratingRow) snapshot() Snapshot {
	return Snapshot{
		LeakTag:        r.LeakTag,
		Rating:         r.Rating,
		StreakCorrect:  r.StreakCorrect,
		TotalAttempts:  r.TotalAttempts,
		TotalCorrect:   r.TotalCorrect,
		LastPracticeAt: r.LastPracticeAt,
		LastMistakeAt:  r.LastMistakeAt,
	}
}
