// Package queue provides the per-(user, leak) drill scheduling records and their repository.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
)

//go:generate mockgen -source=repository.go -destination=../mocks/queue/mock_repository.go -package=mock_queue

// ErrVersionConflict is returned by Advance when the row moved on since it was read.
var ErrVersionConflict = errors.New("queue: entry was modified concurrently")

// ErrAlreadyExists is returned by Create when the user already has an entry for the leak.
var ErrAlreadyExists = errors.New("queue: entry already exists")

// Entry is the current scheduling state of one leak for one user.
type Entry struct {
	ID          string          `db:"id" json:"id" yaml:"id"`
	UserID      string          `db:"user_id" json:"user_id" yaml:"user_id"`
	LeakTag     leak.Tag        `db:"leak_tag" json:"leak_tag" yaml:"leak_tag"`
	Status      schedule.Status `db:"status" json:"status" yaml:"status"`
	DueAt       time.Time       `db:"due_at" json:"due_at" yaml:"due_at"`
	Repetition  int             `db:"repetition" json:"repetition" yaml:"repetition"`
	LastScore   int             `db:"last_score" json:"last_score" yaml:"last_score"`
	LastDrillID *string         `db:"last_drill_id" json:"last_drill_id,omitempty" yaml:"last_drill_id,omitempty"`
	Version     int64           `db:"version" json:"-" yaml:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// Advance moves an entry to its next schedule after a graded attempt.
// It applies only while the row is still at ExpectedVersion.
type Advance struct {
	ID              string
	UserID          string
	ExpectedVersion int64
	Next            schedule.Next
	LastScore       int
	LastDrillID     string
	UpdatedAt       time.Time
}

// Repository defines operations on drill queue entries.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Entry, error)
	FindByUserAndLeak(ctx context.Context, userID string, tag leak.Tag) (*Entry, error)
	FindByUser(ctx context.Context, userID string) ([]Entry, error)
	FindDue(ctx context.Context, userID string, now time.Time, limit int) ([]Entry, error)
	Create(ctx context.Context, entry *Entry) error
	Advance(ctx context.Context, advance Advance) error
}

const entryColumns = "id, user_id, leak_tag, status, due_at, repetition, last_score, last_drill_id, version, created_at, updated_at"

// DBRepository implements Repository on top of a *sqlx.DB or *sqlx.Tx.
type DBRepository struct {
	db sqlx.ExtContext
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db sqlx.ExtContext) *DBRepository {
	return &DBRepository{db: db}
}

// FindByID returns the entry with id, or nil if not found.
func (r *DBRepository) FindByID(ctx context.Context, id string) (*Entry, error) {
	var entry Entry
	err := sqlx.GetContext(ctx, r.db, &entry,
		r.db.Rebind("SELECT "+entryColumns+" FROM drill_queue WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(drill_queue by id) > %w", err)
	}
	return &entry, nil
}

// FindByUserAndLeak returns the user's entry for tag, or nil if not found.
func (r *DBRepository) FindByUserAndLeak(ctx context.Context, userID string, tag leak.Tag) (*Entry, error) {
	var entry Entry
	err := sqlx.GetContext(ctx, r.db, &entry,
		r.db.Rebind("SELECT "+entryColumns+" FROM drill_queue WHERE user_id = ? AND leak_tag = ?"),
		userID, tag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(drill_queue by user and leak) > %w", err)
	}
	return &entry, nil
}

// FindByUser returns every entry of a user ordered by due time.
func (r *DBRepository) FindByUser(ctx context.Context, userID string) ([]Entry, error) {
	var entries []Entry
	if err := sqlx.SelectContext(ctx, r.db, &entries,
		r.db.Rebind("SELECT "+entryColumns+" FROM drill_queue WHERE user_id = ? ORDER BY due_at, id"),
		userID); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(drill_queue by user) > %w", err)
	}
	return entries, nil
}

// FindDue returns up to limit entries of a user that are due at now, earliest first.
func (r *DBRepository) FindDue(ctx context.Context, userID string, now time.Time, limit int) ([]Entry, error) {
	var entries []Entry
	if err := sqlx.SelectContext(ctx, r.db, &entries,
		r.db.Rebind("SELECT "+entryColumns+" FROM drill_queue WHERE user_id = ? AND due_at <= ? ORDER BY due_at, id LIMIT ?"),
		userID, now, limit); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(due drill_queue) > %w", err)
	}
	return entries, nil
}

// Create inserts a new entry.
func (r *DBRepository) Create(ctx context.Context, entry *Entry) error {
	if _, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO drill_queue (id, user_id, leak_tag, status, due_at, repetition, last_score, last_drill_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.UserID, entry.LeakTag, entry.Status, entry.DueAt, entry.Repetition,
		entry.LastScore, entry.LastDrillID, entry.Version, entry.CreatedAt, entry.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("db.ExecContext(insert drill_queue) > %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // ER_DUP_ENTRY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Advance writes the next schedule if the row is still owned by the user and at the expected version.
func (r *DBRepository) Advance(ctx context.Context, a Advance) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE drill_queue
		SET status = ?, due_at = ?, repetition = ?, last_score = ?, last_drill_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND version = ?`),
		a.Next.Status, a.Next.DueAt, a.Next.Repetition, a.LastScore, a.LastDrillID, a.UpdatedAt,
		a.ID, a.UserID, a.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("db.ExecContext(advance drill_queue) > %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
