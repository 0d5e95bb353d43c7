package queue

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
)

var columns = []string{
	"id", "user_id", "leak_tag", "status", "due_at", "repetition", "last_score",
	"last_drill_id", "version", "created_at", "updated_at",
}

func newMockRepository(t *testing.T) (*DBRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDBRepository(sqlx.NewDb(db, "mysql")), mock
}

func TestDBRepository_FindByID(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("SELECT " + entryColumns + " FROM drill_queue WHERE id = ?")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *Entry
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow("q1", "u1", "cbet_sizing", "scheduled", now, 2, 100, "e1", 3, now, now)
				mock.ExpectQuery(query).WithArgs("q1").WillReturnRows(rows)
			},
			want: &Entry{
				ID: "q1", UserID: "u1", LeakTag: "cbet_sizing", Status: schedule.StatusScheduled,
				DueAt: now, Repetition: 2, LastScore: 100, LastDrillID: ptr("e1"), Version: 3,
				CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("q1").WillReturnRows(sqlmock.NewRows(columns))
			},
			want: nil,
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("q1").WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			got, err := repo.FindByID(context.Background(), "q1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_FindDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("SELECT " + entryColumns + " FROM drill_queue WHERE user_id = ? AND due_at <= ? ORDER BY due_at, id LIMIT ?")

	repo, mock := newMockRepository(t)
	rows := sqlmock.NewRows(columns).
		AddRow("q1", "u1", "overfolding", "due", now.Add(-time.Hour), 0, 0, nil, 1, now, now).
		AddRow("q2", "u1", "board_texture", "scheduled", now, 3, 100, "e9", 4, now, now)
	mock.ExpectQuery(query).WithArgs("u1", now, 10).WillReturnRows(rows)

	got, err := repo.FindDue(context.Background(), "u1", now, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].ID)
	assert.Nil(t, got[0].LastDrillID)
	assert.Equal(t, schedule.StatusDue, got[0].Status)
	assert.Equal(t, leak.Tag("board_texture"), got[1].LeakTag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_Create(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := &Entry{
		ID: "q1", UserID: "u1", LeakTag: "stack_depth", Status: schedule.StatusScheduled,
		DueAt: now, CreatedAt: now, UpdatedAt: now,
	}
	query := regexp.QuoteMeta("INSERT INTO drill_queue")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "inserts",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).
					WithArgs("q1", "u1", "stack_depth", "scheduled", now, 0, 0, nil, 0, now, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "mysql duplicate key",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
			wantErr: ErrAlreadyExists,
		},
		{
			name: "postgres unique violation",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: ErrAlreadyExists,
		},
		{
			name: "other failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(fmt.Errorf("connection reset"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			err := repo.Create(context.Background(), entry)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrAlreadyExists)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Advance(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	advance := Advance{
		ID:              "q1",
		UserID:          "u1",
		ExpectedVersion: 7,
		Next:            schedule.Next{Repetition: 3, DueAt: now.Add(72 * time.Hour), Status: schedule.StatusScheduled},
		LastScore:       100,
		LastDrillID:     "e1",
		UpdatedAt:       now,
	}
	query := regexp.QuoteMeta("UPDATE drill_queue")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "advances",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).
					WithArgs("scheduled", now.Add(72*time.Hour), 3, 100, "e1", now, "q1", "u1", int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "stale version",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrVersionConflict,
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(fmt.Errorf("deadlock"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			err := repo.Advance(context.Background(), advance)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrVersionConflict)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
