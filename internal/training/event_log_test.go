package training

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/leak"
)

var columns = []string{
	"id", "user_id", "scenario", "drill_type", "user_answer", "correct_answer", "is_correct",
	"leak_tag", "mistake_tag", "mistake_reason", "created_at",
}

func newMockEventLog(t *testing.T) (*DBEventLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDBEventLog(sqlx.NewDb(db, "mysql")), mock
}

func TestDBEventLog_Append(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := `{"correct_answer":"fold",  "hero_hand":"72o"}`
	scenario, err := drill.ParseScenario(drill.TypeActionDecision, json.RawMessage(raw))
	require.NoError(t, err)

	tag := leak.Tag("overcalling")
	reason := drill.ReasonRange
	event := &Event{
		ID: "e1", UserID: "u1", Scenario: scenario, DrillType: drill.TypeActionDecision,
		UserAnswer: "call", CorrectAnswer: "fold", IsCorrect: false, LeakTag: tag,
		MistakeTag: &tag, MistakeReason: &reason, CreatedAt: now,
	}

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "stores the snapshot verbatim",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO training_events")).
					WithArgs("e1", "u1", raw, "action_decision", "call", "fold", false,
						"overcalling", "overcalling", "range", now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO training_events")).
					WillReturnError(fmt.Errorf("disk full"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, mock := newMockEventLog(t)
			tt.setupMock(mock)

			err := log.Append(context.Background(), event)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBEventLog_FindByID(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := `{"drill_type":"raise_sizing","correct_answer":"3x","board":"AsKd4h"}`
	query := regexp.QuoteMeta("SELECT " + eventColumns + " FROM training_events WHERE id = ?")

	t.Run("decodes the scenario for its drill type", func(t *testing.T) {
		log, mock := newMockEventLog(t)
		rows := sqlmock.NewRows(columns).
			AddRow("e1", "u1", []byte(raw), "raise_sizing", "3x", "3x", true, "open_raise_sizing", nil, nil, now)
		mock.ExpectQuery(query).WithArgs("e1").WillReturnRows(rows)

		got, err := log.FindByID(context.Background(), "e1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, raw, string(got.Scenario.Raw()))
		require.NotNil(t, got.Scenario.RaiseSizing)
		assert.Equal(t, "AsKd4h", got.Scenario.RaiseSizing.Board)
		assert.True(t, got.IsCorrect)
		assert.Nil(t, got.MistakeTag)
		assert.Nil(t, got.MistakeReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		log, mock := newMockEventLog(t)
		mock.ExpectQuery(query).WithArgs("e1").WillReturnRows(sqlmock.NewRows(columns))

		got, err := log.FindByID(context.Background(), "e1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestDBEventLog_FindByUser(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	log, mock := newMockEventLog(t)

	rows := sqlmock.NewRows(columns).
		AddRow("e1", "u1", `{"correct_answer":"raise"}`, "action_decision", "fold", "raise", false, "overfolding", "overfolding", "unknown", now).
		AddRow("e2", "u1", `{"correct_answer":"raise"}`, "action_decision", "raise", "raise", true, "overfolding", nil, nil, now.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM training_events WHERE user_id = ? AND created_at >= ? ORDER BY created_at, id")).
		WithArgs("u1", now.Add(-time.Hour)).
		WillReturnRows(rows)

	got, err := log.FindByUser(context.Background(), "u1", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].MistakeReason)
	assert.Equal(t, drill.ReasonUnknown, *got[0].MistakeReason)
	assert.Equal(t, "raise", got[1].Scenario.CorrectAnswer())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBEventLog_UpdateMistakeReason(t *testing.T) {
	query := regexp.QuoteMeta("UPDATE training_events SET mistake_reason = ? WHERE id = ? AND user_id = ? AND is_correct = ?")

	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  bool
	}{
		{name: "updates one row", affected: 1},
		{name: "unknown id is a no-op", affected: 0},
		{name: "db error", execErr: fmt.Errorf("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, mock := newMockEventLog(t)
			exp := mock.ExpectExec(query).WithArgs("sizing", "e1", "u1", false)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := log.UpdateMistakeReason(context.Background(), "u1", "e1", drill.ReasonSizing)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
