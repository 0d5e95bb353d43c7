package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_queue "github.com/at-ishikawa/leakdrill/internal/mocks/queue"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
)

var enqueueAt = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func TestNewEntry(t *testing.T) {
	got := queue.NewEntry("q1", "u1", "Three-Bet Defense", enqueueAt)
	assert.Equal(t, queue.Entry{
		ID:        "q1",
		UserID:    "u1",
		LeakTag:   "three_bet_defense",
		Status:    schedule.StatusScheduled,
		DueAt:     enqueueAt,
		CreatedAt: enqueueAt,
		UpdatedAt: enqueueAt,
	}, got)
}

func TestEnqueue(t *testing.T) {
	entry := queue.NewEntry("q-new", "u1", "overfolding", enqueueAt)
	existing := queue.NewEntry("q-old", "u1", "overfolding", enqueueAt.Add(-time.Hour))

	tests := []struct {
		name        string
		setup       func(repo *mock_queue.MockRepository)
		wantID      string
		wantCreated bool
		wantErr     bool
	}{
		{
			name: "creates a new entry",
			setup: func(repo *mock_queue.MockRepository) {
				repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(nil, nil)
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantID:      "q-new",
			wantCreated: true,
		},
		{
			name: "returns the existing entry",
			setup: func(repo *mock_queue.MockRepository) {
				repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(&existing, nil)
			},
			wantID: "q-old",
		},
		{
			name: "returns the winner of a concurrent insert",
			setup: func(repo *mock_queue.MockRepository) {
				gomock.InOrder(
					repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(nil, nil),
					repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(queue.ErrAlreadyExists),
					repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(&existing, nil),
				)
			},
			wantID: "q-old",
		},
		{
			name: "lookup fails",
			setup: func(repo *mock_queue.MockRepository) {
				repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(nil, errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "insert fails",
			setup: func(repo *mock_queue.MockRepository) {
				repo.EXPECT().FindByUserAndLeak(gomock.Any(), "u1", entry.LeakTag).Return(nil, nil)
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("read-only"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mock_queue.NewMockRepository(ctrl)
			tt.setup(repo)

			got, created, err := queue.Enqueue(context.Background(), repo, entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantCreated, created)
		})
	}
}
