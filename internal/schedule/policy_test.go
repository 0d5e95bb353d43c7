package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func TestPolicy_Apply(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	tests := []struct {
		name       string
		repetition int
		correct    bool
		want       Next
	}{
		{
			name:       "first correct answer is due in one day",
			repetition: 0,
			correct:    true,
			want:       Next{Repetition: 1, DueAt: now.Add(1 * day), Status: StatusScheduled},
		},
		{
			name:       "fourth correct answer uses fifth interval",
			repetition: 4,
			correct:    true,
			want:       Next{Repetition: 5, DueAt: now.Add(8 * day), Status: StatusScheduled},
		},
		{
			name:       "last table entry",
			repetition: 6,
			correct:    true,
			want:       Next{Repetition: 7, DueAt: now.Add(14 * day), Status: StatusScheduled},
		},
		{
			name:       "interval is capped past the table",
			repetition: 40,
			correct:    true,
			want:       Next{Repetition: 41, DueAt: now.Add(14 * day), Status: StatusScheduled},
		},
		{
			name:       "miss resets the streak",
			repetition: 4,
			correct:    false,
			want:       Next{Repetition: 0, DueAt: now.Add(10 * time.Minute), Status: StatusDue},
		},
		{
			name:       "miss on a fresh entry",
			repetition: 0,
			correct:    false,
			want:       Next{Repetition: 0, DueAt: now.Add(10 * time.Minute), Status: StatusDue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Apply(tt.repetition, tt.correct, now))
		})
	}
}

func TestPolicy_Apply_Properties(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()
	table := DefaultIntervalDays

	for rep := 0; rep <= 30; rep++ {
		got := policy.Apply(rep, true, now)
		assert.Equal(t, rep+1, got.Repetition)
		wantDays := table[min(rep, len(table)-1)]
		assert.Equal(t, time.Duration(wantDays)*day, got.DueAt.Sub(now), "repetition %d", rep)
		assert.Equal(t, policy.Interval(rep), got.DueAt.Sub(now))

		missed := policy.Apply(rep, false, now)
		assert.Equal(t, 0, missed.Repetition)
		assert.Equal(t, 10*time.Minute, missed.DueAt.Sub(now))
	}
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name         string
		intervalDays []int
		retryAfter   time.Duration
		wantErr      bool
	}{
		{name: "defaults", intervalDays: nil, retryAfter: 0},
		{name: "custom table", intervalDays: []int{1, 4, 9}, retryAfter: 5 * time.Minute},
		{name: "empty table", intervalDays: []int{}, wantErr: true},
		{name: "zero interval", intervalDays: []int{1, 0}, wantErr: true},
		{name: "negative retry", intervalDays: []int{1}, retryAfter: -time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPolicy(tt.intervalDays, tt.retryAfter)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestPolicy_CustomTable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	policy, err := NewPolicy([]int{1, 4, 9}, 5*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, now.Add(9*day), policy.Apply(2, true, now).DueAt)
	assert.Equal(t, now.Add(9*day), policy.Apply(10, true, now).DueAt)
	assert.Equal(t, now.Add(5*time.Minute), policy.Apply(10, false, now).DueAt)
}
