// Package schedule implements the spaced-repetition policy that decides when a leak is drilled next.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Status is the scheduling state of a drill queue entry.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusDue       Status = "due"
)

var (
	// DefaultIntervalDays is the interval table used when none is configured.
	// The last value repeats once the repetition count runs past the table.
	DefaultIntervalDays = []int{1, 2, 3, 5, 8, 13, 14}

	// DefaultRetryAfter is how soon a missed leak comes back.
	DefaultRetryAfter = 10 * time.Minute
)

var ErrInvalidPolicy = errors.New("schedule: invalid policy")

// Policy maps an answer outcome onto the next repetition count and due time.
type Policy struct {
	intervals  []time.Duration
	retryAfter time.Duration
}

// Next is the outcome of applying the policy to one graded attempt.
type Next struct {
	Repetition int
	DueAt      time.Time
	Status     Status
}

// NewPolicy builds a policy from an interval table in days.
// A nil table or zero retryAfter falls back to the defaults.
func NewPolicy(intervalDays []int, retryAfter time.Duration) (*Policy, error) {
	if intervalDays == nil {
		intervalDays = DefaultIntervalDays
	}
	if len(intervalDays) == 0 {
		return nil, fmt.Errorf("%w: interval table is empty", ErrInvalidPolicy)
	}
	if retryAfter == 0 {
		retryAfter = DefaultRetryAfter
	}
	if retryAfter < 0 {
		return nil, fmt.Errorf("%w: retry delay %s must be positive", ErrInvalidPolicy, retryAfter)
	}

	intervals := make([]time.Duration, len(intervalDays))
	for i, days := range intervalDays {
		if days <= 0 {
			return nil, fmt.Errorf("%w: interval %d at index %d must be positive", ErrInvalidPolicy, days, i)
		}
		intervals[i] = time.Duration(days) * 24 * time.Hour
	}

	return &Policy{intervals: intervals, retryAfter: retryAfter}, nil
}

// DefaultPolicy returns the policy with the default table and retry delay.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(nil, 0)
	if err != nil {
		panic(err)
	}
	return p
}

// Apply computes the schedule after an attempt on an entry currently at repetition.
// A correct answer moves one step along the table, a miss resets the streak and
// brings the leak back after the retry delay.
func (p *Policy) Apply(repetition int, correct bool, now time.Time) Next {
	if !correct {
		return Next{
			Repetition: 0,
			DueAt:      now.Add(p.retryAfter),
			Status:     StatusDue,
		}
	}

	if repetition < 0 {
		repetition = 0
	}
	next := repetition + 1
	index := min(next-1, len(p.intervals)-1)
	return Next{
		Repetition: next,
		DueAt:      now.Add(p.intervals[index]),
		Status:     StatusScheduled,
	}
}

// Interval returns the interval used after a correct answer at repetition.
func (p *Policy) Interval(repetition int) time.Duration {
	if repetition < 0 {
		repetition = 0
	}
	return p.intervals[min(repetition, len(p.intervals)-1)]
}
