// Package statistics recomputes drill statistics from the training event log.
package statistics

import (
	"fmt"
	"sort"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/rating"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

// Rebuild replays events in the order they happened and returns one snapshot per leak,
// sorted by leak tag. Window counts are taken relative to now.
// Events after now are ignored.
func Rebuild(events []training.Event, strategy rating.Strategy, now time.Time) []rating.Snapshot {
	ordered := make([]training.Event, 0, len(events))
	for _, e := range events {
		if e.CreatedAt.After(now) {
			continue
		}
		ordered = append(ordered, e)
	}
	sortEvents(ordered)

	snapshots := make(map[leak.Tag]rating.Snapshot)
	for _, e := range ordered {
		tag := leak.Normalize(e.LeakTag.String())
		prev, ok := snapshots[tag]
		if !ok {
			prev = rating.NewSnapshot(tag, strategy)
		}
		next := rating.Apply(prev, rating.Outcome{LeakTag: tag, Correct: e.IsCorrect, PracticedAt: e.CreatedAt}, strategy)

		if e.CreatedAt.After(now.Add(-rating.Window7d)) {
			next.Attempts7d++
			if e.IsCorrect {
				next.Correct7d++
			}
		}
		if e.CreatedAt.After(now.Add(-rating.Window30d)) {
			next.Attempts30d++
			if e.IsCorrect {
				next.Correct30d++
			}
		}
		snapshots[tag] = next
	}

	result := make([]rating.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LeakTag < result[j].LeakTag
	})
	return result
}

// PeriodStatistics holds attempt counts for one month, e.g. "2025-01".
type PeriodStatistics struct {
	Period   string
	Attempts int
	Correct  int
	// Mistakes counts misses by reason. Misses recorded without a reason count as unknown.
	Mistakes map[drill.MistakeReason]int
}

// Accuracy returns the share of correct attempts, or 0 without attempts.
func (p PeriodStatistics) Accuracy() float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Attempts)
}

// CalculatePeriods groups events by month, newest first.
// It accepts optional year and month filters (0 means no filter).
func CalculatePeriods(events []training.Event, year, month int) []PeriodStatistics {
	stats := make(map[string]*PeriodStatistics)
	for _, e := range events {
		if e.CreatedAt.IsZero() {
			continue
		}
		if !matchesFilter(e.CreatedAt.Year(), int(e.CreatedAt.Month()), year, month) {
			continue
		}

		period := fmt.Sprintf("%d-%02d", e.CreatedAt.Year(), int(e.CreatedAt.Month()))
		p, ok := stats[period]
		if !ok {
			p = &PeriodStatistics{Period: period, Mistakes: make(map[drill.MistakeReason]int)}
			stats[period] = p
		}
		p.Attempts++
		if e.IsCorrect {
			p.Correct++
			continue
		}
		reason := drill.ReasonUnknown
		if e.MistakeReason != nil {
			reason = *e.MistakeReason
		}
		p.Mistakes[reason]++
	}

	periods := make([]PeriodStatistics, 0, len(stats))
	for _, p := range stats {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Period > periods[j].Period
	})
	return periods
}

func matchesFilter(eventYear, eventMonth, filterYear, filterMonth int) bool {
	if filterYear == 0 {
		return true
	}
	if eventYear != filterYear {
		return false
	}
	if filterMonth == 0 {
		return true
	}
	return eventMonth == filterMonth
}

func sortEvents(events []training.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}
