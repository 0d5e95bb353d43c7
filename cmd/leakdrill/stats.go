package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/rating"
	"github.com/at-ishikawa/leakdrill/internal/statistics"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

func newStatsCommand() *cobra.Command {
	var byMonth bool
	var year, month int
	sortFlag := SortDescending

	cmd := &cobra.Command{
		Use:   "stats <user id>",
		Short: "Rebuild skill ratings from the training event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if month != 0 && year == 0 {
				return fmt.Errorf("--month requires --year to be specified")
			}
			if month < 0 || month > 12 {
				return fmt.Errorf("--month must be between 1 and 12")
			}

			cfg, s, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if byMonth || year != 0 {
				return runPeriodStats(cmd.Context(), s.Events(), os.Stdout, args[0], year, month)
			}
			strategy := rating.NewEloStrategy(cfg.Rating.Elo)
			return runRatingStats(cmd.Context(), s.Events(), os.Stdout, args[0], strategy, sortFlag, time.Now().UTC())
		},
	}

	cmd.Flags().BoolVar(&byMonth, "by-month", false, "Show monthly accuracy instead of ratings")
	cmd.Flags().IntVar(&year, "year", 0, "Filter monthly statistics by year (e.g., 2025)")
	cmd.Flags().IntVar(&month, "month", 0, "Filter by month (1-12), requires --year")
	cmd.Flags().Var(&sortFlag, "sort", "Sort order of ratings. Options: asc, desc")
	return cmd
}

func runRatingStats(ctx context.Context, events training.EventLog, w io.Writer, userID string, strategy rating.Strategy, order SortFlag, now time.Time) error {
	history, err := events.FindByUser(ctx, userID, time.Time{})
	if err != nil {
		return fmt.Errorf("events.FindByUser() > %w", err)
	}

	snapshots := statistics.Rebuild(history, strategy, now)
	if len(snapshots) == 0 {
		_, err := fmt.Fprintln(w, "No training events yet.")
		return err
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		if order == SortAscending {
			return snapshots[i].Rating < snapshots[j].Rating
		}
		return snapshots[i].Rating > snapshots[j].Rating
	})

	weak := color.New(color.FgRed)
	strong := color.New(color.FgGreen)
	initial := strategy.Initial()
	for _, s := range snapshots {
		line := fmt.Sprintf("%-20s  %7.1f  streak %-3d  7d %d/%d  30d %d/%d  total %d/%d",
			s.LeakTag, s.Rating, s.StreakCorrect,
			s.Correct7d, s.Attempts7d, s.Correct30d, s.Attempts30d, s.TotalCorrect, s.TotalAttempts)
		switch {
		case s.Rating < initial:
			_, err = weak.Fprintln(w, line)
		case s.Rating > initial:
			_, err = strong.Fprintln(w, line)
		default:
			_, err = fmt.Fprintln(w, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runPeriodStats(ctx context.Context, events training.EventLog, w io.Writer, userID string, year, month int) error {
	history, err := events.FindByUser(ctx, userID, time.Time{})
	if err != nil {
		return fmt.Errorf("events.FindByUser() > %w", err)
	}

	periods := statistics.CalculatePeriods(history, year, month)
	if len(periods) == 0 {
		_, err := fmt.Fprintln(w, "No training events in this period.")
		return err
	}
	for _, p := range periods {
		if _, err := fmt.Fprintf(w, "%s  %d/%d correct (%.0f%%)\n", p.Period, p.Correct, p.Attempts, p.Accuracy()*100); err != nil {
			return err
		}
		for _, reason := range drill.MistakeReasons() {
			if n := p.Mistakes[reason]; n > 0 {
				if _, err := fmt.Fprintf(w, "  %-10s %d\n", reason, n); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
