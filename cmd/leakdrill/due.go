package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
	"github.com/at-ishikawa/leakdrill/internal/trainer"
)

type dueLister interface {
	DueDrills(ctx context.Context, userID string, limit int) ([]queue.Entry, error)
}

func newDueCommand() *cobra.Command {
	var limit int
	format := FormatText

	cmd := &cobra.Command{
		Use:   "due <user id>",
		Short: "Show the drills a user should practice now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			policy, err := schedule.NewPolicy(cfg.Scheduling.IntervalDays, cfg.Scheduling.RetryAfter)
			if err != nil {
				return fmt.Errorf("schedule.NewPolicy() > %w", err)
			}
			return runDue(cmd.Context(), trainer.New(s, policy, nil), os.Stdout, args[0], limit, format, time.Now().UTC())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of drills. 0 uses the default of 20")
	cmd.Flags().Var(&format, "format", "Output format. Options: text, yaml")
	return cmd
}

func runDue(ctx context.Context, lister dueLister, w io.Writer, userID string, limit int, format OutputFormat, now time.Time) error {
	entries, err := lister.DueDrills(ctx, userID, limit)
	if err != nil {
		return fmt.Errorf("DueDrills() > %w", err)
	}

	if format == FormatYAML {
		if entries == nil {
			entries = []queue.Entry{}
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(entries); err != nil {
			return fmt.Errorf("yaml.Encode() > %w", err)
		}
		return encoder.Close()
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Nothing is due.")
		return err
	}

	retry := color.New(color.FgRed)
	overdue := color.New(color.FgYellow)
	for _, e := range entries {
		line := fmt.Sprintf("%-20s  rep %-2d  due %s  %s", e.LeakTag, e.Repetition, e.DueAt.Format(time.RFC3339), e.ID)
		switch {
		case e.Status == schedule.StatusDue:
			_, err = retry.Fprintln(w, line)
		case e.DueAt.Before(now.Add(-24 * time.Hour)):
			_, err = overdue.Fprintln(w, line)
		default:
			_, err = fmt.Fprintln(w, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
