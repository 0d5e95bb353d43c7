package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/leakdrill/internal/datasync"
	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/queue"
)

func newQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage drill queue entries",
	}
	cmd.AddCommand(
		newQueueAddCommand(),
		newQueueImportCommand(),
		newQueueLeaksCommand(),
	)
	return cmd
}

func newQueueAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <user id> <leak>",
		Short: "Enqueue a leak for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			return runQueueAdd(cmd.Context(), s.Queue(), os.Stdout, args[0], args[1], time.Now().UTC())
		},
	}
}

func runQueueAdd(ctx context.Context, repo queue.Repository, w io.Writer, userID, label string, now time.Time) error {
	tag := leak.Normalize(label)
	entry, created, err := queue.Enqueue(ctx, repo, queue.NewEntry(uuid.NewString(), userID, tag, now))
	if err != nil {
		return fmt.Errorf("queue.Enqueue() > %w", err)
	}
	if !created {
		_, err = fmt.Fprintf(w, "%s is already queued as %s, due %s\n", entry.LeakTag, entry.ID, entry.DueAt.Format(time.RFC3339))
		return err
	}
	_, err = fmt.Fprintf(w, "queued %s as %s\n", entry.LeakTag, entry.ID)
	return err
}

func newQueueImportCommand() *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <user id>",
		Short: "Enqueue every leak listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("os.Open(%s) > %w", file, err)
			}
			defer func() {
				_ = f.Close()
			}()
			list, err := datasync.ReadLeakList(f)
			if err != nil {
				return fmt.Errorf("datasync.ReadLeakList() > %w", err)
			}

			_, s, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			importer := datasync.NewImporter(s.Queue(), os.Stdout, uuid.NewString, func() time.Time { return time.Now().UTC() })
			result, err := importer.ImportLeaks(cmd.Context(), args[0], *list, datasync.ImportOptions{DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("importer.ImportLeaks() > %w", err)
			}

			fmt.Println("\nImport Summary:")
			if dryRun {
				fmt.Println("  (dry-run mode, no changes made)")
			}
			fmt.Printf("  Queue entries: %d new, %d skipped\n", result.QueueNew, result.QueueSkipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a top-level leaks list")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without modifying the database")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQueueLeaksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leaks",
		Short: "List the leak tags drills can target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeLeakTags(os.Stdout)
		},
	}
}

func writeLeakTags(w io.Writer) error {
	tags := leak.Allowed()
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	for _, tag := range tags {
		if _, err := fmt.Fprintln(w, tag); err != nil {
			return err
		}
	}
	return nil
}
