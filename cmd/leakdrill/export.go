package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/leakdrill/internal/datasync"
)

func newExportCommand() *cobra.Command {
	var output string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "export <user id>",
		Short: "Export a user's drill queue and training events as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if since < 0 {
				return fmt.Errorf("--since must not be negative")
			}
			_, s, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			now := time.Now().UTC()
			var from time.Time
			if since > 0 {
				from = now.Add(-since)
			}
			data, err := datasync.NewExporter(s.Queue(), s.Events()).Export(cmd.Context(), args[0], from, now)
			if err != nil {
				return fmt.Errorf("exporter.Export() > %w", err)
			}

			if output == "" || output == "-" {
				return datasync.WriteYAML(os.Stdout, data)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("os.Create(%s) > %w", output, err)
			}
			if err := datasync.WriteYAML(f, data); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("f.Close() > %w", err)
			}
			fmt.Printf("Exported %d queue entries and %d events to %s\n", len(data.Queue), len(data.Events), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file. Writes to stdout when empty")
	cmd.Flags().DurationVar(&since, "since", 0, "Only export events newer than this duration (e.g., 720h). 0 exports all events")
	return cmd
}
