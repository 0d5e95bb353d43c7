// Package datasync moves drill data between YAML files and the store.
package datasync

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

// LeakList is the YAML document read by the importer.
type LeakList struct {
	Leaks []string `yaml:"leaks"`
}

// ReadLeakList decodes a LeakList from r.
func ReadLeakList(r io.Reader) (*LeakList, error) {
	var list LeakList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		if err == io.EOF {
			return &list, nil
		}
		return nil, fmt.Errorf("yaml.Decode() > %w", err)
	}
	return &list, nil
}

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	QueueNew     int
	QueueSkipped int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool
}

// Importer creates drill queue entries for a user.
type Importer struct {
	queueRepo queue.Repository
	writer    io.Writer
	newID     func() string
	now       func() time.Time
}

// NewImporter creates a new Importer.
func NewImporter(queueRepo queue.Repository, writer io.Writer, newID func() string, now func() time.Time) *Importer {
	return &Importer{
		queueRepo: queueRepo,
		writer:    writer,
		newID:     newID,
		now:       now,
	}
}

// ImportLeaks enqueues every leak of list for userID. Labels are normalized first,
// so labels that map to the same tag are imported once.
func (imp *Importer) ImportLeaks(ctx context.Context, userID string, list LeakList, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	seen := make(map[leak.Tag]bool, len(list.Leaks))

	for _, label := range list.Leaks {
		tag := leak.Normalize(label)
		if seen[tag] {
			continue
		}
		seen[tag] = true

		if opts.DryRun {
			existing, err := imp.queueRepo.FindByUserAndLeak(ctx, userID, tag)
			if err != nil {
				return nil, fmt.Errorf("FindByUserAndLeak(%s, %s) > %w", userID, tag, err)
			}
			if existing != nil {
				fmt.Fprintf(imp.writer, "  [SKIP]  %s\n", tag)
				result.QueueSkipped++
				continue
			}
			fmt.Fprintf(imp.writer, "  [NEW]  %s\n", tag)
			result.QueueNew++
			continue
		}

		_, created, err := queue.Enqueue(ctx, imp.queueRepo, queue.NewEntry(imp.newID(), userID, tag, imp.now()))
		if err != nil {
			return nil, fmt.Errorf("queue.Enqueue() > %w", err)
		}
		if !created {
			fmt.Fprintf(imp.writer, "  [SKIP]  %s\n", tag)
			result.QueueSkipped++
			continue
		}
		fmt.Fprintf(imp.writer, "  [NEW]  %s\n", tag)
		result.QueueNew++
	}
	return &result, nil
}

// ExportedEvent is a training event with its scenario as JSON text.
type ExportedEvent struct {
	training.Event `yaml:",inline"`
	Scenario       string `yaml:"scenario,omitempty"`
}

// ExportData holds one user's drill data.
type ExportData struct {
	UserID     string          `yaml:"user_id"`
	ExportedAt time.Time       `yaml:"exported_at"`
	Queue      []queue.Entry   `yaml:"queue"`
	Events     []ExportedEvent `yaml:"events"`
}

// Exporter reads a user's queue and event log.
type Exporter struct {
	queueRepo queue.Repository
	eventLog  training.EventLog
}

// NewExporter creates a new Exporter.
func NewExporter(queueRepo queue.Repository, eventLog training.EventLog) *Exporter {
	return &Exporter{
		queueRepo: queueRepo,
		eventLog:  eventLog,
	}
}

// Export reads the user's queue and the events since the given time.
func (e *Exporter) Export(ctx context.Context, userID string, since, now time.Time) (*ExportData, error) {
	entries, err := e.queueRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("queueRepo.FindByUser() > %w", err)
	}

	events, err := e.eventLog.FindByUser(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("eventLog.FindByUser() > %w", err)
	}

	exported := make([]ExportedEvent, 0, len(events))
	for _, ev := range events {
		exported = append(exported, ExportedEvent{Event: ev, Scenario: string(ev.Scenario.Raw())})
	}
	if entries == nil {
		entries = []queue.Entry{}
	}

	return &ExportData{
		UserID:     userID,
		ExportedAt: now,
		Queue:      entries,
		Events:     exported,
	}, nil
}

// WriteYAML encodes data to w.
func WriteYAML(w io.Writer, data *ExportData) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("yaml.Encode() > %w", err)
	}
	return encoder.Close()
}
