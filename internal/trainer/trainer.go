// Package trainer grades drill submissions, records them and moves the drill queue forward.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/leakdrill/internal/drill"
	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/rating"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
	"github.com/at-ishikawa/leakdrill/internal/store"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

const (
	DefaultDueLimit = 20
	MaxDueLimit     = 100
)

// Submission is one answered drill as sent by the client.
type Submission struct {
	DrillQueueID string
	Scenario     json.RawMessage
	// DrillType is optional. The scenario's drill_type is used when it is empty.
	DrillType string
	// UserAnswer takes precedence over UserAction when both are set.
	UserAnswer    *string
	UserAction    *string
	RaiseSizeBB   *float64
	MistakeReason *string
}

// Result is the outcome of a graded submission.
type Result struct {
	Correct         bool
	Explanation     string
	NextDueAt       time.Time
	Repetition      int
	TrainingEventID string
	// SkillRating is nil when the aggregator failed or had nothing to report.
	SkillRating *rating.Snapshot
}

// Trainer implements the submission, reason update and due drill operations.
type Trainer struct {
	store      store.Store
	policy     *schedule.Policy
	aggregator rating.Aggregator
	now        func() time.Time
	newID      func() string
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		t.now = now
	}
}

// WithIDGenerator replaces how training event ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(t *Trainer) {
		t.newID = newID
	}
}

// New creates a new Trainer. A nil policy uses the default schedule and a nil
// aggregator records no statistics.
func New(s store.Store, policy *schedule.Policy, aggregator rating.Aggregator, opts ...Option) *Trainer {
	if policy == nil {
		policy = schedule.DefaultPolicy()
	}
	if aggregator == nil {
		aggregator = rating.NopAggregator{}
	}
	t := &Trainer{
		store:      s,
		policy:     policy,
		aggregator: aggregator,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type gradedInput struct {
	drillType drill.Type
	scenario  drill.Scenario
	answer    string
	reason    *drill.MistakeReason
}

// aggregation is the result of the best-effort statistics step.
type aggregation struct {
	snapshot *rating.Snapshot
	err      error
}

// Submit grades a submission, stores the event together with the advanced queue entry
// and then updates the skill rating.
func (t *Trainer) Submit(ctx context.Context, userID string, sub Submission) (*Result, error) {
	if userID == "" {
		return nil, failed(StageAuthorizing, ErrUnauthenticated)
	}
	input, err := validateSubmission(sub)
	if err != nil {
		return nil, failed(StageValidating, err)
	}

	entry, err := t.store.Queue().FindByID(ctx, sub.DrillQueueID)
	if err != nil {
		return nil, failed(StageAuthorizing, &PersistenceError{Op: "load drill queue entry", Err: err})
	}
	if entry == nil || entry.UserID != userID {
		return nil, failed(StageAuthorizing, ErrNotFound)
	}

	correctAnswer := input.scenario.CorrectAnswer()
	isCorrect := input.answer == correctAnswer
	if isCorrect && input.reason != nil {
		slog.Default().Debug("Dropping mistake reason of a correct answer",
			"drillQueueID", entry.ID,
			"mistakeReason", *input.reason)
	}
	if sub.RaiseSizeBB != nil {
		slog.Default().Debug("Raise size submitted",
			"drillQueueID", entry.ID,
			"raiseSizeBB", *sub.RaiseSizeBB)
	}
	leakTag := leak.Normalize(entry.LeakTag.String())
	now := t.now()
	next := t.policy.Apply(entry.Repetition, isCorrect, now)

	event := training.Event{
		ID:            t.newID(),
		UserID:        userID,
		Scenario:      input.scenario,
		DrillType:     input.drillType,
		UserAnswer:    input.answer,
		CorrectAnswer: correctAnswer,
		IsCorrect:     isCorrect,
		LeakTag:       leakTag,
		MistakeReason: drill.ReasonFor(isCorrect, input.reason),
		CreatedAt:     now,
	}
	if !isCorrect {
		event.MistakeTag = &leakTag
	}
	lastScore := 0
	if isCorrect {
		lastScore = 100
	}

	if err := t.store.InTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		if err := tx.Events().Append(ctx, &event); err != nil {
			return &PersistenceError{Op: "append training event", Err: err}
		}
		if err := tx.Queue().Advance(ctx, queue.Advance{
			ID:              entry.ID,
			UserID:          userID,
			ExpectedVersion: entry.Version,
			Next:            next,
			LastScore:       lastScore,
			LastDrillID:     event.ID,
			UpdatedAt:       now,
		}); err != nil {
			if errors.Is(err, queue.ErrVersionConflict) {
				return ErrConflict
			}
			return &PersistenceError{Op: "advance drill queue entry", Err: err}
		}
		return nil
	}); err != nil {
		var persistenceErr *PersistenceError
		if !errors.Is(err, ErrConflict) && !errors.As(err, &persistenceErr) {
			err = &PersistenceError{Op: "commit submission", Err: err}
		}
		return nil, failed(StagePersisting, err)
	}

	agg := t.aggregate(ctx, userID, rating.Outcome{EventID: event.ID, LeakTag: leakTag, Correct: isCorrect, PracticedAt: now})
	if agg.err != nil {
		slog.Default().Warn("Failed to update skill rating",
			"stage", StageAggregating,
			"userID", userID,
			"leakTag", leakTag,
			"error", agg.err)
	}

	return &Result{
		Correct:         isCorrect,
		Explanation:     input.scenario.Explanation(),
		NextDueAt:       next.DueAt,
		Repetition:      next.Repetition,
		TrainingEventID: event.ID,
		SkillRating:     agg.snapshot,
	}, nil
}

func (t *Trainer) aggregate(ctx context.Context, userID string, outcome rating.Outcome) aggregation {
	snapshot, err := t.aggregator.Record(ctx, userID, outcome)
	if err != nil {
		return aggregation{err: err}
	}
	return aggregation{snapshot: snapshot}
}

func validateSubmission(sub Submission) (gradedInput, error) {
	if strings.TrimSpace(sub.DrillQueueID) == "" {
		return gradedInput{}, &ValidationError{Field: "drill_queue_id", Reason: "is required"}
	}
	raw := bytes.TrimSpace(sub.Scenario)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return gradedInput{}, &ValidationError{Field: "scenario", Reason: "is required"}
	}

	declared, err := drill.DeclaredType(sub.Scenario)
	if err != nil {
		return gradedInput{}, &ValidationError{Field: "scenario", Reason: err.Error()}
	}
	drillType := declared
	if sub.DrillType != "" {
		requested, ok := drill.ParseType(sub.DrillType)
		if !ok {
			return gradedInput{}, &ValidationError{Field: "drill_type", Reason: fmt.Sprintf("unknown drill type %q", sub.DrillType)}
		}
		if declared != "" && declared != requested {
			return gradedInput{}, &ValidationError{
				Field:  "drill_type",
				Reason: fmt.Sprintf("%s does not match scenario drill_type %s", requested, declared),
			}
		}
		drillType = requested
	}
	if drillType == "" {
		drillType = drill.DefaultType
	}

	scenario, err := drill.ParseScenario(drillType, sub.Scenario)
	if err != nil {
		return gradedInput{}, &ValidationError{Field: "scenario", Reason: err.Error()}
	}
	if !drillType.IsValidAnswer(scenario.CorrectAnswer()) {
		return gradedInput{}, &ValidationError{
			Field:  "scenario.correct_answer",
			Reason: "must be one of " + strings.Join(drillType.Answers(), ", "),
		}
	}

	field, answer := "user_answer", ""
	if sub.UserAnswer != nil && strings.TrimSpace(*sub.UserAnswer) != "" {
		answer = *sub.UserAnswer
	} else if sub.UserAction != nil && strings.TrimSpace(*sub.UserAction) != "" {
		field, answer = "user_action", *sub.UserAction
	}
	if answer == "" {
		return gradedInput{}, &ValidationError{Field: "user_answer", Reason: "is required"}
	}
	if !drillType.IsValidAnswer(answer) {
		return gradedInput{}, &ValidationError{
			Field:  field,
			Reason: "must be one of " + strings.Join(drillType.Answers(), ", "),
		}
	}

	if sub.RaiseSizeBB != nil && *sub.RaiseSizeBB <= 0 {
		return gradedInput{}, &ValidationError{Field: "raise_size_bb", Reason: "must be positive"}
	}

	var reason *drill.MistakeReason
	if sub.MistakeReason != nil && strings.TrimSpace(*sub.MistakeReason) != "" {
		r, ok := drill.ParseMistakeReason(*sub.MistakeReason)
		if !ok {
			return gradedInput{}, &ValidationError{Field: "mistake_reason", Reason: "must be one of " + joinReasons()}
		}
		reason = &r
	}

	return gradedInput{
		drillType: drillType,
		scenario:  scenario,
		answer:    drill.NormalizeAnswer(answer),
		reason:    reason,
	}, nil
}

// UpdateReasonOnly sets the mistake reason of one of the user's missed attempts.
// An empty reason means unknown. Ids that do not match a missed attempt of the user change nothing.
func (t *Trainer) UpdateReasonOnly(ctx context.Context, userID, trainingEventID, reason string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(trainingEventID) == "" {
		return &ValidationError{Field: "training_event_id", Reason: "is required"}
	}
	r := drill.ReasonUnknown
	if strings.TrimSpace(reason) != "" {
		parsed, ok := drill.ParseMistakeReason(reason)
		if !ok {
			return &ValidationError{Field: "mistake_reason", Reason: "must be one of " + joinReasons()}
		}
		r = parsed
	}

	if err := t.store.Events().UpdateMistakeReason(ctx, userID, trainingEventID, r); err != nil {
		return &PersistenceError{Op: "update mistake reason", Err: err}
	}
	return nil
}

// DueDrills returns the user's entries due now, earliest first.
// A non-positive limit means DefaultDueLimit.
func (t *Trainer) DueDrills(ctx context.Context, userID string, limit int) ([]queue.Entry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if limit <= 0 {
		limit = DefaultDueLimit
	}
	if limit > MaxDueLimit {
		return nil, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be at most %d", MaxDueLimit)}
	}

	entries, err := t.store.Queue().FindDue(ctx, userID, t.now(), limit)
	if err != nil {
		return nil, &PersistenceError{Op: "find due drills", Err: err}
	}
	return entries, nil
}

func joinReasons() string {
	reasons := drill.MistakeReasons()
	names := make([]string, len(reasons))
	for i, r := range reasons {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func failed(stage Stage, err error) error {
	slog.Default().Debug("Drill submission failed",
		"stage", stage,
		"error", err)
	return err
}
