package server

import (
	"encoding/json"
	"time"

	"github.com/at-ishikawa/leakdrill/internal/leak"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/rating"
	"github.com/at-ishikawa/leakdrill/internal/schedule"
)

type GetDueDrillsRequest struct {
	Limit int `json:"limit" validate:"lte=100"`
}

type DueDrill struct {
	ID          string          `json:"id"`
	LeakTag     leak.Tag        `json:"leak_tag"`
	Status      schedule.Status `json:"status"`
	DueAt       time.Time       `json:"due_at"`
	Repetition  int             `json:"repetition"`
	LastScore   int             `json:"last_score"`
	LastDrillID *string         `json:"last_drill_id,omitempty"`
}

type GetDueDrillsResponse struct {
	Drills []DueDrill `json:"drills"`
}

func newDueDrill(e queue.Entry) DueDrill {
	return DueDrill{
		ID:          e.ID,
		LeakTag:     e.LeakTag,
		Status:      e.Status,
		DueAt:       e.DueAt,
		Repetition:  e.Repetition,
		LastScore:   e.LastScore,
		LastDrillID: e.LastDrillID,
	}
}

// SubmitDrillResultRequest is a graded answer. Scenario is kept as raw JSON so it is stored as sent.
type SubmitDrillResultRequest struct {
	DrillQueueID  string          `json:"drill_queue_id" validate:"required"`
	Scenario      json.RawMessage `json:"scenario" validate:"required"`
	DrillType     string          `json:"drill_type,omitempty"`
	UserAction    *string         `json:"user_action,omitempty"`
	UserAnswer    *string         `json:"user_answer,omitempty"`
	RaiseSizeBB   *float64        `json:"raise_size_bb,omitempty" validate:"omitempty,gt=0"`
	MistakeReason *string         `json:"mistake_reason,omitempty"`
}

type SubmitDrillResultResponse struct {
	OK              bool             `json:"ok"`
	Correct         bool             `json:"correct"`
	Explanation     string           `json:"explanation"`
	NextDueAt       time.Time        `json:"next_due_at"`
	Repetition      int              `json:"repetition"`
	TrainingEventID string           `json:"training_event_id"`
	SkillRating     *rating.Snapshot `json:"skill_rating,omitempty"`
}

type UpdateReasonOnlyRequest struct {
	TrainingEventID string `json:"training_event_id" validate:"required"`
	MistakeReason   string `json:"mistake_reason,omitempty"`
}

type UpdateReasonOnlyResponse struct {
	OK bool `json:"ok"`
}
