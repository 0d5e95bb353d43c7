// Package drill defines drill types, their answer sets, mistake reasons and quiz snapshots.
package drill

import (
	"slices"
	"strings"
)

// Type identifies which kind of quiz a drill is.
type Type string

const (
	TypeActionDecision Type = "action_decision"
	TypeRaiseSizing    Type = "raise_sizing"
)

// DefaultType is assumed when neither the submission nor the snapshot names a type.
const DefaultType = TypeActionDecision

var answers = map[Type][]string{
	TypeActionDecision: {"fold", "call", "raise"},
	TypeRaiseSizing:    {"2.5x", "3x", "overbet"},
}

// ParseType returns the drill type for s. The empty string is not a type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	_, ok := answers[t]
	return t, ok
}

// Answers returns the valid answers for t.
func (t Type) Answers() []string {
	return slices.Clone(answers[t])
}

// IsValidAnswer reports whether answer, once normalized, belongs to t's answer set.
func (t Type) IsValidAnswer(answer string) bool {
	return slices.Contains(answers[t], NormalizeAnswer(answer))
}

// NormalizeAnswer trims and lower-cases an answer.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// MistakeReason classifies why an answer was wrong.
type MistakeReason string

const (
	ReasonRange    MistakeReason = "range"
	ReasonSizing   MistakeReason = "sizing"
	ReasonPosition MistakeReason = "position"
	ReasonBoard    MistakeReason = "board"
	ReasonStack    MistakeReason = "stack"
	ReasonUnknown  MistakeReason = "unknown"
)

var reasons = []MistakeReason{ReasonRange, ReasonSizing, ReasonPosition, ReasonBoard, ReasonStack, ReasonUnknown}

// ParseMistakeReason returns the reason for s.
func ParseMistakeReason(s string) (MistakeReason, bool) {
	r := MistakeReason(strings.ToLower(strings.TrimSpace(s)))
	return r, slices.Contains(reasons, r)
}

// MistakeReasons returns every allowed reason.
func MistakeReasons() []MistakeReason {
	return slices.Clone(reasons)
}

// ReasonFor applies the mistake reason invariant: nil when correct, otherwise
// the supplied reason or ReasonUnknown.
func ReasonFor(correct bool, supplied *MistakeReason) *MistakeReason {
	if correct {
		return nil
	}
	r := ReasonUnknown
	if supplied != nil && *supplied != "" {
		r = *supplied
	}
	return &r
}
