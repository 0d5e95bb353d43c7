package drill

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidScenario = errors.New("drill: invalid scenario")

// ActionDecisionScenario is the snapshot of a fold/call/raise quiz.
type ActionDecisionScenario struct {
	DrillType        Type    `json:"drill_type,omitempty"`
	HeroPosition     string  `json:"hero_position,omitempty"`
	VillainPosition  string  `json:"villain_position,omitempty"`
	HeroHand         string  `json:"hero_hand,omitempty"`
	Board            string  `json:"board,omitempty"`
	PotBB            float64 `json:"pot_bb,omitempty"`
	EffectiveStackBB float64 `json:"effective_stack_bb,omitempty"`
	FacingAction     string  `json:"facing_action,omitempty"`
	CorrectAnswer    string  `json:"correct_answer"`
	Explanation      string  `json:"explanation,omitempty"`
}

// RaiseSizingScenario is the snapshot of a sizing quiz.
type RaiseSizingScenario struct {
	DrillType        Type    `json:"drill_type,omitempty"`
	HeroPosition     string  `json:"hero_position,omitempty"`
	HeroHand         string  `json:"hero_hand,omitempty"`
	Board            string  `json:"board,omitempty"`
	PotBB            float64 `json:"pot_bb,omitempty"`
	EffectiveStackBB float64 `json:"effective_stack_bb,omitempty"`
	CorrectAnswer    string  `json:"correct_answer"`
	Explanation      string  `json:"explanation,omitempty"`
}

// Scenario is the quiz content that was shown to the user. Exactly one variant is
// set once decoded. The JSON it was decoded from is kept verbatim so that what is
// stored is exactly what was submitted.
type Scenario struct {
	ActionDecision *ActionDecisionScenario
	RaiseSizing    *RaiseSizingScenario

	raw json.RawMessage
}

// DeclaredType returns the drill_type named inside a raw snapshot, or "" when absent.
func DeclaredType(raw json.RawMessage) (Type, error) {
	var probe struct {
		DrillType *string `json:"drill_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if probe.DrillType == nil || *probe.DrillType == "" {
		return "", nil
	}
	t, ok := ParseType(*probe.DrillType)
	if !ok {
		return "", fmt.Errorf("%w: unknown drill_type %q", ErrInvalidScenario, *probe.DrillType)
	}
	return t, nil
}

// ParseScenario decodes raw as the variant for t.
func ParseScenario(t Type, raw json.RawMessage) (Scenario, error) {
	s := Scenario{raw: bytes.Clone(raw)}
	if err := s.Decode(t); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// NewActionDecision builds a scenario from a typed action decision snapshot.
func NewActionDecision(v ActionDecisionScenario) Scenario {
	return Scenario{ActionDecision: &v}
}

// NewRaiseSizing builds a scenario from a typed raise sizing snapshot.
func NewRaiseSizing(v RaiseSizingScenario) Scenario {
	return Scenario{RaiseSizing: &v}
}

// Decode fills the variant for t from the kept raw JSON.
func (s *Scenario) Decode(t Type) error {
	if len(bytes.TrimSpace(s.raw)) == 0 {
		return fmt.Errorf("%w: empty snapshot", ErrInvalidScenario)
	}
	s.ActionDecision, s.RaiseSizing = nil, nil

	var err error
	switch t {
	case TypeActionDecision:
		var v ActionDecisionScenario
		err = json.Unmarshal(s.raw, &v)
		s.ActionDecision = &v
	case TypeRaiseSizing:
		var v RaiseSizingScenario
		err = json.Unmarshal(s.raw, &v)
		s.RaiseSizing = &v
	default:
		return fmt.Errorf("%w: unknown drill type %q", ErrInvalidScenario, t)
	}
	if err != nil {
		s.ActionDecision, s.RaiseSizing = nil, nil
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// Type returns the decoded variant's type, or "" when nothing is decoded.
func (s Scenario) Type() Type {
	switch {
	case s.ActionDecision != nil:
		return TypeActionDecision
	case s.RaiseSizing != nil:
		return TypeRaiseSizing
	}
	return ""
}

// CorrectAnswer returns the normalized expected answer embedded in the snapshot.
func (s Scenario) CorrectAnswer() string {
	switch {
	case s.ActionDecision != nil:
		return NormalizeAnswer(s.ActionDecision.CorrectAnswer)
	case s.RaiseSizing != nil:
		return NormalizeAnswer(s.RaiseSizing.CorrectAnswer)
	}
	return ""
}

// Explanation returns the explanation shown after grading.
func (s Scenario) Explanation() string {
	switch {
	case s.ActionDecision != nil:
		return s.ActionDecision.Explanation
	case s.RaiseSizing != nil:
		return s.RaiseSizing.Explanation
	}
	return ""
}

// Raw returns the snapshot bytes as submitted.
func (s Scenario) Raw() json.RawMessage {
	return s.raw
}

func (s Scenario) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	switch {
	case s.ActionDecision != nil:
		return json.Marshal(s.ActionDecision)
	case s.RaiseSizing != nil:
		return json.Marshal(s.RaiseSizing)
	}
	return []byte("null"), nil
}

// UnmarshalJSON keeps the bytes; call Decode to populate the variant.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	s.raw = bytes.Clone(data)
	s.ActionDecision, s.RaiseSizing = nil, nil
	return nil
}

// Value implements driver.Valuer.
func (s Scenario) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. The variant is decoded by the caller once the
// drill type column is known.
func (s *Scenario) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		s.raw = bytes.Clone(v)
	case string:
		s.raw = json.RawMessage(v)
	case nil:
		s.raw = nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidScenario, src)
	}
	s.ActionDecision, s.RaiseSizing = nil, nil
	return nil
}
