// Package dialog holds the per-phone conversation state of the bot and the
// stores that persist it between messages.
package dialog

import (
	"encoding/json"
	"fmt"
)

// Wire values of the step discriminator.
const (
	StepIdle           = "IDLE"
	StepSelectType     = "SELECT_TYPE"
	StepSelectMap      = "SELECT_MAP"
	StepSelectReturn   = "SELECT_RETURN"
	StepAwaitingReason = "AWAITING_REASON"
)

// State is where a phone number is within the request/return conversation.
// The set of variants is closed: Idle, SelectingType, SelectingMap,
// SelectingReturn and AwaitingReason.
type State interface {
	Step() string
	isState()
}

// Idle is the state of a phone with no conversation in progress.
type Idle struct{}

// SelectingType waits for the territory type choice.
type SelectingType struct{}

// MapOption is one territory offered in a SelectingMap menu.
type MapOption struct {
	Code        string `json:"code"`
	TerritoryID string `json:"id"`
}

// SelectingMap waits for the manager to pick one of the offered territories.
type SelectingMap struct {
	Options []MapOption
}

// ReturnOption is one active assignment offered in a SelectingReturn menu.
type ReturnOption struct {
	Code          string `json:"code"`
	AssignmentID  string `json:"id"`
	TerritoryName string `json:"name"`
}

// SelectingReturn waits for the manager to pick which territory to return.
type SelectingReturn struct {
	Options []ReturnOption
}

// AwaitingReason waits for the return reason of one assignment.
type AwaitingReason struct {
	AssignmentID string
}

func (Idle) Step() string            { return StepIdle }
func (SelectingType) Step() string   { return StepSelectType }
func (SelectingMap) Step() string    { return StepSelectMap }
func (SelectingReturn) Step() string { return StepSelectReturn }
func (AwaitingReason) Step() string  { return StepAwaitingReason }

func (Idle) isState()            {}
func (SelectingType) isState()   {}
func (SelectingMap) isState()    {}
func (SelectingReturn) isState() {}
func (AwaitingReason) isState()  {}

// Find returns the menu option with the given code.
func (s SelectingMap) Find(code string) (MapOption, bool) {
	for _, o := range s.Options {
		if o.Code == code {
			return o, true
		}
	}
	return MapOption{}, false
}

// Find returns the menu option with the given code.
func (s SelectingReturn) Find(code string) (ReturnOption, bool) {
	for _, o := range s.Options {
		if o.Code == code {
			return o, true
		}
	}
	return ReturnOption{}, false
}

type wireState struct {
	Step         string         `json:"step"`
	MapOptions   []MapOption    `json:"mapOptions,omitempty"`
	Assignments  []ReturnOption `json:"assignments,omitempty"`
	AssignmentID string         `json:"assignmentId,omitempty"`
}

// Encode serializes a state as {"step": ..., <variant fields>}.
func Encode(s State) ([]byte, error) {
	var w wireState
	switch v := s.(type) {
	case nil, Idle:
		w.Step = StepIdle
	case SelectingType:
		w.Step = StepSelectType
	case SelectingMap:
		w.Step = StepSelectMap
		w.MapOptions = v.Options
	case SelectingReturn:
		w.Step = StepSelectReturn
		w.Assignments = v.Options
	case AwaitingReason:
		w.Step = StepAwaitingReason
		w.AssignmentID = v.AssignmentID
	default:
		return nil, fmt.Errorf("dialog: encode: unknown state %T", s)
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("dialog: encode: %w", err)
	}
	return b, nil
}

// Decode parses a serialized state. Unknown steps and variants missing
// their required fields are errors.
func Decode(data []byte) (State, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("dialog: decode: %w", err)
	}
	switch w.Step {
	case StepIdle:
		return Idle{}, nil
	case StepSelectType:
		return SelectingType{}, nil
	case StepSelectMap:
		if len(w.MapOptions) == 0 {
			return nil, fmt.Errorf("dialog: decode: %s without options", w.Step)
		}
		return SelectingMap{Options: w.MapOptions}, nil
	case StepSelectReturn:
		if len(w.Assignments) == 0 {
			return nil, fmt.Errorf("dialog: decode: %s without options", w.Step)
		}
		return SelectingReturn{Options: w.Assignments}, nil
	case StepAwaitingReason:
		if w.AssignmentID == "" {
			return nil, fmt.Errorf("dialog: decode: %s without assignmentId", w.Step)
		}
		return AwaitingReason{AssignmentID: w.AssignmentID}, nil
	}
	return nil, fmt.Errorf("dialog: decode: unknown step %q", w.Step)
}
