package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StepKind tags which payload of a Step is in use and which completion
// predicate the step engine applies.
type StepKind string

const (
	// StepSequential is satisfied as soon as its action is invoked.
	StepSequential StepKind = "sequential"
	// StepTimed is satisfied once its delay has elapsed after being started.
	StepTimed StepKind = "timed"
	// StepChoice is satisfied when the selection is one of the accepted options.
	StepChoice StepKind = "choice"
	// StepDisplay is satisfied by a single acknowledgement.
	StepDisplay StepKind = "display"
)

// Valid reports whether k is one of the known kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepSequential, StepTimed, StepChoice, StepDisplay:
		return true
	}
	return false
}

// Step is one unit of an object's procedure. Only the payload matching Kind
// is read; the others are ignored.
type Step struct {
	Description string       `json:"description" yaml:"description"`
	Kind        StepKind     `json:"kind" yaml:"kind"`
	Action      string       `json:"action,omitempty" yaml:"action,omitempty"` // Button label for sequential steps
	Timer       *TimerStep   `json:"timer,omitempty" yaml:"timer,omitempty"`
	Choice      *ChoiceStep  `json:"choice,omitempty" yaml:"choice,omitempty"`
	Display     *DisplayStep `json:"display,omitempty" yaml:"display,omitempty"`
}

// Label is the text of the control that performs the step.
func (s Step) Label() string {
	switch s.Kind {
	case StepSequential:
		if s.Action != "" {
			return s.Action
		}
	case StepTimed:
		if s.Timer != nil && s.Timer.StartLabel != "" {
			return s.Timer.StartLabel
		}
		return "Start"
	case StepChoice:
		if s.Choice != nil && s.Choice.ConfirmLabel != "" {
			return s.Choice.ConfirmLabel
		}
		return "Confirm"
	case StepDisplay:
		if s.Display != nil && s.Display.ContinueLabel != "" {
			return s.Display.ContinueLabel
		}
		return "Continue"
	}
	return s.Description
}

// TimerStep models a process that runs for a fixed real-time delay.
type TimerStep struct {
	Delay       Duration `json:"delay" yaml:"delay"`
	StartLabel  string   `json:"start_label,omitempty" yaml:"start_label,omitempty"`
	RunningText string   `json:"running_text,omitempty" yaml:"running_text,omitempty"`
	AutoAdvance bool     `json:"auto_advance,omitempty" yaml:"auto_advance,omitempty"` // Advance by itself once elapsed
}

// Option is one selectable answer of a choice step.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Lane is one column of a gel image: a sample label and its band positions
// in percent from the top. Display only.
type Lane struct {
	Label string `json:"label" yaml:"label"`
	Bands []int  `json:"bands" yaml:"bands"`
}

// ChoiceStep is a quiz: the player must pick one of the accepted options.
type ChoiceStep struct {
	Prompt       string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Options      []Option `json:"options" yaml:"options"`
	Accepted     []string `json:"accepted" yaml:"accepted"` // Option IDs that satisfy the step
	Lanes        []Lane   `json:"lanes,omitempty" yaml:"lanes,omitempty"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	ConfirmLabel string   `json:"confirm_label,omitempty" yaml:"confirm_label,omitempty"`
}

// HasOption reports whether id names one of the step's options.
func (c *ChoiceStep) HasOption(id string) bool {
	for _, o := range c.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Accepts reports whether id is one of the accepted answers.
func (c *ChoiceStep) Accepts(id string) bool {
	for _, a := range c.Accepted {
		if a == id {
			return true
		}
	}
	return false
}

// Slide is a page of informational text.
type Slide struct {
	Title string   `json:"title" yaml:"title"`
	Lines []string `json:"lines" yaml:"lines"`
}

// DisplayStep is read-and-continue content with no quiz logic.
type DisplayStep struct {
	Slides        []Slide `json:"slides,omitempty" yaml:"slides,omitempty"`
	Image         string  `json:"image,omitempty" yaml:"image,omitempty"`
	ContinueLabel string  `json:"continue_label,omitempty" yaml:"continue_label,omitempty"`
}

// Duration is a time.Duration that decodes from "3s"-style strings, or from
// a bare number of milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "3s" or 3000.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return d.parse(str)
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s: %w", string(data), err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "3s" or 3000.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration at line %d", value.Line)
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}
