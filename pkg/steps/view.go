package steps

import (
	"slices"

	"github.com/jwebster45206/lab-engine/pkg/scenario"
)

// View is a read-only copy of an engine's state for front-ends.
type View struct {
	ObjectID   string           `json:"object_id"`
	ObjectName string           `json:"object_name"`
	Closable   bool             `json:"closable"`
	Index      int              `json:"index"`
	Len        int              `json:"len"`
	Complete   bool             `json:"complete"`
	Step       *StepView        `json:"step,omitempty"` // nil once complete
	Checklist  []ChecklistEntry `json:"checklist"`
}

// ChecklistEntry is one line of the protocol checklist shown beside the step.
type ChecklistEntry struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// StepView describes the current step and its transient state.
type StepView struct {
	Description string            `json:"description"`
	Kind        scenario.StepKind `json:"kind"`
	Label       string            `json:"label"` // Text of the control that performs the step
	Satisfied   bool              `json:"satisfied"`

	// Timed
	Delay       string `json:"delay,omitempty"`
	RunningText string `json:"running_text,omitempty"`
	Started     bool   `json:"started,omitempty"`
	Elapsed     bool   `json:"elapsed,omitempty"`
	AutoAdvance bool   `json:"auto_advance,omitempty"`

	// Choice
	Prompt      string            `json:"prompt,omitempty"`
	Options     []scenario.Option `json:"options,omitempty"`
	Selection   string            `json:"selection,omitempty"`
	Lanes       []scenario.Lane   `json:"lanes,omitempty"`
	Explanation string            `json:"explanation,omitempty"` // Only once the correct option is selected

	// Display
	Slides []scenario.Slide `json:"slides,omitempty"`
	Image  string           `json:"image,omitempty"`
}

// View returns a deep copy of the engine state.
func (e *Engine) View() View {
	v := View{
		ObjectID:   e.object.ID,
		ObjectName: e.object.Name,
		Closable:   e.object.Closable,
		Index:      e.index,
		Len:        len(e.object.Steps),
		Complete:   e.IsComplete(),
		Checklist:  make([]ChecklistEntry, 0, len(e.object.Steps)),
	}
	for i, step := range e.object.Steps {
		v.Checklist = append(v.Checklist, ChecklistEntry{Label: step.Label(), Done: i < e.index})
	}

	step := e.Current()
	if step == nil {
		return v
	}

	sv := &StepView{
		Description: step.Description,
		Kind:        step.Kind,
		Label:       step.Label(),
		Satisfied:   e.Satisfied(),
	}
	switch step.Kind {
	case scenario.StepTimed:
		if step.Timer != nil {
			sv.Delay = step.Timer.Delay.String()
			sv.RunningText = step.Timer.RunningText
			sv.AutoAdvance = step.Timer.AutoAdvance
		}
		sv.Started = e.started
		sv.Elapsed = e.elapsed
	case scenario.StepChoice:
		if step.Choice != nil {
			sv.Prompt = step.Choice.Prompt
			sv.Options = slices.Clone(step.Choice.Options)
			sv.Lanes = cloneLanes(step.Choice.Lanes)
			if sv.Satisfied {
				sv.Explanation = step.Choice.Explanation
			}
		}
		sv.Selection = e.selection
	case scenario.StepDisplay:
		if step.Display != nil {
			sv.Slides = cloneSlides(step.Display.Slides)
			sv.Image = step.Display.Image
		}
	}
	v.Step = sv
	return v
}

func cloneLanes(lanes []scenario.Lane) []scenario.Lane {
	if lanes == nil {
		return nil
	}
	out := make([]scenario.Lane, len(lanes))
	for i, l := range lanes {
		out[i] = scenario.Lane{Label: l.Label, Bands: slices.Clone(l.Bands)}
	}
	return out
}

func cloneSlides(slides []scenario.Slide) []scenario.Slide {
	if slides == nil {
		return nil
	}
	out := make([]scenario.Slide, len(slides))
	for i, s := range slides {
		out[i] = scenario.Slide{Title: s.Title, Lines: slices.Clone(s.Lines)}
	}
	return out
}
