// Package steps drives one interactive object's step sequence to completion.
package steps

import (
	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
)

// Input is the payload of an advance intent.
type Input struct {
	Choice string `json:"choice,omitempty"` // Answer for a choice step, used in place of the recorded selection
}

// Option configures an Engine.
type Option func(*Engine)

// OnElapsed registers a hook called after a timed step's delay is delivered
// and applied, whether or not the step advanced by itself.
func OnElapsed(f func()) Option {
	return func(e *Engine) {
		e.onElapsed = f
	}
}

// Engine is the runtime state of one activation of an interactive object.
// It is not safe for concurrent use; the owner serialises all calls,
// including timer deliveries (see Scheduler).
type Engine struct {
	object    scenario.Object
	scheduler Scheduler

	index int

	// Transient state of the current step, reset on every advance.
	selection string
	started   bool
	elapsed   bool
	timer     Timer

	done       bool // onComplete has fired
	discarded  bool
	onComplete func()
	onElapsed  func()
}

// New creates an engine at index 0. onComplete is invoked exactly once, from
// the call that moves the index to the end of the sequence.
func New(obj *scenario.Object, scheduler Scheduler, onComplete func(), opts ...Option) *Engine {
	e := &Engine{
		object:     *obj,
		scheduler:  scheduler,
		onComplete: onComplete,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ObjectID returns the id of the object being driven.
func (e *Engine) ObjectID() string {
	return e.object.ID
}

// Index is the 0-based index of the current step. It equals Len once complete.
func (e *Engine) Index() int {
	return e.index
}

// Len is the number of steps.
func (e *Engine) Len() int {
	return len(e.object.Steps)
}

// IsComplete reports whether every step has been performed.
func (e *Engine) IsComplete() bool {
	return e.index >= len(e.object.Steps)
}

// Current returns the current step, or nil once complete.
func (e *Engine) Current() *scenario.Step {
	if e.IsComplete() {
		return nil
	}
	step := e.object.Steps[e.index]
	return &step
}

// Satisfied reports whether the current step's predicate holds, so that the
// next Advance will succeed.
func (e *Engine) Satisfied() bool {
	if e.discarded || e.IsComplete() {
		return false
	}
	step := e.object.Steps[e.index]
	switch step.Kind {
	case scenario.StepSequential, scenario.StepDisplay:
		return true
	case scenario.StepTimed:
		return e.elapsed
	case scenario.StepChoice:
		return step.Choice != nil && e.selection != "" && step.Choice.Accepts(e.selection)
	}
	return false
}

// Advance performs the current step and moves to the next one. A choice in
// the input stands in for the recorded selection. The index only moves when
// the step's predicate holds; otherwise StepNotSatisfied is returned and the
// engine is unchanged.
func (e *Engine) Advance(in Input) error {
	if err := e.checkLive(); err != nil {
		return err
	}

	step := e.object.Steps[e.index]
	if in.Choice != "" && step.Kind == scenario.StepChoice && step.Choice != nil {
		// Unknown and wrong answers alike leave the recorded selection alone
		if !step.Choice.Accepts(in.Choice) {
			return gameerr.StepNotSatisfied("incorrect selection")
		}
		e.selection = in.Choice
	}

	if !e.Satisfied() {
		return gameerr.StepNotSatisfied(e.unmetReason(step))
	}

	e.next()
	return nil
}

// Start activates the current timed step, scheduling its delay. Calling it
// again while the delay is running is a no-op.
func (e *Engine) Start() error {
	if err := e.checkLive(); err != nil {
		return err
	}

	step := e.object.Steps[e.index]
	if step.Kind != scenario.StepTimed || step.Timer == nil {
		return gameerr.StepNotSatisfied("current step is not timed")
	}
	if e.started {
		return nil
	}

	e.started = true
	index := e.index
	e.timer = e.scheduler.AfterFunc(step.Timer.Delay.Std(), func() {
		e.deliver(index)
	})
	return nil
}

// Select records the selection of the current choice step without advancing.
// An id that is not one of the step's options is rejected as an incorrect
// selection and the previous selection is kept.
func (e *Engine) Select(optionID string) error {
	if err := e.checkLive(); err != nil {
		return err
	}

	step := e.object.Steps[e.index]
	if step.Kind != scenario.StepChoice || step.Choice == nil {
		return gameerr.StepNotSatisfied("current step is not a choice")
	}
	if !step.Choice.HasOption(optionID) {
		return gameerr.StepNotSatisfied("incorrect selection")
	}

	e.selection = optionID
	return nil
}

// Discard cancels any scheduled timer and makes the engine inert. Every later
// call is rejected and a timer delivery that was already posted is ignored.
func (e *Engine) Discard() {
	e.stopTimer()
	e.discarded = true
}

func (e *Engine) checkLive() error {
	if e.discarded {
		return gameerr.StepNotSatisfied("interaction was closed")
	}
	if e.IsComplete() {
		return gameerr.StepNotSatisfied("interaction already complete")
	}
	return nil
}

func (e *Engine) unmetReason(step scenario.Step) string {
	switch step.Kind {
	case scenario.StepTimed:
		if e.started {
			return "timer still running"
		}
		return "timer not started"
	case scenario.StepChoice:
		if e.selection == "" {
			return "no option selected"
		}
		return "incorrect selection"
	}
	return "unknown step kind"
}

// next moves to the following step and fires the completion event when the
// end is reached.
func (e *Engine) next() {
	e.stopTimer()
	e.index++
	e.selection = ""
	e.started = false
	e.elapsed = false

	if e.IsComplete() && !e.done {
		e.done = true
		if e.onComplete != nil {
			e.onComplete()
		}
	}
}

// deliver is the timer callback. It only applies to the step that scheduled it.
func (e *Engine) deliver(index int) {
	if e.discarded || e.index != index || !e.started {
		return
	}

	e.timer = nil
	e.elapsed = true
	step := e.object.Steps[e.index]
	if step.Timer.AutoAdvance {
		e.next()
	}
	if e.onElapsed != nil {
		e.onElapsed()
	}
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
