package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

// maxStepsPerObject bounds a single interaction so a broken catalogue
// cannot loop forever.
const maxStepsPerObject = 1000

// Report summarises a scripted playthrough.
type Report struct {
	Activations int
	TimerTime   time.Duration // Virtual time spent waiting on timed steps
	Order       []string      // Objects in the order they were finished
}

// playthrough plays a scenario to completion on a virtual clock. It works
// through the unlocked rooms in display order, finishing every object not
// yet completed and answering choice steps with their first accepted option.
func playthrough(scen *scenario.Scenario) (Report, error) {
	var report Report
	sched := steps.NewManualScheduler()
	s, err := state.NewSession(scen, state.WithScheduler(sched))
	if err != nil {
		return report, err
	}

	for !s.IsComplete() {
		roomID, objectID, ok := nextObject(s)
		if !ok {
			return report, fmt.Errorf("stuck with objective %q: no unfinished object in an unlocked room", s.Objective())
		}
		if err := s.MoveToRoom(roomID); err != nil {
			return report, fmt.Errorf("move to %s: %w", roomID, err)
		}
		if err := s.SelectObject(roomID, objectID); err != nil {
			return report, fmt.Errorf("select %s: %w", objectID, err)
		}
		if err := finishObject(s, sched, scen.Objects[objectID], &report); err != nil {
			return report, fmt.Errorf("object %s: %w", objectID, err)
		}
		report.Order = append(report.Order, objectID)
	}

	report.Activations = s.Snapshot().Activations
	return report, nil
}

func nextObject(s *state.Session) (string, string, bool) {
	scen := s.Scenario()
	for _, roomID := range scen.RoomIDs() {
		if !s.IsUnlocked(roomID) {
			continue
		}
		for _, objectID := range scen.Rooms[roomID].Objects {
			if !s.HasCompleted(objectID) {
				return roomID, objectID, true
			}
		}
	}
	return "", "", false
}

// finishObject performs each step of the active interaction until it closes.
func finishObject(s *state.Session, sched *steps.ManualScheduler, obj scenario.Object, report *Report) error {
	for i := 0; s.HasActiveInteraction(); i++ {
		if i >= maxStepsPerObject {
			return errors.New("interaction did not finish")
		}

		snap := s.Snapshot()
		sv := snap.Active.Step
		if sv == nil {
			return errors.New("active interaction has no current step")
		}
		step := obj.Steps[snap.Active.Index]

		switch step.Kind {
		case scenario.StepTimed:
			if err := s.StartActiveStep(); err != nil {
				return err
			}
			delay := step.Timer.Delay.Std()
			sched.Advance(delay)
			report.TimerTime += delay
			// Auto-advancing timers finish the step on their own
			if s.HasActiveInteraction() && s.Snapshot().Active.Index == snap.Active.Index {
				if err := s.AdvanceActiveStep(steps.Input{}); err != nil {
					return err
				}
			}
		case scenario.StepChoice:
			if len(step.Choice.Accepted) == 0 {
				return fmt.Errorf("step %d has no accepted answer", snap.Active.Index)
			}
			if err := s.AdvanceActiveStep(steps.Input{Choice: step.Choice.Accepted[0]}); err != nil {
				return err
			}
		default:
			if err := s.AdvanceActiveStep(steps.Input{}); err != nil {
				return err
			}
		}
	}
	return nil
}
