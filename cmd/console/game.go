package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

// timerMsg carries a timer delivery into the update loop, which is the only
// goroutine allowed to touch the session.
type timerMsg struct {
	deliver func()
}

// game is a local session whose timers are dispatched by the bubbletea loop.
type game struct {
	session *state.Session
	timers  chan func()
	scale   float64
}

func newGame(scen *scenario.Scenario, scale float64, logger *slog.Logger) (*game, error) {
	timers := make(chan func(), 8)
	sched := steps.DeferredScheduler{Post: func(f func()) { timers <- f }}

	s, err := state.NewSession(scen,
		state.WithScheduler(steps.Scaled(sched, scale)),
		state.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &game{session: s, timers: timers, scale: scale}, nil
}

// waitForTimer blocks until a timer fires and hands it to Update.
func (g *game) waitForTimer() tea.Cmd {
	return func() tea.Msg {
		return timerMsg{deliver: <-g.timers}
	}
}

// timerDelay is the real running time of a timed step view.
func (g *game) timerDelay(sv *steps.StepView) time.Duration {
	d, err := time.ParseDuration(sv.Delay)
	if err != nil {
		return 0
	}
	return time.Duration(float64(d) * g.scale)
}

func (g *game) snapshotJSON() (string, error) {
	data, err := json.MarshalIndent(g.session.Snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(data), nil
}

// action is one entry of the action list under the main panel.
type action struct {
	label    string
	selected bool // Marks the recorded answer of a choice step
	done     bool // Marks an object completed at least once
	starts   bool // Starts a timer, so the progress bar begins
	run      func(*state.Session) error
}

// buildActions lists what the player can do from a snapshot.
func buildActions(snap state.Snapshot) []action {
	if snap.Active == nil {
		return roomActions(snap)
	}

	var actions []action
	if sv := snap.Active.Step; sv != nil {
		switch sv.Kind {
		case scenario.StepTimed:
			switch {
			case !sv.Started:
				actions = append(actions, action{label: sv.Label, starts: true, run: start})
			case sv.Elapsed && !sv.AutoAdvance:
				actions = append(actions, action{label: "Continue", run: advance})
			}
		case scenario.StepChoice:
			for _, opt := range sv.Options {
				actions = append(actions, action{
					label:    opt.Label,
					selected: opt.ID == sv.Selection,
					run:      choose(opt.ID),
				})
			}
			actions = append(actions, action{label: sv.Label, run: advance})
		default:
			actions = append(actions, action{label: sv.Label, run: advance})
		}
	}
	if snap.Active.Closable {
		actions = append(actions, action{label: "Close", run: func(s *state.Session) error {
			return s.CloseActiveInteraction()
		}})
	}
	return actions
}

func roomActions(snap state.Snapshot) []action {
	var actions []action
	if room := snap.Room(snap.CurrentRoom); room != nil {
		for _, obj := range room.Objects {
			roomID, objectID := room.ID, obj.ID
			actions = append(actions, action{
				label: obj.Name,
				done:  obj.Completed,
				run: func(s *state.Session) error {
					return s.SelectObject(roomID, objectID)
				},
			})
		}
	}
	for _, room := range snap.Rooms {
		if !room.Unlocked || room.Current {
			continue
		}
		roomID := room.ID
		actions = append(actions, action{
			label: "Go to " + room.Name,
			run: func(s *state.Session) error {
				return s.MoveToRoom(roomID)
			},
		})
	}
	if snap.Complete {
		actions = append(actions, action{label: "Start New Game", run: func(s *state.Session) error {
			s.Restart()
			return nil
		}})
	}
	return actions
}

func start(s *state.Session) error {
	return s.StartActiveStep()
}

func advance(s *state.Session) error {
	return s.AdvanceActiveStep(steps.Input{})
}

func choose(optionID string) func(*state.Session) error {
	return func(s *state.Session) error {
		return s.SelectChoice(optionID)
	}
}
