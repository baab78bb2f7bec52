package state

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/pkg/conditionals"
	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

// Session is the mutable progress of one player through a scenario. It is
// the only thing that changes the inventory, the unlocked rooms, the active
// interaction and the complete flag.
//
// A Session holds no locks. All calls, including timer deliveries posted by
// the scheduler, must come from a single dispatcher.
type Session struct {
	ID uuid.UUID

	scenario *scenario.Scenario

	currentRoom string
	unlocked    []string // Ordered set, in unlock order
	inventory   []string // Ordered set, in grant order
	completed   []string // Objects completed at least once
	objective   string
	complete    bool
	active      *interaction
	activations int

	createdAt time.Time
	updatedAt time.Time

	scheduler steps.Scheduler
	observer  func(Snapshot)
	logger    *slog.Logger
	now       func() time.Time
}

// interaction is the single active object and its step engine.
type interaction struct {
	room   string
	object string
	engine *steps.Engine
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithScheduler sets the scheduler used by timed steps. It is required.
func WithScheduler(sched steps.Scheduler) SessionOption {
	return func(s *Session) {
		s.scheduler = sched
	}
}

// WithObserver registers a function called with a fresh snapshot after every
// successful mutation, including ones driven by a timer.
func WithObserver(f func(Snapshot)) SessionOption {
	return func(s *Session) {
		s.observer = f
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession starts a session in the scenario's start room. A scheduler must
// be supplied with WithScheduler.
func NewSession(scen *scenario.Scenario, opts ...SessionOption) (*Session, error) {
	if scen == nil {
		return nil, errors.New("scenario is required")
	}
	if _, err := scen.GetRoom(scen.StartRoom); err != nil {
		return nil, err
	}

	s := &Session{
		scenario: scen,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scheduler == nil {
		return nil, errors.New("scheduler is required")
	}

	s.reset()
	s.logger.Debug("session started", "session_id", s.ID.String(), "scenario", scen.ID, "room", s.currentRoom)
	return s, nil
}

// reset puts the session back to its initial progress under a new id.
func (s *Session) reset() {
	s.ID = uuid.New()
	s.currentRoom = s.scenario.StartRoom
	s.unlocked = []string{s.scenario.StartRoom}
	s.inventory = nil
	s.completed = nil
	s.complete = false
	s.active = nil
	s.activations = 0
	s.createdAt = s.now()
	s.updatedAt = s.createdAt

	s.refreshUnlocks()
	s.objective = s.computeObjective()
	s.checkComplete()
}

// Scenario returns the catalogue the session plays.
func (s *Session) Scenario() *scenario.Scenario {
	return s.scenario
}

// HasItem implements conditionals.GameStateView.
func (s *Session) HasItem(item string) bool {
	return slices.Contains(s.inventory, item)
}

// HasCompleted implements conditionals.GameStateView.
func (s *Session) HasCompleted(objectID string) bool {
	return slices.Contains(s.completed, objectID)
}

// IsUnlocked implements conditionals.GameStateView.
func (s *Session) IsUnlocked(roomID string) bool {
	return slices.Contains(s.unlocked, roomID)
}

// CurrentRoom returns the id of the room the player is in.
func (s *Session) CurrentRoom() string {
	return s.currentRoom
}

// Objective returns the current objective text.
func (s *Session) Objective() string {
	return s.objective
}

// IsComplete reports whether the scenario's completion condition has been met.
func (s *Session) IsComplete() bool {
	return s.complete
}

// HasActiveInteraction reports whether an object is open.
func (s *Session) HasActiveInteraction() bool {
	return s.active != nil
}

// SelectObject opens an object in a room and starts its steps at index 0.
// While another interaction is open every selection is rejected as
// InvalidSelection, whatever the room or object.
func (s *Session) SelectObject(roomID, objectID string) error {
	if s.active != nil {
		return gameerr.WithMetadata(gameerr.CodeInvalidSelection, "another interaction is active",
			map[string]string{"active": s.active.object, "object": objectID})
	}
	room, err := s.scenario.GetRoom(roomID)
	if err != nil {
		return err
	}
	obj, err := s.scenario.GetObject(objectID)
	if err != nil {
		return err
	}
	if !s.IsUnlocked(roomID) {
		return s.roomLocked(roomID)
	}
	if !room.Contains(objectID) {
		return gameerr.WithMetadata(gameerr.CodeInvalidSelection, "object is not in room",
			map[string]string{"room": roomID, "object": objectID})
	}

	var engine *steps.Engine
	engine = steps.New(obj, s.scheduler,
		func() { s.completeInteraction(engine, obj) },
		steps.OnElapsed(func() { s.timerElapsed(obj.ID) }),
	)
	s.active = &interaction{room: roomID, object: objectID, engine: engine}
	s.activations++

	s.logger.Debug("interaction opened", "session_id", s.ID.String(), "room", roomID, "object", objectID,
		"steps", engine.Len())
	s.changed()
	return nil
}

// AdvanceActiveStep performs the current step of the active interaction.
// Completing the last step applies the object's effects before returning.
func (s *Session) AdvanceActiveStep(in steps.Input) error {
	if s.active == nil {
		return errNoActiveInteraction()
	}
	if err := s.active.engine.Advance(in); err != nil {
		return err
	}
	s.changed()
	return nil
}

// StartActiveStep starts the timer of the active interaction's timed step.
func (s *Session) StartActiveStep() error {
	if s.active == nil {
		return errNoActiveInteraction()
	}
	if err := s.active.engine.Start(); err != nil {
		return err
	}
	s.logger.Debug("timer started", "session_id", s.ID.String(), "object", s.active.object,
		"step", s.active.engine.Index())
	s.changed()
	return nil
}

// SelectChoice records an answer on the active choice step without advancing.
func (s *Session) SelectChoice(optionID string) error {
	if s.active == nil {
		return errNoActiveInteraction()
	}
	if err := s.active.engine.Select(optionID); err != nil {
		return err
	}
	s.changed()
	return nil
}

// CloseActiveInteraction drops the active interaction without any reward.
// Any running timer is cancelled.
func (s *Session) CloseActiveInteraction() error {
	if s.active == nil {
		return errNoActiveInteraction()
	}
	s.active.engine.Discard()
	s.logger.Debug("interaction closed", "session_id", s.ID.String(), "object", s.active.object,
		"step", s.active.engine.Index())
	s.active = nil
	s.changed()
	return nil
}

// MoveToRoom changes the current room. The room must be unlocked and no
// interaction may be open.
func (s *Session) MoveToRoom(roomID string) error {
	if _, err := s.scenario.GetRoom(roomID); err != nil {
		return err
	}
	if !s.IsUnlocked(roomID) {
		return s.roomLocked(roomID)
	}
	if s.active != nil {
		return gameerr.WithMetadata(gameerr.CodeInvalidSelection, "close the active interaction before moving",
			map[string]string{"active": s.active.object, "room": roomID})
	}
	if roomID == s.currentRoom {
		return nil
	}

	s.logger.Debug("moved", "session_id", s.ID.String(), "from", s.currentRoom, "to", roomID)
	s.currentRoom = roomID
	s.changed()
	return nil
}

// Restart discards any active interaction and returns to the initial state
// under a new session id. The restarted session is a new session: the old id
// keeps no progress, so a completed run is never un-completed under its id.
func (s *Session) Restart() {
	if s.active != nil {
		s.active.engine.Discard()
	}
	old := s.ID
	s.reset()
	s.logger.Info("session restarted", "old_session_id", old.String(), "session_id", s.ID.String())
	s.changed()
}

// Close cancels any running timer without notifying the observer. The
// session must not be used afterwards.
func (s *Session) Close() {
	if s.active != nil {
		s.active.engine.Discard()
		s.active = nil
	}
}

// completeInteraction applies an object's effects. It runs inside the engine
// call that finished the last step.
func (s *Session) completeInteraction(engine *steps.Engine, obj *scenario.Object) {
	if s.active == nil || s.active.engine != engine {
		return
	}

	if obj.HasEffect() {
		s.applyEffects(obj)
	}
	if !s.HasCompleted(obj.ID) {
		s.completed = append(s.completed, obj.ID)
	}
	s.active = nil

	s.refreshUnlocks()
	s.objective = s.computeObjective()
	s.checkComplete()

	s.logger.Debug("interaction completed", "session_id", s.ID.String(), "object", obj.ID,
		"effect", obj.HasEffect(), "objective", s.objective)
}

// applyEffects grants the object's reward and unlocks the rooms it names.
func (s *Session) applyEffects(obj *scenario.Object) {
	if obj.Reward != "" && !s.HasItem(obj.Reward) {
		s.inventory = append(s.inventory, obj.Reward)
		s.logger.Debug("item granted", "session_id", s.ID.String(), "item", obj.Reward)
	}
	for _, roomID := range obj.Unlocks {
		s.unlock(roomID)
	}
}

// roomLocked reports a locked room along with the parts of its unlock
// condition that still do not hold.
func (s *Session) roomLocked(roomID string) error {
	err := gameerr.RoomLocked(roomID)
	when, _ := s.scenario.UnlockCondition(roomID)
	if when == nil {
		return err
	}
	missing := conditionals.Missing(*when, s)
	if len(missing.Items) > 0 {
		err.Metadata["needs_items"] = strings.Join(missing.Items, ",")
	}
	if len(missing.Objects) > 0 {
		err.Metadata["needs_objects"] = strings.Join(missing.Objects, ",")
	}
	if len(missing.Rooms) > 0 {
		err.Metadata["needs_rooms"] = strings.Join(missing.Rooms, ",")
	}
	return err
}

func errNoActiveInteraction() error {
	return gameerr.New(gameerr.CodeNoActiveInteraction, "no active interaction")
}

func (s *Session) timerElapsed(objectID string) {
	s.logger.Debug("timer elapsed", "session_id", s.ID.String(), "object", objectID)
	s.changed()
}

func (s *Session) unlock(roomID string) {
	if s.IsUnlocked(roomID) {
		return
	}
	if _, ok := s.scenario.Rooms[roomID]; !ok {
		return
	}
	s.unlocked = append(s.unlocked, roomID)
	s.logger.Debug("room unlocked", "session_id", s.ID.String(), "room", roomID)
}

// refreshUnlocks adds every room whose condition now holds. Conditions may
// name other rooms, so it repeats until nothing changes.
func (s *Session) refreshUnlocks() {
	for {
		changed := false
		for _, id := range s.scenario.RoomIDs() {
			if s.IsUnlocked(id) {
				continue
			}
			when, err := s.scenario.UnlockCondition(id)
			if err != nil || when == nil {
				continue
			}
			if conditionals.EvaluateWhen(*when, s) {
				s.unlock(id)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (s *Session) computeObjective() string {
	for _, obj := range s.scenario.Objectives {
		if !conditionals.EvaluateWhen(obj.DoneWhen, s) {
			return obj.Text
		}
	}
	return s.scenario.CompletionText
}

func (s *Session) checkComplete() {
	if s.complete {
		return
	}
	if conditionals.EvaluateWhen(s.scenario.Completion, s) {
		s.complete = true
		s.logger.Info("scenario complete", "session_id", s.ID.String(), "scenario", s.scenario.ID,
			"activations", s.activations)
	}
}

// changed stamps the session and notifies the observer.
func (s *Session) changed() {
	s.updatedAt = s.now()
	if s.observer != nil {
		s.observer(s.Snapshot())
	}
}
