package scenario

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jwebster45206/lab-engine/pkg/conditionals"
)

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// IsValidID reports whether id is lowercase snake_case.
func IsValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

// ValidationError collects every problem found in a catalogue.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

type validator struct {
	s        *Scenario
	problems []string
}

// Validate checks the referential integrity of the catalogue. It returns a
// *ValidationError listing every problem, or nil.
func (s *Scenario) Validate() error {
	v := &validator{s: s}
	v.validate()
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func (v *validator) addError(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError("%s is empty", fieldName)
		return
	}
	if !IsValidID(id) {
		v.addError("%s '%s' should be lowercase snake_case", fieldName, id)
	}
}

func (v *validator) validate() {
	s := v.s
	if s.Name == "" {
		v.addError("scenario name is required")
	}
	if len(s.Rooms) == 0 {
		v.addError("scenario has no rooms")
	}

	v.validateIDFormat("start_room", s.StartRoom)
	if _, ok := s.Rooms[s.StartRoom]; s.StartRoom != "" && !ok {
		v.addError("start_room '%s' is not a room", s.StartRoom)
	}

	for _, id := range s.RoomOrder {
		if _, ok := s.Rooms[id]; !ok {
			v.addError("room_order names unknown room '%s'", id)
		}
	}

	for _, itemID := range sortedKeys(s.Items) {
		v.validateIDFormat("item ID", itemID)
	}

	// Sorted iteration keeps the problem list stable between runs.
	for _, roomID := range sortedKeys(s.Rooms) {
		v.validateRoom(roomID, s.Rooms[roomID])
	}
	for _, objectID := range sortedKeys(s.Objects) {
		v.validateObject(objectID, s.Objects[objectID])
	}

	for i, obj := range s.Objectives {
		if obj.Text == "" {
			v.addError("objective %d has no text", i)
		}
		v.validateWhen(obj.DoneWhen, fmt.Sprintf("objective %d", i))
	}
	v.validateWhen(s.Completion, "completion")
}

func (v *validator) validateRoom(roomID string, room Room) {
	v.validateIDFormat("room ID", roomID)
	if room.Name == "" {
		v.addError("room '%s' has no name", roomID)
	}

	seen := make(map[string]bool)
	for _, objectID := range room.Objects {
		if _, ok := v.s.Objects[objectID]; !ok {
			v.addError("room '%s' contains unknown object '%s'", roomID, objectID)
		}
		if seen[objectID] {
			v.addError("room '%s' lists object '%s' twice", roomID, objectID)
		}
		seen[objectID] = true
	}

	if room.UnlockWhen != nil {
		v.validateWhen(*room.UnlockWhen, fmt.Sprintf("room '%s' unlock_when", roomID))
	}
}

func (v *validator) validateObject(objectID string, obj Object) {
	v.validateIDFormat("object ID", objectID)
	if obj.Name == "" {
		v.addError("object '%s' has no name", objectID)
	}
	if len(obj.Steps) == 0 {
		v.addError("object '%s' has no steps", objectID)
	}

	if obj.Reward != "" {
		if _, ok := v.s.Items[obj.Reward]; !ok {
			v.addError("object '%s' rewards undeclared item '%s'", objectID, obj.Reward)
		}
	}
	for _, roomID := range obj.Unlocks {
		if _, ok := v.s.Rooms[roomID]; !ok {
			v.addError("object '%s' unlocks unknown room '%s'", objectID, roomID)
		}
	}

	for i, step := range obj.Steps {
		v.validateStep(fmt.Sprintf("object '%s' step %d", objectID, i), step)
	}
}

func (v *validator) validateStep(context string, step Step) {
	if !step.Kind.Valid() {
		v.addError("%s has unknown kind '%s'", context, step.Kind)
		return
	}

	switch step.Kind {
	case StepTimed:
		if step.Timer == nil || step.Timer.Delay <= 0 {
			v.addError("%s is timed but has no positive delay", context)
		}
	case StepChoice:
		if step.Choice == nil || len(step.Choice.Options) == 0 {
			v.addError("%s is a choice without options", context)
			return
		}
		if len(step.Choice.Accepted) == 0 {
			v.addError("%s has no accepted answers", context)
		}
		for _, accepted := range step.Choice.Accepted {
			if !step.Choice.HasOption(accepted) {
				v.addError("%s accepts '%s' which is not an option", context, accepted)
			}
		}
		seen := make(map[string]bool)
		for _, o := range step.Choice.Options {
			v.validateIDFormat(context+" option ID", o.ID)
			if seen[o.ID] {
				v.addError("%s has duplicate option '%s'", context, o.ID)
			}
			seen[o.ID] = true
		}
	}
}

func (v *validator) validateWhen(when conditionals.When, context string) {
	if when.IsEmpty() {
		v.addError("%s has empty condition - no requirements specified", context)
		return
	}
	for _, item := range when.Items {
		if _, ok := v.s.Items[item]; !ok {
			v.addError("%s requires undeclared item '%s'", context, item)
		}
	}
	for _, objectID := range when.Objects {
		if _, ok := v.s.Objects[objectID]; !ok {
			v.addError("%s requires unknown object '%s'", context, objectID)
		}
	}
	for _, roomID := range when.Rooms {
		if _, ok := v.s.Rooms[roomID]; !ok {
			v.addError("%s requires unknown room '%s'", context, roomID)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
