package scenario

import (
	"sort"
	"strings"

	"github.com/jwebster45206/lab-engine/pkg/conditionals"
	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Objective is one line of guidance shown to the player. The active objective
// is the first one whose DoneWhen is not yet satisfied.
type Objective struct {
	Text     string            `json:"text" yaml:"text"`
	DoneWhen conditionals.When `json:"done_when" yaml:"done_when"`
}

// Scenario is the static catalogue for one training game: the room graph,
// the interactive object registry and the rules tying them together.
// A Scenario never changes once loaded.
type Scenario struct {
	ID             string            `json:"id" yaml:"id"`                           // Also the file name without extension
	Name           string            `json:"name" yaml:"name"`                       // Display name of the scenario
	Story          string            `json:"story,omitempty" yaml:"story,omitempty"` // Brief description shown at start
	StartRoom      string            `json:"start_room" yaml:"start_room"`           // Room the player starts in, always unlocked
	RoomOrder      []string          `json:"room_order,omitempty" yaml:"room_order,omitempty"`
	Rooms          map[string]Room   `json:"rooms" yaml:"rooms"`                     // Room ID → Room
	Objects        map[string]Object `json:"objects" yaml:"objects"`                 // Object ID → Object
	Items          map[string]string `json:"items,omitempty" yaml:"items,omitempty"` // Item ID → display name
	Objectives     []Objective       `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Completion     conditionals.When `json:"completion" yaml:"completion"` // Final condition for the game
	CompletionText string            `json:"completion_text,omitempty" yaml:"completion_text,omitempty"`
}

// Normalize fills the ID fields of rooms and objects from their map keys.
// Loaders call it once after decoding.
func (s *Scenario) Normalize() {
	for id, room := range s.Rooms {
		room.ID = id
		s.Rooms[id] = room
	}
	for id, obj := range s.Objects {
		obj.ID = id
		s.Objects[id] = obj
	}
}

// GetRoom returns the room with the given id.
func (s *Scenario) GetRoom(id string) (*Room, error) {
	room, ok := s.Rooms[id]
	if !ok {
		return nil, gameerr.NotFound("room", id)
	}
	return &room, nil
}

// GetObject returns the interactive object with the given id.
func (s *Scenario) GetObject(id string) (*Object, error) {
	obj, ok := s.Objects[id]
	if !ok {
		return nil, gameerr.NotFound("object", id)
	}
	return &obj, nil
}

// UnlockCondition returns the predicate under which the room becomes
// unlocked. A nil predicate means the room has no condition of its own: it is
// unlocked from the start if it is the start room, or only through an
// object's unlock effect otherwise. Evaluation is left to the caller.
func (s *Scenario) UnlockCondition(id string) (*conditionals.When, error) {
	room, ok := s.Rooms[id]
	if !ok {
		return nil, gameerr.NotFound("room", id)
	}
	if room.UnlockWhen == nil {
		return nil, nil
	}
	when := *room.UnlockWhen
	return &when, nil
}

// RoomIDs returns every room id in display order. Rooms missing from
// RoomOrder follow in lexical order.
func (s *Scenario) RoomIDs() []string {
	ids := make([]string, 0, len(s.Rooms))
	seen := make(map[string]bool, len(s.Rooms))
	for _, id := range s.RoomOrder {
		if _, ok := s.Rooms[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	var rest []string
	for id := range s.Rooms {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// ItemName returns the display name of an inventory item, falling back to a
// title-cased form of its id.
func (s *Scenario) ItemName(id string) string {
	if name, ok := s.Items[id]; ok && name != "" {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}
