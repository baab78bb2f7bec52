package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

// Snapshot is an immutable copy of a session for rendering. Nothing in it
// aliases session state.
type Snapshot struct {
	SessionID      uuid.UUID   `json:"session_id"`
	ScenarioID     string      `json:"scenario_id"`
	ScenarioName   string      `json:"scenario_name"`
	CurrentRoom    string      `json:"current_room"`
	UnlockedRooms  []string    `json:"unlocked_rooms"`
	Rooms          []RoomView  `json:"rooms"` // Every room in display order, for the minimap
	Inventory      []Item      `json:"inventory"`
	Completed      []string    `json:"completed"`
	Objective      string      `json:"objective"`
	Active         *ActiveView `json:"active,omitempty"`
	Complete       bool        `json:"complete"`
	CompletionText string      `json:"completion_text,omitempty"` // Set once complete
	Activations    int         `json:"activations"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// RoomView is a room as shown on the minimap.
type RoomView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Unlocked bool         `json:"unlocked"`
	Current  bool         `json:"current"`
	Objects  []ObjectView `json:"objects,omitempty"` // Only listed for unlocked rooms
}

// ObjectView is an interactive object inside a room.
type ObjectView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Item is an inventory entry with its display name.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActiveView is the open interaction.
type ActiveView struct {
	Room string `json:"room"`
	steps.View
}

// HasItem reports whether the snapshot's inventory holds the item.
func (snap Snapshot) HasItem(id string) bool {
	return slices.ContainsFunc(snap.Inventory, func(it Item) bool { return it.ID == id })
}

// Room returns the minimap entry for a room, or nil.
func (snap Snapshot) Room(id string) *RoomView {
	for i := range snap.Rooms {
		if snap.Rooms[i].ID == id {
			return &snap.Rooms[i]
		}
	}
	return nil
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:     s.ID,
		ScenarioID:    s.scenario.ID,
		ScenarioName:  s.scenario.Name,
		CurrentRoom:   s.currentRoom,
		UnlockedRooms: slices.Clone(s.unlocked),
		Inventory:     make([]Item, 0, len(s.inventory)),
		Completed:     slices.Clone(s.completed),
		Objective:     s.objective,
		Complete:      s.complete,
		Activations:   s.activations,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
	}
	if snap.Completed == nil {
		snap.Completed = []string{}
	}
	if s.complete {
		snap.CompletionText = s.scenario.CompletionText
	}

	for _, id := range s.inventory {
		snap.Inventory = append(snap.Inventory, Item{ID: id, Name: s.scenario.ItemName(id)})
	}

	for _, id := range s.scenario.RoomIDs() {
		room := s.scenario.Rooms[id]
		rv := RoomView{
			ID:       id,
			Name:     room.Name,
			Unlocked: s.IsUnlocked(id),
			Current:  id == s.currentRoom,
		}
		if rv.Unlocked {
			for _, objID := range room.Objects {
				obj, ok := s.scenario.Objects[objID]
				if !ok {
					continue
				}
				rv.Objects = append(rv.Objects, ObjectView{ID: objID, Name: obj.Name, Completed: s.HasCompleted(objID)})
			}
		}
		snap.Rooms = append(snap.Rooms, rv)
	}

	if s.active != nil {
		snap.Active = &ActiveView{Room: s.active.room, View: s.active.engine.View()}
	}
	return snap
}
