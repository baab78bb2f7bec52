package scenario

import "github.com/jwebster45206/lab-engine/pkg/conditionals"

// Room is a static location in the lab. Rooms unlock progressively; the room
// itself never changes, only its membership in a session's unlocked set.
type Room struct {
	ID          string             `json:"id" yaml:"id"` // Also the key in the map.
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Objects     []string           `json:"objects,omitempty" yaml:"objects,omitempty"`         // Interactive objects, in display order
	UnlockWhen  *conditionals.When `json:"unlock_when,omitempty" yaml:"unlock_when,omitempty"` // nil: no condition of its own
}

// Contains reports whether the object is placed in this room.
func (r *Room) Contains(objectID string) bool {
	for _, id := range r.Objects {
		if id == objectID {
			return true
		}
	}
	return false
}
