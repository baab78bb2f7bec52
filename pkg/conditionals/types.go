package conditionals

// When defines the progress that must be reached for a condition to hold.
// Every listed entry must be present; lists are combined with AND.
type When struct {
	Items   []string `json:"items,omitempty" yaml:"items,omitempty"`     // Inventory must hold all of these
	Objects []string `json:"objects,omitempty" yaml:"objects,omitempty"` // Objects completed at least once
	Rooms   []string `json:"rooms,omitempty" yaml:"rooms,omitempty"`     // Rooms that must be unlocked
}

// GameStateView provides the minimal interface needed to evaluate conditions.
// This avoids import cycles with the state package.
type GameStateView interface {
	HasItem(item string) bool
	HasCompleted(objectID string) bool
	IsUnlocked(roomID string) bool
}

// IsEmpty reports whether no condition is specified.
func (w When) IsEmpty() bool {
	return len(w.Items) == 0 && len(w.Objects) == 0 && len(w.Rooms) == 0
}

// EvaluateWhen checks if all conditions in a When clause are met
func EvaluateWhen(when When, gsView GameStateView) bool {
	// If no conditions specified, return false (condition should not trigger)
	if when.IsEmpty() || gsView == nil {
		return false
	}

	for _, item := range when.Items {
		if !gsView.HasItem(item) {
			return false
		}
	}

	for _, objectID := range when.Objects {
		if !gsView.HasCompleted(objectID) {
			return false
		}
	}

	for _, roomID := range when.Rooms {
		if !gsView.IsUnlocked(roomID) {
			return false
		}
	}

	return true
}

// Missing returns the parts of when that are not yet satisfied, in the order
// they were declared. An empty result with a non-empty when means satisfied.
func Missing(when When, gsView GameStateView) When {
	var missing When
	for _, item := range when.Items {
		if !gsView.HasItem(item) {
			missing.Items = append(missing.Items, item)
		}
	}
	for _, objectID := range when.Objects {
		if !gsView.HasCompleted(objectID) {
			missing.Objects = append(missing.Objects, objectID)
		}
	}
	for _, roomID := range when.Rooms {
		if !gsView.IsUnlocked(roomID) {
			missing.Rooms = append(missing.Rooms, roomID)
		}
	}
	return missing
}
