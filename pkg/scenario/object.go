package scenario

// Object is an interactive object: clicking it launches its step sequence.
// Completing the last step applies the reward and unlock effects.
type Object struct {
	ID          string   `json:"id" yaml:"id"` // Also the key in the map.
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step   `json:"steps" yaml:"steps"`
	Reward      string   `json:"reward,omitempty" yaml:"reward,omitempty"`     // Item granted on completion
	Unlocks     []string `json:"unlocks,omitempty" yaml:"unlocks,omitempty"`   // Rooms unlocked on completion
	Closable    bool     `json:"closable,omitempty" yaml:"closable,omitempty"` // Front-ends offer a close exit
}

// HasEffect reports whether completing the object changes progression state.
func (o *Object) HasEffect() bool {
	return o.Reward != "" || len(o.Unlocks) > 0
}
