package scenario

import (
	"errors"
	"testing"

	"github.com/jwebster45206/lab-engine/pkg/conditionals"
	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScenario() *Scenario {
	s := &Scenario{
		Name:      "Test Lab",
		StartRoom: "lobby",
		RoomOrder: []string{"lobby", "lab"},
		Rooms: map[string]Room{
			"lobby": {Name: "Lobby", Objects: []string{"sign"}},
			"lab": {
				Name:       "Lab",
				Objects:    []string{"bench"},
				UnlockWhen: &conditionals.When{Items: []string{"badge"}},
			},
			"archive": {Name: "Archive"},
		},
		Objects: map[string]Object{
			"sign": {
				Name:   "Sign",
				Steps:  []Step{{Description: "Read", Kind: StepDisplay}},
				Reward: "badge",
			},
			"bench": {
				Name:  "Bench",
				Steps: []Step{{Description: "Pipette", Kind: StepSequential, Action: "Pipette"}},
			},
		},
		Items:      map[string]string{"badge": "Lab Badge"},
		Completion: conditionals.When{Objects: []string{"bench"}},
	}
	s.Normalize()
	return s
}

func TestScenario_Normalize(t *testing.T) {
	s := testScenario()
	assert.Equal(t, "lab", s.Rooms["lab"].ID)
	assert.Equal(t, "bench", s.Objects["bench"].ID)
}

func TestScenario_GetRoom(t *testing.T) {
	s := testScenario()

	room, err := s.GetRoom("lab")
	require.NoError(t, err)
	assert.Equal(t, "Lab", room.Name)
	assert.True(t, room.Contains("bench"))
	assert.False(t, room.Contains("sign"))

	_, err = s.GetRoom("basement")
	assert.True(t, errors.Is(err, gameerr.ErrNotFound))
}

func TestScenario_GetObject(t *testing.T) {
	s := testScenario()

	obj, err := s.GetObject("sign")
	require.NoError(t, err)
	assert.Equal(t, "badge", obj.Reward)
	assert.True(t, obj.HasEffect())

	bench, err := s.GetObject("bench")
	require.NoError(t, err)
	assert.False(t, bench.HasEffect())

	_, err = s.GetObject("microscope")
	assert.True(t, errors.Is(err, gameerr.ErrNotFound))
}

func TestScenario_GetObjectDoesNotExposeCatalogue(t *testing.T) {
	s := testScenario()

	obj, err := s.GetObject("sign")
	require.NoError(t, err)
	obj.Reward = "tampered"

	assert.Equal(t, "badge", s.Objects["sign"].Reward)
}

func TestScenario_UnlockCondition(t *testing.T) {
	s := testScenario()

	when, err := s.UnlockCondition("lab")
	require.NoError(t, err)
	require.NotNil(t, when)
	assert.Equal(t, []string{"badge"}, when.Items)

	when, err = s.UnlockCondition("lobby")
	require.NoError(t, err)
	assert.Nil(t, when)

	_, err = s.UnlockCondition("basement")
	assert.True(t, errors.Is(err, gameerr.ErrNotFound))
}

func TestScenario_RoomIDs(t *testing.T) {
	s := testScenario()
	assert.Equal(t, []string{"lobby", "lab", "archive"}, s.RoomIDs())

	s.RoomOrder = nil
	assert.Equal(t, []string{"archive", "lab", "lobby"}, s.RoomIDs())
}

func TestScenario_ItemName(t *testing.T) {
	s := testScenario()
	assert.Equal(t, "Lab Badge", s.ItemName("badge"))
	assert.Equal(t, "Dna Fingerprint", s.ItemName("dna_fingerprint"))
}
