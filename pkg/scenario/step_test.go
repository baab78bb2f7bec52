package scenario

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", input: `"3s"`, want: 3 * time.Second},
		{name: "milliseconds", input: `1500`, want: 1500 * time.Millisecond},
		{name: "bad string", input: `"soon"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var timer TimerStep
	require.NoError(t, yaml.Unmarshal([]byte("delay: 250ms\nauto_advance: true\n"), &timer))
	assert.Equal(t, 250*time.Millisecond, timer.Delay.Std())
	assert.True(t, timer.AutoAdvance)

	require.NoError(t, yaml.Unmarshal([]byte("delay: 3000\n"), &timer))
	assert.Equal(t, 3*time.Second, timer.Delay.Std())

	assert.Error(t, yaml.Unmarshal([]byte("delay: [1, 2]\n"), &timer))
}

func TestStep_Label(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want string
	}{
		{"sequential action", Step{Kind: StepSequential, Action: "Centrifuge"}, "Centrifuge"},
		{"sequential without action", Step{Kind: StepSequential, Description: "Spin"}, "Spin"},
		{"timed default", Step{Kind: StepTimed, Timer: &TimerStep{}}, "Start"},
		{"timed label", Step{Kind: StepTimed, Timer: &TimerStep{StartLabel: "Run Gel"}}, "Run Gel"},
		{"choice default", Step{Kind: StepChoice}, "Confirm"},
		{"display default", Step{Kind: StepDisplay}, "Continue"},
		{"display label", Step{Kind: StepDisplay, Display: &DisplayStep{ContinueLabel: "Done"}}, "Done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.Label())
		})
	}
}

func TestChoiceStep_Accepts(t *testing.T) {
	c := &ChoiceStep{
		Options:  []Option{{ID: "father_1"}, {ID: "father_2"}},
		Accepted: []string{"father_2"},
	}
	assert.True(t, c.HasOption("father_1"))
	assert.False(t, c.HasOption("mother"))
	assert.True(t, c.Accepts("father_2"))
	assert.False(t, c.Accepts("father_1"))
}
