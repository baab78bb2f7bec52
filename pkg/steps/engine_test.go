package steps

import (
	"errors"
	"testing"
	"time"

	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialObject(n int) *scenario.Object {
	obj := &scenario.Object{ID: "dna_extraction", Name: "DNA Extraction", Reward: "purified_dna"}
	for i := 0; i < n; i++ {
		obj.Steps = append(obj.Steps, scenario.Step{
			Description: "Step",
			Kind:        scenario.StepSequential,
			Action:      "Do it",
		})
	}
	return obj
}

func timedObject(autoAdvance bool) *scenario.Object {
	return &scenario.Object{
		ID:   "gel_electrophoresis",
		Name: "Gel Electrophoresis",
		Steps: []scenario.Step{{
			Description: "Run the gel",
			Kind:        scenario.StepTimed,
			Timer: &scenario.TimerStep{
				Delay:       scenario.Duration(3 * time.Second),
				StartLabel:  "Run Gel",
				AutoAdvance: autoAdvance,
			},
		}},
	}
}

func choiceObject() *scenario.Object {
	return &scenario.Object{
		ID:   "paternity_case",
		Name: "Paternity Case",
		Steps: []scenario.Step{{
			Description: "Which man is the father?",
			Kind:        scenario.StepChoice,
			Choice: &scenario.ChoiceStep{
				Options:     []scenario.Option{{ID: "father_1", Label: "Man 1"}, {ID: "father_2", Label: "Man 2"}},
				Accepted:    []string{"father_2"},
				Explanation: "Every band of the child matches the mother or Man 2.",
			},
		}},
	}
}

type completionCounter struct {
	calls int
}

func (c *completionCounter) done() {
	c.calls++
}

func TestEngine_SequentialCompletesOnce(t *testing.T) {
	counter := &completionCounter{}
	e := New(sequentialObject(3), NewManualScheduler(), counter.done)

	for i := 0; i < 3; i++ {
		assert.True(t, e.Satisfied())
		require.NoError(t, e.Advance(Input{}))
		assert.Equal(t, i+1, e.Index())
	}

	assert.True(t, e.IsComplete())
	assert.Equal(t, 1, counter.calls)

	err := e.Advance(Input{})
	assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied))
	assert.Equal(t, 3, e.Index(), "index never exceeds the step count")
	assert.Equal(t, 1, counter.calls, "completion fires exactly once")
}

func TestEngine_IndexNeverDecreases(t *testing.T) {
	sched := NewManualScheduler()
	obj := sequentialObject(1)
	obj.Steps = append(obj.Steps, timedObject(false).Steps...)
	obj.Steps = append(obj.Steps, choiceObject().Steps...)
	e := New(obj, sched, nil)

	inputs := []Input{{}, {}, {Choice: "father_1"}, {}, {Choice: "father_2"}, {}, {}}
	last := e.Index()
	for i, in := range inputs {
		if i == 2 {
			require.NoError(t, e.Start())
			sched.Advance(3 * time.Second)
		}
		_ = e.Advance(in)
		assert.GreaterOrEqual(t, e.Index(), last)
		assert.LessOrEqual(t, e.Index(), e.Len())
		last = e.Index()
	}
	assert.True(t, e.IsComplete())
}

func TestEngine_TimedStep(t *testing.T) {
	sched := NewManualScheduler()
	counter := &completionCounter{}
	e := New(timedObject(false), sched, counter.done)

	err := e.Advance(Input{})
	assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied), "not satisfied before start")

	require.NoError(t, e.Start())
	require.NoError(t, e.Start(), "start is idempotent while running")
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(2 * time.Second)
	assert.False(t, e.Satisfied(), "not satisfied before the delay elapses")
	assert.Error(t, e.Advance(Input{}))

	sched.Advance(time.Second)
	assert.True(t, e.Satisfied())
	assert.Equal(t, 0, e.Index(), "without auto advance the step waits for the player")

	require.NoError(t, e.Advance(Input{}))
	assert.True(t, e.IsComplete())
	assert.Equal(t, 1, counter.calls)
}

func TestEngine_TimedStepAutoAdvance(t *testing.T) {
	sched := NewManualScheduler()
	counter := &completionCounter{}
	elapsed := 0
	e := New(timedObject(true), sched, counter.done, OnElapsed(func() { elapsed++ }))

	require.NoError(t, e.Start())
	sched.Advance(3 * time.Second)

	assert.True(t, e.IsComplete())
	assert.Equal(t, 1, counter.calls)
	assert.Equal(t, 1, elapsed)
}

func TestEngine_DiscardCancelsTimer(t *testing.T) {
	sched := NewManualScheduler()
	counter := &completionCounter{}
	elapsed := 0
	e := New(timedObject(true), sched, counter.done, OnElapsed(func() { elapsed++ }))

	require.NoError(t, e.Start())
	e.Discard()
	assert.Equal(t, 0, sched.Pending())

	sched.Advance(10 * time.Second)
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, 0, counter.calls)
	assert.Equal(t, 0, elapsed)

	assert.Error(t, e.Start(), "a discarded engine rejects every call")
	assert.Error(t, e.Advance(Input{}))
}

func TestEngine_StartOnNonTimedStep(t *testing.T) {
	e := New(sequentialObject(1), NewManualScheduler(), nil)
	err := e.Start()
	assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied))
}

func TestEngine_ChoiceStep(t *testing.T) {
	tests := []struct {
		name      string
		run       func(e *Engine) error
		wantErr   error
		wantIndex int
	}{
		{
			name:      "no selection",
			run:       func(e *Engine) error { return e.Advance(Input{}) },
			wantErr:   gameerr.ErrStepNotSatisfied,
			wantIndex: 0,
		},
		{
			name:      "wrong answer in input",
			run:       func(e *Engine) error { return e.Advance(Input{Choice: "father_1"}) },
			wantErr:   gameerr.ErrStepNotSatisfied,
			wantIndex: 0,
		},
		{
			name:      "unknown option",
			run:       func(e *Engine) error { return e.Advance(Input{Choice: "mailman"}) },
			wantErr:   gameerr.ErrStepNotSatisfied,
			wantIndex: 0,
		},
		{
			name:      "select unknown option",
			run:       func(e *Engine) error { return e.Select("mailman") },
			wantErr:   gameerr.ErrStepNotSatisfied,
			wantIndex: 0,
		},
		{
			name: "wrong selection then advance",
			run: func(e *Engine) error {
				if err := e.Select("father_1"); err != nil {
					return err
				}
				return e.Advance(Input{})
			},
			wantErr:   gameerr.ErrStepNotSatisfied,
			wantIndex: 0,
		},
		{
			name:      "correct answer in input",
			run:       func(e *Engine) error { return e.Advance(Input{Choice: "father_2"}) },
			wantIndex: 1,
		},
		{
			name: "correct selection then advance",
			run: func(e *Engine) error {
				if err := e.Select("father_2"); err != nil {
					return err
				}
				return e.Advance(Input{})
			},
			wantIndex: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(choiceObject(), NewManualScheduler(), nil)
			err := tt.run(e)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantIndex, e.Index())
		})
	}
}

func TestEngine_WrongThenCorrectChoice(t *testing.T) {
	e := New(choiceObject(), NewManualScheduler(), nil)

	err := e.Advance(Input{Choice: "father_1"})
	assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied))
	assert.Equal(t, 0, e.Index())

	require.NoError(t, e.Advance(Input{Choice: "father_2"}))
	assert.True(t, e.IsComplete())
}

func TestEngine_UnknownOptionKeepsSelection(t *testing.T) {
	e := New(choiceObject(), NewManualScheduler(), nil)
	require.NoError(t, e.Select("father_2"))

	for _, run := range []func() error{
		func() error { return e.Select("father_9") },
		func() error { return e.Advance(Input{Choice: "father_9"}) },
	} {
		err := run()
		assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied), "got %v", err)
		assert.False(t, errors.Is(err, gameerr.ErrNotFound))
		assert.Equal(t, "father_2", e.View().Step.Selection)
		assert.Equal(t, 0, e.Index())
	}

	require.NoError(t, e.Advance(Input{}))
	assert.True(t, e.IsComplete())
}

func TestEngine_SelectOnNonChoiceStep(t *testing.T) {
	e := New(sequentialObject(1), NewManualScheduler(), nil)
	err := e.Select("father_2")
	assert.True(t, errors.Is(err, gameerr.ErrStepNotSatisfied))
}

func TestEngine_DisplayStep(t *testing.T) {
	obj := &scenario.Object{
		ID:   "limitations_board",
		Name: "Limitations",
		Steps: []scenario.Step{{
			Description: "Read the limitations",
			Kind:        scenario.StepDisplay,
			Display:     &scenario.DisplayStep{Slides: []scenario.Slide{{Title: "Time", Lines: []string{"Slow"}}}},
		}},
	}
	e := New(obj, NewManualScheduler(), nil)
	assert.True(t, e.Satisfied())
	require.NoError(t, e.Advance(Input{}))
	assert.True(t, e.IsComplete())
}

func TestEngine_View(t *testing.T) {
	obj := choiceObject()
	obj.Steps = append(sequentialObject(1).Steps, obj.Steps...)
	e := New(obj, NewManualScheduler(), nil)

	v := e.View()
	assert.Equal(t, "paternity_case", v.ObjectID)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 2, v.Len)
	require.NotNil(t, v.Step)
	assert.Equal(t, scenario.StepSequential, v.Step.Kind)
	assert.Equal(t, "Do it", v.Step.Label)
	assert.Equal(t, []ChecklistEntry{{Label: "Do it"}, {Label: "Confirm"}}, v.Checklist)

	require.NoError(t, e.Advance(Input{}))
	require.NoError(t, e.Select("father_1"))

	v = e.View()
	assert.True(t, v.Checklist[0].Done)
	require.NotNil(t, v.Step)
	assert.Equal(t, "father_1", v.Step.Selection)
	assert.False(t, v.Step.Satisfied)
	assert.Empty(t, v.Step.Explanation, "explanation is withheld until answered correctly")

	require.NoError(t, e.Select("father_2"))
	v = e.View()
	assert.True(t, v.Step.Satisfied)
	assert.NotEmpty(t, v.Step.Explanation)

	// The view is a copy.
	v.Step.Options[0].Label = "changed"
	assert.Equal(t, "Man 1", e.View().Step.Options[0].Label)

	require.NoError(t, e.Advance(Input{}))
	v = e.View()
	assert.True(t, v.Complete)
	assert.Nil(t, v.Step)
}
