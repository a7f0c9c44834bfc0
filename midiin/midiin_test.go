package midiin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-flow/flow"
)

type event struct {
	kind string
	note int
	vel  int
}

type recorder struct {
	events []event
	edits  int
	err    error
}

func (r *recorder) NoteOn(note, velocity int) { r.events = append(r.events, event{"on", note, velocity}) }
func (r *recorder) NoteOff(note int)           { r.events = append(r.events, event{"off", note, 0}) }
func (r *recorder) AllNotesOff()               { r.events = append(r.events, event{kind: "all"}) }
func (r *recorder) Edit(func(ed *flow.Editor) error) error {
	r.edits++
	return r.err
}

func TestDispatcherNotes(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(r, Omni)

	require.True(t, d.Handle(midi.NoteOn(0, 60, 100)))
	require.True(t, d.Handle(midi.NoteOn(3, 64, 0)))
	require.True(t, d.Handle(midi.NoteOff(0, 60)))
	require.True(t, d.Handle(midi.ControlChange(9, ccAllNotesOff, 0)))
	require.False(t, d.Handle(midi.Pitchbend(0, 100)))

	require.Equal(t, []event{
		{"on", 60, 100},
		{"off", 64, 0},
		{"off", 60, 0},
		{kind: "all"},
	}, r.events)
}

func TestDispatcherFiltersChannel(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(r, 2)
	require.False(t, d.Handle(midi.NoteOn(0, 60, 100)))
	require.True(t, d.Handle(midi.NoteOn(2, 61, 100)))
	require.False(t, d.Handle(midi.ControlChange(1, ccAllSoundOff, 0)))
	require.Equal(t, []event{{"on", 61, 100}}, r.events)
}

func TestDispatcherTriggerFiresOnRisingEdge(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(r, Omni)
	d.MapTrigger(64, 1, 0)

	require.False(t, d.Handle(midi.ControlChange(0, 65, 127)), "unmapped controller used")
	require.True(t, d.Handle(midi.ControlChange(0, 64, 127)))
	require.True(t, d.Handle(midi.ControlChange(0, 64, 100)))
	require.True(t, d.Handle(midi.ControlChange(0, 64, 0)))
	require.True(t, d.Handle(midi.ControlChange(0, 64, 90)))
	require.Equal(t, 2, r.edits)

	var got error
	d.OnError(func(err error) { got = err })
	r.err = errors.New("boom")
	d.Handle(midi.ControlChange(0, 64, 0))
	d.Handle(midi.ControlChange(0, 64, 127))
	require.EqualError(t, got, "boom")
}

func TestDispatcherDrivesEngine(t *testing.T) {
	cfg := flow.NewDefaultConfig()
	cfg.NumVoices = 2
	cfg.NumPartials = 8
	e, err := flow.NewEngine(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load(&flow.Patch{
		Output: -1,
		Nodes:  []flow.Record{{Type: "In", Version: 1}, {Type: "User", Version: 1}},
	}))

	d := NewDispatcher(e, Omni)
	d.MapTrigger(20, 1, 3)
	listen := d.Listener()
	listen(midi.NoteOn(0, 67, 127), 0)
	listen(midi.ControlChange(0, 20, 127), 0)

	require.NoError(t, e.Edit(func(ed *flow.Editor) error {
		held := 0
		for v := 0; v < ed.NumVoices(); v++ {
			if ed.Voice(v).Gate() {
				held++
				require.Equal(t, 67, ed.Voice(v).Note())
			}
			require.True(t, ed.Node(v, 1).ManualTrigger(3))
		}
		require.Equal(t, 1, held)
		return nil
	}))

	var fireErr error
	d.OnError(func(err error) { fireErr = err })
	d.MapTrigger(21, 0, 0)
	listen(midi.ControlChange(0, 21, 127), 0)
	require.ErrorIs(t, fireErr, flow.ErrStructure)
}
