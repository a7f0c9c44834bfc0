// Package midiin turns MIDI messages into engine note events and User
// triggers.
package midiin

import (
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-flow/flow"
)

// Omni makes a Dispatcher accept every channel.
const Omni = -1

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// Target is the part of flow.Engine a Dispatcher drives.
type Target interface {
	NoteOn(note, velocity int)
	NoteOff(note int)
	AllNotesOff()
	Edit(fn func(ed *flow.Editor) error) error
}

type triggerBinding struct {
	node    int
	channel int
}

// Dispatcher routes MIDI messages to a Target. Note-on and note-off become
// note events, controllers 120 and 123 release every voice, and mapped
// controllers fire User triggers when they cross 64 upwards.
type Dispatcher struct {
	target  Target
	channel int

	mu       sync.Mutex
	triggers map[uint8]triggerBinding
	high     map[uint8]bool
	errFn    func(error)
}

// NewDispatcher creates a dispatcher listening on a MIDI channel (0-15) or
// Omni.
func NewDispatcher(t Target, channel int) *Dispatcher {
	return &Dispatcher{
		target:   t,
		channel:  channel,
		triggers: map[uint8]triggerBinding{},
		high:     map[uint8]bool{},
	}
}

// MapTrigger fires channel of the User node at registry index node when
// controller cc rises to 64 or above.
func (d *Dispatcher) MapTrigger(cc uint8, node, channel int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.triggers[cc] = triggerBinding{node: node, channel: channel}
}

// OnError sets the callback for trigger errors, which Handle otherwise
// drops.
func (d *Dispatcher) OnError(fn func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errFn = fn
}

// Handle applies msg and reports whether it was used.
func (d *Dispatcher) Handle(msg midi.Message) bool {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !d.accepts(ch) {
			return false
		}
		d.target.NoteOn(int(key), int(vel))
		return true
	case msg.GetNoteEnd(&ch, &key):
		if !d.accepts(ch) {
			return false
		}
		d.target.NoteOff(int(key))
		return true
	case msg.GetControlChange(&ch, &cc, &val):
		if !d.accepts(ch) {
			return false
		}
		return d.control(cc, val)
	}
	return false
}

// Listener adapts Handle to midi.ListenTo's callback.
func (d *Dispatcher) Listener() func(msg midi.Message, timestampms int32) {
	return func(msg midi.Message, _ int32) {
		d.Handle(msg)
	}
}

func (d *Dispatcher) accepts(ch uint8) bool {
	return d.channel == Omni || int(ch) == d.channel
}

func (d *Dispatcher) control(cc, val uint8) bool {
	if cc == ccAllNotesOff || cc == ccAllSoundOff {
		d.target.AllNotesOff()
		return true
	}

	d.mu.Lock()
	b, ok := d.triggers[cc]
	rising := ok && val >= 64 && !d.high[cc]
	if ok {
		d.high[cc] = val >= 64
	}
	errFn := d.errFn
	d.mu.Unlock()
	if !ok {
		return false
	}
	if !rising {
		return true
	}

	err := d.target.Edit(func(ed *flow.Editor) error {
		return ed.FireTrigger(b.node, b.channel)
	})
	if err != nil && errFn != nil {
		errFn(err)
	}
	return true
}
