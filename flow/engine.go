package flow

import (
	"errors"
	"fmt"
	"sync"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Engine owns every voice and the lock that serializes rendering against
// graph edits. Render holds the lock for a whole block; Edit holds it for a
// whole edit, so a block never observes a half-applied change.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	voices []*Voice
	mono   bool
	info   Patch
	clock  uint64
	mix    []float32
}

// NewEngine creates an engine with cfg.NumVoices empty voices.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flow: %w", err)
	}
	e := &Engine{
		cfg:    *cfg,
		voices: make([]*Voice, cfg.NumVoices),
		mono:   cfg.Monophonic,
		info:   Patch{Output: -1},
	}
	for i := range e.voices {
		e.voices[i] = newVoice(i, &e.cfg)
	}
	return e, nil
}

// Config returns the settings the engine was created with.
func (e *Engine) Config() Config { return e.cfg }

// NumVoices returns the polyphony.
func (e *Engine) NumVoices() int { return len(e.voices) }

// SetMonophonic switches between playing only the first voice and playing
// all of them. Voices that stop playing drop their pending manual triggers.
func (e *Engine) SetMonophonic(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mono = on
	if on {
		for _, v := range e.voices[1:] {
			v.clearManual()
		}
	}
}

// Monophonic reports whether only the first voice plays.
func (e *Engine) Monophonic() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mono
}

// NoteOn starts a note. Velocity 0 is treated as a note-off.
func (e *Engine) NoteOn(note int, velocity int) {
	if note < 0 || note > 127 {
		return
	}
	if velocity <= 0 {
		e.NoteOff(note)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock++
	e.allocate(note).start(note, velocity, e.clock)
}

// NoteOff releases every voice holding note.
func (e *Engine) NoteOff(note int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock++
	for _, v := range e.playable() {
		if v.gate && v.note == note {
			v.release(e.clock)
		}
	}
}

// AllNotesOff releases every held voice.
func (e *Engine) AllNotesOff() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock++
	for _, v := range e.voices {
		if v.gate {
			v.release(e.clock)
		}
	}
}

func (e *Engine) playable() []*Voice {
	if e.mono {
		return e.voices[:1]
	}
	return e.voices
}

// allocate picks the voice for a new note: the voice already holding it,
// else the longest-released free voice, else the oldest held voice.
func (e *Engine) allocate(note int) *Voice {
	if e.mono {
		return e.voices[0]
	}
	var free, oldest *Voice
	for _, v := range e.voices {
		if v.gate && v.note == note {
			return v
		}
		if !v.gate && (free == nil || v.released < free.released) {
			free = v
		}
		if oldest == nil || v.started < oldest.started {
			oldest = v
		}
	}
	if free != nil {
		return free
	}
	return oldest
}

// Render evaluates every playing voice for one block and writes it to dst as
// interleaved stereo; len(dst)/2 frames are rendered. A voice whose graph
// fails to evaluate is silent for the block and its error is returned.
func (e *Engine) Render(dst []float32) error {
	frames := len(dst) / 2
	e.mu.Lock()
	defer e.mu.Unlock()

	if cap(e.mix) < frames {
		e.mix = make([]float32, frames)
	}
	mix := e.mix[:frames]
	for i := range mix {
		mix[i] = 0
	}

	var errs []error
	for _, v := range e.playable() {
		out, err := v.render(frames)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for i, s := range out {
			mix[i] += s
		}
	}

	gain := e.cfg.MasterGain
	for i := 0; i < frames; i++ {
		s := float32(dspcore.FlushDenormals(float64(mix[i]) * gain))
		dst[i*2] = s
		dst[i*2+1] = s
	}
	return errors.Join(errs...)
}

// Process renders numFrames of interleaved stereo audio.
func (e *Engine) Process(numFrames int) []float32 {
	out := make([]float32, numFrames*2)
	_ = e.Render(out)
	return out
}

// Edit runs fn while holding the engine lock. fn receives the only handle
// through which the graph may be changed; it is invalid once Edit returns.
// If fn returns an error after changing the graph, the graph is restored to
// its state before the edit.
func (e *Engine) Edit(fn func(ed *Editor) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ed := &Editor{e: e}
	err := fn(ed)
	ed.closed = true
	if err != nil && ed.snapshot != nil {
		e.restoreLocked(ed.snapshot)
	}
	return err
}

func (e *Engine) saveLocked() *engineGraph {
	g := &engineGraph{voices: make([]voiceGraph, len(e.voices)), info: e.info}
	for i, v := range e.voices {
		g.voices[i] = v.saveGraph()
	}
	return g
}

func (e *Engine) restoreLocked(g *engineGraph) {
	for i, v := range e.voices {
		v.restoreGraph(g.voices[i])
	}
	e.info = g.info
}

// BroadcastToAllVoices applies action to the node at index in every voice.
func (e *Engine) BroadcastToAllVoices(index int, action func(n *Node)) error {
	return e.Edit(func(ed *Editor) error {
		return ed.Broadcast(index, action)
	})
}

// FireTrigger fires channel on every voice's copy of origin, a User node
// owned by one of this engine's voices. The trigger is seen by the next
// block and consumed by it.
func (e *Engine) FireTrigger(origin *Node, channel int) error {
	return e.Edit(func(ed *Editor) error {
		if origin == nil || origin.voice == nil {
			return fmt.Errorf("%w: trigger origin is not registered", ErrNodeNotFound)
		}
		v := origin.voice
		if v.index >= len(e.voices) || e.voices[v.index] != v {
			return fmt.Errorf("%w: trigger origin belongs to another engine", ErrNodeNotFound)
		}
		index := v.IndexOf(origin)
		if index < 0 {
			return fmt.Errorf("%w: trigger origin is not registered", ErrNodeNotFound)
		}
		return ed.FireTrigger(index, channel)
	})
}

// Load replaces every voice's graph with p. Graphs are built outside the
// lock; the swap and the reset that follows happen under it. If any record
// is invalid no voice is changed.
func (e *Engine) Load(p *Patch) error {
	built := make([][]*Node, len(e.voices))
	outputs := make([]*Node, len(e.voices))
	for i, v := range e.voices {
		nodes, out, err := buildGraph(v, p)
		if err != nil {
			return fmt.Errorf("flow: load patch: %w", err)
		}
		built[i] = nodes
		outputs[i] = out
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range e.voices {
		v.install(built[i], outputs[i])
	}
	e.setInfo(p)
	return nil
}

// Patch extracts the current graph and metadata.
func (e *Engine) Patch() *Patch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extractLocked()
}

func (e *Engine) extractLocked() *Patch {
	p := extractVoice(e.voices[0])
	p.Name = e.info.Name
	p.Author = e.info.Author
	p.Info = e.info.Info
	p.Date = e.info.Date
	p.Version = e.info.Version
	return p
}

// installLocked builds p for every voice and swaps it in. Nothing changes
// unless every voice builds.
func (e *Engine) installLocked(p *Patch) error {
	built := make([][]*Node, len(e.voices))
	outputs := make([]*Node, len(e.voices))
	for i, v := range e.voices {
		nodes, out, err := buildGraph(v, p)
		if err != nil {
			return err
		}
		built[i] = nodes
		outputs[i] = out
	}
	for i, v := range e.voices {
		v.install(built[i], outputs[i])
	}
	e.setInfo(p)
	return nil
}

func (e *Engine) setInfo(p *Patch) {
	if p == nil {
		e.info = Patch{Output: -1}
		return
	}
	e.info = p.header()
}
