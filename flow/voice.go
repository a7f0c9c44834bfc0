package flow

import (
	"fmt"
)

const (
	defaultNote      = 60
	defaultBlockSize = 128
)

// Voice owns one instance of the node graph: an ordered registry of nodes,
// the designated output node and the note state that In nodes expose.
// All voices of an Engine hold structurally identical graphs.
//
// Like Node, a Voice may only be read inside Engine.Edit.
type Voice struct {
	index       int
	sampleRate  int
	numPartials int

	nodes  []*Node
	output *Node

	pitch    float64
	note     int
	velocity float64
	gate     bool
	noteOn   bool
	started  uint64
	released uint64

	block       uint64
	blockFrames int

	silentFreqs []float64
	silentAmps  []float64

	bank *oscillatorBank
	buf  []float32
}

func newVoice(index int, cfg *Config) *Voice {
	v := &Voice{
		index:       index,
		sampleRate:  cfg.SampleRate,
		numPartials: cfg.NumPartials,
		pitch:       midiNoteToFreq(defaultNote),
		note:        defaultNote,
		blockFrames: defaultBlockSize,
		silentFreqs: make([]float64, cfg.NumPartials),
		silentAmps:  make([]float64, cfg.NumPartials),
		bank:        newOscillatorBank(cfg.NumPartials),
	}
	for i := range v.silentFreqs {
		v.silentFreqs[i] = float64(i + 1)
	}
	return v
}

// Index returns the voice's polyphony slot.
func (v *Voice) Index() int { return v.index }

// Pitch returns the frequency in Hz that partial frequencies are relative to.
func (v *Voice) Pitch() float64 { return v.pitch }

// Note returns the MIDI note the voice last started.
func (v *Voice) Note() int { return v.note }

// Gate reports whether the voice's note is held.
func (v *Voice) Gate() bool { return v.gate }

// NumNodes returns the size of the registry.
func (v *Voice) NumNodes() int { return len(v.nodes) }

// Node returns the node registered at index i, or nil.
func (v *Voice) Node(i int) *Node {
	if i < 0 || i >= len(v.nodes) {
		return nil
	}
	return v.nodes[i]
}

// IndexOf returns n's registry index, or -1 if n is not registered here.
func (v *Voice) IndexOf(n *Node) int {
	if n == nil {
		return -1
	}
	for i, m := range v.nodes {
		if m == n {
			return i
		}
	}
	return -1
}

// Output returns the designated output node, or nil.
func (v *Voice) Output() *Node { return v.output }

func (v *Voice) addNode(kind Kind) *Node {
	n := newNode(v, kind)
	v.nodes = append(v.nodes, n)
	return n
}

func (v *Voice) removeNode(i int) {
	dead := v.nodes[i]
	v.nodes = append(v.nodes[:i], v.nodes[i+1:]...)
	for _, n := range v.nodes {
		n.unbind(dead)
	}
	if v.output == dead {
		v.output = nil
	}
	dead.voice = nil
}

// install replaces the registry with a graph built for this voice.
func (v *Voice) install(nodes []*Node, output *Node) {
	for _, n := range v.nodes {
		n.voice = nil
	}
	v.nodes = nodes
	v.output = output
	v.resetNodes()
}

func (v *Voice) clear() {
	for _, n := range v.nodes {
		n.voice = nil
	}
	v.nodes = nil
	v.output = nil
}

// nodeWiring is the part of a node an edit can change.
type nodeWiring struct {
	mods    []binding
	inputs  []*Node
	options []int
}

// voiceGraph records a voice's registry and wiring so that a cancelled edit
// can put back the same nodes with their running state.
type voiceGraph struct {
	nodes  []*Node
	output *Node
	wiring []nodeWiring
}

func (v *Voice) saveGraph() voiceGraph {
	g := voiceGraph{
		nodes:  append([]*Node(nil), v.nodes...),
		output: v.output,
		wiring: make([]nodeWiring, len(v.nodes)),
	}
	for i, n := range v.nodes {
		g.wiring[i] = nodeWiring{
			mods:    append([]binding(nil), n.mods...),
			inputs:  append([]*Node(nil), n.inputs...),
			options: append([]int(nil), n.options...),
		}
	}
	return g
}

// restoreGraph puts back the nodes recorded by saveGraph. Nodes added since
// are dropped; no node is reset.
func (v *Voice) restoreGraph(g voiceGraph) {
	for _, n := range v.nodes {
		n.voice = nil
	}
	v.nodes = append(v.nodes[:0:0], g.nodes...)
	v.output = g.output
	for i, n := range v.nodes {
		n.voice = v
		n.busy = false
		copy(n.mods, g.wiring[i].mods)
		copy(n.inputs, g.wiring[i].inputs)
		copy(n.options, g.wiring[i].options)
	}
}

func (v *Voice) resetNodes() {
	for _, n := range v.nodes {
		n.reset()
	}
	v.bank.reset()
}

func (v *Voice) clearManual() {
	for _, n := range v.nodes {
		for i := range n.manual {
			n.manual[i] = false
		}
	}
}

func (v *Voice) start(note, velocity int, stamp uint64) {
	v.note = clampNote(note)
	v.pitch = midiNoteToFreq(v.note)
	v.velocity = velocityToModulation(velocity)
	v.gate = true
	v.noteOn = true
	v.started = stamp
}

func (v *Voice) release(stamp uint64) {
	v.gate = false
	v.released = stamp
}

func (v *Voice) blockSeconds() float64 {
	if v.sampleRate <= 0 {
		return 0
	}
	return float64(v.blockFrames) / float64(v.sampleRate)
}

// evaluate runs one block: the output node is pulled first so evaluation
// follows its dependencies, then every remaining node is pulled so stateful
// nodes advance even when nothing reads them.
func (v *Voice) evaluate() (err error) {
	v.block++
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(cycleError)
			if !ok {
				panic(r)
			}
			for _, n := range v.nodes {
				n.busy = false
			}
			err = fmt.Errorf("%w: %s at index %d in voice %d", ErrCycle, ce.node.kind, v.IndexOf(ce.node), v.index)
		}
		v.noteOn = false
	}()

	if v.output != nil {
		v.output.pull()
	}
	for _, n := range v.nodes {
		n.pull()
	}
	return nil
}

// render evaluates the graph and synthesizes one mono block from the output
// node's partials.
func (v *Voice) render(frames int) ([]float32, error) {
	if cap(v.buf) < frames {
		v.buf = make([]float32, frames)
	}
	buf := v.buf[:frames]
	for i := range buf {
		buf[i] = 0
	}

	v.blockFrames = frames
	if err := v.evaluate(); err != nil {
		return buf, err
	}
	if v.output == nil {
		v.bank.reset()
		return buf, nil
	}
	v.bank.render(buf, v.output.freqs, v.output.amps, v.pitch, v.sampleRate)
	return buf, nil
}
