package flow

import "fmt"

// Editor is the handle through which a graph is changed. It exists only for
// the duration of an Engine.Edit call, which holds the engine lock; every
// method fails with ErrEditorClosed afterwards.
//
// Structural changes are applied to every voice so that all voices keep
// identical graphs. The first change of an edit records the graph, and a
// failed edit puts the recorded nodes back in place, running state intact.
type Editor struct {
	e        *Engine
	closed   bool
	snapshot *engineGraph
}

// engineGraph is the state a failed edit returns to.
type engineGraph struct {
	voices []voiceGraph
	info   Patch
}

func (ed *Editor) check() error {
	if ed == nil || ed.closed {
		return ErrEditorClosed
	}
	return nil
}

func (ed *Editor) stage() {
	if ed.snapshot == nil {
		ed.snapshot = ed.e.saveLocked()
	}
}

func (ed *Editor) lookup(index int) (*Node, error) {
	n := ed.e.voices[0].Node(index)
	if n == nil {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNodeNotFound, index, ed.e.voices[0].NumNodes())
	}
	return n, nil
}

// NumVoices returns the polyphony.
func (ed *Editor) NumVoices() int {
	if ed.check() != nil {
		return 0
	}
	return len(ed.e.voices)
}

// Voice returns voice i, or nil. The voice may only be inspected while the
// edit is running.
func (ed *Editor) Voice(i int) *Voice {
	if ed.check() != nil || i < 0 || i >= len(ed.e.voices) {
		return nil
	}
	return ed.e.voices[i]
}

// NumNodes returns the registry size, which is the same in every voice.
func (ed *Editor) NumNodes() int {
	if ed.check() != nil {
		return 0
	}
	return ed.e.voices[0].NumNodes()
}

// Node returns the node at index in voice, or nil. The handle outlives the
// edit, but the node may only be read inside one.
func (ed *Editor) Node(voice, index int) *Node {
	v := ed.Voice(voice)
	if v == nil {
		return nil
	}
	return v.Node(index)
}

// AddNode appends a node of kind to every voice and returns its index.
func (ed *Editor) AddNode(kind Kind) (int, error) {
	if err := ed.check(); err != nil {
		return -1, err
	}
	if !kind.Valid() {
		return -1, fmt.Errorf("%w: kind %d", ErrUnknownType, kind)
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.addNode(kind)
	}
	return ed.e.voices[0].NumNodes() - 1, nil
}

// RemoveNode deletes the node at index from every voice. Ports that read it
// fall back to their defaults, and it stops being the output if it was.
// Later nodes move down one index.
func (ed *Editor) RemoveNode(index int) error {
	if err := ed.check(); err != nil {
		return err
	}
	if _, err := ed.lookup(index); err != nil {
		return err
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.removeNode(index)
	}
	return nil
}

// BindModulation wires modulation input port of node to output srcPort of
// src.
func (ed *Editor) BindModulation(node, port, src, srcPort int) error {
	if err := ed.check(); err != nil {
		return err
	}
	dst, err := ed.lookup(node)
	if err != nil {
		return err
	}
	from, err := ed.lookup(src)
	if err != nil {
		return err
	}
	if port < 0 || port >= len(dst.mods) {
		return fmt.Errorf("%w: %s has no modulation input %d", ErrUnboundPort, dst.kind, port)
	}
	if srcPort < 0 || srcPort >= len(from.outputs) {
		return fmt.Errorf("%w: %s has no modulation output %d", ErrUnboundPort, from.kind, srcPort)
	}
	if from.dependsOn(dst) {
		return fmt.Errorf("%w: %s %d already reads from %s %d", ErrCycle, from.kind, src, dst.kind, node)
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.nodes[node].mods[port] = binding{src: v.nodes[src], port: srcPort}
	}
	return nil
}

// BindConstant sets modulation input port of node to a constant.
func (ed *Editor) BindConstant(node, port int, value float64) error {
	if err := ed.check(); err != nil {
		return err
	}
	dst, err := ed.lookup(node)
	if err != nil {
		return err
	}
	if port < 0 || port >= len(dst.mods) {
		return fmt.Errorf("%w: %s has no modulation input %d", ErrUnboundPort, dst.kind, port)
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.nodes[node].mods[port] = binding{value: value}
	}
	return nil
}

// BindInput wires partial input of node to unit src; src -1 binds silence.
func (ed *Editor) BindInput(node, input, src int) error {
	if err := ed.check(); err != nil {
		return err
	}
	dst, err := ed.lookup(node)
	if err != nil {
		return err
	}
	if input < 0 || input >= len(dst.inputs) {
		return fmt.Errorf("%w: %s has no partial input %d", ErrUnboundPort, dst.kind, input)
	}
	if src >= 0 {
		from, err := ed.lookup(src)
		if err != nil {
			return err
		}
		if !from.IsUnit() {
			return fmt.Errorf("%w: %s has no partials", ErrUnboundPort, from.kind)
		}
		if from.dependsOn(dst) {
			return fmt.Errorf("%w: %s %d already reads from %s %d", ErrCycle, from.kind, src, dst.kind, node)
		}
	}
	ed.stage()
	for _, v := range ed.e.voices {
		var from *Node
		if src >= 0 {
			from = v.nodes[src]
		}
		v.nodes[node].inputs[input] = from
	}
	return nil
}

// SetOption sets option i of node in every voice.
func (ed *Editor) SetOption(node, i, value int) error {
	if err := ed.check(); err != nil {
		return err
	}
	n, err := ed.lookup(node)
	if err != nil {
		return err
	}
	if err := n.checkOption(i, value); err != nil {
		return err
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.nodes[node].options[i] = value
	}
	return nil
}

// Option returns option i of node.
func (ed *Editor) Option(node, i int) (int, error) {
	if err := ed.check(); err != nil {
		return 0, err
	}
	n, err := ed.lookup(node)
	if err != nil {
		return 0, err
	}
	return n.Option(i)
}

// SetOutput designates the unit at index as every voice's output. -1 leaves
// the voices without an output, which renders silence.
func (ed *Editor) SetOutput(index int) error {
	if err := ed.check(); err != nil {
		return err
	}
	if index >= 0 {
		n, err := ed.lookup(index)
		if err != nil {
			return err
		}
		if !n.IsUnit() {
			return fmt.Errorf("%w: output %s has no partials", ErrStructure, n.kind)
		}
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.output = v.Node(index)
	}
	return nil
}

// Broadcast calls action with the node at index in each voice, in voice
// order. The voices must be structurally identical.
func (ed *Editor) Broadcast(index int, action func(n *Node)) error {
	if err := ed.check(); err != nil {
		return err
	}
	if err := ed.Verify(); err != nil {
		return err
	}
	if _, err := ed.lookup(index); err != nil {
		return err
	}
	for _, v := range ed.e.voices {
		action(v.nodes[index])
	}
	return nil
}

// FireTrigger latches a manual trigger on channel of the User node at index
// in every playing voice. The next block fires it and clears it. In
// monophonic mode only the first voice is latched, since no other voice
// evaluates to consume it.
func (ed *Editor) FireTrigger(index, channel int) error {
	if err := ed.check(); err != nil {
		return err
	}
	n, err := ed.lookup(index)
	if err != nil {
		return err
	}
	if n.kind != KindUser {
		return fmt.Errorf("%w: %s at index %d cannot be fired", ErrStructure, n.kind, index)
	}
	if channel < 0 || channel >= UserChannels {
		return fmt.Errorf("%w: User has no channel %d", ErrUnboundPort, channel)
	}
	mono := ed.e.mono
	return ed.Broadcast(index, func(n *Node) {
		if mono && n.voice.index != 0 {
			return
		}
		n.manual[channel] = true
	})
}

// Verify checks that every voice holds the same graph as the first.
func (ed *Editor) Verify() error {
	if err := ed.check(); err != nil {
		return err
	}
	ref := extractVoice(ed.e.voices[0])
	for _, v := range ed.e.voices[1:] {
		if !recordsEqual(ref, extractVoice(v)) {
			return fmt.Errorf("%w: voice %d differs from voice 0", ErrStructure, v.index)
		}
	}
	return nil
}

// Reset returns every node and oscillator to its startup state without
// changing the graph.
func (ed *Editor) Reset() error {
	if err := ed.check(); err != nil {
		return err
	}
	for _, v := range ed.e.voices {
		v.resetNodes()
	}
	return nil
}

// Clear removes every node from every voice.
func (ed *Editor) Clear() error {
	if err := ed.check(); err != nil {
		return err
	}
	ed.stage()
	for _, v := range ed.e.voices {
		v.clear()
	}
	return nil
}

// Load replaces the graph of every voice with p. Use Engine.Load when the
// edit does nothing else, so that the graphs are built outside the lock.
func (ed *Editor) Load(p *Patch) error {
	if err := ed.check(); err != nil {
		return err
	}
	ed.stage()
	if err := ed.e.installLocked(p); err != nil {
		return fmt.Errorf("flow: load patch: %w", err)
	}
	return nil
}

// Patch extracts the current graph and metadata.
func (ed *Editor) Patch() (*Patch, error) {
	if err := ed.check(); err != nil {
		return nil, err
	}
	return ed.e.extractLocked(), nil
}
