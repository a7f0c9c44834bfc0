package flow

import (
	"fmt"
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const maxAmplitude = 1.0

// binding is the source of one modulation input: a constant when src is nil,
// otherwise output port of another node in the same voice.
type binding struct {
	src   *Node
	port  int
	value float64
}

// Node is one unit of computation in a voice's graph. Modulation kinds
// produce scalar outputs; unit kinds additionally own a partial array of the
// engine's fixed length. A node is owned by exactly one Voice.
//
// A *Node obtained from an Editor stays a valid handle after the edit, for
// example as the origin passed to Engine.FireTrigger. Its readers (Output,
// Fired, ManualTrigger, Partials, Option, Spec) race with Engine.Render and
// must only be called inside Engine.Edit.
type Node struct {
	kind  Kind
	voice *Voice

	inputNames []string
	inputs     []*Node // nil reads the voice's silent partials

	modNames    []string
	modDefaults []float64
	mods        []binding

	optNames   []string
	optDomains [][]string
	options    []int

	outNames []string
	outputs  []float64
	fired    []bool

	freqs []float64
	amps  []float64

	// stamp is the voice block this node was last evaluated in.
	stamp uint64
	busy  bool

	manual []bool
	level  float64
}

func newNode(v *Voice, kind Kind) *Node {
	n := &Node{kind: kind, voice: v}
	switch kind {
	case KindIn:
		n.initIn()
	case KindHarmonics:
		n.initHarmonics()
	case KindEnvelope:
		n.initEnvelope()
	case KindFilter:
		n.initFilter()
	case KindUser:
		n.initUser()
	case KindOut:
		n.initOut()
	}
	n.reset()
	return n
}

func (n *Node) defineInputs(names []string) {
	n.inputNames = names
	n.inputs = make([]*Node, len(names))
}

func (n *Node) defineModulations(defaults []float64, names []string) {
	n.modNames = names
	n.modDefaults = defaults
	n.mods = make([]binding, len(names))
	for i := range n.mods {
		n.mods[i] = binding{value: defaults[i]}
	}
}

func (n *Node) defineOptions(names []string, domains [][]string) {
	n.optNames = names
	n.optDomains = domains
	n.options = make([]int, len(names))
}

func (n *Node) defineModulationOutputs(names []string) {
	n.outNames = names
	n.outputs = make([]float64, len(names))
	n.fired = make([]bool, len(names))
}

func (n *Node) defineUnit() {
	n.freqs = make([]float64, n.voice.numPartials)
	n.amps = make([]float64, n.voice.numPartials)
}

// Kind returns the node's type tag.
func (n *Node) Kind() Kind { return n.kind }

// IsUnit reports whether the node produces partials.
func (n *Node) IsUnit() bool { return n.freqs != nil }

// Spec returns the node's declared ports and options.
func (n *Node) Spec() TypeSpec {
	s := TypeSpec{
		Kind:        n.kind,
		Name:        n.kind.String(),
		Version:     kindVersions[n.kind],
		Unit:        n.IsUnit(),
		Inputs:      append([]string(nil), n.inputNames...),
		Modulations: append([]string(nil), n.modNames...),
		Defaults:    append([]float64(nil), n.modDefaults...),
		Outputs:     append([]string(nil), n.outNames...),
	}
	for i, name := range n.optNames {
		s.Options = append(s.Options, OptionSpec{
			Name:   name,
			Values: append([]string(nil), n.optDomains[i]...),
		})
	}
	return s
}

// Option returns the current value of option i.
func (n *Node) Option(i int) (int, error) {
	if i < 0 || i >= len(n.options) {
		return 0, fmt.Errorf("%w: %s has no option %d", ErrInvalidOption, n.kind, i)
	}
	v := n.options[i]
	if v < 0 || v >= len(n.optDomains[i]) {
		return 0, fmt.Errorf("%w: %s option %q holds %d", ErrInvalidOption, n.kind, n.optNames[i], v)
	}
	return v, nil
}

func (n *Node) checkOption(i, v int) error {
	if i < 0 || i >= len(n.options) {
		return fmt.Errorf("%w: %s has no option %d", ErrInvalidOption, n.kind, i)
	}
	if v < 0 || v >= len(n.optDomains[i]) {
		return fmt.Errorf("%w: %s option %q does not accept %d", ErrInvalidOption, n.kind, n.optNames[i], v)
	}
	return nil
}

func (n *Node) setOption(i, v int) error {
	if err := n.checkOption(i, v); err != nil {
		return err
	}
	n.options[i] = v
	return nil
}

// Output returns the value of modulation output i from the latest block.
func (n *Node) Output(i int) float64 {
	if i < 0 || i >= len(n.outputs) {
		return 0
	}
	return n.outputs[i]
}

// Fired reports whether output i signalled a trigger in the latest block.
func (n *Node) Fired(i int) bool {
	if i < 0 || i >= len(n.fired) {
		return false
	}
	return n.fired[i]
}

// ManualTrigger reports whether a manual trigger is pending on channel c of
// a User node. It is consumed by the next block.
func (n *Node) ManualTrigger(c int) bool {
	if c < 0 || c >= len(n.manual) {
		return false
	}
	return n.manual[c]
}

// Partials returns copies of the node's partial frequencies (relative to
// pitch) and amplitudes. Both are nil for modulation-only nodes.
func (n *Node) Partials() (freqs, amps []float64) {
	if !n.IsUnit() {
		return nil, nil
	}
	return append([]float64(nil), n.freqs...), append([]float64(nil), n.amps...)
}

// modulate returns the current value of modulation input i, evaluating its
// source first if it has not run this block.
func (n *Node) modulate(i int) float64 {
	b := &n.mods[i]
	if b.src == nil {
		return b.value
	}
	b.src.pull()
	return b.src.outputs[b.port]
}

// isTriggered reports whether the source bound to modulation input i fired
// a trigger this block.
func (n *Node) isTriggered(i int) bool {
	b := &n.mods[i]
	if b.src == nil {
		return false
	}
	b.src.pull()
	return b.src.fired[b.port]
}

func (n *Node) updateTrigger(i int) {
	n.fired[i] = true
}

func (n *Node) setModulationOutput(i int, v float64) {
	n.outputs[i] = v
}

// inputPartials returns the partial arrays bound to input i. The slices are
// owned by the source and must not be written.
func (n *Node) inputPartials(i int) (freqs, amps []float64) {
	src := n.inputs[i]
	if src == nil {
		return n.voice.silentFreqs, n.voice.silentAmps
	}
	src.pull()
	return src.freqs, src.amps
}

// copyInput copies input i's partials into the node's own arrays.
func (n *Node) copyInput(i int) {
	freqs, amps := n.inputPartials(i)
	copy(n.freqs, freqs)
	copy(n.amps, amps)
}

type cycleError struct {
	node *Node
}

// pull evaluates the node at most once per voice block.
func (n *Node) pull() {
	if n.stamp == n.voice.block {
		return
	}
	if n.busy {
		panic(cycleError{node: n})
	}
	n.busy = true
	for i := range n.fired {
		n.fired[i] = false
	}
	n.process()
	n.busy = false
	n.stamp = n.voice.block
}

func (n *Node) process() {
	switch n.kind {
	case KindIn:
		n.processIn()
	case KindHarmonics:
		n.processHarmonics()
	case KindEnvelope:
		n.processEnvelope()
	case KindFilter:
		n.processFilter()
	case KindUser:
		n.processUser()
	case KindOut:
		n.processOut()
	}
}

// reset returns the node to its startup condition.
func (n *Node) reset() {
	n.stamp = 0
	n.busy = false
	for i := range n.outputs {
		n.outputs[i] = 0
		n.fired[i] = false
	}
	for i := range n.manual {
		n.manual[i] = false
	}
	n.level = 0
	for i := range n.amps {
		n.freqs[i] = float64(i + 1)
		n.amps[i] = 0
	}
}

// constrain clamps amplitudes into [0, maxAmplitude] and frequencies to be
// non-negative, replacing NaNs with zero.
func (n *Node) constrain() {
	for i := range n.amps {
		a := n.amps[i]
		if math.IsNaN(a) {
			a = 0
		}
		n.amps[i] = dspcore.FlushDenormals(dspcore.Clamp(a, 0, maxAmplitude))

		f := n.freqs[i]
		if math.IsNaN(f) || f < 0 {
			n.freqs[i] = 0
		}
	}
}

// unbind rebinds every port sourced from dead to its default.
func (n *Node) unbind(dead *Node) {
	for i := range n.mods {
		if n.mods[i].src == dead {
			n.mods[i] = binding{value: n.modDefaults[i]}
		}
	}
	for i := range n.inputs {
		if n.inputs[i] == dead {
			n.inputs[i] = nil
		}
	}
}

// dependsOn reports whether n reads, directly or transitively, from target.
func (n *Node) dependsOn(target *Node) bool {
	seen := map[*Node]bool{}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, b := range cur.mods {
			if b.src != nil {
				stack = append(stack, b.src)
			}
		}
		for _, in := range cur.inputs {
			if in != nil {
				stack = append(stack, in)
			}
		}
	}
	return false
}
