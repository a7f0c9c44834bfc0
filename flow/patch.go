package flow

import (
	"fmt"
)

// Wire is the source of one modulation input in a Record. Node is the
// registry index of the source, or -1 for the constant Value.
type Wire struct {
	Node  int
	Port  int
	Value float64
}

// Record is the restorable configuration of one node.
type Record struct {
	Type        string
	Version     int
	Options     []int
	Modulations []Wire
	// Inputs holds the registry index feeding each partial input, or -1 for
	// silence.
	Inputs []int
}

// Patch describes a voice graph independently of any engine.
type Patch struct {
	Name    string
	Author  string
	Info    string
	Date    string
	Version int

	// Output is the registry index of the designated output node, or -1.
	Output int
	Nodes  []Record
}

func (p *Patch) header() Patch {
	return Patch{
		Name:    p.Name,
		Author:  p.Author,
		Info:    p.Info,
		Date:    p.Date,
		Version: p.Version,
		Output:  -1,
	}
}

// extractVoice records v's registry. Metadata fields are left empty.
func extractVoice(v *Voice) *Patch {
	index := make(map[*Node]int, len(v.nodes))
	for i, n := range v.nodes {
		index[n] = i
	}
	p := &Patch{Output: -1, Nodes: make([]Record, 0, len(v.nodes))}
	if v.output != nil {
		p.Output = index[v.output]
	}
	for _, n := range v.nodes {
		r := Record{
			Type:        n.kind.String(),
			Version:     kindVersions[n.kind],
			Options:     append([]int(nil), n.options...),
			Modulations: make([]Wire, len(n.mods)),
			Inputs:      make([]int, len(n.inputs)),
		}
		for i, b := range n.mods {
			if b.src == nil {
				r.Modulations[i] = Wire{Node: -1, Value: b.value}
			} else {
				r.Modulations[i] = Wire{Node: index[b.src], Port: b.port}
			}
		}
		for i, in := range n.inputs {
			if in == nil {
				r.Inputs[i] = -1
			} else {
				r.Inputs[i] = index[in]
			}
		}
		p.Nodes = append(p.Nodes, r)
	}
	return p
}

// buildGraph constructs the nodes described by p for voice v without
// installing them. Every record is validated before anything is returned.
//
//nolint:cyclop
func buildGraph(v *Voice, p *Patch) ([]*Node, *Node, error) {
	if p == nil {
		return nil, nil, nil
	}
	nodes := make([]*Node, len(p.Nodes))
	for i, r := range p.Nodes {
		spec, ok := LookupType(r.Type)
		if !ok {
			return nil, nil, fmt.Errorf("%w: node %d has type %q", ErrUnknownType, i, r.Type)
		}
		if r.Version > spec.Version {
			return nil, nil, fmt.Errorf("%w: node %d is %s version %d, newest known is %d", ErrUnknownType, i, spec.Name, r.Version, spec.Version)
		}
		nodes[i] = newNode(v, spec.Kind)
	}

	for i, r := range p.Nodes {
		n := nodes[i]
		if len(r.Options) > len(n.options) {
			return nil, nil, fmt.Errorf("%w: node %d (%s) has %d options, got %d", ErrInvalidOption, i, n.kind, len(n.options), len(r.Options))
		}
		for j, val := range r.Options {
			if err := n.setOption(j, val); err != nil {
				return nil, nil, fmt.Errorf("node %d: %w", i, err)
			}
		}

		if len(r.Modulations) > len(n.mods) {
			return nil, nil, fmt.Errorf("%w: node %d (%s) has %d modulations, got %d", ErrUnboundPort, i, n.kind, len(n.mods), len(r.Modulations))
		}
		for j, w := range r.Modulations {
			if w.Node < 0 {
				n.mods[j] = binding{value: w.Value}
				continue
			}
			if w.Node >= len(nodes) {
				return nil, nil, fmt.Errorf("%w: node %d modulation %d reads node %d", ErrNodeNotFound, i, j, w.Node)
			}
			src := nodes[w.Node]
			if w.Port < 0 || w.Port >= len(src.outputs) {
				return nil, nil, fmt.Errorf("%w: node %d modulation %d reads %s output %d", ErrUnboundPort, i, j, src.kind, w.Port)
			}
			n.mods[j] = binding{src: src, port: w.Port}
		}

		if len(r.Inputs) > len(n.inputs) {
			return nil, nil, fmt.Errorf("%w: node %d (%s) has %d inputs, got %d", ErrUnboundPort, i, n.kind, len(n.inputs), len(r.Inputs))
		}
		for j, idx := range r.Inputs {
			if idx < 0 {
				continue
			}
			if idx >= len(nodes) {
				return nil, nil, fmt.Errorf("%w: node %d input %d reads node %d", ErrNodeNotFound, i, j, idx)
			}
			if !nodes[idx].IsUnit() {
				return nil, nil, fmt.Errorf("%w: node %d input %d reads %s, which has no partials", ErrUnboundPort, i, j, nodes[idx].kind)
			}
			n.inputs[j] = nodes[idx]
		}
	}

	if err := checkAcyclic(nodes); err != nil {
		return nil, nil, err
	}

	var output *Node
	if p.Output >= 0 {
		if p.Output >= len(nodes) {
			return nil, nil, fmt.Errorf("%w: output index %d", ErrNodeNotFound, p.Output)
		}
		output = nodes[p.Output]
		if !output.IsUnit() {
			return nil, nil, fmt.Errorf("%w: output %s has no partials", ErrStructure, output.kind)
		}
	}
	return nodes, output, nil
}

// checkAcyclic runs Kahn's algorithm over the dependency edges of nodes.
func checkAcyclic(nodes []*Node) error {
	indegree := make(map[*Node]int, len(nodes))
	readers := make(map[*Node][]*Node, len(nodes))
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, n := range nodes {
		for _, b := range n.mods {
			if b.src != nil {
				readers[b.src] = append(readers[b.src], n)
				indegree[n]++
			}
		}
		for _, in := range n.inputs {
			if in != nil {
				readers[in] = append(readers[in], n)
				indegree[n]++
			}
		}
	}

	queue := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, r := range readers[n] {
			indegree[r]--
			if indegree[r] == 0 {
				queue = append(queue, r)
			}
		}
	}
	if visited != len(nodes) {
		return fmt.Errorf("%w: %d of %d nodes are on a cycle", ErrCycle, len(nodes)-visited, len(nodes))
	}
	return nil
}

// DefaultPatch is a subtractive starting point: a sawtooth through a
// low-pass filter, shaped by an envelope driven by the note gate.
func DefaultPatch() *Patch {
	return &Patch{
		Name:    "Init",
		Version: 1,
		Output:  4,
		Nodes: []Record{
			{Type: "In", Version: 1},
			{
				Type:    "Envelope",
				Version: 1,
				Modulations: []Wire{
					{Node: 0, Port: InGate},
					{Node: -1, Value: 0.1},
					{Node: -1, Value: 0.3},
				},
			},
			{Type: "Harmonics", Version: 1, Options: []int{WaveSawtooth}},
			{
				Type:    "Filter",
				Version: 1,
				Options: []int{FilterLP},
				Modulations: []Wire{
					{Node: -1, Value: 0.7},
					{Node: -1, Value: 0.5},
				},
				Inputs: []int{2},
			},
			{
				Type:        "Out",
				Version:     1,
				Modulations: []Wire{{Node: 1, Port: EnvelopeLevel}},
				Inputs:      []int{3},
			},
		},
	}
}

func recordsEqual(a, b *Patch) bool {
	if a.Output != b.Output || len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for i := range a.Nodes {
		ra, rb := a.Nodes[i], b.Nodes[i]
		if ra.Type != rb.Type || ra.Version != rb.Version {
			return false
		}
		if !intsEqual(ra.Options, rb.Options) || !intsEqual(ra.Inputs, rb.Inputs) {
			return false
		}
		if len(ra.Modulations) != len(rb.Modulations) {
			return false
		}
		for j := range ra.Modulations {
			if ra.Modulations[j] != rb.Modulations[j] {
				return false
			}
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
