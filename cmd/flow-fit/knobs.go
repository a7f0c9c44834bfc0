package main

import (
	"fmt"
	"strings"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-flow/flow"
)

// knobDef is one constant modulation input the optimizer may move. Values
// are modulation units in [0,1].
type knobDef struct {
	Name string
	Node int
	Port int
}

// filterKnobs lists the constant Frequency and Dropoff inputs of every
// Filter in p. Inputs driven by another node are not fitted.
func filterKnobs(p *flow.Patch) []knobDef {
	var defs []knobDef
	for i, r := range p.Nodes {
		if !strings.EqualFold(r.Type, flow.KindFilter.String()) {
			continue
		}
		for _, k := range []struct {
			port int
			name string
		}{
			{flow.FilterModFrequency, "frequency"},
			{flow.FilterModDropoff, "dropoff"},
		} {
			if k.port < len(r.Modulations) && r.Modulations[k.port].Node >= 0 {
				continue
			}
			defs = append(defs, knobDef{
				Name: fmt.Sprintf("filter%d.%s", i, k.name),
				Node: i,
				Port: k.port,
			})
		}
	}
	return defs
}

// knobValues reads the current knob settings from p, using the kind's
// defaults for unset inputs.
func knobValues(p *flow.Patch, defs []knobDef) []float64 {
	spec, _ := flow.LookupType(flow.KindFilter.String())
	vals := make([]float64, len(defs))
	for i, d := range defs {
		mods := p.Nodes[d.Node].Modulations
		if d.Port < len(mods) {
			vals[i] = mods[d.Port].Value
		} else {
			vals[i] = spec.Defaults[d.Port]
		}
	}
	return vals
}

// applyKnobs returns a copy of p with the knobs set to vals.
func applyKnobs(p *flow.Patch, defs []knobDef, vals []float64) *flow.Patch {
	out := *p
	out.Nodes = make([]flow.Record, len(p.Nodes))
	for i, r := range p.Nodes {
		r.Modulations = append([]flow.Wire(nil), r.Modulations...)
		out.Nodes[i] = r
	}

	spec, _ := flow.LookupType(flow.KindFilter.String())
	for i, d := range defs {
		r := &out.Nodes[d.Node]
		for len(r.Modulations) <= d.Port {
			r.Modulations = append(r.Modulations, flow.Wire{Node: -1, Value: spec.Defaults[len(r.Modulations)]})
		}
		r.Modulations[d.Port] = flow.Wire{Node: -1, Value: dspcore.Clamp(vals[i], 0, 1)}
	}
	return &out
}
