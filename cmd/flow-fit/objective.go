package main

import (
	"fmt"

	"github.com/cwbudde/algo-flow/analysis"
	"github.com/cwbudde/algo-flow/flow"
)

// floorDB bounds how far below the peak a harmonic can count.
const floorDB = -80.0

type renderSpec struct {
	note        int
	velocity    int
	sampleRate  int
	numPartials int
	warmup      float64 // seconds skipped before analysis
	seconds     float64
}

// renderPatch plays one held note through a single-voice engine and returns
// the mono signal after warmup together with the voice pitch.
func renderPatch(p *flow.Patch, rs renderSpec) ([]float64, float64, error) {
	cfg := flow.NewDefaultConfig()
	cfg.SampleRate = rs.sampleRate
	cfg.NumVoices = 1
	cfg.NumPartials = rs.numPartials
	cfg.Monophonic = true
	e, err := flow.NewEngine(cfg)
	if err != nil {
		return nil, 0, err
	}
	if err := e.Load(p); err != nil {
		return nil, 0, err
	}
	e.NoteOn(rs.note, rs.velocity)

	var pitch float64
	if err := e.Edit(func(ed *flow.Editor) error {
		pitch = ed.Voice(0).Pitch()
		return nil
	}); err != nil {
		return nil, 0, err
	}

	const block = 256
	skip := int(rs.warmup * float64(rs.sampleRate))
	keep := int(rs.seconds * float64(rs.sampleRate))
	if keep < 1 {
		return nil, 0, fmt.Errorf("analysis length must be > 0")
	}
	buf := make([]float32, 2*block)
	mono := make([]float64, 0, keep)
	for done := 0; done < skip+keep; done += block {
		if err := e.Render(buf); err != nil {
			return nil, 0, err
		}
		for i := 0; i < block; i++ {
			if done+i >= skip && len(mono) < keep {
				mono = append(mono, float64(buf[2*i]))
			}
		}
	}
	return mono, pitch, nil
}

// profileObjective scores a patch by the distance between its rendered
// harmonic profile and ref.
type profileObjective struct {
	ref       []float64
	rs        renderSpec
	base      *flow.Patch
	defs      []knobDef
	harmonics int
}

func (o *profileObjective) evaluate(vals []float64) (float64, error) {
	p := applyKnobs(o.base, o.defs, vals)
	mono, pitch, err := renderPatch(p, o.rs)
	if err != nil {
		return 0, err
	}
	prof, err := analysis.HarmonicProfile(mono, o.rs.sampleRate, pitch, o.harmonics)
	if err != nil {
		return 0, err
	}
	return analysis.ProfileDistanceDB(o.ref, prof, floorDB), nil
}
