package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-flow/analysis"
	"github.com/cwbudde/algo-flow/flow"
)

func TestFilterKnobsSkipsBoundInputs(t *testing.T) {
	p := flow.DefaultPatch()
	defs := filterKnobs(p)
	require.Len(t, defs, 2)
	require.Equal(t, "filter3.frequency", defs[0].Name)
	require.Equal(t, "filter3.dropoff", defs[1].Name)
	require.Equal(t, []float64{0.7, 0.5}, knobValues(p, defs))

	p.Nodes[3].Modulations[flow.FilterModFrequency] = flow.Wire{Node: 0, Port: flow.InNote}
	defs = filterKnobs(p)
	require.Len(t, defs, 1)
	require.Equal(t, flow.FilterModDropoff, defs[0].Port)
}

func TestApplyKnobsCopiesPatch(t *testing.T) {
	p := flow.DefaultPatch()
	p.Nodes[3].Modulations = nil
	defs := filterKnobs(p)
	require.Equal(t, []float64{0, 0.5}, knobValues(p, defs))

	got := applyKnobs(p, defs, []float64{0.3, 1.4})
	require.Nil(t, p.Nodes[3].Modulations, "base patch modified")
	require.Equal(t, []flow.Wire{{Node: -1, Value: 0.3}, {Node: -1, Value: 1}}, got.Nodes[3].Modulations)

	e, err := flow.NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Load(got))
}

func testRenderSpec() renderSpec {
	return renderSpec{
		note:        57,
		velocity:    100,
		sampleRate:  48000,
		numPartials: 16,
		warmup:      0.05,
		seconds:     0.2,
	}
}

func TestObjectiveMatchesOwnRender(t *testing.T) {
	base := flow.DefaultPatch()
	rs := testRenderSpec()
	mono, pitch, err := renderPatch(base, rs)
	require.NoError(t, err)
	require.Len(t, mono, int(rs.seconds*float64(rs.sampleRate)))

	ref, err := analysis.HarmonicProfile(mono, rs.sampleRate, pitch, 8)
	require.NoError(t, err)

	defs := filterKnobs(base)
	obj := &profileObjective{ref: ref, rs: rs, base: base, defs: defs, harmonics: 8}
	self, err := obj.evaluate(knobValues(base, defs))
	require.NoError(t, err)
	require.InDelta(t, 0, self, 1e-9)

	other, err := obj.evaluate([]float64{0.2, 0.9})
	require.NoError(t, err)
	require.Greater(t, other, 1.0)
}

func TestRunOptimizationNeverWorsens(t *testing.T) {
	target := []float64{0.25, 0.75}
	objective := func(v []float64) (float64, error) {
		var sum float64
		for i := range v {
			d := v[i] - target[i]
			sum += d * d
		}
		return sum, nil
	}
	initial := []float64{0.9, 0.1}
	start, _ := objective(initial)

	res, err := runOptimization(context.Background(), &optimizationConfig{
		objective:  objective,
		dims:       2,
		initial:    initial,
		seed:       3,
		timeBudget: 10 * time.Second,
		maxEvals:   400,
		variant:    "ma",
		pop:        6,
		roundEvals: 120,
		workers:    2,
	})
	require.NoError(t, err)
	require.LessOrEqual(t, res.evals, 400)
	require.LessOrEqual(t, res.bestScore, start)
	require.Len(t, res.best, 2)
	got, _ := objective(res.best)
	require.InDelta(t, res.bestScore, got, 1e-12)
}

func TestRunOptimizationRejectsVariant(t *testing.T) {
	_, err := runOptimization(context.Background(), &optimizationConfig{
		objective: func([]float64) (float64, error) { return 0, nil },
		dims:      1,
		initial:   []float64{0},
		variant:   "annealing",
		pop:       4,
		maxEvals:  10,
	})
	require.Error(t, err)
}

func TestWindow(t *testing.T) {
	x := make([]float64, 1000)
	w, err := window(x, 1000, 0.2, 0.5)
	require.NoError(t, err)
	require.Len(t, w, 500)

	w, err = window(x, 1000, 0.8, 0.5)
	require.NoError(t, err)
	require.Len(t, w, 200)

	_, err = window(x, 1000, 2, 0.5)
	require.Error(t, err)
}
