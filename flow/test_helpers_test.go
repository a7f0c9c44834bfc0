package flow

import "testing"

func newTestEngine(t *testing.T, voices, partials int) *Engine {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.NumVoices = voices
	cfg.NumPartials = partials
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// filterPatch is Harmonics(Impulse) -> Filter -> Out.
func filterPatch(filterType int, frequency, dropoff float64) *Patch {
	return &Patch{
		Output: 2,
		Nodes: []Record{
			{Type: "Harmonics", Version: 1, Options: []int{WaveImpulse}},
			{
				Type:    "Filter",
				Version: 1,
				Options: []int{filterType},
				Modulations: []Wire{
					{Node: -1, Value: frequency},
					{Node: -1, Value: dropoff},
				},
				Inputs: []int{0},
			},
			{Type: "Out", Version: 1, Inputs: []int{1}},
		},
	}
}

// evaluatePartials runs one block of voice 0 at pitch and returns the output
// node's partials.
func evaluatePartials(t *testing.T, e *Engine, pitch float64) (freqs, amps []float64) {
	t.Helper()
	v := e.voices[0]
	v.pitch = pitch
	if err := v.evaluate(); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.output == nil {
		t.Fatal("voice has no output")
	}
	return v.output.Partials()
}
