package flow

import (
	"math"

	"github.com/cwbudde/algo-flow/fastmath"
)

const twoPi = 2 * math.Pi

// oscillatorBank is the additive synthesizer behind a voice: one sine per
// partial, amplitudes ramped linearly across each block.
type oscillatorBank struct {
	phases []float64
	amps   []float64
}

func newOscillatorBank(numPartials int) *oscillatorBank {
	return &oscillatorBank{
		phases: make([]float64, numPartials),
		amps:   make([]float64, numPartials),
	}
}

func (b *oscillatorBank) reset() {
	for i := range b.phases {
		b.phases[i] = 0
		b.amps[i] = 0
	}
}

// render accumulates the partials into dst. Partials at or above Nyquist are
// muted.
func (b *oscillatorBank) render(dst []float32, freqs, amps []float64, pitch float64, sampleRate int) {
	frames := len(dst)
	if frames == 0 || sampleRate <= 0 {
		return
	}
	nyquist := 0.5 * float64(sampleRate)
	for i := range b.phases {
		hz := freqs[i] * pitch
		target := amps[i]
		if hz <= 0 || hz >= nyquist || math.IsInf(hz, 0) {
			b.amps[i] = 0
			continue
		}
		start := b.amps[i]
		if start == 0 && target == 0 {
			continue
		}

		inc := twoPi * hz / float64(sampleRate)
		step := (target - start) / float64(frames)
		phase := b.phases[i]
		a := start
		for s := range dst {
			a += step
			dst[s] += float32(a * fastmath.Sin(phase))
			phase += inc
		}
		b.phases[i] = math.Mod(phase, twoPi)
		b.amps[i] = target
	}
}
