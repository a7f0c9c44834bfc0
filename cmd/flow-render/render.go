package main

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-flow/flow"
	"github.com/cwbudde/algo-flow/internal/fitcommon"
)

type renderOptions struct {
	note         int
	velocity     int
	sampleRate   int
	blockSize    int
	duration     float64
	releaseAfter float64
	decayDBFS    float64
	maxDuration  float64
}

// Decay-based stopping needs this many consecutive quiet blocks.
const decayHoldBlocks = 6

func (o renderOptions) autoStop() bool {
	return !math.IsInf(o.decayDBFS, 1)
}

// renderNote plays one note on e and returns interleaved stereo. With a
// decay threshold the render runs until the released note falls silent or
// maxDuration passes; otherwise it runs for duration.
func renderNote(e *flow.Engine, o renderOptions) ([]float32, error) {
	if o.blockSize < 1 {
		return nil, fmt.Errorf("block size must be >= 1")
	}
	if o.velocity < 1 || o.velocity > 127 {
		return nil, fmt.Errorf("velocity %d outside 1..127", o.velocity)
	}

	total := int(float64(o.sampleRate) * o.duration)
	if o.autoStop() {
		total = int(float64(o.sampleRate) * o.maxDuration)
	}
	if total < 1 {
		total = 1
	}
	releaseAt := -1
	if o.releaseAfter >= 0 {
		releaseAt = int(float64(o.sampleRate) * o.releaseAfter)
	}
	threshold := math.Pow(10, o.decayDBFS/20)

	e.NoteOn(o.note, o.velocity)

	out := make([]float32, 0, 2*total)
	block := make([]float32, 2*o.blockSize)
	released := false
	below := 0
	for rendered := 0; rendered < total; {
		if !released && releaseAt >= 0 && rendered >= releaseAt {
			e.NoteOff(o.note)
			released = true
		}
		n := o.blockSize
		if rendered+n > total {
			n = total - rendered
		}
		if err := e.Render(block[:2*n]); err != nil {
			return nil, err
		}
		out = append(out, block[:2*n]...)
		rendered += n

		if o.autoStop() && released {
			if fitcommon.RMS(block[:2*n]) < threshold {
				below++
				if below >= decayHoldBlocks {
					break
				}
			} else {
				below = 0
			}
		}
	}
	return out, nil
}

func resampleStereo(st []float32, from, to int) ([]float32, error) {
	n := len(st) / 2
	left := make([]float64, n)
	right := make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = float64(st[i*2])
		right[i] = float64(st[i*2+1])
	}
	l, err := fitcommon.ResampleIfNeeded(left, from, to)
	if err != nil {
		return nil, err
	}
	r, err := fitcommon.ResampleIfNeeded(right, from, to)
	if err != nil {
		return nil, err
	}
	m := len(l)
	if len(r) < m {
		m = len(r)
	}
	out := make([]float32, 2*m)
	for i := 0; i < m; i++ {
		out[i*2] = float32(l[i])
		out[i*2+1] = float32(r[i])
	}
	return out, nil
}
