package flow

import (
	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// MinFrequency is the frequency a modulation value of 0 maps to (C0).
	MinFrequency = 16.351597831287414
	// FrequencyOctaves is the span of the modulation-to-frequency mapping.
	FrequencyOctaves = 10.0

	maxDropoffPoles = 8.0
	maxEnvelopeTime = 4.0 // seconds
)

// FrequencyFromModulation maps a modulation value in [0,1] exponentially
// onto MinFrequency..MinFrequency·2^FrequencyOctaves Hz.
func FrequencyFromModulation(m float64) float64 {
	return MinFrequency * pow2Approx(dspcore.Clamp(m, 0, 1)*FrequencyOctaves)
}

// Insensitive reshapes a modulation value so that small values move the
// result less.
func Insensitive(m float64) float64 {
	m = dspcore.Clamp(m, 0, 1)
	return m * m
}

// DropFromModulation maps a modulation value in [0,1] to a filter's
// attenuation factor per unit of distance from the cutoff: 0 poles at 0,
// 4 poles at 0.5 and 8 poles at 1. The result lies in (0,1].
func DropFromModulation(m float64) float64 {
	d := pow2Approx(-dspcore.Clamp(m, 0, 1) * maxDropoffPoles)
	return dspcore.Clamp(d, 1.0/512, 1)
}

func envelopeSeconds(m float64) float64 {
	m = dspcore.Clamp(m, 0, 1)
	return m * m * maxEnvelopeTime
}

func pow2Approx(x float64) float64 {
	const ln2 = 0.69314718055994530942
	return float64(approx.FastExp(float32(x * ln2)))
}
