package flow

import "github.com/cwbudde/algo-flow/fastmath"

// Filter modulation inputs, option and types.
const (
	FilterModFrequency = 0
	FilterModDropoff   = 1

	FilterOptionType = 0

	FilterLP    = 0
	FilterHP    = 1
	FilterBP    = 2
	FilterNotch = 3
)

var filterTypes = []string{"LP", "HP", "BP", "Notch"}

// initFilter declares a non-resonant partial filter. The cutoff is given by
// the Frequency modulation; Dropoff sets the steepness, from 0 to 8 poles
// with 4 poles at 0.5.
func (n *Node) initFilter() {
	n.defineInputs([]string{"Input"})
	n.defineOptions([]string{"Type"}, [][]string{filterTypes})
	n.defineModulations([]float64{0, 0.5}, []string{"Frequency", "Dropoff"})
	n.defineUnit()
}

func (n *Node) processFilter() {
	n.copyInput(0)

	freqs := n.freqs
	amps := n.amps

	cutoff := FrequencyFromModulation(Insensitive(n.modulate(FilterModFrequency)))
	cutoffdivpitch := cutoff / n.voice.pitch
	drop := DropFromModulation(n.modulate(FilterModDropoff))

	switch n.options[FilterOptionType] {
	case FilterLP:
		for i := range amps {
			if freqs[i] > cutoffdivpitch {
				amps[i] *= fastmath.HybridPow(drop, freqs[i]-cutoffdivpitch)
			}
		}
	case FilterHP:
		for i := range amps {
			if freqs[i] < cutoffdivpitch {
				amps[i] *= fastmath.HybridPow(drop, cutoffdivpitch-freqs[i])
			}
		}
	case FilterBP:
		for i := range amps {
			if freqs[i] > cutoffdivpitch {
				amps[i] *= fastmath.HybridPow(drop, freqs[i]-cutoffdivpitch)
			} else if freqs[i] < cutoffdivpitch {
				amps[i] *= fastmath.HybridPow(drop, cutoffdivpitch-freqs[i])
			}
		}
	case FilterNotch:
		for i := range amps {
			if freqs[i] > cutoffdivpitch {
				amps[i] *= 1.0 - fastmath.HybridPow(drop, freqs[i]-cutoffdivpitch)
			} else if freqs[i] < cutoffdivpitch {
				amps[i] *= 1.0 - fastmath.HybridPow(drop, cutoffdivpitch-freqs[i])
			}
		}
	}

	n.constrain()
}
