package flow

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

// In outputs.
const (
	InGate     = 0
	InVelocity = 1
	InNote     = 2
)

// initIn declares the voice's note input. Note events reach the graph only
// through its outputs; a note-on also fires a trigger on Gate.
func (n *Node) initIn() {
	n.defineModulationOutputs([]string{"Gate", "Velocity", "Note"})
}

func (n *Node) processIn() {
	v := n.voice
	gate := 0.0
	if v.gate {
		gate = 1
	}
	n.setModulationOutput(InGate, gate)
	n.setModulationOutput(InVelocity, v.velocity)
	n.setModulationOutput(InNote, float64(v.note)/127.0)
	if v.noteOn {
		n.updateTrigger(InGate)
	}
}

// Harmonics waveforms.
const (
	HarmonicsOptionWaveform = 0

	WaveSawtooth = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveSine     = 3
	WaveImpulse  = 4
)

var waveforms = []string{"Sawtooth", "Square", "Triangle", "Sine", "Impulse"}

func (n *Node) initHarmonics() {
	n.defineOptions([]string{"Waveform"}, [][]string{waveforms})
	n.defineUnit()
}

func (n *Node) processHarmonics() {
	wave := n.options[HarmonicsOptionWaveform]
	for i := range n.amps {
		h := float64(i + 1)
		n.freqs[i] = h
		odd := i%2 == 0
		switch wave {
		case WaveSawtooth:
			n.amps[i] = 1 / h
		case WaveSquare:
			if odd {
				n.amps[i] = 1 / h
			} else {
				n.amps[i] = 0
			}
		case WaveTriangle:
			if odd {
				n.amps[i] = 1 / (h * h)
			} else {
				n.amps[i] = 0
			}
		case WaveSine:
			if i == 0 {
				n.amps[i] = 1
			} else {
				n.amps[i] = 0
			}
		case WaveImpulse:
			n.amps[i] = 1
		}
	}
	n.constrain()
}

// Envelope ports.
const (
	EnvelopeModGate    = 0
	EnvelopeModAttack  = 1
	EnvelopeModRelease = 2

	EnvelopeLevel = 0
)

// initEnvelope declares a gate-driven attack/release envelope. A trigger on
// the Gate source restarts the attack from zero.
func (n *Node) initEnvelope() {
	n.defineModulations([]float64{0, 0.1, 0.3}, []string{"Gate", "Attack", "Release"})
	n.defineModulationOutputs([]string{"Level"})
}

func (n *Node) processEnvelope() {
	gate := n.modulate(EnvelopeModGate)
	if n.isTriggered(EnvelopeModGate) {
		n.level = 0
	}
	dt := n.voice.blockSeconds()
	if gate >= 0.5 {
		if attack := envelopeSeconds(n.modulate(EnvelopeModAttack)); attack > dt {
			n.level += dt / attack
		} else {
			n.level = 1
		}
	} else {
		if release := envelopeSeconds(n.modulate(EnvelopeModRelease)); release > dt {
			n.level -= dt / release
		} else {
			n.level = 0
		}
	}
	n.level = dspcore.Clamp(n.level, 0, 1)
	n.setModulationOutput(EnvelopeLevel, n.level)
}

// Out ports.
const OutModAmplitude = 0

// initOut declares the terminal unit a voice synthesizes from.
func (n *Node) initOut() {
	n.defineInputs([]string{"Input"})
	n.defineModulations([]float64{1}, []string{"Amplitude"})
	n.defineUnit()
}

func (n *Node) processOut() {
	n.copyInput(0)
	gain := dspcore.Clamp(n.modulate(OutModAmplitude), 0, 1)
	for i := range n.amps {
		n.amps[i] *= gain
	}
	n.constrain()
}
