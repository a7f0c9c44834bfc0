package flow

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float64 {
	const a4Freq = 440.0
	const a4Note = 69
	return a4Freq * pow2Approx(float64(note-a4Note)/12.0)
}

func clampNote(note int) int {
	if note < 0 {
		return 0
	}
	if note > 127 {
		return 127
	}
	return note
}

func velocityToModulation(velocity int) float64 {
	if velocity <= 0 {
		return 0
	}
	if velocity >= 127 {
		return 1
	}
	return float64(velocity) / 127.0
}
