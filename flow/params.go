package flow

import "fmt"

// Config holds the engine-wide settings fixed for an Engine's lifetime.
type Config struct {
	SampleRate int
	NumVoices  int

	// NumPartials is the length of every partial array.
	NumPartials int

	MasterGain float64

	// Monophonic renders and plays only the first voice.
	Monophonic bool
}

// NewDefaultConfig creates default settings.
func NewDefaultConfig() *Config {
	return &Config{
		SampleRate:  48000,
		NumVoices:   8,
		NumPartials: 256,
		MasterGain:  0.25,
		Monophonic:  false,
	}
}

// Validate reports the first setting an Engine cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be > 0")
	}
	if c.NumVoices < 1 {
		return fmt.Errorf("num_voices must be >= 1")
	}
	if c.NumPartials < 1 {
		return fmt.Errorf("num_partials must be >= 1")
	}
	if c.MasterGain < 0 {
		return fmt.Errorf("master_gain must be >= 0")
	}
	return nil
}
