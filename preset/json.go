package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-flow/flow"
)

// File is the JSON schema for engine settings files.
type File struct {
	SampleRate  *int     `json:"sample_rate"`
	NumVoices   *int     `json:"num_voices"`
	NumPartials *int     `json:"num_partials"`
	MasterGain  *float64 `json:"master_gain"`
	Monophonic  *bool    `json:"monophonic"`
	PatchPath   string   `json:"patch_path"`
}

// Settings is a loaded settings file: engine config plus the patch to load
// into it, if any.
type Settings struct {
	Config    *flow.Config
	PatchPath string
}

// LoadJSON loads a settings JSON file and applies it on top of default
// config. A relative patch_path is resolved against the file's directory.
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	cfg := flow.NewDefaultConfig()
	if err := ApplyFile(cfg, &f); err != nil {
		return nil, err
	}

	s := &Settings{Config: cfg, PatchPath: strings.TrimSpace(f.PatchPath)}
	if s.PatchPath != "" && !filepath.IsAbs(s.PatchPath) {
		base := filepath.Dir(path)
		s.PatchPath = filepath.Clean(filepath.Join(base, s.PatchPath))
	}
	return s, nil
}

// ApplyFile applies a parsed settings file onto an existing config.
func ApplyFile(dst *flow.Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.NumVoices != nil {
		if *f.NumVoices < 1 || *f.NumVoices > 128 {
			return fmt.Errorf("num_voices must be in [1,128]")
		}
		dst.NumVoices = *f.NumVoices
	}
	if f.NumPartials != nil {
		if *f.NumPartials < 1 || *f.NumPartials > 4096 {
			return fmt.Errorf("num_partials must be in [1,4096]")
		}
		dst.NumPartials = *f.NumPartials
	}
	if f.MasterGain != nil {
		if *f.MasterGain < 0 {
			return fmt.Errorf("master_gain must be >= 0")
		}
		dst.MasterGain = *f.MasterGain
	}
	if f.Monophonic != nil {
		dst.Monophonic = *f.Monophonic
	}
	return nil
}
