package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/cwbudde/algo-flow/flow"
	"github.com/cwbudde/algo-flow/internal/fitcommon"
	"github.com/cwbudde/algo-flow/preset"
)

func main() {
	note := flag.Int("note", 60, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127)")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.0, "Send NoteOff after this many seconds (negative: never)")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "After release, stop once block RMS falls below this dBFS (e.g. -90). Disabled by default")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when using -decay-dbfs")
	settingsPath := flag.String("settings", "", "Engine settings JSON file (optional)")
	patchPath := flag.String("patch", "", "Patch file (.json or .json.gz); overrides the settings file's patch_path")
	sampleRate := flag.Int("sample-rate", 0, "Render sample rate in Hz (0: from settings)")
	outputRate := flag.Int("output-rate", 0, "Resample the render to this rate before writing (0: render rate)")
	mono := flag.Bool("mono", false, "Play the first voice only")
	blockSize := flag.Int("block-size", 128, "Frames per rendered block")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	cfg := flow.NewDefaultConfig()
	patchFile := ""
	if *settingsPath != "" {
		s, err := preset.LoadJSON(*settingsPath)
		if err != nil {
			fitcommon.Die("Error loading settings %q: %v", *settingsPath, err)
		}
		cfg = s.Config
		patchFile = s.PatchPath
	}
	if *patchPath != "" {
		patchFile = *patchPath
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *mono {
		cfg.Monophonic = true
	}

	patch := flow.DefaultPatch()
	if patchFile != "" {
		p, err := preset.LoadPatch(patchFile)
		if err != nil {
			fitcommon.Die("Error loading patch: %v", err)
		}
		patch = p
	}

	e, err := flow.NewEngine(cfg)
	if err != nil {
		fitcommon.Die("Error creating engine: %v", err)
	}
	if err := e.Load(patch); err != nil {
		fitcommon.Die("Error loading patch %q: %v", patch.Name, err)
	}

	fmt.Printf("Rendering note %d, velocity %d at %d Hz (patch: %s, voices: %d, partials: %d)...\n",
		*note, *velocity, cfg.SampleRate, displayName(patch, patchFile), cfg.NumVoices, cfg.NumPartials)

	opts := renderOptions{
		note:         *note,
		velocity:     *velocity,
		sampleRate:   cfg.SampleRate,
		blockSize:    *blockSize,
		duration:     *duration,
		releaseAfter: *releaseAfter,
		decayDBFS:    *decayDBFS,
		maxDuration:  *maxDuration,
	}
	samples, err := renderNote(e, opts)
	if err != nil {
		fitcommon.Die("Error rendering: %v", err)
	}
	frames := len(samples) / 2
	if opts.autoStop() {
		fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n", frames, float64(frames)/float64(cfg.SampleRate), *decayDBFS)
	}

	rate := cfg.SampleRate
	if *outputRate > 0 && *outputRate != rate {
		samples, err = resampleStereo(samples, rate, *outputRate)
		if err != nil {
			fitcommon.Die("Error resampling to %d Hz: %v", *outputRate, err)
		}
		rate = *outputRate
	}

	if err := fitcommon.WriteWAV(*output, samples, 2, rate); err != nil {
		fitcommon.Die("Error writing WAV file: %v", err)
	}
	fmt.Printf("Successfully wrote %s (%d frames at %d Hz)\n", *output, len(samples)/2, rate)
}

func displayName(p *flow.Patch, path string) string {
	if p.Name != "" {
		return p.Name
	}
	if path != "" {
		return path
	}
	return "default"
}
