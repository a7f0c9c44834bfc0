package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-flow/analysis"
	"github.com/cwbudde/algo-flow/flow"
	"github.com/cwbudde/algo-flow/internal/fitcommon"
	"github.com/cwbudde/algo-flow/preset"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	patchPath := flag.String("patch", "", "Base patch file (default: built-in patch)")
	outputPatch := flag.String("output-patch", "fitted.json", "Path to write the fitted patch (.json or .json.gz)")
	note := flag.Int("note", 60, "MIDI note to fit")
	velocity := flag.Int("velocity", 100, "MIDI velocity")
	f0 := flag.Float64("f0", 0, "Reference fundamental in Hz (0: equal-tempered pitch of -note)")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	numPartials := flag.Int("partials", 64, "Partials per unit")
	harmonics := flag.Int("harmonics", 16, "Harmonics compared")
	refOffset := flag.Float64("reference-offset", 0.1, "Seconds of the reference skipped before analysis")
	seconds := flag.Float64("seconds", 0.5, "Seconds analyzed")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	workersRaw := flag.String("workers", "auto", "Parallel mayfly rounds: integer >= 1 or 'auto'")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 200, "Target eval budget per Mayfly round")
	writeBest := flag.String("write-best", "", "Optional WAV path for a render of the fitted patch")
	flag.Parse()

	if *maxEvals < 1 {
		fitcommon.Die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		fitcommon.Die("time-budget must be > 0")
	}
	workers, err := fitcommon.ParseWorkers(*workersRaw)
	if err != nil {
		fitcommon.Die("invalid -workers: %v", err)
	}

	base := flow.DefaultPatch()
	if *patchPath != "" {
		if base, err = preset.LoadPatch(*patchPath); err != nil {
			fitcommon.Die("failed to load patch: %v", err)
		}
	}
	defs := filterKnobs(base)
	if len(defs) == 0 {
		fitcommon.Die("patch has no Filter with constant Frequency or Dropoff to fit")
	}

	ref, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		fitcommon.Die("failed to read reference: %v", err)
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refSR, *sampleRate)
	if err != nil {
		fitcommon.Die("failed to resample reference: %v", err)
	}
	ref, err = window(ref, *sampleRate, *refOffset, *seconds)
	if err != nil {
		fitcommon.Die("reference: %v", err)
	}

	fundamental := *f0
	if fundamental <= 0 {
		fundamental = 440 * math.Pow(2, float64(*note-69)/12)
	}
	refProfile, err := analysis.HarmonicProfile(ref, *sampleRate, fundamental, *harmonics)
	if err != nil {
		fitcommon.Die("failed to analyze reference: %v", err)
	}

	obj := &profileObjective{
		ref: refProfile,
		rs: renderSpec{
			note:        *note,
			velocity:    *velocity,
			sampleRate:  *sampleRate,
			numPartials: *numPartials,
			warmup:      *refOffset,
			seconds:     *seconds,
		},
		base:      base,
		defs:      defs,
		harmonics: *harmonics,
	}

	fmt.Printf("Fitting %d knobs on note %d (f0 %.2f Hz, %d harmonics, %d workers)\n", len(defs), *note, fundamental, *harmonics, workers)
	res, err := runOptimization(context.Background(), &optimizationConfig{
		objective:   obj.evaluate,
		dims:        len(defs),
		initial:     knobValues(base, defs),
		seed:        *seed,
		timeBudget:  time.Duration(*timeBudget * float64(time.Second)),
		maxEvals:    *maxEvals,
		variant:     *mayflyVariant,
		pop:         *mayflyPop,
		roundEvals:  *mayflyRoundEvals,
		workers:     workers,
		reportEvery: *reportEvery,
	})
	if err != nil {
		fitcommon.Die("optimization failed: %v", err)
	}

	fitted := applyKnobs(base, defs, res.best)
	fitted.Info = fmt.Sprintf("fitted to %s, distance %.3f dB", *referencePath, res.bestScore)
	fitted.Date = time.Now().Format("2006-01-02")
	if err := preset.SavePatch(*outputPatch, fitted); err != nil {
		fitcommon.Die("failed to write patch: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs distance=%.3f dB\n", res.evals, res.elapsed.Seconds(), res.bestScore)
	for i, d := range defs {
		fmt.Printf("  %-20s %.4f\n", d.Name, res.best[i])
	}
	fmt.Printf("Wrote %s\n", *outputPatch)

	if *writeBest != "" {
		mono, _, err := renderPatch(fitted, obj.rs)
		if err != nil {
			fitcommon.Die("failed to render fitted patch: %v", err)
		}
		if err := fitcommon.WriteWAV(*writeBest, fitcommon.MonoToFloat32(mono), 1, *sampleRate); err != nil {
			fitcommon.Die("failed to write %s: %v", *writeBest, err)
		}
		fmt.Printf("Wrote %s\n", *writeBest)
	}
}

// window cuts seconds of x starting at offset.
func window(x []float64, sampleRate int, offset, seconds float64) ([]float64, error) {
	start := int(offset * float64(sampleRate))
	n := int(seconds * float64(sampleRate))
	if start < 0 || n < 1 {
		return nil, fmt.Errorf("invalid analysis window")
	}
	if start >= len(x) {
		return nil, fmt.Errorf("offset %.3fs beyond signal length %.3fs", offset, float64(len(x))/float64(sampleRate))
	}
	end := start + n
	if end > len(x) {
		end = len(x)
	}
	return x[start:end], nil
}
