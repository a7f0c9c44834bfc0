package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// DefaultFFTSize is the frame length HarmonicProfile analyzes with.
const DefaultFFTSize = 4096

// Spectrum is a frame-averaged magnitude spectrum.
type Spectrum struct {
	SampleRate int
	FFTSize    int
	// Mag holds FFTSize/2+1 bins scaled so that a bin-centered sine of
	// amplitude A reads A.
	Mag    []float64
	Frames int
}

// BinHz returns the bin spacing.
func (s *Spectrum) BinHz() float64 {
	return float64(s.SampleRate) / float64(s.FFTSize)
}

// AverageSpectrum averages Hann-windowed magnitude spectra over frames of
// fftSize samples with half-frame hop. Input shorter than one frame is
// zero-padded.
func AverageSpectrum(x []float64, sampleRate, fftSize int) (*Spectrum, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	if fftSize < 16 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size %d must be a power of two >= 16", fftSize)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	hann := make([]float64, fftSize)
	var wsum float64
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize))
		wsum += hann[i]
	}

	s := &Spectrum{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		Mag:        make([]float64, fftSize/2+1),
	}
	spec := make([]complex128, fftSize/2+1)
	buf := make([]float64, fftSize)
	hop := fftSize / 2
	for pos := 0; pos == 0 || pos+fftSize <= len(x); pos += hop {
		for i := range buf {
			buf[i] = 0
			if pos+i < len(x) {
				buf[i] = x[pos+i] * hann[i]
			}
		}
		plan.Forward(spec, buf)
		for k := range spec {
			s.Mag[k] += cmplx.Abs(spec[k])
		}
		s.Frames++
	}

	scale := 2 / (wsum * float64(s.Frames))
	for k := range s.Mag {
		s.Mag[k] *= scale
	}
	return s, nil
}

// Harmonic returns the amplitude of the partial nearest hz: the largest
// bin within one bin of it. Frequencies at or above Nyquist read 0.
func (s *Spectrum) Harmonic(hz float64) float64 {
	if hz <= 0 || hz >= 0.5*float64(s.SampleRate) {
		return 0
	}
	center := int(math.Round(hz / s.BinHz()))
	best := 0.0
	for k := center - 1; k <= center+1; k++ {
		if k >= 0 && k < len(s.Mag) && s.Mag[k] > best {
			best = s.Mag[k]
		}
	}
	return best
}

// HarmonicProfile measures the amplitudes of the first count harmonics of
// f0 in x.
func HarmonicProfile(x []float64, sampleRate int, f0 float64, count int) ([]float64, error) {
	if f0 <= 0 {
		return nil, fmt.Errorf("fundamental must be > 0")
	}
	if count < 1 {
		return nil, fmt.Errorf("harmonic count must be >= 1")
	}
	s, err := AverageSpectrum(x, sampleRate, DefaultFFTSize)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for h := range out {
		out[h] = s.Harmonic(f0 * float64(h+1))
	}
	return out, nil
}

// ProfileDistanceDB is the RMS difference in dB between two harmonic
// profiles, each normalized to its own peak so overall gain does not count.
// Harmonics below floorDB relative to the peak are clamped to floorDB.
func ProfileDistanceDB(ref, cand []float64, floorDB float64) float64 {
	n := len(ref)
	if len(cand) < n {
		n = len(cand)
	}
	if n == 0 {
		return 0
	}
	rp, cp := peak(ref[:n]), peak(cand[:n])
	var sum float64
	for i := 0; i < n; i++ {
		d := relDB(ref[i], rp, floorDB) - relDB(cand[i], cp, floorDB)
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func peak(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		if v > p {
			p = v
		}
	}
	return p
}

func relDB(v, ref, floorDB float64) float64 {
	if ref <= 0 {
		return floorDB
	}
	db := linToDB(v / ref)
	if db < floorDB {
		return floorDB
	}
	return db
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}
