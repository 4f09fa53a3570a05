// Package dsp extracts the time-series features used for voice comparison:
// a per-frame amplitude envelope and a per-frame energy contour, plus the
// signal conditioning helpers (normalize, trim, length matching) that make
// two recordings comparable. All functions are pure; inputs are never
// mutated.
package dsp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"voicetrainer/audio"
)

// DefaultFrameSize is the non-overlapping window, in samples, used to
// downsample a waveform into envelope and energy series.
const DefaultFrameSize = 2048

// trimFrameSize is the analysis window used by TrimSilence. Smaller than
// the feature frame so trimming resolves word boundaries reasonably well.
const trimFrameSize = 512

// ErrDegenerateSignal is returned by Normalize when every sample is zero.
var ErrDegenerateSignal = errors.New("signal contains no non-zero samples")

// Bundle holds the derived series for one recording. The invariant
// len(Envelope) == len(Energy) == ceil(len(Waveform)/frameSize) holds for
// any Bundle produced by Extract.
type Bundle struct {
	Waveform []float64
	Envelope []float64
	Energy   []float64
}

// Extract computes the feature bundle for buf using frameSize windows.
// frameSize <= 0 selects DefaultFrameSize.
func Extract(buf *audio.Buffer, frameSize int) *Bundle {
	wave := toFloat64(buf.Samples)
	return &Bundle{
		Waveform: wave,
		Envelope: envelope(wave, normFrameSize(frameSize)),
		Energy:   energy(wave, normFrameSize(frameSize)),
	}
}

// Envelope returns the per-frame maximum absolute amplitude: one value per
// non-overlapping frameSize window, the last window possibly shorter.
func Envelope(samples []float32, frameSize int) []float64 {
	return envelope(toFloat64(samples), normFrameSize(frameSize))
}

// Energy returns the per-frame sum of squared amplitudes.
func Energy(samples []float32, frameSize int) []float64 {
	return energy(toFloat64(samples), normFrameSize(frameSize))
}

func envelope(wave []float64, frameSize int) []float64 {
	out := make([]float64, 0, frameCount(len(wave), frameSize))
	scratch := make([]float64, frameSize)
	for i := 0; i < len(wave); i += frameSize {
		frame := wave[i:min(i+frameSize, len(wave))]
		abs := scratch[:len(frame)]
		for j, v := range frame {
			abs[j] = math.Abs(v)
		}
		out = append(out, floats.Max(abs))
	}
	return out
}

func energy(wave []float64, frameSize int) []float64 {
	out := make([]float64, 0, frameCount(len(wave), frameSize))
	for i := 0; i < len(wave); i += frameSize {
		frame := wave[i:min(i+frameSize, len(wave))]
		out = append(out, floats.Dot(frame, frame))
	}
	return out
}

// Normalize scales samples so the peak absolute amplitude is exactly 1.0.
func Normalize(samples []float32) ([]float32, error) {
	peak := Peak(samples)
	if peak == 0 {
		return nil, ErrDegenerateSignal
	}
	out := make([]float32, len(samples))
	inv := 1 / peak
	for i, s := range samples {
		out[i] = s * inv
	}
	return out, nil
}

// TrimSilence removes leading and trailing stretches whose frame RMS sits
// more than thresholdDB below the loudest frame. Interior silence is
// preserved. An entirely silent signal trims to nothing.
func TrimSilence(samples []float32, thresholdDB float64) []float32 {
	if len(samples) == 0 {
		return samples
	}

	n := frameCount(len(samples), trimFrameSize)
	rms := make([]float64, n)
	for f := 0; f < n; f++ {
		start := f * trimFrameSize
		frame := samples[start:min(start+trimFrameSize, len(samples))]
		var sum float64
		for _, s := range frame {
			sum += float64(s) * float64(s)
		}
		rms[f] = math.Sqrt(sum / float64(len(frame)))
	}

	peak := floats.Max(rms)
	if peak == 0 {
		return samples[:0]
	}
	cutoff := peak * math.Pow(10, -thresholdDB/20)

	first, last := -1, -1
	for f, v := range rms {
		if v > cutoff {
			if first < 0 {
				first = f
			}
			last = f
		}
	}
	if first < 0 {
		return samples[:0]
	}
	return samples[first*trimFrameSize : min((last+1)*trimFrameSize, len(samples))]
}

// MatchLength adjusts source to exactly len(target) samples: truncated when
// longer, right-padded with zeros when shorter. This masks the two series to
// a common length for sample-for-sample comparison; it performs no time
// alignment.
func MatchLength(source, target []float32) []float32 {
	out := make([]float32, len(target))
	copy(out, source)
	return out
}

// Peak returns the maximum absolute value in samples.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

func toFloat64(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

func normFrameSize(frameSize int) int {
	if frameSize <= 0 {
		return DefaultFrameSize
	}
	return frameSize
}

func frameCount(samples, frameSize int) int {
	return (samples + frameSize - 1) / frameSize
}
