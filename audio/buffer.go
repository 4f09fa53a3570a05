package audio

import "time"

// Buffer holds mono audio samples together with their sample rate.
// Samples are normalized float32 in [-1.0, 1.0]. A Buffer is never
// mutated after it has been produced.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Peak returns the maximum absolute sample value.
func (b *Buffer) Peak() float32 {
	var peak float32
	if b == nil {
		return 0
	}
	for _, s := range b.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Empty reports whether the buffer contains no samples.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}
