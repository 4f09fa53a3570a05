package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func encodeF32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestDecodeF32(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1.0, -1.0}
	got := decodeF32(encodeF32(want), len(want))
	if got == nil {
		t.Fatal("decodeF32 returned nil for valid input")
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// Byte count not matching the frame count is dropped, not truncated.
	if decodeF32(encodeF32(want), len(want)+1) != nil {
		t.Error("expected nil for short byte slice")
	}
}

func TestConcatChunksOrder(t *testing.T) {
	chunks := [][]float32{{1, 2}, {3}, {}, {4, 5, 6}}
	got := concatChunks(chunks)
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCheckSignal(t *testing.T) {
	// Zero chunks captured: empty buffer plus a warning, never an error.
	empty := &Buffer{Samples: nil, SampleRate: 44100}
	warn := checkSignal(empty)
	if warn == nil {
		t.Fatal("expected warning for empty capture")
	}

	quiet := &Buffer{Samples: []float32{0.001, -0.002, 0.0005}, SampleRate: 44100}
	warn = checkSignal(quiet)
	if warn == nil {
		t.Fatal("expected warning for sub-threshold signal")
	}
	if warn.Peak != 0.002 {
		t.Errorf("warning peak = %v, want 0.002", warn.Peak)
	}

	audible := &Buffer{Samples: []float32{0.001, 0.3, -0.1}, SampleRate: 44100}
	if warn := checkSignal(audible); warn != nil {
		t.Errorf("unexpected warning for audible signal: %v", warn)
	}
}

func TestBufferHelpers(t *testing.T) {
	buf := &Buffer{Samples: make([]float32, 44100), SampleRate: 44100}
	if d := buf.Duration().Seconds(); d < 0.999 || d > 1.001 {
		t.Errorf("duration = %v, want ~1s", d)
	}
	buf.Samples[10] = -0.75
	if p := buf.Peak(); p != 0.75 {
		t.Errorf("peak = %v, want 0.75", p)
	}
	if buf.Empty() {
		t.Error("non-empty buffer reported empty")
	}
	var nilBuf *Buffer
	if !nilBuf.Empty() {
		t.Error("nil buffer should be empty")
	}
}

func TestStartWhileCapturing(t *testing.T) {
	c := NewCapture(nil, 44100, 1024, discardLogger())
	c.capturing.Store(true)

	err := c.Start(Device{Name: "Mic", IsInput: true})
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
	if !errors.Is(err, errCaptureActive) {
		t.Errorf("expected capture-active error, got %v", err)
	}
}

func TestCaptureDeviceConfig(t *testing.T) {
	c := NewCapture(nil, 44100, 1024, discardLogger())
	cfg := c.deviceConfig(Device{IsInput: true})
	if cfg.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.PeriodSizeInFrames != 1024 {
		t.Errorf("period size = %d, want 1024", cfg.PeriodSizeInFrames)
	}

	// Zero chunk size leaves the backend default alone.
	c = NewCapture(nil, 44100, 0, discardLogger())
	if got := c.deviceConfig(Device{IsInput: true}).PeriodSizeInFrames; got != 0 {
		t.Errorf("period size = %d, want backend default", got)
	}
}
