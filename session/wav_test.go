package session

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voicetrainer/audio"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 4410)
	for i := range samples {
		samples[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	buf := &audio.Buffer{Samples: samples, SampleRate: 44100}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", got.SampleRate)
	}
	if len(got.Samples) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got.Samples), len(samples))
	}
	// Float32 storage is lossless.
	for i := range samples {
		if got.Samples[i] != samples[i] {
			t.Fatalf("sample %d: got %v, want %v", i, got.Samples[i], samples[i])
		}
	}
}

// writePCM16WAV builds a PCM16 file by hand so the reader is tested against
// a layout we did not produce ourselves.
func writePCM16WAV(t *testing.T, path string, channels int, rate int, frames [][]int16) {
	t.Helper()
	var body bytes.Buffer
	for _, frame := range frames {
		for _, s := range frame {
			binary.Write(&body, binary.LittleEndian, s)
		}
	}

	var f bytes.Buffer
	dataSize := uint32(body.Len())
	f.WriteString("RIFF")
	binary.Write(&f, binary.LittleEndian, uint32(36+dataSize))
	f.WriteString("WAVE")
	f.WriteString("fmt ")
	binary.Write(&f, binary.LittleEndian, uint32(16))
	binary.Write(&f, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&f, binary.LittleEndian, uint16(channels))
	binary.Write(&f, binary.LittleEndian, uint32(rate))
	binary.Write(&f, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&f, binary.LittleEndian, uint16(channels*2))
	binary.Write(&f, binary.LittleEndian, uint16(16))
	f.WriteString("data")
	binary.Write(&f, binary.LittleEndian, dataSize)
	f.Write(body.Bytes())

	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test WAV: %v", err)
	}
}

func TestReadWAVStereoAveraging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writePCM16WAV(t, path, 2, 22050, [][]int16{
		{16384, -16384}, // averages to 0
		{16384, 16384},  // averages to 0.5
		{0, -32768},     // averages to -0.5
	})

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want 22050", got.SampleRate)
	}
	if len(got.Samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(got.Samples))
	}
	if math.Abs(float64(got.Samples[0])) > 1e-4 {
		t.Errorf("sample 0 = %v, want ~0", got.Samples[0])
	}
	if math.Abs(float64(got.Samples[1])-0.5) > 1e-3 {
		t.Errorf("sample 1 = %v, want ~0.5", got.Samples[1])
	}
	if math.Abs(float64(got.Samples[2])+0.5) > 1e-3 {
		t.Errorf("sample 2 = %v, want ~-0.5", got.Samples[2])
	}
}

func TestReadWAVInvalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "garbage.wav")
	os.WriteFile(path, []byte("this is not audio"), 0o644)
	if _, err := ReadWAV(path); err == nil {
		t.Error("expected error for non-WAV data")
	}
	if ValidWAV(path) {
		t.Error("garbage file reported valid")
	}

	if _, err := ReadWAV(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDuration(t *testing.T) {
	buf := &audio.Buffer{Samples: make([]float32, 44100*2), SampleRate: 44100}
	path := filepath.Join(t.TempDir(), "two_seconds.wav")
	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	d, err := Duration(path)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if s := d.Seconds(); s < 1.999 || s > 2.001 {
		t.Errorf("duration = %v, want ~2s", d)
	}
}

func TestWAVWriterStreaming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamed.wav")
	w, err := NewWAVWriter(path, 16000)
	if err != nil {
		t.Fatalf("NewWAVWriter failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := w.Write([]float32{0.1, 0.2, 0.3}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if len(got.Samples) != 12 {
		t.Errorf("got %d samples, want 12", len(got.Samples))
	}
	if got.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", got.SampleRate)
	}
}
