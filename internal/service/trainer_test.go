package service

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicetrainer/audio"
	"voicetrainer/internal/config"
	"voicetrainer/session"
	"voicetrainer/viz"
)

type fakeRecorder struct {
	started  bool
	startErr error
	buf      *audio.Buffer
	warn     *audio.LowSignalWarning
}

func (f *fakeRecorder) Start(dev audio.Device) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeRecorder) Stop() (*audio.Buffer, *audio.LowSignalWarning) {
	f.started = false
	return f.buf, f.warn
}

type fakePlayer struct {
	playing bool
	played  int
	lastDev audio.Device
	stopped int
}

func (f *fakePlayer) Play(buf *audio.Buffer, dev audio.Device) error {
	f.playing = true
	f.played++
	f.lastDev = dev
	return nil
}

func (f *fakePlayer) Stop()         { f.playing = false; f.stopped++ }
func (f *fakePlayer) Playing() bool { return f.playing }

func tone(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	return out
}

func newTestTrainer(t *testing.T, rec *fakeRecorder, player *fakePlayer) *Trainer {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.Default()

	store := session.NewStore(
		filepath.Join(dir, "references"),
		filepath.Join(dir, "user_recordings"),
		filepath.Join(dir, "temp"),
		logger,
	)
	if err := store.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	ref := &audio.Buffer{Samples: tone(44100, 0.7), SampleRate: 44100}
	if err := session.WriteWAV(filepath.Join(store.ReferenceDir, "mr_freeman.wav"), ref); err != nil {
		t.Fatal(err)
	}

	renderer := viz.NewRenderer(viz.PlotConfig{DPI: 100, Width: 10, Height: 6}, logger)
	tr := NewTrainer(cfg, store, rec, player, renderer, logger)
	tr.SetDevices(
		audio.Device{Name: "Test Mic", IsInput: true},
		audio.Device{Name: "Test Speakers", IsOutput: true},
	)
	return tr
}

func TestRecordAndSaveAttempt(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{Samples: tone(22050, 0.5), SampleRate: 44100}}
	tr := newTestTrainer(t, rec, &fakePlayer{})

	if tr.State() != Idle {
		t.Errorf("initial state = %v, want idle", tr.State())
	}
	if err := tr.StartRecording(); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if tr.State() != Capturing {
		t.Errorf("state = %v, want capturing", tr.State())
	}
	if err := tr.StartRecording(); err == nil {
		t.Error("second StartRecording should fail")
	}

	path, warn, err := tr.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if warn != nil {
		t.Errorf("unexpected warning: %v", warn)
	}
	if tr.State() != Idle {
		t.Errorf("state after stop = %v, want idle", tr.State())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("attempt not saved: %v", err)
	}
	if tr.AttemptPath() != path {
		t.Errorf("AttemptPath = %q, want %q", tr.AttemptPath(), path)
	}

	if _, _, err := tr.StopRecording(); err == nil {
		t.Error("StopRecording while idle should fail")
	}
}

func TestStopRecordingEmptyCapture(t *testing.T) {
	rec := &fakeRecorder{
		buf:  &audio.Buffer{SampleRate: 44100},
		warn: &audio.LowSignalWarning{Reason: "no audio frames were captured"},
	}
	tr := newTestTrainer(t, rec, &fakePlayer{})

	if err := tr.StartRecording(); err != nil {
		t.Fatal(err)
	}
	path, warn, err := tr.StopRecording()
	if err != nil {
		t.Fatalf("empty capture must not error: %v", err)
	}
	if warn == nil {
		t.Error("expected low-signal warning")
	}
	if path != "" {
		t.Errorf("empty capture saved to %q", path)
	}
	if tr.AttemptPath() != "" {
		t.Error("empty capture recorded as latest attempt")
	}
}

func TestListenAndOverlap(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{Samples: tone(4096, 0.5), SampleRate: 44100}}
	player := &fakePlayer{}
	tr := newTestTrainer(t, rec, player)

	if err := tr.Listen(); err == nil {
		t.Error("Listen without a reference should fail")
	}
	if err := tr.SetReference("mr_freeman"); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}
	if err := tr.SetReference("nobody"); err == nil {
		t.Error("SetReference with unknown name should fail")
	}

	if err := tr.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if tr.State() != Playing {
		t.Errorf("state = %v, want playing", tr.State())
	}

	// Capture and playback use separate streams and may overlap.
	if err := tr.StartRecording(); err != nil {
		t.Fatalf("recording during playback failed: %v", err)
	}
	if player.stopped != 0 {
		t.Error("starting a recording must not stop playback")
	}
	if tr.State() != Capturing {
		t.Errorf("state = %v, want capturing", tr.State())
	}
	tr.StopRecording()
}

func TestPlayAttempt(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{Samples: tone(4096, 0.5), SampleRate: 44100}}
	player := &fakePlayer{}
	tr := newTestTrainer(t, rec, player)

	if err := tr.PlayAttempt(); err == nil {
		t.Error("PlayAttempt without a recording should fail")
	}

	tr.StartRecording()
	tr.StopRecording()
	if err := tr.PlayAttempt(); err != nil {
		t.Fatalf("PlayAttempt failed: %v", err)
	}
	if player.played != 1 {
		t.Errorf("played %d times, want 1", player.played)
	}
	if player.lastDev.Name != "Test Speakers" {
		t.Errorf("played on %q", player.lastDev.Name)
	}
}

func TestVisualize(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{Samples: tone(33000, 0.4), SampleRate: 44100}}
	tr := newTestTrainer(t, rec, &fakePlayer{})

	if _, err := tr.Visualize(); err == nil {
		t.Error("Visualize without a reference should fail")
	}
	tr.SetReference("mr_freeman")
	if _, err := tr.Visualize(); err == nil {
		t.Error("Visualize without an attempt should fail")
	}

	tr.StartRecording()
	tr.StopRecording()

	path, err := tr.Visualize()
	if err != nil {
		t.Fatalf("Visualize failed: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("figure path = %q, want .png", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("figure not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("figure file is empty")
	}
}

func TestExportAttempt(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{Samples: tone(44100, 0.5), SampleRate: 44100}}
	tr := newTestTrainer(t, rec, &fakePlayer{})

	if _, err := tr.ExportAttempt(); err == nil {
		t.Error("ExportAttempt without a recording should fail")
	}

	tr.StartRecording()
	tr.StopRecording()

	path, err := tr.ExportAttempt()
	if err != nil {
		t.Fatalf("ExportAttempt failed: %v", err)
	}
	if !strings.HasSuffix(path, ".mp3") {
		t.Errorf("export path = %q, want .mp3", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export not written: %v", err)
	}
}

func TestClose(t *testing.T) {
	rec := &fakeRecorder{buf: &audio.Buffer{SampleRate: 44100}}
	player := &fakePlayer{}
	tr := newTestTrainer(t, rec, player)

	tr.StartRecording()
	tr.Close()
	if rec.started {
		t.Error("Close left the capture stream open")
	}
	if player.stopped == 0 {
		t.Error("Close did not stop playback")
	}
	if tr.State() != Idle {
		t.Errorf("state after Close = %v, want idle", tr.State())
	}
}
