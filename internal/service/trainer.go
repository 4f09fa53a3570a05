// Package service sequences a training session: play the reference, record
// an attempt, play it back, render the visual comparison.
package service

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"voicetrainer/audio"
	"voicetrainer/dsp"
	"voicetrainer/internal/config"
	"voicetrainer/session"
	"voicetrainer/viz"
)

// State of the recording side of a session. Playback runs on its own
// stream, so Playing and Capturing can overlap; State reports Capturing
// whenever the microphone is open.
type State int

const (
	Idle State = iota
	Capturing
	Playing
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// Recorder captures microphone audio.
type Recorder interface {
	Start(dev audio.Device) error
	Stop() (*audio.Buffer, *audio.LowSignalWarning)
}

// Player plays a sample buffer on an output device.
type Player interface {
	Play(buf *audio.Buffer, dev audio.Device) error
	Stop()
	Playing() bool
}

// Trainer owns one training session against a single reference recording.
type Trainer struct {
	cfg      *config.Config
	store    *session.Store
	recorder Recorder
	player   Player
	renderer *viz.Renderer
	log      *slog.Logger

	input  audio.Device
	output audio.Device

	mu          sync.Mutex
	capturing   bool
	reference   string
	attemptPath string
}

func NewTrainer(cfg *config.Config, store *session.Store, recorder Recorder, player Player, renderer *viz.Renderer, logger *slog.Logger) *Trainer {
	return &Trainer{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		player:   player,
		renderer: renderer,
		log:      logger,
	}
}

// SetDevices fixes the input and output endpoints for this session.
func (t *Trainer) SetDevices(input, output audio.Device) {
	t.input = input
	t.output = output
}

// SetReference selects the recording to imitate; it must exist in the store.
func (t *Trainer) SetReference(name string) error {
	if _, err := t.store.ReferencePath(name); err != nil {
		return err
	}
	t.mu.Lock()
	t.reference = name
	t.mu.Unlock()
	return nil
}

func (t *Trainer) Reference() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reference
}

// References lists the available reference names.
func (t *Trainer) References() ([]string, error) {
	return t.store.References()
}

// State reports the current session state.
func (t *Trainer) State() State {
	t.mu.Lock()
	capturing := t.capturing
	t.mu.Unlock()
	if capturing {
		return Capturing
	}
	if t.player.Playing() {
		return Playing
	}
	return Idle
}

// Listen plays the reference recording. Returns once playback has started.
func (t *Trainer) Listen() error {
	name := t.Reference()
	if name == "" {
		return fmt.Errorf("no reference selected")
	}
	buf, err := t.store.LoadReference(name)
	if err != nil {
		return err
	}
	return t.player.Play(buf, t.output)
}

// StartRecording opens the microphone stream. Recording while the reference
// is still playing is allowed; capture and playback use separate streams.
func (t *Trainer) StartRecording() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.capturing {
		return fmt.Errorf("already recording")
	}
	if err := t.recorder.Start(t.input); err != nil {
		return err
	}
	t.capturing = true
	return nil
}

// StopRecording closes the stream and saves the attempt as a mono float32
// WAV file. A low-signal capture still saves (and reports the warning); a
// completely empty capture saves nothing. The warning is advisory and never
// an error.
func (t *Trainer) StopRecording() (string, *audio.LowSignalWarning, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.capturing {
		return "", nil, fmt.Errorf("not recording")
	}
	t.capturing = false

	buf, warn := t.recorder.Stop()
	if buf.Empty() {
		return "", warn, nil
	}

	path := t.store.NextAttemptPath("attempt")
	if err := session.WriteWAV(path, buf); err != nil {
		return "", warn, fmt.Errorf("failed to save attempt: %w", err)
	}
	t.attemptPath = path
	t.log.Info("attempt saved", "path", path, "duration", buf.Duration())
	return path, warn, nil
}

// PlayAttempt plays back the most recent attempt.
func (t *Trainer) PlayAttempt() error {
	path := t.AttemptPath()
	if path == "" {
		return fmt.Errorf("no recording available to play back")
	}
	buf, err := session.ReadWAV(path)
	if err != nil {
		return err
	}
	return t.player.Play(buf, t.output)
}

// Visualize renders the comparison between the reference and the latest
// attempt and writes it to the temp directory, returning the figure path.
// Both signals are silence-trimmed and peak-normalized before extraction so
// the plots compare shape rather than recording level.
func (t *Trainer) Visualize() (string, error) {
	name := t.Reference()
	if name == "" {
		return "", fmt.Errorf("no reference selected")
	}
	attemptPath := t.AttemptPath()
	if attemptPath == "" {
		return "", fmt.Errorf("no recording available to visualize")
	}

	ref, err := t.store.LoadReference(name)
	if err != nil {
		return "", err
	}
	att, err := session.ReadWAV(attemptPath)
	if err != nil {
		return "", err
	}
	if ref.SampleRate != att.SampleRate {
		t.log.Warn("sample rate mismatch between reference and attempt",
			"reference", ref.SampleRate, "attempt", att.SampleRate)
	}

	refBundle, err := t.extract(ref)
	if err != nil {
		return "", fmt.Errorf("reference %s: %w", name, err)
	}
	attBundle, err := t.extract(att)
	if err != nil {
		return "", fmt.Errorf("attempt: %w", err)
	}

	fig, err := t.renderer.Render(refBundle, attBundle)
	if err != nil {
		return "", err
	}
	path := t.store.TempFigurePath()
	if err := fig.SavePNG(path); err != nil {
		return "", err
	}
	t.log.Info("comparison rendered", "path", path)
	return path, nil
}

func (t *Trainer) extract(buf *audio.Buffer) (*dsp.Bundle, error) {
	trimmed := dsp.TrimSilence(buf.Samples, t.cfg.Analysis.TrimThresholdDB)
	normalized, err := dsp.Normalize(trimmed)
	if err != nil {
		return nil, err
	}
	conditioned := &audio.Buffer{Samples: normalized, SampleRate: buf.SampleRate}
	return dsp.Extract(conditioned, t.cfg.Analysis.FrameLength), nil
}

// ExportAttempt encodes the latest attempt as MP3 next to the WAV file.
func (t *Trainer) ExportAttempt() (string, error) {
	wavPath := t.AttemptPath()
	if wavPath == "" {
		return "", fmt.Errorf("no recording available to export")
	}
	buf, err := session.ReadWAV(wavPath)
	if err != nil {
		return "", err
	}
	mp3Path := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".mp3"
	if err := session.ExportMP3(mp3Path, buf); err != nil {
		return "", err
	}
	t.log.Info("attempt exported", "path", mp3Path)
	return mp3Path, nil
}

// AttemptPath returns the most recently saved attempt, if any.
func (t *Trainer) AttemptPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attemptPath
}

// StopPlayback cancels any active playback.
func (t *Trainer) StopPlayback() {
	t.player.Stop()
}

// Close releases the session: stops playback and any open capture stream.
func (t *Trainer) Close() {
	t.mu.Lock()
	capturing := t.capturing
	t.capturing = false
	t.mu.Unlock()
	if capturing {
		t.recorder.Stop()
	}
	t.player.Stop()
}
