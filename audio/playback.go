package audio

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// stopTimeout bounds how long Stop waits for the playback goroutine before
// the output stream is force-released.
const stopTimeout = time.Second

// Player drives a single playback stream. At most one playback is active at
// a time; starting a new one cancels and joins the previous one first.
type Player struct {
	eng       *Engine
	log       *slog.Logger
	chunkSize int

	mu      sync.Mutex
	cancel  *atomic.Bool
	done    chan struct{}
	force   chan struct{}
	playing atomic.Bool
}

// NewPlayer prepares a player on the shared engine. chunkSize is the
// requested period size in frames; zero leaves the backend default.
func NewPlayer(eng *Engine, chunkSize int, logger *slog.Logger) *Player {
	return &Player{eng: eng, log: logger, chunkSize: chunkSize}
}

// Play starts playing buf on dev and returns without blocking; the stream is
// driven by the backend callback and released by a background goroutine when
// the buffer runs out or Stop is called. Returns a PlaybackError if dev has
// no output capability or the stream cannot be opened.
func (p *Player) Play(buf *Buffer, dev Device) error {
	if !dev.IsOutput {
		return &PlaybackError{Device: dev.Name, Err: errNoOutputChannels}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	deviceConfig := p.deviceConfig(buf.SampleRate, dev)

	cancel := &atomic.Bool{}
	feed := &feeder{samples: buf.Samples, cancel: cancel}
	finished := make(chan struct{})
	var once sync.Once

	onSendFrames := func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		if feed.fill(pOutputSamples, int(framecount)) {
			once.Do(func() { close(finished) })
		}
	}

	device, err := malgo.InitDevice(p.eng.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return &PlaybackError{Device: dev.Name, Err: err}
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return &PlaybackError{Device: dev.Name, Err: err}
	}

	done := make(chan struct{})
	force := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.force = force
	p.playing.Store(true)
	p.log.Info("playback started", "device", dev.Name, "duration", buf.Duration())

	go func() {
		defer close(done)
		select {
		case <-finished:
		case <-force:
		}
		device.Uninit()
		p.playing.Store(false)
	}()
	return nil
}

// deviceConfig builds the stream parameters for the playback side of dev.
func (p *Player) deviceConfig(sampleRate int, dev Device) malgo.DeviceConfig {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1
	if p.chunkSize > 0 {
		cfg.PeriodSizeInFrames = uint32(p.chunkSize)
	}
	if dev.outputID != nil {
		cfg.Playback.DeviceID = dev.outputID.Pointer()
	}
	return cfg
}

// Stop requests cooperative cancellation and waits for the stream to be
// released, up to stopTimeout. Safe to call with no playback active.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.done == nil {
		return
	}
	p.cancel.Store(true)
	select {
	case <-p.done:
	case <-time.After(stopTimeout):
		p.log.Warn("playback did not stop in time, releasing stream")
		close(p.force)
		<-p.done
	}
	p.cancel = nil
	p.done = nil
	p.force = nil
	p.playing.Store(false)
}

// Playing reports whether a playback stream is currently active.
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Wait blocks until the current playback (if any) has finished.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels any active playback.
func (p *Player) Close() {
	p.Stop()
}

// feeder hands out consecutive sample chunks to the output callback,
// zero-filling past the end of the buffer.
type feeder struct {
	samples []float32
	pos     int
	cancel  *atomic.Bool
}

// fill writes the next frames into out and reports whether playback is
// complete, either because the buffer is exhausted or it was cancelled.
func (f *feeder) fill(out []byte, frames int) bool {
	if f.cancel != nil && f.cancel.Load() {
		for i := range out {
			out[i] = 0
		}
		return true
	}
	for i := 0; i < frames; i++ {
		var s float32
		if f.pos < len(f.samples) {
			s = f.samples[f.pos]
			f.pos++
		}
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return f.pos >= len(f.samples)
}
