package audio

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// lowSignalThreshold is the peak amplitude below which a recording is
// considered inaudible and flagged with a LowSignalWarning.
const lowSignalThreshold = 0.01

// Capture records mono float32 audio from a single input device. Chunks
// delivered by the hardware callback are appended in arrival order; Stop
// concatenates them into one Buffer.
type Capture struct {
	eng        *Engine
	log        *slog.Logger
	sampleRate int
	chunkSize  int

	device    *malgo.Device
	capturing atomic.Bool

	mu     sync.Mutex
	chunks [][]float32
}

// NewCapture prepares a recorder on the shared engine. chunkSize is the
// requested period size in frames; zero leaves the backend default.
func NewCapture(eng *Engine, sampleRate, chunkSize int, logger *slog.Logger) *Capture {
	return &Capture{eng: eng, log: logger, sampleRate: sampleRate, chunkSize: chunkSize}
}

// Start opens the input stream on dev and begins accumulating chunks.
// Returns a DeviceError if dev has no input capability or cannot be opened.
func (c *Capture) Start(dev Device) error {
	if c.capturing.Load() {
		return &DeviceError{Err: errCaptureActive}
	}
	if !dev.IsInput {
		return &DeviceError{Device: dev.Name, Err: errNoInputChannels}
	}

	deviceConfig := c.deviceConfig(dev)

	onRecvFrames := func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		if !c.capturing.Load() {
			return
		}
		chunk := decodeF32(pInputSamples, int(framecount))
		if chunk == nil {
			return
		}
		c.mu.Lock()
		c.chunks = append(c.chunks, chunk)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.chunks = nil
	c.mu.Unlock()

	device, err := malgo.InitDevice(c.eng.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return &DeviceError{Device: dev.Name, Err: err}
	}
	c.capturing.Store(true)
	if err := device.Start(); err != nil {
		c.capturing.Store(false)
		device.Uninit()
		return &DeviceError{Device: dev.Name, Err: err}
	}
	c.device = device
	c.log.Info("capture started", "device", dev.Name, "sample_rate", c.sampleRate)
	return nil
}

// deviceConfig builds the stream parameters for the capture side of dev.
func (c *Capture) deviceConfig(dev Device) malgo.DeviceConfig {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(c.sampleRate)
	cfg.Alsa.NoMMap = 1
	if c.chunkSize > 0 {
		cfg.PeriodSizeInFrames = uint32(c.chunkSize)
	}
	if dev.inputID != nil {
		cfg.Capture.DeviceID = dev.inputID.Pointer()
	}
	return cfg
}

// Stop closes the input stream and returns everything captured since Start.
// The warning is non-nil when nothing was captured or the peak amplitude is
// below the audible threshold; the buffer is still returned either way.
func (c *Capture) Stop() (*Buffer, *LowSignalWarning) {
	c.capturing.Store(false)
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.mu.Lock()
	chunks := c.chunks
	c.chunks = nil
	c.mu.Unlock()

	buf := &Buffer{Samples: concatChunks(chunks), SampleRate: c.sampleRate}
	warn := checkSignal(buf)
	if warn != nil {
		c.log.Warn("capture stopped with low signal", "reason", warn.Reason, "peak", warn.Peak)
	} else {
		c.log.Info("capture stopped", "samples", len(buf.Samples), "duration", buf.Duration())
	}
	return buf, warn
}

// Close stops any active stream. The shared Engine is left alone.
func (c *Capture) Close() {
	if c.capturing.Load() {
		c.Stop()
	}
}

// decodeF32 converts little-endian float32 bytes from the hardware callback.
// Returns nil when the byte count does not match the reported frame count.
func decodeF32(data []byte, frames int) []float32 {
	if len(data) != frames*4 {
		return nil
	}
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

func concatChunks(chunks [][]float32) []float32 {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func checkSignal(buf *Buffer) *LowSignalWarning {
	if buf.Empty() {
		return &LowSignalWarning{Reason: "no audio frames were captured"}
	}
	if peak := buf.Peak(); peak < lowSignalThreshold {
		return &LowSignalWarning{Reason: "very low audio level", Peak: peak}
	}
	return nil
}
