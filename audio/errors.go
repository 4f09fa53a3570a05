package audio

import (
	"errors"
	"fmt"
)

var (
	errNoInputChannels  = errors.New("device has no input channels")
	errNoOutputChannels = errors.New("device has no output channels")
	errNoInputDevices   = errors.New("no input devices available")
	errNoOutputDevices  = errors.New("no output devices available")
	errCaptureActive    = errors.New("capture already in progress")
)

// DeviceError reports a missing device or a capability mismatch on the
// requested endpoint. The operation that produced it was aborted.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio device: %v", e.Err)
	}
	return fmt.Sprintf("audio device %q: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// PlaybackError reports a failure to open or drive the output stream.
type PlaybackError struct {
	Device string
	Err    error
}

func (e *PlaybackError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("playback: %v", e.Err)
	}
	return fmt.Sprintf("playback on %q: %v", e.Device, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// LowSignalWarning is an advisory condition reported alongside a captured
// buffer: either nothing was captured at all, or the peak amplitude stayed
// below the audible threshold. It never aborts the capture.
type LowSignalWarning struct {
	Reason string
	Peak   float32
}

func (w *LowSignalWarning) Error() string {
	return fmt.Sprintf("low signal: %s (peak=%.4f)", w.Reason, w.Peak)
}
