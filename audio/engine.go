// Package audio owns the microphone capture and speaker playback streams.
// All hardware access goes through miniaudio (malgo); one Engine holds the
// backend context shared by every device.
package audio

import (
	"log/slog"

	"github.com/gen2brain/malgo"
)

// Engine wraps the malgo context. Construct one per process and pass it to
// NewCapture and NewPlayer; Close releases the backend.
type Engine struct {
	ctx *malgo.AllocatedContext
	log *slog.Logger
}

func NewEngine(logger *slog.Logger) (*Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	return &Engine{ctx: ctx, log: logger}, nil
}

func (e *Engine) Close() {
	if e.ctx != nil {
		e.ctx.Uninit()
		e.ctx.Free()
		e.ctx = nil
	}
}
