package audio

import (
	"strings"

	"github.com/gen2brain/malgo"
)

// Device identifies a hardware input or output endpoint.
type Device struct {
	ID       string
	Name     string
	IsInput  bool
	IsOutput bool
	Default  bool

	// Per-direction endpoint IDs; nil means "let the backend pick the
	// system default". A duplex device carries both, and they stay
	// distinct: backends hand out separate IDs for the capture and
	// render sides of the same hardware.
	inputID  *malgo.DeviceID
	outputID *malgo.DeviceID
}

// Devices enumerates the available capture and playback endpoints.
// Endpoints that appear on both sides are merged into one entry.
func (e *Engine) Devices() ([]Device, error) {
	var devices []Device

	captureDevices, err := e.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	for _, dev := range captureDevices {
		id := dev.ID
		devices = append(devices, Device{
			ID:      deviceIDToString(dev.ID),
			Name:    dev.Name(),
			IsInput: true,
			Default: dev.IsDefault != 0,
			inputID: &id,
		})
	}

	playbackDevices, err := e.ctx.Devices(malgo.Playback)
	if err != nil {
		e.log.Warn("failed to enumerate playback devices", "error", err)
		return devices, nil
	}
	for _, dev := range playbackDevices {
		devices = mergePlayback(devices, dev.Name(), dev.ID, dev.IsDefault != 0)
	}

	return devices, nil
}

// mergePlayback folds a playback endpoint into the device list, joining it
// with a capture endpoint of the same name. The playback-side ID is stored
// separately so a duplex device opens the correct endpoint in each
// direction.
func mergePlayback(devices []Device, name string, id malgo.DeviceID, isDefault bool) []Device {
	for i := range devices {
		if devices[i].Name == name {
			devices[i].IsOutput = true
			devices[i].outputID = &id
			return devices
		}
	}
	return append(devices, Device{
		ID:       deviceIDToString(id),
		Name:     name,
		IsOutput: true,
		Default:  isDefault,
		outputID: &id,
	})
}

// SelectInput picks the capture endpoint, in priority order: a device whose
// name contains preferred (case-insensitive), a device named like a
// microphone, the system default input, and finally the first input found.
func SelectInput(devices []Device, preferred string) (Device, error) {
	if preferred != "" {
		if dev, ok := matchByName(devices, preferred, func(d Device) bool { return d.IsInput }); ok {
			return dev, nil
		}
		return Device{}, &DeviceError{Device: preferred, Err: errNoInputDevices}
	}
	if dev, ok := matchByName(devices, "mic", func(d Device) bool { return d.IsInput }); ok {
		return dev, nil
	}
	for _, d := range devices {
		if d.IsInput && d.Default {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.IsInput {
			return d, nil
		}
	}
	return Device{}, &DeviceError{Err: errNoInputDevices}
}

// SelectOutput picks the playback endpoint: preferred name match, then the
// system default output, then the first output found.
func SelectOutput(devices []Device, preferred string) (Device, error) {
	if preferred != "" {
		if dev, ok := matchByName(devices, preferred, func(d Device) bool { return d.IsOutput }); ok {
			return dev, nil
		}
		return Device{}, &DeviceError{Device: preferred, Err: errNoOutputDevices}
	}
	for _, d := range devices {
		if d.IsOutput && d.Default {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.IsOutput {
			return d, nil
		}
	}
	return Device{}, &DeviceError{Err: errNoOutputDevices}
}

func matchByName(devices []Device, name string, want func(Device) bool) (Device, bool) {
	nameLower := strings.ToLower(name)
	for _, d := range devices {
		if want(d) && strings.Contains(strings.ToLower(d.Name), nameLower) {
			return d, true
		}
	}
	return Device{}, false
}

func deviceIDToString(id malgo.DeviceID) string {
	var b strings.Builder
	for _, c := range id[:32] {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
