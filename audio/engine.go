package audio

import (
	"fmt"
	"sync"
)

// Frame is one capture callback's worth of audio plus its level summary.
type Frame struct {
	PCM    []byte // S16LE mono at the engine's capture rate
	Frames uint32
	Levels [Bands]float32
}

type FrameFunc func(Frame)

// Engine owns the microphone input stream. It enforces the single
// active capture rule: a second Start while capturing fails with
// ErrAlreadyRecording instead of stacking streams.
type Engine struct {
	ctx    Context
	config CaptureConfig

	mu      sync.Mutex
	capture CaptureDevice
	active  bool
	meter   Meter
}

func NewEngine(ctx Context, config CaptureConfig) *Engine {
	return &Engine{ctx: ctx, config: config}
}

func (e *Engine) Devices() ([]DeviceInfo, error) {
	devices, err := e.ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	return devices, nil
}

// Lookup resolves a device id to its descriptor. An empty id resolves
// to nil, meaning the system default.
func (e *Engine) Lookup(deviceID string) (*DeviceInfo, error) {
	if deviceID == "" {
		return nil, nil
	}
	devices, err := e.Devices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].ID == deviceID {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: id %q", ErrDeviceUnavailable, deviceID)
}

// Start opens the named device (or the system default when deviceID is
// empty) and streams frames to fn until Stop. fn runs on the capture
// thread and must not block.
func (e *Engine) Start(deviceID string, fn FrameFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return ErrAlreadyRecording
	}

	device, err := e.Lookup(deviceID)
	if err != nil {
		return err
	}

	capture, err := e.ctx.NewCapture(device, e.config)
	if err != nil {
		return classifyStartError(err)
	}

	e.meter.Reset()
	capture.SetCallback(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		fn(Frame{
			PCM:    pcm,
			Frames: frameCount,
			Levels: e.meter.Process(data),
		})
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return classifyStartError(err)
	}

	e.capture = capture
	e.active = true
	return nil
}

// Stop halts the stream and releases the device. Safe to call when not
// capturing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.capture.Stop()
	e.capture.ClearCallback()
	e.capture.Close()
	e.capture = nil
	e.active = false
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) DeviceName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capture != nil {
		return e.capture.DeviceName()
	}
	return "system default"
}
