package audio

import (
	"sync"
	"time"
)

const fakeFrameSize = 1024

// FakeContext drives the pipeline from a canned PCM buffer instead of a
// microphone. Tests use it for deterministic capture.
type FakeContext struct {
	pcm      []byte
	realtime bool

	DeviceList []DeviceInfo
	StartErr   error // injected failure for the next Start
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{
		pcm:        pcm,
		realtime:   realtime,
		DeviceList: []DeviceInfo{{ID: "fake-0", Name: "Fake Microphone"}},
	}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return f.DeviceList, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	name := "system default"
	if device != nil {
		name = device.Name
	}
	return &FakeCapture{
		pcm:      f.pcm,
		realtime: f.realtime,
		startErr: f.StartErr,
		name:     name,
	}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	startErr error
	name     string

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) loadCallback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	const chunkBytes = fakeFrameSize * 2

	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		interval := time.Duration(fakeFrameSize) * time.Second / CaptureRate
		if !f.realtime {
			interval = time.Millisecond
		}
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			cb := f.loadCallback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/2))
				pos = end
			} else {
				cb(silence, fakeFrameSize)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
