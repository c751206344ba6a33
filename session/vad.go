package session

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"murmur/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 640 bytes

	speechThreshold = 0.10 // fraction of frames that must be speech per tick
)

// SpeechDetector consumes resampled PCM and answers, once per monitor
// tick, whether the interval contained speech.
type SpeechDetector interface {
	Process(pcm []byte)
	HasSpeechTick() bool
	Reset()
}

type vadDetector struct {
	vad *webrtcvad.VAD

	mu           sync.Mutex
	buf          []byte
	totalFrames  int
	speechFrames int
	tickTotal    int
	tickSpeech   int
}

func newVADDetector() (*vadDetector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadDetector{vad: v}, nil
}

func (d *vadDetector) Process(pcm []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf = append(d.buf, pcm...)
	for len(d.buf) >= vadFrameBytes {
		frame := d.buf[:vadFrameBytes]
		d.buf = d.buf[vadFrameBytes:]

		active, err := d.vad.Process(encoder.SampleRate, frame)
		if err != nil {
			continue
		}
		d.totalFrames++
		if active {
			d.speechFrames++
		}
	}
}

func (d *vadDetector) HasSpeechTick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.totalFrames - d.tickTotal
	s := d.speechFrames - d.tickSpeech
	d.tickTotal, d.tickSpeech = d.totalFrames, d.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechThreshold
}

func (d *vadDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
	d.totalFrames = 0
	d.speechFrames = 0
	d.tickTotal = 0
	d.tickSpeech = 0
}
