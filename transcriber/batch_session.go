package transcriber

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"

	"murmur/encoder"
)

type transcribeFunc func(ctx context.Context, audio []byte) (*Result, error)

// batchSession buffers the whole recording in memory and uploads it as
// one WAV on Close. Recordings are capped upstream at a couple of
// minutes, so the buffer stays small.
type batchSession struct {
	ctx        context.Context
	transcribe transcribeFunc
	updates    chan string
	closeOnce  sync.Once

	mu        sync.Mutex
	sampleBuf []int16
}

func newBatchSession(ctx context.Context, transcribe transcribeFunc) *batchSession {
	return &batchSession{
		ctx:        ctx,
		transcribe: transcribe,
		updates:    make(chan string),
	}
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.mu.Lock()
	for i := 0; i+1 < len(pcm); i += 2 {
		bs.sampleBuf = append(bs.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	bs.mu.Unlock()
}

func (bs *batchSession) Updates() <-chan string { return bs.updates }

func (bs *batchSession) Close() (SessionResult, error) {
	bs.closeOnce.Do(func() { close(bs.updates) })

	bs.mu.Lock()
	samples := bs.sampleBuf
	bs.sampleBuf = nil
	bs.mu.Unlock()

	payload := encoder.WAVBytes(samples)
	result, err := bs.transcribe(bs.ctx, payload)
	if err != nil {
		return SessionResult{}, err
	}

	text := strings.TrimSpace(result.Text)
	noSpeech := text == ""

	sr := SessionResult{
		Text:      text,
		HasText:   !noSpeech,
		NoSpeech:  noSpeech,
		RateLimit: result.RateLimit,
		Batch: &BatchStats{
			AudioLengthS: float64(len(samples)) / float64(encoder.SampleRate),
			PayloadKB:    float64(len(payload)) / 1024,
		},
	}
	if m := result.Metrics; m != nil {
		sr.Batch.DNSTimeMs = float64(m.DNS.Milliseconds())
		sr.Batch.TLSTimeMs = float64(m.TLS.Milliseconds())
		sr.Batch.TTFBMs = float64(m.TTFB.Milliseconds())
		sr.Batch.TotalTimeMs = float64(m.Sum().Milliseconds())
		sr.Batch.ConnReused = m.ConnReused
	}
	return sr, nil
}
