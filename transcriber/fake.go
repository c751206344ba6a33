package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeTranscriber returns a canned transcript (or error) and records
// what was fed to it.
type FakeTranscriber struct {
	text  string
	err   error
	lang  string
	Delay time.Duration // simulated upload latency on Close

	mu       sync.Mutex
	fedBytes int
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string           { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

// FedBytes reports the total PCM bytes fed across all sessions.
func (f *FakeTranscriber) FedBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fedBytes
}

func (f *FakeTranscriber) NewSession(ctx context.Context, _ SessionConfig) (Session, error) {
	updates := make(chan string)
	close(updates)
	return &fakeSession{parent: f, ctx: ctx, updates: updates}, nil
}

type fakeSession struct {
	parent  *FakeTranscriber
	ctx     context.Context
	updates chan string
}

func (s *fakeSession) Feed(pcm []byte) {
	s.parent.mu.Lock()
	s.parent.fedBytes += len(pcm)
	s.parent.mu.Unlock()
}

func (s *fakeSession) Updates() <-chan string { return s.updates }

func (s *fakeSession) Close() (SessionResult, error) {
	if s.parent.Delay > 0 {
		select {
		case <-time.After(s.parent.Delay):
		case <-s.ctx.Done():
			return SessionResult{}, s.ctx.Err()
		}
	}
	if err := s.ctx.Err(); err != nil {
		return SessionResult{}, err
	}
	if s.parent.err != nil {
		return SessionResult{}, fmt.Errorf("fake transcriber error: %w", s.parent.err)
	}
	return SessionResult{
		Text:     s.parent.text,
		HasText:  s.parent.text != "",
		NoSpeech: s.parent.text == "",
		Batch: &BatchStats{
			AudioLengthS: 1.0,
			TotalTimeMs:  10,
		},
	}, nil
}
