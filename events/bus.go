// Package events fans session activity out to observers (the UI
// bridge, tests). Three lanes with different delivery policies:
//
//   - ordered events (status transitions, history additions, settings
//     changes): delivered to every subscriber in emission order, never
//     dropped while the subscriber is open;
//   - level frames: best-effort, drop-oldest under backpressure;
//   - transcript revisions: at most once per revision, latest wins when
//     a subscriber is slow.
//
// There is no replay: a subscriber only sees what is published while it
// is subscribed.
package events

import "sync"

// Event names on the ordered lane match what the UI listens for.
const (
	StatusEvent          = "audio-processing-status"
	LevelsEvent          = "audio-levels"
	TranscriptEvent      = "transcription-result"
	RecordAddedEvent     = "transcription-added"
	SettingsChangedEvent = "settings-changed"
	ErrorEvent           = "error"
)

// Levels is one 8-band amplitude summary, each component in [0,1].
type Levels [8]float32

type Event struct {
	Name    string
	Payload any
}

type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{})}
}

func (b *Bus) Subscribe() *Subscriber {
	s := &Subscriber{
		bus:         b,
		events:      make(chan Event),
		levels:      make(chan Levels, 8),
		transcripts: make(chan string, 1),
		done:        make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) snapshot() []*Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	return subs
}

// Publish puts a named event on the ordered lane.
func (b *Bus) Publish(name string, payload any) {
	for _, s := range b.snapshot() {
		s.enqueue(Event{Name: name, Payload: payload})
	}
}

// PublishStatus emits a status transition. Per-session ordering is the
// caller's responsibility; the bus preserves whatever order it is handed.
func (b *Bus) PublishStatus(status string) {
	b.Publish(StatusEvent, status)
}

// PublishLevels delivers a level frame, dropping the oldest queued
// frame when a subscriber's buffer is full.
func (b *Bus) PublishLevels(levels Levels) {
	for _, s := range b.snapshot() {
		select {
		case s.levels <- levels:
		default:
			select {
			case <-s.levels:
			default:
			}
			select {
			case s.levels <- levels:
			default:
			}
		}
	}
}

// PublishTranscript replaces any undelivered revision with the latest.
func (b *Bus) PublishTranscript(text string) {
	for _, s := range b.snapshot() {
		select {
		case s.transcripts <- text:
		default:
			select {
			case <-s.transcripts:
			default:
			}
			select {
			case s.transcripts <- text:
			default:
			}
		}
	}
}

func (b *Bus) remove(s *Subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscriber is one observer's receive handle.
type Subscriber struct {
	bus *Bus

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	events      chan Event
	levels      chan Levels
	transcripts chan string
	done        chan struct{}
}

// Events returns the ordered lane. The channel closes after Close once
// every queued event has been delivered or abandoned.
func (s *Subscriber) Events() <-chan Event { return s.events }

func (s *Subscriber) LevelFrames() <-chan Levels { return s.levels }

func (s *Subscriber) Transcripts() <-chan string { return s.transcripts }

func (s *Subscriber) enqueue(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Subscriber) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.events)
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.events <- ev:
		case <-s.done:
			close(s.events)
			return
		}
	}
}

// Close detaches the subscriber. Pending ordered events are abandoned.
func (s *Subscriber) Close() {
	s.bus.remove(s)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	s.cond.Signal()
}
