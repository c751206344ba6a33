// Package session drives one recording from hotkey press to delivered
// transcript: capture, resample, voice activity, transcription, LLM
// post-processing, history and clipboard. A single recording is active
// at a time.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"murmur/action"
	"murmur/audio"
	"murmur/encoder"
	"murmur/events"
	"murmur/history"
	"murmur/log"
	"murmur/resample"
	"murmur/transcriber"
)

var ErrAlreadyRecording = errors.New("recording already in progress")

const (
	// Recordings shorter than this carry no usable speech and are
	// treated as cancelled rather than uploaded.
	minSamples = encoder.SampleRate / 10

	levelsEvery        = 50 * time.Millisecond
	defaultMaxDuration = 2 * time.Minute
	defaultGrace       = time.Second
)

type Config struct {
	Language    string
	Target      string        // application context handed to the LLM
	MaxDuration time.Duration // hard recording cap
	Grace       time.Duration // terminal status to idle delay
	ArchiveDir  string        // "" disables the FLAC archive
	Copy        func(string) error
	NewDetector func() (SpeechDetector, error) // nil uses webrtcvad
}

type Controller struct {
	engine *audio.Engine
	store  *history.Store
	bus    *events.Bus
	cfg    Config

	mu    sync.Mutex
	trans transcriber.Transcriber
	act   action.Engine // nil skips LLM post-processing
	cur   *recording
}

type recording struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	sess       transcriber.Session
	engineName string
	act        action.Engine
	res        *resample.Resampler
	detector   SpeechDetector

	sampleMu sync.Mutex
	samples  []int16

	start      time.Time
	lastLevels time.Time
	done       chan struct{}
	stopOnce   sync.Once
	sessOnce   sync.Once
	finishOnce sync.Once
	finalizing atomic.Bool
}

// discardSession closes the transcription session off the hot path,
// unless the finalize pipeline already claimed it.
func (rec *recording) discardSession() {
	rec.sessOnce.Do(func() { go rec.sess.Close() })
}

func NewController(engine *audio.Engine, trans transcriber.Transcriber, act action.Engine, store *history.Store, bus *events.Bus, cfg Config) *Controller {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = defaultMaxDuration
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	if cfg.Target == "" {
		cfg.Target = "notes"
	}
	return &Controller{
		engine: engine,
		trans:  trans,
		act:    act,
		store:  store,
		bus:    bus,
		cfg:    cfg,
	}
}

// SetTranscriber swaps the transcription backend for subsequent
// recordings; a recording in flight keeps the backend it started with.
func (c *Controller) SetTranscriber(trans transcriber.Transcriber) {
	c.mu.Lock()
	c.trans = trans
	c.mu.Unlock()
}

// SetActionEngine swaps the LLM backend for subsequent recordings. A
// nil engine disables post-processing.
func (c *Controller) SetActionEngine(act action.Engine) {
	c.mu.Lock()
	c.act = act
	c.mu.Unlock()
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

// Begin opens the device and starts streaming into a new transcription
// session. Fails with ErrAlreadyRecording while a recording (or its
// processing tail) is in flight.
func (c *Controller) Begin(deviceID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil {
		return "", ErrAlreadyRecording
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := c.trans.NewSession(ctx, transcriber.SessionConfig{Language: c.cfg.Language})
	if err != nil {
		cancel()
		return "", err
	}

	rec := &recording{
		id:         uuid.NewString(),
		ctx:        ctx,
		cancel:     cancel,
		sess:       sess,
		engineName: c.trans.Name(),
		act:        c.act,
		res:        resample.New(audio.CaptureRate, encoder.SampleRate),
		start:      time.Now(),
		done:       make(chan struct{}),
	}

	newDetector := c.cfg.NewDetector
	if newDetector == nil {
		newDetector = func() (SpeechDetector, error) { return newVADDetector() }
	}
	detector, err := newDetector()
	if err != nil {
		// Recording still works without VAD; silence auto-stop is off.
		log.Warnf("voice detection unavailable: %v", err)
	} else {
		rec.detector = detector
	}

	if err := c.engine.Start(deviceID, func(frame audio.Frame) { c.onFrame(rec, frame) }); err != nil {
		cancel()
		go sess.Close()
		return "", err
	}

	c.cur = rec
	log.Infof("recording started: %s (%s)", rec.id, c.engine.DeviceName())
	c.bus.PublishStatus(string(StatusRecording))
	go c.watch(rec)
	return rec.id, nil
}

// onFrame runs on the capture thread: resample to the transcription
// rate, feed the session and the voice detector, meter to the bus.
func (c *Controller) onFrame(rec *recording, frame audio.Frame) {
	if rec.ctx.Err() != nil {
		return
	}

	src := make([]int16, len(frame.PCM)/2)
	for i := range src {
		src[i] = int16(binary.LittleEndian.Uint16(frame.PCM[i*2:]))
	}
	out := rec.res.Process(src)
	if len(out) > 0 {
		rec.sampleMu.Lock()
		rec.samples = append(rec.samples, out...)
		rec.sampleMu.Unlock()

		pcm := make([]byte, len(out)*2)
		for i, s := range out {
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
		}
		rec.sess.Feed(pcm)
		if rec.detector != nil {
			rec.detector.Process(pcm)
		}
	}

	now := time.Now()
	if now.Sub(rec.lastLevels) >= levelsEvery {
		rec.lastLevels = now
		c.bus.PublishLevels(events.Levels(frame.Levels))
	}
}

// watch enforces the duration cap and the silence auto-stop.
func (c *Controller) watch(rec *recording) {
	mon := newSilenceMonitor()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rec.done:
			return
		case <-ticker.C:
			if time.Since(rec.start) >= c.cfg.MaxDuration {
				log.Infof("recording %s hit max duration", rec.id)
				c.Finalize()
				return
			}
			hasSpeech := true
			if rec.detector != nil {
				hasSpeech = rec.detector.HasSpeechTick()
			}
			switch mon.Tick(hasSpeech) {
			case SilenceWarn:
				log.Info("no_voice_warning")
			case SilenceWarnClear:
				log.Info("voice_resumed")
			case SilenceAutoClose:
				log.Infof("recording %s auto-stopped on silence", rec.id)
				c.Finalize()
				return
			}
		}
	}
}

// Cancel abandons the active recording. Audio captured so far is
// discarded; any in-flight transcription result is ignored. No-op when
// nothing is active.
func (c *Controller) Cancel() {
	c.mu.Lock()
	rec := c.cur
	c.mu.Unlock()
	if rec == nil {
		return
	}

	rec.cancel()
	rec.stopOnce.Do(func() {
		c.engine.Stop()
		close(rec.done)
	})
	// Whoever reaches the session first owns its teardown. If the
	// finalize pipeline got there already, the cancelled context makes
	// it discard the result; if we win, the pipeline sees the session
	// claimed and finishes as cancelled.
	rec.discardSession()
	log.Infof("recording %s cancelled", rec.id)
	c.finish(rec, StatusCancelled)
}

// Finalize stops capture and runs the processing pipeline: upload,
// optional LLM pass, archive, history, clipboard. No-op when nothing is
// active or finalization already started.
func (c *Controller) Finalize() {
	c.mu.Lock()
	rec := c.cur
	c.mu.Unlock()
	if rec == nil || !rec.finalizing.CompareAndSwap(false, true) {
		return
	}

	rec.stopOnce.Do(func() {
		c.engine.Stop()
		close(rec.done)
	})
	go c.pipeline(rec)
}

func (c *Controller) pipeline(rec *recording) {
	rec.sampleMu.Lock()
	total := len(rec.samples)
	rec.sampleMu.Unlock()

	if total < minSamples {
		log.Infof("recording %s too short (%d samples), discarding", rec.id, total)
		rec.discardSession()
		c.finish(rec, StatusCancelled)
		return
	}

	c.bus.PublishStatus(string(StatusTranscribing))
	transcribeStart := time.Now()
	var (
		result transcriber.SessionResult
		err    error
	)
	closed := false
	rec.sessOnce.Do(func() {
		result, err = rec.sess.Close()
		closed = true
	})
	if !closed || rec.ctx.Err() != nil {
		// A concurrent Cancel claimed the session.
		c.finish(rec, StatusCancelled)
		return
	}
	if err != nil {
		log.Errorf("transcription failed: %v", err)
		c.bus.Publish(events.ErrorEvent, err.Error())
		c.finish(rec, StatusError)
		return
	}

	audioS := float64(total) / float64(encoder.SampleRate)
	engineMs := float64(time.Since(transcribeStart).Milliseconds())
	log.Session(rec.id, "transcribed", rec.engineName, audioS, engineMs)

	if result.NoSpeech {
		log.Info("no_speech")
		c.bus.PublishTranscript("")
		c.finish(rec, StatusCompleted)
		return
	}

	text := result.Text
	if rec.act != nil {
		text = c.postProcess(rec, text)
		if rec.ctx.Err() != nil {
			c.finish(rec, StatusCancelled)
			return
		}
	}

	c.bus.PublishTranscript(text)
	log.TranscriptionText(text)

	if c.cfg.Copy != nil {
		if err := c.cfg.Copy(text); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
		}
	}

	audioPath := ""
	if c.cfg.ArchiveDir != "" {
		rec.sampleMu.Lock()
		samples := rec.samples
		rec.sampleMu.Unlock()
		path, err := encoder.Archive(c.cfg.ArchiveDir, rec.id, samples)
		if err != nil {
			log.Warnf("audio archive failed: %v", err)
		} else {
			audioPath = path
		}
	}

	if c.store != nil {
		saved, err := c.store.Append(context.Background(), history.Record{
			AudioPath: audioPath,
			Text:      text,
		})
		if err != nil {
			// The transcript was already delivered; losing the history
			// row is not fatal.
			log.Warnf("history append failed: %v", err)
		} else {
			c.bus.Publish(events.RecordAddedEvent, saved)
		}
	}

	c.finish(rec, StatusCompleted)
}

// postProcess classifies the transcript and either generates content
// from it or cleans it up. Failures fall back to the raw transcript.
func (c *Controller) postProcess(rec *recording, text string) string {
	c.bus.PublishStatus(string(StatusThinkingAction))
	actionRequired, err := rec.act.DetectIntent(rec.ctx, text)
	if err != nil {
		if rec.ctx.Err() == nil {
			log.Warnf("intent detection failed: %v", err)
		}
		return text
	}

	c.bus.PublishStatus(string(StatusGeneratingText))
	var out string
	if actionRequired {
		out, err = rec.act.Generate(rec.ctx, c.cfg.Target, text)
	} else {
		out, err = rec.act.Transform(rec.ctx, c.cfg.Target, text)
	}
	if err != nil {
		if rec.ctx.Err() == nil {
			log.Warnf("text post-processing failed: %v", err)
		}
		return text
	}
	if out == "" {
		return text
	}
	return out
}

// finish publishes the terminal status exactly once, releases the
// single recording slot and, after a grace period, returns the status
// line to idle unless a new recording has started.
func (c *Controller) finish(rec *recording, status Status) {
	rec.finishOnce.Do(func() {
		c.bus.PublishStatus(string(status))

		c.mu.Lock()
		if c.cur == rec {
			c.cur = nil
		}
		c.mu.Unlock()

		go func() {
			time.Sleep(c.cfg.Grace)
			c.mu.Lock()
			idle := c.cur == nil
			c.mu.Unlock()
			if idle {
				c.bus.PublishStatus(string(StatusIdle))
			}
		}()
	})
}
