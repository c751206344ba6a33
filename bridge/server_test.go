package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"murmur/audio"
	"murmur/config"
	"murmur/events"
	"murmur/history"
	"murmur/hotkey"
	"murmur/session"
	"murmur/transcriber"
)

type env struct {
	srv      *Server
	store    *history.Store
	settings *config.Store
	bus      *events.Bus
	audioCtx *audio.FakeContext
	rebinds  []hotkey.Binding
}

type noSpeechDetector struct{}

func (noSpeechDetector) Process([]byte)      {}
func (noSpeechDetector) HasSpeechTick() bool { return true }
func (noSpeechDetector) Reset()              {}

func newEnv(t *testing.T) *env {
	t.Helper()

	pcm := make([]byte, audio.CaptureRate) // half a second of silence
	audioCtx := audio.NewFakeContext(pcm, false)
	engine := audio.NewEngine(audioCtx, audio.CaptureConfig{})
	bus := events.NewBus()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings, err := config.Open(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}

	ctrl := session.NewController(engine, transcriber.NewFake("bridge test", nil), nil, store, bus, session.Config{
		Grace:       10 * time.Millisecond,
		NewDetector: func() (session.SpeechDetector, error) { return noSpeechDetector{}, nil },
	})

	e := &env{store: store, settings: settings, bus: bus, audioCtx: audioCtx}
	e.srv = NewServer(ctrl, engine, store, settings, bus, func(b hotkey.Binding) error {
		e.rebinds = append(e.rebinds, b)
		return nil
	})
	return e
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBeginConflictsWhileRecording(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/begin_recording", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first begin: %d %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["recording_id"] == "" {
		t.Fatal("no recording id in response")
	}

	rec = doJSON(t, r, "POST", "/rpc/begin_recording", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second begin: %d, want 409", rec.Code)
	}

	doJSON(t, r, "POST", "/rpc/cancel_recording", nil)
}

func TestBeginUnknownDevice(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/begin_recording", map[string]string{"device_id": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBeginPermissionDenied(t *testing.T) {
	e := newEnv(t)
	e.audioCtx.StartErr = audio.ErrPermissionDenied
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/begin_recording", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/cancel_recording", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel with nothing active: %d", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	if _, err := e.store.Append(context.Background(), history.Record{Text: "first"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := e.store.Append(context.Background(), history.Record{Text: "second"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec := doJSON(t, r, "GET", "/rpc/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var records []history.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(records) != 2 || records[0].Text != "first" || records[1].Text != "second" {
		t.Fatalf("records = %+v", records)
	}
}

func TestDevicesEndpoint(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "GET", "/rpc/devices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var devices []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &devices)
	if len(devices) != 1 || devices[0]["id"] != "fake-0" {
		t.Fatalf("devices = %v", devices)
	}
}

func TestSetDefaultDevice(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/default_device", map[string]string{"device_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown device: %d, want 404", rec.Code)
	}

	rec = doJSON(t, r, "POST", "/rpc/default_device", map[string]string{"device_id": "fake-0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := e.settings.Get().Audio.DefaultDevice; got != "fake-0" {
		t.Errorf("persisted device = %q", got)
	}

	rec = doJSON(t, r, "GET", "/rpc/default_device", nil)
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["id"] != "fake-0" {
		t.Errorf("reported device = %q", resp["id"])
	}
	if resp["name"] != "Fake Microphone" {
		t.Errorf("reported name = %q", resp["name"])
	}
}

func TestSetShortcuts(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/shortcuts", map[string]string{
		"record_key": "f5", "record_modifier": "shift",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if len(e.rebinds) != 1 || e.rebinds[0].Key != "f5" {
		t.Fatalf("rebinds = %v", e.rebinds)
	}
	st := e.settings.Get()
	if st.Shortcuts.RecordKey != "f5" || st.Shortcuts.RecordModifier != "shift" {
		t.Errorf("persisted shortcuts = %+v", st.Shortcuts)
	}

	rec = doJSON(t, r, "POST", "/rpc/shortcuts", map[string]string{
		"record_key": "f99", "record_modifier": "shift",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid shortcut: %d, want 400", rec.Code)
	}
}

func TestAPIKeyNotLeakedBySettings(t *testing.T) {
	e := newEnv(t)
	r := e.srv.Router()

	rec := doJSON(t, r, "POST", "/rpc/api_key", map[string]string{
		"provider": "groq", "key": "sk-secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, r, "GET", "/rpc/settings", nil)
	body := rec.Body.String()
	if strings.Contains(body, "sk-secret") {
		t.Fatal("settings response leaks the API key")
	}
	if !strings.Contains(body, "groq") {
		t.Error("settings response should name the configured provider")
	}
}

func TestEventStreamDeliversStatus(t *testing.T) {
	e := newEnv(t)
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(100 * time.Millisecond)
	e.bus.PublishStatus("recording")

	scanner := bufio.NewScanner(resp.Body)
	var sawEvent, sawData bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: "+events.StatusEvent {
			sawEvent = true
		}
		if sawEvent && line == `data: "recording"` {
			sawData = true
			break
		}
	}
	if !sawData {
		t.Fatal("status event never arrived on the stream")
	}
}
