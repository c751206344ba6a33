package transcriber

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"murmur/encoder"
)

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestBatchSessionBuildsWAV(t *testing.T) {
	var captured []byte
	fakeFn := func(_ context.Context, audio []byte) (*Result, error) {
		captured = audio
		return &Result{Text: "hello world", Metrics: &NetworkMetrics{TTFB: 10 * time.Millisecond}}, nil
	}

	bs := newBatchSession(context.Background(), fakeFn)

	nSamples := 1600
	pcm := make([]byte, nSamples*2)
	for i := 0; i < nSamples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(i%1000))
	}
	bs.Feed(pcm[:1000])
	bs.Feed(pcm[1000:])

	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("Text = %q", result.Text)
	}
	if !result.HasText {
		t.Error("HasText should be true")
	}
	if result.Batch == nil || result.Batch.AudioLengthS <= 0 {
		t.Error("batch stats missing")
	}

	if len(captured) != 44+nSamples*2 {
		t.Fatalf("payload size = %d, want %d", len(captured), 44+nSamples*2)
	}
	if string(captured[:4]) != "RIFF" {
		t.Fatal("payload is not WAV")
	}
	if got := binary.LittleEndian.Uint32(captured[24:]); got != encoder.SampleRate {
		t.Errorf("payload sample rate = %d", got)
	}
}

func TestBatchSessionNoSpeech(t *testing.T) {
	fakeFn := func(_ context.Context, _ []byte) (*Result, error) {
		return &Result{Text: "   ", Metrics: &NetworkMetrics{}}, nil
	}

	bs := newBatchSession(context.Background(), fakeFn)
	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !result.NoSpeech {
		t.Error("whitespace-only transcript should count as no speech")
	}
	if result.HasText {
		t.Error("HasText should be false")
	}
}

func TestWhisperServerSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parsing upload: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": " transcribed text "})
	}))
	defer srv.Close()

	ws := NewWhisperServer(srv.URL)
	sess, err := ws.NewSession(context.Background(), SessionConfig{Language: "en"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	sess.Feed(make([]byte, 3200))
	result, err := sess.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Text != "transcribed text" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestWhisperServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws := NewWhisperServer(srv.URL)
	sess, err := ws.NewSession(context.Background(), SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := sess.Close(); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSessionHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blockFn := func(ctx context.Context, _ []byte) (*Result, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Result{Text: "should not happen"}, nil
	}

	bs := newBatchSession(ctx, blockFn)
	if _, err := bs.Close(); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestFakeTranscriberRecordsFeed(t *testing.T) {
	fake := NewFake("dictated", nil)
	sess, err := fake.NewSession(context.Background(), SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	sess.Feed(make([]byte, 100))
	sess.Feed(make([]byte, 50))

	result, err := sess.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Text != "dictated" {
		t.Errorf("Text = %q", result.Text)
	}
	if fake.FedBytes() != 150 {
		t.Errorf("FedBytes = %d, want 150", fake.FedBytes())
	}
}

func TestNewSelectsBackendFromKeys(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MURMUR_WHISPER_URL", "")

	if got := New(nil).Name(); got != "whisper-server" {
		t.Errorf("no keys: backend = %q, want whisper-server", got)
	}
	if got := New(map[string]string{"openai": "key"}).Name(); got != "openai" {
		t.Errorf("openai key: backend = %q", got)
	}
	// Adding a groq key to an existing settings map switches backends.
	if got := New(map[string]string{"openai": "key", "groq": "key"}).Name(); got != "groq" {
		t.Errorf("groq key: backend = %q", got)
	}
}

func TestBatchSessionCloseTwiceIsSafe(t *testing.T) {
	sess := newBatchSession(context.Background(), func(ctx context.Context, audio []byte) (*Result, error) {
		return &Result{Text: "once"}, nil
	})
	sess.Feed(make([]byte, 3200))
	if _, err := sess.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if _, err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
