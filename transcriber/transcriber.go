// Package transcriber turns a finished recording into text. Backends
// share one Session shape: feed PCM while recording, Close to get the
// transcript. The default backend is a local whisper-server; Groq and
// OpenAI are used when the settings carry an API key.
package transcriber

import (
	"context"
	"net/http"
	"os"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Segment struct {
	Text         string
	NoSpeechProb float64
	AvgLogProb   float64
	Start        float64
	End          float64
}

type Result struct {
	Text         string
	Metrics      *NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	AvgLogProb   float64
	Duration     float64
	Segments     []Segment
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

type baseTranscriber struct {
	client *TracedClient
	apiURL string
	lang   string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

// New picks a backend from the API keys in settings, falling back to
// environment variables and finally to a local whisper-server. Keys in
// the map are provider names ("groq", "openai").
func New(apiKeys map[string]string) Transcriber {
	groqKey := apiKeys["groq"]
	if groqKey == "" {
		groqKey = os.Getenv("GROQ_API_KEY")
	}
	if groqKey != "" {
		return NewGroq(groqKey)
	}

	openaiKey := apiKeys["openai"]
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey != "" {
		return NewOpenAI(openaiKey)
	}

	url := os.Getenv("MURMUR_WHISPER_URL")
	if url == "" {
		url = DefaultWhisperURL
	}
	return NewWhisperServer(url)
}
