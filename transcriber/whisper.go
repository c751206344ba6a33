package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

// DefaultWhisperURL is where a locally running whisper-server listens.
const DefaultWhisperURL = "http://127.0.0.1:8080"

// WhisperServer talks to a whisper.cpp server's /inference endpoint.
// No API key needed; works offline.
type WhisperServer struct {
	baseTranscriber
}

func NewWhisperServer(baseURL string) *WhisperServer {
	apiURL := baseURL + "/inference"
	return &WhisperServer{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(baseURL),
			apiURL: apiURL,
		},
	}
}

func (w *WhisperServer) Name() string { return "whisper-server" }

func (w *WhisperServer) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	go w.client.Warm()
	if cfg.Language != "" {
		w.SetLanguage(cfg.Language)
	}
	return newBatchSession(ctx, w.transcribe), nil
}

func (w *WhisperServer) transcribe(ctx context.Context, audioData []byte) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}

	writer.WriteField("response_format", "json")
	if w.lang != "" {
		writer.WriteField("language", w.lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", w.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("whisper-server error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var wResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &wResp); err != nil {
		return nil, fmt.Errorf("whisper-server response parse error: %w", err)
	}

	return &Result{
		Text:    wResp.Text,
		Metrics: resp.Metrics,
	}, nil
}
