package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Anthropic struct {
	client *http.Client
	apiURL string
	model  string
	apiKey string
}

func NewAnthropic(apiKey string) *Anthropic {
	return &Anthropic{
		client: &http.Client{Timeout: 3 * time.Minute},
		apiURL: "https://api.anthropic.com/v1/messages",
		model:  "claude-3-5-haiku-latest",
		apiKey: apiKey,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) DetectIntent(ctx context.Context, text string) (bool, error) {
	var out struct {
		ActionRequired bool `json:"action_required"`
	}
	if err := a.execute(ctx, withSchema(intentPrompt(text), intentSchema), &out); err != nil {
		return false, err
	}
	return out.ActionRequired, nil
}

func (a *Anthropic) Generate(ctx context.Context, target, text string) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	if err := a.execute(ctx, withSchema(generatePrompt(target, text), outputSchema), &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

func (a *Anthropic) Transform(ctx context.Context, target, text string) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	if err := a.execute(ctx, withSchema(transformPrompt(target, text), outputSchema), &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

func (a *Anthropic) execute(ctx context.Context, prompt string, out any) error {
	payload, err := json.Marshal(map[string]any{
		"model":      a.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(body))
	}

	var aResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &aResp); err != nil {
		return fmt.Errorf("anthropic response parse error: %w", err)
	}
	if len(aResp.Content) == 0 {
		return fmt.Errorf("anthropic returned no content")
	}
	if err := json.Unmarshal([]byte(aResp.Content[0].Text), out); err != nil {
		return fmt.Errorf("anthropic content parse error: %w", err)
	}
	return nil
}
