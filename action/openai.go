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

type OpenAI struct {
	client *http.Client
	apiURL string
	model  string
	apiKey string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client: &http.Client{Timeout: 3 * time.Minute},
		apiURL: "https://api.openai.com/v1/chat/completions",
		model:  "gpt-4o-mini",
		apiKey: apiKey,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) DetectIntent(ctx context.Context, text string) (bool, error) {
	var out struct {
		ActionRequired bool `json:"action_required"`
	}
	if err := o.execute(ctx, withSchema(intentPrompt(text), intentSchema), &out); err != nil {
		return false, err
	}
	return out.ActionRequired, nil
}

func (o *OpenAI) Generate(ctx context.Context, target, text string) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	if err := o.execute(ctx, withSchema(generatePrompt(target, text), outputSchema), &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

func (o *OpenAI) Transform(ctx context.Context, target, text string) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	if err := o.execute(ctx, withSchema(transformPrompt(target, text), outputSchema), &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

// execute sends one user message and decodes the model's JSON reply
// into out.
func (o *OpenAI) execute(ctx context.Context, prompt string, out any) error {
	payload, err := json.Marshal(map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(body))
	}

	var oResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &oResp); err != nil {
		return fmt.Errorf("openai response parse error: %w", err)
	}
	if len(oResp.Choices) == 0 {
		return fmt.Errorf("openai returned no choices")
	}
	if err := json.Unmarshal([]byte(oResp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("openai content parse error: %w", err)
	}
	return nil
}
