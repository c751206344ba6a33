// Package action post-processes transcripts with an LLM. A transcript
// is first classified: does it ask for something to be generated, or
// is it plain dictation? Generation requests get fresh content,
// dictation gets a grammar and formatting cleanup. Without an API key
// the pipeline skips this stage and delivers the raw transcript.
package action

import (
	"context"
	"os"
)

type Engine interface {
	Name() string
	// DetectIntent reports whether text asks for content to be
	// generated rather than just dictating it.
	DetectIntent(ctx context.Context, text string) (bool, error)
	// Generate produces new content from an instruction, formatted for
	// the target application.
	Generate(ctx context.Context, target, text string) (string, error)
	// Transform cleans up dictated text without changing its meaning.
	Transform(ctx context.Context, target, text string) (string, error)
}

// New picks a backend from the API keys in settings, falling back to
// environment variables. Returns nil when no provider is configured;
// callers treat a nil engine as "deliver the transcript as-is".
func New(apiKeys map[string]string) Engine {
	anthropicKey := apiKeys["anthropic"]
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey != "" {
		return NewAnthropic(anthropicKey)
	}

	openaiKey := apiKeys["openai"]
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey != "" {
		return NewOpenAI(openaiKey)
	}
	return nil
}
