// Package narration turns a topic into short numbered narration lines using an LLM.
package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/topic2video/internal/config"
)

const SystemPrompt = "You are a creative video narration writer."

// ErrTooFewLines is returned when the model answered with fewer usable lines than requested.
var ErrTooFewLines = errors.New("narration: too few lines in response")

type Generator interface {
	GenerateNarrations(ctx context.Context, topic string, lines, minWords, maxWords int) ([]string, error)
}

// Prompt builds the user instruction sent to the model.
func Prompt(topic string, lines, minWords, maxWords int) string {
	return fmt.Sprintf(
		"Create %d short information lines about '%s'. Each line should be between %d and %d words. "+
			"Make them engaging and descriptive, like lines for a short cinematic video. "+
			"Output them as a numbered list without extra explanation.",
		lines, topic, minWords, maxWords)
}

// ParseLines strips list numbering from a model response and keeps the first n
// non-empty lines.
func ParseLines(raw string, n int) ([]string, error) {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "0123456789. ")
		line = strings.TrimSpace(strings.Trim(line, ")-*\""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: got %d, want %d", ErrTooFewLines, len(out), n)
}

// Placeholders is the narration used when the generator is unavailable.
func Placeholders(topic string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s scene %d", topic, i+1)
	}
	return out
}

// New builds the generator selected by cfg.Provider.
func New(cfg config.NarrationConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "nvidia", "openai":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}
}
