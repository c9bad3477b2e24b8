package narration

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ivlev/topic2video/internal/config"
)

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiClient(ctx context.Context, cfg config.NarrationConfig) (*GeminiClient, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("gemini narration requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (c *GeminiClient) GenerateNarrations(ctx context.Context, topic string, lines, minWords, maxWords int) ([]string, error) {
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
	}
	if c.maxTokens > 0 {
		gc.MaxOutputTokens = c.maxTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(Prompt(topic, lines, minWords, maxWords)), gc)
	if err != nil {
		return nil, fmt.Errorf("generate text error: %w", err)
	}
	return ParseLines(resp.Text(), lines)
}
