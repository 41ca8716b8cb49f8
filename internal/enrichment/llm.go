package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harrowgate/sitrep/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is the LLM-backed Capability implementation. It targets any
// OpenAI-compatible chat completions endpoint, configured via
// LLM_PROVIDER_URL — this is the first real use of go-openai, which sat
// unimported in the teacher's go.mod (see DESIGN.md).
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, maxTokens int) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: float32(temperature),
		maxTokens:   maxTokens,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("enrichment: llm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("enrichment: llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) ExtractEntities(ctx context.Context, text string) ([]models.Entity, error) {
	out, err := c.complete(ctx,
		"Extract named entities from the text. Reply with a JSON array of objects {text, type} where type is one of person, organization, location, other. Reply with JSON only.",
		text)
	if err != nil {
		return nil, err
	}
	var entities []models.Entity
	if err := json.Unmarshal([]byte(extractJSON(out)), &entities); err != nil {
		return nil, fmt.Errorf("enrichment: parse entities: %w", err)
	}
	return entities, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, "Summarize the following text in two sentences.", text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *OpenAIClient) Sentiment(ctx context.Context, text string) (models.Sentiment, error) {
	out, err := c.complete(ctx,
		"Classify the sentiment of the text as exactly one word: positive, neutral, or negative.", text)
	if err != nil {
		return "", err
	}
	s := strings.ToLower(strings.TrimSpace(out))
	switch {
	case strings.Contains(s, "positive"):
		return models.SentimentPositive, nil
	case strings.Contains(s, "negative"):
		return models.SentimentNegative, nil
	default:
		return models.SentimentNeutral, nil
	}
}

// categorizePrompt enumerates the 12-value enum from spec.md §3 literally,
// since the model has no other source of truth for it.
const categorizePrompt = "Classify this text into exactly one category: protest, crime, religious_freedom, cultural_tension, political, infrastructure, health, migration, economic, weather, community_event, other. Reply with exactly one of those words, lowercase, nothing else."

func (c *OpenAIClient) Categorize(ctx context.Context, text string) (models.Category, error) {
	out, err := c.complete(ctx, categorizePrompt, text)
	if err != nil {
		return "", err
	}
	cat := models.Category(strings.ToLower(strings.TrimSpace(out)))
	for _, valid := range models.AllCategories {
		if cat == valid {
			return cat, nil
		}
	}
	return models.CategoryOther, nil
}

// extractJSON trims any leading/trailing prose around a JSON array, since
// some models wrap JSON in prose or code fences despite instructions.
func extractJSON(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return s[start : end+1]
}
