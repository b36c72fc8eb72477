package phonetic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	// DefaultGeminiModel is used when no Gemini model is configured
	DefaultGeminiModel = "gemini-2.0-flash"

	explainTimeout = 30 * time.Second
)

const systemPrompt = "You are a phonetics tutor helping language learners understand pronunciation. " +
	"Explain IPA transcriptions clearly. For each IPA symbol used, give concrete examples " +
	"of how it sounds using familiar English words or sounds when possible."

// Explainer produces a learner-friendly explanation of a word's IPA
type Explainer interface {
	Explain(ctx context.Context, word, ipa string) (string, error)
}

// Keys carries the API credentials of every explanation provider
type Keys struct {
	OpenAI string
	Gemini string
}

// NewExplainer returns a cached explainer for the named provider
func NewExplainer(ctx context.Context, provider string, keys Keys) (Explainer, error) {
	var inner Explainer
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure explain.openai_key in .voxpref.yaml")
		}
		inner = NewOpenAIExplainer(keys.OpenAI)
	case ProviderGemini:
		if keys.Gemini == "" {
			return nil, fmt.Errorf("Gemini API key not found. Set GEMINI_API_KEY environment variable or configure explain.gemini_key in .voxpref.yaml")
		}
		g, err := NewGeminiExplainer(ctx, keys.Gemini, DefaultGeminiModel)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown explanation provider: %s (supported: %s, %s)", provider, ProviderOpenAI, ProviderGemini)
	}
	return NewCachedExplainer(inner), nil
}

func explainPrompt(word, ipa string) string {
	return fmt.Sprintf(`For the word '%s' with the IPA transcription %s:
1. Repeat the complete IPA transcription
2. Break down EACH phonetic symbol used in the transcription
3. For EVERY symbol, explain how it's pronounced with examples:
   - If similar to an English sound, give English word examples
   - If not in English, describe tongue/mouth position or compare to similar sounds
   - Include stress marks and explain which syllable is stressed

Example format:
Word: [IPA transcription]
• /p/ - like 'p' in English 'pot'
• /a/ - like 'a' in 'father'
• /ˈ/ - stress mark (following syllable is stressed)`, word, ipa)
}

// OpenAIExplainer explains transcriptions with an OpenAI chat model
type OpenAIExplainer struct {
	client *openai.Client
	model  string
}

// NewOpenAIExplainer creates an explainer for the public OpenAI API
func NewOpenAIExplainer(apiKey string) *OpenAIExplainer {
	return &OpenAIExplainer{client: openai.NewClient(apiKey), model: openai.GPT4o}
}

// NewOpenAIExplainerWithConfig creates an explainer against a custom
// OpenAI-compatible endpoint
func NewOpenAIExplainerWithConfig(cfg openai.ClientConfig, model string) *OpenAIExplainer {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIExplainer{client: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIExplainer) Explain(ctx context.Context, word, ipa string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, explainTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: explainPrompt(word, ipa)},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GeminiExplainer explains transcriptions with a Gemini model
type GeminiExplainer struct {
	client *genai.Client
	model  string
}

// NewGeminiExplainer creates a Gemini-backed explainer
func NewGeminiExplainer(ctx context.Context, apiKey, model string) (*GeminiExplainer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiExplainer{client: client, model: model}, nil
}

func (e *GeminiExplainer) Explain(ctx context.Context, word, ipa string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, explainTimeout)
	defer cancel()

	temperature := float32(0.3)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   500,
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(explainPrompt(word, ipa)), cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no response from Gemini")
	}
	return text, nil
}

// CachedExplainer memoizes explanations per word and transcription for the
// lifetime of a process
type CachedExplainer struct {
	inner Explainer

	mu      sync.Mutex
	entries map[string]string
}

// NewCachedExplainer wraps inner with an in-memory cache
func NewCachedExplainer(inner Explainer) *CachedExplainer {
	return &CachedExplainer{inner: inner, entries: make(map[string]string)}
}

func (c *CachedExplainer) Explain(ctx context.Context, word, ipa string) (string, error) {
	key := word + "\x00" + ipa

	c.mu.Lock()
	if text, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return text, nil
	}
	c.mu.Unlock()

	text, err := c.inner.Explain(ctx, word, ipa)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = text
	c.mu.Unlock()
	return text, nil
}

// Len returns the number of cached explanations
func (c *CachedExplainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
