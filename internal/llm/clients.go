package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// GeminiClient generates text with a Google Gemini model.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an existing genai client for one model.
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	return &GeminiClient{client: client, model: model}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(opts.Temperature)
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// OpenAIClient generates text through the OpenAI chat completions API or
// any compatible server.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient returns a client for model. baseURL may be empty.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ClaudeClient generates text with an Anthropic model.
type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

// defaultClaudeMaxTokens is used when the call sets no limit; the API
// requires one.
const defaultClaudeMaxTokens = 1000

// NewClaudeClient returns a client for model.
func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return &ClaudeClient{client: anthropic.NewClient(apiKey), model: model}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	temp := opts.Temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	for _, part := range resp.Content {
		if part.Text != nil && *part.Text != "" {
			return *part.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

// Credentials carries provider keys for Build.
type Credentials struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
}

// Build creates a Chain for backends. Backends whose provider has no key
// are skipped. The returned close function releases provider clients.
func Build(ctx context.Context, backends []Backend, creds Credentials) (*Chain, func() error, error) {
	var (
		named  []Named
		gemini *genai.Client
	)
	closeFn := func() error {
		if gemini != nil {
			return gemini.Close()
		}
		return nil
	}

	for _, b := range backends {
		switch b.Provider {
		case ProviderGemini:
			if creds.GeminiAPIKey == "" {
				continue
			}
			if gemini == nil {
				cl, err := genai.NewClient(ctx, option.WithAPIKey(creds.GeminiAPIKey))
				if err != nil {
					return nil, closeFn, fmt.Errorf("gemini client: %w", err)
				}
				gemini = cl
			}
			named = append(named, Named{Name: b.String(), Generator: NewGeminiClient(gemini, b.Model)})
		case ProviderOpenAI:
			if creds.OpenAIAPIKey == "" && creds.OpenAIBaseURL == "" {
				continue
			}
			named = append(named, Named{Name: b.String(), Generator: NewOpenAIClient(creds.OpenAIAPIKey, b.Model, creds.OpenAIBaseURL)})
		case ProviderClaude:
			if creds.AnthropicAPIKey == "" {
				continue
			}
			named = append(named, Named{Name: b.String(), Generator: NewClaudeClient(creds.AnthropicAPIKey, b.Model)})
		default:
			return nil, closeFn, fmt.Errorf("%w: %s", ErrUnknownProvider, b.Provider)
		}
	}
	return NewChain(named...), closeFn, nil
}
