package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements Provider through langchaingo's Google AI client.
type GeminiProvider struct {
	llm   llms.Model
	model string
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider. It does not contact the API.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or assistant.api_key", ErrMissingAPIKey)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return NewGeminiProviderWithModel(llm, model), nil
}

// NewGeminiProviderWithModel wraps an existing langchaingo model.
func NewGeminiProviderWithModel(llm llms.Model, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{llm: llm, model: model}
}

// Complete sends the prompt as a single human message. A system prompt is
// prepended to it.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + prompt
	}
	messages := []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}

	opts := []llms.CallOption{llms.WithModel(model)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := p.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("gemini: empty response")
	}

	return &Response{
		Content: resp.Choices[0].Content,
		Model:   model,
	}, nil
}

// Model returns the default model.
func (p *GeminiProvider) Model() string {
	return p.model
}
