// Package assistant forwards free text to a generative-language model in
// one of three modes and turns schedule-shaped replies into rows.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/tablero/config"
)

// ============================================================================
// PROVIDER - One synchronous completion call
// ============================================================================
// The only components that reach a model API. Providers never retry on
// their own; any retries happen inside the vendor SDK.
// ============================================================================

// Provider abstracts a language-model API behind a single completion method.
type Provider interface {
	// Complete sends a prompt and returns the reply.
	// Implementations must respect context cancellation and deadlines.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string // empty = provider default
	MaxTokens    int    // 0 = provider default
}

// Response holds the result of a completion call.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage tracks token counts when the provider reports them.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ErrMissingAPIKey is returned when a real provider is configured without a key.
var ErrMissingAPIKey = errors.New("assistant: API key not set")

// NewProvider builds the provider named in cfg.
func NewProvider(ctx context.Context, cfg config.AssistantConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "anthropic":
		model := cfg.Model
		if strings.HasPrefix(model, "gemini") {
			model = ""
		}
		return NewAnthropicProvider(cfg.APIKey, model)
	case "mock":
		return NewMockProvider(MockResponse{Content: mockAgenda}), nil
	default:
		return nil, fmt.Errorf("assistant: unknown provider %q", cfg.Provider)
	}
}

// mockAgenda lets `provider: mock` serve every mode offline.
const mockAgenda = `Lunes:
- 8:00am: Revisar correos
- 10:00am: Estudiar inglés
Martes:
- 7:00am: Ejercicio
Domingo:
- Descanso`
