package assistant

import "context"

// TextGenerator adapts a Provider to the prompt-in, text-out shape used by
// schema refinement.
type TextGenerator struct {
	Provider  Provider
	Model     string
	MaxTokens int
}

// Generate runs one completion and returns its text.
func (g TextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Provider.Complete(ctx, Request{
		Prompt:    prompt,
		Model:     g.Model,
		MaxTokens: g.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
