package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client for modelName.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &ProviderError{Provider: "gemini", Code: ErrCodeAPIKey, Message: "API key is required"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Code: ErrCodeAPIKey, Message: "failed to create Gemini client", Err: err}
	}
	return &GeminiClient{client: client, model: modelName}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

// Complete generates content for prompt and returns its text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		code := ErrCodeServiceDown
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrCodeTimeout
		}
		return "", &ProviderError{Provider: c.Provider(), Code: code, Message: "failed to generate content", Err: err}
	}
	if result == nil {
		return "", &ProviderError{Provider: c.Provider(), Code: ErrCodeInvalidInput, Message: "no response generated"}
	}
	text, err := result.Text()
	if err != nil {
		return "", &ProviderError{Provider: c.Provider(), Code: ErrCodeInvalidInput, Message: "failed to extract response text", Err: err}
	}
	return text, nil
}
