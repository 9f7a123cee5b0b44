package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps an OpenAI-compatible API client.
type OpenAIClient struct {
	api         *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates a client for an OpenAI-compatible endpoint.
func NewOpenAI(baseURL, apiKey, modelName string, temperature float32) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:         openai.NewClientWithConfig(config),
		model:       modelName,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Provider() string { return "openai" }

// Complete sends prompt as a single user message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", classify(c.Provider(), "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.Provider(), Code: ErrCodeInvalidInput, Message: "LLM returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return classify(c.Provider(), "list models failed", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by endpoint", c.model)
}
