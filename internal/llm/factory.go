package llm

import (
	"context"
	"fmt"
)

// MultiProviderClient implements ModelClient by dispatching to the
// appropriate provider based on the ModelConfig.Provider field.
//
// This allows a single activity implementation to support multiple
// providers without knowing which one will be used at registration time.
type MultiProviderClient struct {
	openai    *OpenAIClient
	anthropic *AnthropicClient
}

// NewMultiProviderClient creates a client that can dispatch to multiple providers.
func NewMultiProviderClient() *MultiProviderClient {
	return &MultiProviderClient{
		openai:    NewOpenAIClient(),
		anthropic: NewAnthropicClient(),
	}
}

func (c *MultiProviderClient) resolve(provider string) (ModelClient, error) {
	if provider == "" {
		provider = "openai"
	}
	switch provider {
	case "openai":
		return c.openai, nil
	case "anthropic":
		return c.anthropic, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic)", provider)
	}
}

func (c *MultiProviderClient) Call(ctx context.Context, req Request) (Response, error) {
	client, err := c.resolve(req.ModelConfig.Provider)
	if err != nil {
		return Response{}, err
	}
	return client.Call(ctx, req)
}

func (c *MultiProviderClient) Stream(ctx context.Context, req Request, handler StreamHandler) (Response, error) {
	client, err := c.resolve(req.ModelConfig.Provider)
	if err != nil {
		return Response{}, err
	}
	return client.Stream(ctx, req, handler)
}

func (c *MultiProviderClient) Compact(ctx context.Context, req CompactRequest) (CompactResponse, error) {
	client, err := c.resolve(req.ModelConfig.Provider)
	if err != nil {
		return CompactResponse{}, err
	}
	return client.Compact(ctx, req)
}

// NewLLMClient creates the appropriate client based on provider name. This
// is a convenience function for cases where the provider is known at init
// time; most callers should prefer NewMultiProviderClient.
func NewLLMClient(provider string) (ModelClient, error) {
	switch provider {
	case "openai", "":
		return NewOpenAIClient(), nil
	case "anthropic":
		return NewAnthropicClient(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic)", provider)
	}
}
