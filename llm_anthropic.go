package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"go.uber.org/zap"
)

const anthropicDefaultMaxTokens = 8192

// AnthropicBackend sends completions to the Anthropic messages API through llmkit
type AnthropicBackend struct {
	apiKey string
}

// NewAnthropicBackend creates an Anthropic backend
func NewAnthropicBackend(apiKey string) (*AnthropicBackend, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	return &AnthropicBackend{apiKey: apiKey}, nil
}

// Complete sends the prompt pair. The messages API has no reasoning effort
// parameter, so the hint is dropped.
func (b *AnthropicBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ReasoningEffort != "" {
		logger.Debug("reasoning effort not supported by anthropic backend, ignoring", zap.String("reasoning_effort", req.ReasoningEffort))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	settings := types.RequestSettings{
		Model:     req.Model,
		MaxTokens: maxTokens,
	}
	response, err := anthropic.PromptWithSettings(req.SystemPrompt, req.UserPrompt, "", b.apiKey, settings)
	if err != nil {
		return nil, fmt.Errorf("anthropic prompt: %w", err)
	}

	if len(response.Content) == 0 {
		return nil, errors.New("no content in response")
	}

	return &Completion{
		Text:         response.Content[0].Text,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
	}, nil
}
