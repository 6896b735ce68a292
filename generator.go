package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CompletionRequest is a single system + user prompt exchange
type CompletionRequest struct {
	Model           string
	SystemPrompt    string
	UserPrompt      string
	ReasoningEffort string
	MaxTokens       int
}

// Completion is the backend answer with its token usage.
// CostUSD is set only by backends that report a cost themselves.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      *float64
}

// CompletionBackend sends one completion request to a language model
type CompletionBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ScriptGenerator turns article markdown into a spoken podcast script
type ScriptGenerator struct {
	backend         CompletionBackend
	model           string
	systemPrompt    string
	reasoningEffort string
	maxTokens       int
	pricing         Pricing
}

// NewScriptGenerator creates a generator using the configured persona prompt
func NewScriptGenerator(backend CompletionBackend, config *Config) *ScriptGenerator {
	gen := config.Settings.Generation
	return &ScriptGenerator{
		backend:         backend,
		model:           gen.Model,
		systemPrompt:    config.SystemPrompt,
		reasoningEffort: gen.ReasoningEffort,
		maxTokens:       gen.MaxTokens,
		pricing:         gen.Pricing,
	}
}

// Generate sends the article to the language model and returns the script.
// The script is returned as produced; its length is not checked.
func (g *ScriptGenerator) Generate(ctx context.Context, markdown string) (*ScriptResult, error) {
	logger.Info("→ Writing script...", zap.String("model", g.model), zap.String("reasoning_effort", g.reasoningEffort))
	start := time.Now()

	completion, err := g.backend.Complete(ctx, CompletionRequest{
		Model:           g.model,
		SystemPrompt:    g.systemPrompt,
		UserPrompt:      markdown,
		ReasoningEffort: g.reasoningEffort,
		MaxTokens:       g.maxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Model: g.model, Err: err}
	}
	if completion == nil {
		return nil, &GenerationError{Model: g.model, Err: errors.New("no completion in response")}
	}

	result := &ScriptResult{
		Text:         completion.Text,
		Model:        g.model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		TotalTokens:  completion.InputTokens + completion.OutputTokens,
	}
	if completion.CostUSD != nil {
		result.EstimatedCostUSD = *completion.CostUSD
	} else {
		result.EstimatedCostUSD = g.pricing.Cost(completion.InputTokens, completion.OutputTokens)
	}

	logger.Info("✓ Script written",
		zap.Int("words", len(strings.Fields(result.Text))),
		zap.Int("total_tokens", result.TotalTokens),
		zap.String("estimated_cost_usd", fmt.Sprintf("%.4f", result.EstimatedCostUSD)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Cost estimates the price of a request in USD
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMillion/1e6 + float64(outputTokens)*p.OutputPerMillion/1e6
}
