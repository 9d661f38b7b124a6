// Package llm asks an OpenAI-compatible model for study suggestions based
// on a student's result sheet.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/gradebook/internal/llm/prompts"
	"github.com/pavelanni/gradebook/internal/model"
)

// Suggestion is a tip for one subject.
type Suggestion struct {
	Subject string `json:"subject"`
	Tip     string `json:"tip"`
}

// Advice is the model's study advice for a student.
type Advice struct {
	Summary       string       `json:"summary"`
	FocusSubjects []string     `json:"focus_subjects"`
	Suggestions   []Suggestion `json:"suggestions"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a client. An unknown variant falls back to the standard tone.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid advice variant, using standard", "variant", variant)
		variant = string(prompts.VariantStandard)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Ping checks that the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// SuggestStudyPlan asks the model for advice on a marked student's result.
func (c *Client) SuggestStudyPlan(ctx context.Context, sheet model.ResultSheet, stats model.RosterStatistics, question string) (*Advice, error) {
	prompt, err := prompts.BuildAdvicePrompt(c.variant, prompts.NewAdviceData(sheet, stats, question))
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	advice, err := parseAdvice(raw)
	if err != nil {
		return nil, err
	}
	return advice, nil
}

func parseAdvice(raw string) (*Advice, error) {
	var advice Advice
	if err := json.Unmarshal([]byte(raw), &advice); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if advice.Summary == "" && len(advice.Suggestions) == 0 {
		return nil, fmt.Errorf("LLM response has no advice (raw: %s)", raw)
	}
	return &advice, nil
}
