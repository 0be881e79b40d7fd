// Package openai implements llm.Generator against any OpenAI-compatible chat
// completions endpoint (OpenAI, Upstage, vLLM, ...) using go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/tabletalk/pkg/llm"
)

const (
	// DefaultModel is the Upstage chat model the prompts were written against.
	DefaultModel = "solar-1-mini-chat"

	// UpstageBaseURL is the OpenAI-compatible Upstage endpoint.
	UpstageBaseURL = "https://api.upstage.ai/v1"
)

// Config holds the configuration for the OpenAI-compatible generator.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Generator calls an OpenAI-compatible chat completions API.
type Generator struct {
	client *goopenai.Client
	model  string
}

// NewGenerator creates a Generator. An empty BaseURL targets api.openai.com.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Generate sends msgs as a single chat completion request.
func (g *Generator) Generate(ctx context.Context, msgs []llm.Message, temperature float64) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toChatMessages(msgs),
		Temperature: wireTemperature(temperature),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the underlying HTTP client needs no cleanup.
func (g *Generator) Close() error {
	return nil
}

// wireTemperature maps the requested temperature onto the request field.
// go-openai drops a zero temperature from the payload (omitempty) and the
// provider then applies its own default, so zero goes out as the smallest
// positive float32.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func toChatMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case llm.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case llm.RoleUser:
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

var _ llm.Generator = (*Generator)(nil)
