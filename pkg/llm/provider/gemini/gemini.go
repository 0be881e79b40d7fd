// Package gemini implements llm.Generator with Google's genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/papercomputeco/tabletalk/pkg/llm"
)

// DefaultModel is the default Gemini chat model.
const DefaultModel = "gemini-2.5-flash"

// Config holds configuration for the Gemini generator.
type Config struct {
	APIKey string
	Model  string
}

// Generator calls Models.GenerateContent on the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Generator backed by the Gemini API.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{client: client, model: model}, nil
}

// Generate sends the conversation to Gemini. System messages become the
// request's system instruction.
func (g *Generator) Generate(ctx context.Context, msgs []llm.Message, temperature float64) (string, error) {
	system, contents := toContents(msgs)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}

	return text, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

func toContents(msgs []llm.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

var _ llm.Generator = (*Generator)(nil)
