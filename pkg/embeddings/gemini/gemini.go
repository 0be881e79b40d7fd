// Package gemini implements embeddings.Embedder with Google's genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

// DefaultEmbeddingModel is the default Gemini embedding model.
const DefaultEmbeddingModel = "gemini-embedding-001"

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	APIKey string
	Model  string
}

// Embedder calls Models.EmbedContent.
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates an Embedder backed by the Gemini API.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedder: api key is required")
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
		model = DefaultEmbeddingModel
	}

	return &Embedder{client: client, model: model}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return result.Embeddings[0].Values, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
