// Package embeddingutils constructs embedders by provider name.
package embeddingutils

import (
	"context"
	"fmt"
	"os"

	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	"github.com/papercomputeco/tabletalk/pkg/embeddings/gemini"
	"github.com/papercomputeco/tabletalk/pkg/embeddings/ollama"
	"github.com/papercomputeco/tabletalk/pkg/embeddings/openai"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Model        string
	Dimensions   int
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case provider.Ollama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})

	case provider.OpenAI, provider.Upstage:
		apiKey, baseURL := provider.ResolveOpenAICompatible(o.ProviderType, o.APIKey, o.TargetURL)
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})

	case provider.Gemini:
		apiKey := o.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		return gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey: apiKey,
			Model:  o.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
