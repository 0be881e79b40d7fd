// Package provider constructs llm.Generator implementations by provider name.
package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/gemini"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/ollama"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/openai"
)

const (
	OpenAI    = "openai"
	Upstage   = "upstage"
	Anthropic = "anthropic"
	Ollama    = "ollama"
	Gemini    = "gemini"
)

// SupportedProviders returns the provider names accepted by NewGenerator.
func SupportedProviders() []string {
	return []string{OpenAI, Upstage, Anthropic, Ollama, Gemini}
}

// NewGeneratorOpts selects and configures a generator.
type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Model        string
}

// NewGenerator builds the generator for o.ProviderType. Empty API keys and
// base URLs are resolved from the environment (see ResolveAPIKey).
func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (llm.Generator, error) {
	providerType := strings.ToLower(o.ProviderType)

	switch providerType {
	case OpenAI, Upstage, "":
		apiKey, baseURL := ResolveOpenAICompatible(providerType, o.APIKey, o.TargetURL)
		return openai.NewGenerator(openai.Config{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   o.Model,
		})

	case Anthropic:
		return anthropic.NewGenerator(anthropic.Config{
			APIKey:  firstNonEmpty(o.APIKey, os.Getenv("ANTHROPIC_API_KEY")),
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})

	case Ollama:
		return ollama.NewGenerator(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})

	case Gemini:
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey: firstNonEmpty(o.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Model:  o.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}

// ResolveOpenAICompatible resolves the API key and base URL for an
// OpenAI-compatible endpoint. Explicit values win. Otherwise UPSTAGE_API_KEY
// is preferred over OPENAI_API_KEY, and UPSTAGE_BASE_URL over
// OPENAI_BASE_URL. An Upstage key with no base URL targets the Upstage
// endpoint.
func ResolveOpenAICompatible(providerType, apiKey, baseURL string) (string, string) {
	upstageKey := os.Getenv("UPSTAGE_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")

	key := apiKey
	usingUpstage := providerType == Upstage
	if key == "" {
		switch {
		case providerType == Upstage:
			key = upstageKey
		case upstageKey != "":
			key = upstageKey
			usingUpstage = true
		default:
			key = openaiKey
		}
	}

	url := firstNonEmpty(baseURL, os.Getenv("UPSTAGE_BASE_URL"), os.Getenv("OPENAI_BASE_URL"))
	if url == "" && usingUpstage {
		url = openai.UpstageBaseURL
	}

	return key, url
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
