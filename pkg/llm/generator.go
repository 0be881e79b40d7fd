package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned by a Generator when the provider answered
// without any text.
var ErrEmptyCompletion = errors.New("provider returned an empty completion")

// Generator is the text-generation capability. Implementations must accept a
// temperature of 0 for deterministic classification as well as positive
// temperatures for answers. Failures are opaque and never retried.
type Generator interface {
	// Generate sends msgs to the provider and returns the completion text.
	Generate(ctx context.Context, msgs []Message, temperature float64) (string, error)

	// Close releases any resources held by the generator.
	Close() error
}

// GeneratorFunc adapts a plain function into a Generator.
type GeneratorFunc func(ctx context.Context, msgs []Message, temperature float64) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, msgs []Message, temperature float64) (string, error) {
	return f(ctx, msgs, temperature)
}

func (f GeneratorFunc) Close() error { return nil }
