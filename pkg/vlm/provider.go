package vlm

import (
	"context"

	"vlm-search-agent/pkg/imaging"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds options over defaults.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// VLMProvider defines the contract for any vision-language backend.
type VLMProvider interface {
	// Generate answers prompt about image. A nil image sends a text-only request.
	Generate(ctx context.Context, image *imaging.Image, prompt string, options ...Option) (string, error)
}

type withDefaults struct {
	next     VLMProvider
	defaults []Option
}

// WithDefaults applies opts before any per-call options on every request.
func WithDefaults(p VLMProvider, opts ...Option) VLMProvider {
	if len(opts) == 0 {
		return p
	}
	return &withDefaults{next: p, defaults: opts}
}

func (w *withDefaults) Generate(ctx context.Context, image *imaging.Image, prompt string, options ...Option) (string, error) {
	all := make([]Option, 0, len(w.defaults)+len(options))
	all = append(all, w.defaults...)
	all = append(all, options...)
	return w.next.Generate(ctx, image, prompt, all...)
}
