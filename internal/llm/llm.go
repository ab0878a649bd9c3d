// Package llm – text generation backends
//
// The memory service asks an LLM for three things: intent classification,
// narration, and agent replies. This package hides the provider behind a
// single Generator interface and chains several backends so a failing model
// falls through to the next one.
//
// Design notes:
//   - Backends are configured as an ordered "provider:model" list
//     (ParseBackends). Supported providers: gemini, openai, claude.
//   - Chain tries each backend in order and returns the first non-empty
//     answer. When all fail, the last error is returned.
//   - Clients hold no per-call state and are safe for concurrent use.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBackends is returned when a Chain has nothing to try.
	ErrNoBackends = errors.New("no llm backends configured")

	// ErrEmptyResponse marks a backend answer with no usable text.
	ErrEmptyResponse = errors.New("empty llm response")

	// ErrUnknownProvider is returned for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Options tune a single generation call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Provider names accepted in backend lists.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Backend is one "provider:model" entry.
type Backend struct {
	Provider string
	Model    string
}

func (b Backend) String() string { return b.Provider + ":" + b.Model }

// ParseBackends parses a comma-separated list such as
// "gemini:gemini-2.5-flash,openai:gpt-4o-mini". Empty entries are skipped
// and duplicates keep their first position.
func ParseBackends(list string) ([]Backend, error) {
	var out []Backend
	seen := map[Backend]bool{}
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		provider, model, ok := strings.Cut(raw, ":")
		provider = strings.ToLower(strings.TrimSpace(provider))
		model = strings.TrimSpace(model)
		if !ok || provider == "" || model == "" {
			return nil, fmt.Errorf("invalid llm backend %q: want provider:model", raw)
		}
		switch provider {
		case ProviderGemini, ProviderOpenAI, ProviderClaude:
		case "anthropic":
			provider = ProviderClaude
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
		}
		b := Backend{Provider: provider, Model: model}
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out, nil
}

// StripCodeFence returns the body of a markdown code block when s contains
// one (```json preferred), or s trimmed otherwise.
func StripCodeFence(s string) string {
	for _, open := range []string{"```json", "```"} {
		if _, after, ok := strings.Cut(s, open); ok {
			body, _, _ := strings.Cut(after, "```")
			return strings.TrimSpace(body)
		}
	}
	return strings.TrimSpace(s)
}
