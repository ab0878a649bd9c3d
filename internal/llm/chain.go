package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Named pairs a Generator with the label used in logs and errors.
type Named struct {
	Name string
	Generator
}

// Chain tries its backends in order until one answers.
type Chain struct {
	backends []Named
}

// NewChain returns a Chain over backends, skipping nil generators.
func NewChain(backends ...Named) *Chain {
	c := &Chain{}
	for _, b := range backends {
		if b.Generator != nil {
			c.backends = append(c.backends, b)
		}
	}
	return c
}

// Len returns the number of backends.
func (c *Chain) Len() int { return len(c.backends) }

// Names lists the backends in try order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.backends))
	for i, b := range c.backends {
		out[i] = b.Name
	}
	return out
}

// Generate returns the first non-empty answer. A cancelled context stops
// the chain immediately.
func (c *Chain) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "Chain.Generate",
		trace.WithAttributes(
			attribute.Int("llm.backends", len(c.backends)),
			attribute.Float64("llm.temperature", float64(opts.Temperature)),
		))
	defer span.End()

	if len(c.backends) == 0 {
		span.SetStatus(codes.Error, ErrNoBackends.Error())
		return "", ErrNoBackends
	}

	var lastErr error
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		out, err := b.Generate(ctx, prompt, opts)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			span.SetAttributes(attribute.String("llm.backend", b.Name))
			return strings.TrimSpace(out), nil
		}
		log.Debug().Err(err).Str("backend", b.Name).Msg("llm backend failed")
		lastErr = fmt.Errorf("%s: %w", b.Name, err)
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all llm backends failed")
	return "", lastErr
}
