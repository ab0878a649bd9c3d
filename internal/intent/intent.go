// Package intent classifies what a patient wants from an utterance.
//
// Classifier wraps an LLM call behind a typed Descriptor. The call can fail
// in many ways (timeouts, quota, prose instead of JSON); none of them reach
// the caller. Every failure produces the deterministic Fallback descriptor,
// so display resolution always has something to work with.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/prompts"
)

// Type is what the patient wants overall.
type Type string

const (
	TypeMemoryReplay Type = "memory_replay"
	TypeConversation Type = "conversation"
)

// Style is how the patient wants to engage.
type Style string

const (
	StylePassive     Style = "passive"
	StyleInteractive Style = "interactive"
)

// DefaultTone is used when the model gives no tone.
const DefaultTone = "curious"

// DefaultConfidence is the confidence of the fallback descriptor.
const DefaultConfidence = 0.5

// Descriptor is a classified request. Confidence is always within [0,1].
type Descriptor struct {
	Type        Type    `json:"intent_type"`
	Style       Style   `json:"interaction_style"`
	Tone        string  `json:"emotional_tone"`
	RequestText string  `json:"specific_request"`
	Confidence  float64 `json:"confidence"`
}

// Fallback is the descriptor returned whenever classification fails.
func Fallback(topic string) Descriptor {
	return Descriptor{
		Type:        TypeMemoryReplay,
		Style:       StylePassive,
		Tone:        DefaultTone,
		RequestText: "wants to learn about " + topic,
		Confidence:  DefaultConfidence,
	}
}

var errUnknownType = errors.New("unknown intent_type")

// rawDescriptor tolerates confidence given as a number or a string.
type rawDescriptor struct {
	IntentType       string          `json:"intent_type"`
	InteractionStyle string          `json:"interaction_style"`
	EmotionalTone    string          `json:"emotional_tone"`
	SpecificRequest  string          `json:"specific_request"`
	Confidence       json.RawMessage `json:"confidence"`
}

// Parse decodes a model answer, with or without a markdown code fence.
// Unknown intent types are an error; other gaps are filled from the
// fallback for topic.
func Parse(answer, topic string) (Descriptor, error) {
	var raw rawDescriptor
	if err := json.Unmarshal([]byte(llm.StripCodeFence(answer)), &raw); err != nil {
		return Descriptor{}, fmt.Errorf("decode classification: %w", err)
	}

	fb := Fallback(topic)
	d := Descriptor{
		Type:        Type(strings.ToLower(strings.TrimSpace(raw.IntentType))),
		Style:       Style(strings.ToLower(strings.TrimSpace(raw.InteractionStyle))),
		Tone:        strings.TrimSpace(raw.EmotionalTone),
		RequestText: strings.TrimSpace(raw.SpecificRequest),
		Confidence:  fb.Confidence,
	}
	switch d.Type {
	case TypeMemoryReplay, TypeConversation:
	default:
		return Descriptor{}, fmt.Errorf("%w: %q", errUnknownType, raw.IntentType)
	}
	switch d.Style {
	case StylePassive, StyleInteractive:
	default:
		d.Style = StylePassive
		if d.Type == TypeConversation {
			d.Style = StyleInteractive
		}
	}
	if d.Tone == "" {
		d.Tone = fb.Tone
	}
	if d.RequestText == "" {
		d.RequestText = fb.RequestText
	}
	if c, ok := parseConfidence(raw.Confidence); ok {
		d.Confidence = Clamp(c)
	}
	return d, nil
}

func parseConfidence(msg json.RawMessage) (float64, bool) {
	if len(msg) == 0 || string(msg) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Clamp bounds c to [0,1]. NaN becomes 0.
func Clamp(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout bounds each model call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithResponseCache memoizes raw model answers keyed by prompt and
// temperature.
func WithResponseCache(rc *cache.Cache[string]) Option {
	return func(c *Classifier) { c.responses = rc }
}

// WithFallbackHook is called with the reason every time the fallback is used.
func WithFallbackHook(fn func(err error)) Option {
	return func(c *Classifier) { c.onFallback = fn }
}

// Classifier turns utterances into Descriptors. It is safe for concurrent use.
type Classifier struct {
	gen        llm.Generator
	prompts    *prompts.Set
	timeout    time.Duration
	responses  *cache.Cache[string]
	onFallback func(err error)
}

// DefaultTimeout bounds a classification call unless WithTimeout says otherwise.
const DefaultTimeout = 10 * time.Second

// NewClassifier returns a Classifier using gen. A nil prompt set means the
// embedded defaults.
func NewClassifier(gen llm.Generator, ps *prompts.Set, opts ...Option) *Classifier {
	if ps == nil {
		ps = prompts.Default()
	}
	c := &Classifier{gen: gen, prompts: ps, timeout: DefaultTimeout}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// Classify never fails: any problem yields Fallback(topic).
func (c *Classifier) Classify(ctx context.Context, utterance, topic string) Descriptor {
	ctx, span := otel.Tracer("intent").Start(ctx, "Classifier.Classify",
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	d, err := c.TryClassify(ctx, utterance, topic)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("intent classification failed, using fallback")
		span.SetAttributes(attribute.Bool("intent.fallback", true))
		if c.onFallback != nil {
			c.onFallback(err)
		}
		return Fallback(topic)
	}
	span.SetAttributes(
		attribute.String("intent.type", string(d.Type)),
		attribute.String("intent.style", string(d.Style)),
	)
	return d
}

// TryClassify is Classify with the failure exposed instead of replaced.
func (c *Classifier) TryClassify(ctx context.Context, utterance, topic string) (Descriptor, error) {
	if c.gen == nil {
		return Descriptor{}, llm.ErrNoBackends
	}
	prompt, opts, err := c.prompts.Classify(prompts.ClassifyData{Utterance: utterance, Topic: topic})
	if err != nil {
		return Descriptor{}, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	generate := func(ctx context.Context) (string, error) {
		return c.gen.Generate(ctx, prompt, opts)
	}
	var answer string
	if c.responses != nil {
		answer, _, err = c.responses.Memoize(ctx, generate, "llm", prompt, opts.Temperature)
	} else {
		answer, err = generate(ctx)
	}
	if err != nil {
		return Descriptor{}, err
	}
	d, err := Parse(answer, topic)
	if err != nil && c.responses != nil {
		// an unusable answer must not stick around for the cache TTL
		c.responses.Invalidate("llm", prompt, opts.Temperature)
	}
	return d, err
}
