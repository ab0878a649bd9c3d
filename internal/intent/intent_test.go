package intent

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/llm"
)

func answer(s string, calls *atomic.Int32) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
		calls.Add(1)
		return s, nil
	})
}

func TestFallback(t *testing.T) {
	assert.Equal(t, Descriptor{
		Type:        TypeMemoryReplay,
		Style:       StylePassive,
		Tone:        "curious",
		RequestText: "wants to learn about disney",
		Confidence:  0.5,
	}, Fallback("disney"))
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		in      string
		want    Descriptor
		wantErr bool
	}{
		"plain json": {
			in: `{"intent_type":"conversation","interaction_style":"interactive","emotional_tone":"seeking_connection","specific_request":"talk to Avery","confidence":0.92}`,
			want: Descriptor{Type: TypeConversation, Style: StyleInteractive, Tone: "seeking_connection",
				RequestText: "talk to Avery", Confidence: 0.92},
		},
		"fenced and clamped": {
			in: "```json\n{\"intent_type\":\"memory_replay\",\"interaction_style\":\"passive\",\"emotional_tone\":\"nostalgic\",\"specific_request\":\"see the beach\",\"confidence\":1.7}\n```",
			want: Descriptor{Type: TypeMemoryReplay, Style: StylePassive, Tone: "nostalgic",
				RequestText: "see the beach", Confidence: 1},
		},
		"gaps filled": {
			in: `{"intent_type":"Conversation","confidence":"0.4"}`,
			want: Descriptor{Type: TypeConversation, Style: StyleInteractive, Tone: "curious",
				RequestText: "wants to learn about beach", Confidence: 0.4},
		},
		"negative confidence": {
			in:   `{"intent_type":"memory_replay","interaction_style":"loud","confidence":-3}`,
			want: Descriptor{Type: TypeMemoryReplay, Style: StylePassive, Tone: "curious", RequestText: "wants to learn about beach", Confidence: 0},
		},
		"unknown type": {
			in:      `{"intent_type":"shopping"}`,
			wantErr: true,
		},
		"prose": {
			in:      "The patient wants to see photos.",
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(tc.in, "beach")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.0, Clamp(-0.1))
	assert.Equal(t, 1.0, Clamp(2))
	assert.Equal(t, 0.25, Clamp(0.25))
}

func TestClassify_UsesModelAnswer(t *testing.T) {
	var calls atomic.Int32
	c := NewClassifier(answer(`{"intent_type":"conversation","interaction_style":"interactive","emotional_tone":"curious","specific_request":"chat with mom","confidence":0.8}`, &calls), nil)

	got := c.Classify(context.Background(), "let me chat with mom", "trip")
	assert.Equal(t, TypeConversation, got.Type)
	assert.Equal(t, "chat with mom", got.RequestText)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_FallbackOnFailures(t *testing.T) {
	var fallbacks int
	hook := WithFallbackHook(func(error) { fallbacks++ })

	failing := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
		return "", errors.New("quota exceeded")
	})
	slow := llm.GeneratorFunc(func(ctx context.Context, _ string, _ llm.Options) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	var calls atomic.Int32

	cases := map[string]*Classifier{
		"error":     NewClassifier(failing, nil, hook),
		"timeout":   NewClassifier(slow, nil, hook, WithTimeout(20*time.Millisecond)),
		"non json":  NewClassifier(answer("I think they want photos", &calls), nil, hook),
		"no models": NewClassifier(nil, nil, hook),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Fallback("disney"), c.Classify(context.Background(), "show me disney", "disney"))
		})
	}
	assert.Equal(t, len(cases), fallbacks)
}

func TestClassify_MemoizesAnswers(t *testing.T) {
	var calls atomic.Int32
	rc := cache.New[string](time.Minute)
	c := NewClassifier(answer(`{"intent_type":"memory_replay","confidence":0.9}`, &calls), nil, WithResponseCache(rc))

	first := c.Classify(context.Background(), "show me the beach", "beach")
	second := c.Classify(context.Background(), "show me the beach", "beach")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, rc.Stats().Active)

	c.Classify(context.Background(), "show me the lake", "lake")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassify_UnusableAnswerIsNotCached(t *testing.T) {
	var calls atomic.Int32
	rc := cache.New[string](time.Minute)
	c := NewClassifier(answer("not json", &calls), nil, WithResponseCache(rc))

	c.Classify(context.Background(), "u", "t")
	c.Classify(context.Background(), "u", "t")

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, rc.Stats().Total)
}
