package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(out string, err error, calls *int) Generator {
	return GeneratorFunc(func(context.Context, string, Options) (string, error) {
		*calls++
		return out, err
	})
}

func TestParseBackends(t *testing.T) {
	got, err := ParseBackends(" gemini:gemini-2.5-flash, ,Anthropic:claude-3-5-haiku,gemini:gemini-2.5-flash,openai:gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, []Backend{
		{Provider: "gemini", Model: "gemini-2.5-flash"},
		{Provider: "claude", Model: "claude-3-5-haiku"},
		{Provider: "openai", Model: "gpt-4o-mini"},
	}, got)

	got, err = ParseBackends("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseBackends("gemini")
	assert.Error(t, err)

	_, err = ParseBackends("mistral:large")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	var a, b, c int
	chain := NewChain(
		Named{Name: "a", Generator: fixed("", errors.New("quota"), &a)},
		Named{Name: "b", Generator: fixed("  hello \n", nil, &b)},
		Named{Name: "c", Generator: fixed("never", nil, &c)},
	)

	out, err := chain.Generate(context.Background(), "p", Options{Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, []int{1, 1, 0}, []int{a, b, c})
}

func TestChain_EmptyAnswerFallsThrough(t *testing.T) {
	var a, b int
	chain := NewChain(
		Named{Name: "a", Generator: fixed("   ", nil, &a)},
		Named{Name: "b", Generator: fixed("ok", nil, &b)},
	)
	out, err := chain.Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestChain_AllFailReturnsLastError(t *testing.T) {
	var a, b int
	last := errors.New("overloaded")
	chain := NewChain(
		Named{Name: "a", Generator: fixed("", errors.New("quota"), &a)},
		Named{Name: "b", Generator: fixed("", last, &b)},
	)
	_, err := chain.Generate(context.Background(), "p", Options{})
	require.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "b: ")
}

func TestChain_NoBackends(t *testing.T) {
	chain := NewChain(Named{Name: "nil"})
	assert.Equal(t, 0, chain.Len())
	_, err := chain.Generate(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, ErrNoBackends)
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	var a int
	chain := NewChain(Named{Name: "a", Generator: fixed("x", nil, &a)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Generate(ctx, "p", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a)
}

func TestBuild_SkipsBackendsWithoutKeys(t *testing.T) {
	backends := []Backend{
		{Provider: ProviderGemini, Model: "gemini-2.5-flash"},
		{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
		{Provider: ProviderClaude, Model: "claude-3-5-haiku"},
	}
	chain, closeFn, err := Build(context.Background(), backends, Credentials{OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	assert.Equal(t, []string{"openai:gpt-4o-mini"}, chain.Names())
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"Sure:\n```\n{\"a\":1}\n```": `{"a":1}`,
		"  {\"a\":1}  ":              `{"a":1}`,
		"```json\n{\"a\":1}":         `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), in)
	}
}
