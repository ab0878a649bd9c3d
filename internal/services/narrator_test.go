package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/llm"
)

func TestNarrator_UsesAtMostFiveMemories(t *testing.T) {
	gen := &recordingGen{reply: "narration"}
	n := &Narrator{Gen: gen}
	var mems []ScoredMemory
	for i := 0; i < 8; i++ {
		mems = append(mems, ScoredMemory{Memory: domain.Memory{EventName: fmt.Sprintf("e%d", i)}})
	}
	got := n.Narrate(context.Background(), NarrationRequest{Topic: "beach", Utterance: "hi", Memories: mems})
	if got != "narration" {
		t.Fatalf("unexpected narration %q", got)
	}
	if c := countOf(gen.last(), "Relevance:"); c != NarrationMemories {
		t.Fatalf("expected %d memories in prompt, got %d", NarrationMemories, c)
	}
}

func TestNarrator_Fallbacks(t *testing.T) {
	want := "Here are beautiful memories about Disney World. These moments capture special times that are worth treasuring forever."

	n := &Narrator{}
	if got := n.Narrate(context.Background(), NarrationRequest{Topic: "disney world"}); got != want {
		t.Fatalf("nil generator: %q", got)
	}

	n = &Narrator{Gen: &recordingGen{err: llm.ErrEmptyResponse}}
	if got := n.Narrate(context.Background(), NarrationRequest{Topic: "disney world"}); got != want {
		t.Fatalf("failing generator: %q", got)
	}
}

func TestNarrator_Timeout(t *testing.T) {
	slow := llm.GeneratorFunc(func(ctx context.Context, _ string, _ llm.Options) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	n := &Narrator{Gen: slow, Timeout: 10 * time.Millisecond}
	got := n.Narrate(context.Background(), NarrationRequest{Topic: "beach"})
	if got != FallbackNarration("beach", language.English) {
		t.Fatalf("expected fallback after timeout, got %q", got)
	}
}

func TestNothingNewNarration(t *testing.T) {
	got := NothingNewNarration("lake trip", language.Und)
	if got != "I don't have anything new to show you about Lake Trip right now." {
		t.Fatalf("got %q", got)
	}
}
