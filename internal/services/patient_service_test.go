package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/display"
	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/session"
)

func newPatientSvc(t *testing.T, cls Classifier, gen llm.Generator) *PatientService {
	t.Helper()
	mem := &MemoryService{DB: newSvcDB(t), Results: cache.New[[]ScoredMemory](time.Minute)}
	seedCatalog(t, mem)
	return &PatientService{
		Memories:   mem,
		Classifier: cls,
		Narrator:   &Narrator{Gen: gen},
		Resolver:   display.NewResolver(""),
		Shown:      session.NewTracker(),
		Ledger:     session.NewLedger(),
	}
}

func ask(t *testing.T, s *PatientService, topic, mode string) *QueryResult {
	t.Helper()
	res, err := s.Query(context.Background(), QueryRequest{
		PatientID: "p1", Topic: topic, Transcription: "show me " + topic, DisplayMode: mode,
	})
	if err != nil {
		t.Fatalf("Query(%s,%q): %v", topic, mode, err)
	}
	return res
}

func TestPatientService_Query_PhotosThenLap(t *testing.T) {
	gen := &recordingGen{reply: "You loved the beach."}
	s := newPatientSvc(t, replay, gen)

	first := ask(t, s, "beach", "")
	if first.DisplayMode != display.ModeFourPic || len(first.Media) != 4 || first.Lapped {
		t.Fatalf("first query: %+v", first)
	}
	if first.Text == nil || *first.Text != "You loved the beach." {
		t.Fatalf("unexpected text %v", first.Text)
	}
	key := session.NewKey("p1", "beach")
	if got := s.Shown.Stats(key).Count; got != 4 {
		t.Fatalf("expected 4 shown, got %d", got)
	}

	second := ask(t, s, "beach", "")
	if !second.Lapped || second.DisplayMode != display.ModeFourPic || len(second.Media) != 4 {
		t.Fatalf("second query should lap: %+v", second)
	}
	if !sameSet(first.Media, second.Media) {
		t.Fatalf("lap should replay the same memories: %v vs %v", first.Media, second.Media)
	}

	st := s.Ledger.Stats(key)
	if st.TotalTurns != 4 || st.PatientTurns != 2 || st.AgentTurns != 2 {
		t.Fatalf("unexpected ledger stats %+v", st)
	}
	// the first narration is passed on as something not to repeat
	if p := gen.last(); !strings.Contains(p, "Do NOT repeat") || !strings.Contains(p, "You loved the beach.") {
		t.Fatalf("second prompt misses the avoid list:\n%s", p)
	}
}

func TestPatientService_Query_ExplicitModeThenRetier(t *testing.T) {
	s := newPatientSvc(t, replay, &recordingGen{reply: "ok"})

	first := ask(t, s, "beach", "3-PIC")
	if first.DisplayMode != display.ModeThreePic || len(first.Media) != 3 {
		t.Fatalf("explicit 3-pic: %+v", first)
	}

	// one unseen image left; the 4-pic request is re-tiered
	second := ask(t, s, "beach", "")
	if second.DisplayMode != display.ModeThreePic || len(second.Media) != 1 || second.Lapped {
		t.Fatalf("retier: %+v", second)
	}
	for _, id := range first.Media {
		if id == second.Media[0] {
			t.Fatalf("already shown media %s served again", id)
		}
	}

	third := ask(t, s, "beach", "")
	if !third.Lapped || third.DisplayMode != display.ModeFourPic {
		t.Fatalf("third query should lap: %+v", third)
	}
}

func TestPatientService_Query_VideosAlternate(t *testing.T) {
	s := newPatientSvc(t, replay, &recordingGen{reply: "ok"})

	first := ask(t, s, "lake", "")
	if first.DisplayMode != display.ModeVerticalVideo || first.Media[0] != "https://cdn/l2.mp4" {
		t.Fatalf("first: %+v", first)
	}
	second := ask(t, s, "lake", "")
	if second.DisplayMode != display.ModeVideo || second.Media[0] != "https://cdn/l1.mp4" {
		t.Fatalf("second: %+v", second)
	}
	third := ask(t, s, "lake", "")
	if !third.Lapped || third.DisplayMode != display.ModeVerticalVideo {
		t.Fatalf("third: %+v", third)
	}
}

func TestPatientService_Query_AgentMode(t *testing.T) {
	s := newPatientSvc(t, chat, &recordingGen{reply: "ok"})

	res := ask(t, s, "beach", "")
	if res.DisplayMode != display.ModeAgent {
		t.Fatalf("expected agent mode, got %s", res.DisplayMode)
	}
	if res.Text != nil {
		t.Fatalf("agent mode must not carry text, got %q", *res.Text)
	}
	if len(res.Media) != 1 || res.Media[0] != display.DefaultPlaceholder {
		t.Fatalf("expected placeholder media, got %v", res.Media)
	}
	key := session.NewKey("p1", "beach")
	if n := s.Shown.Stats(key).Count; n != 0 {
		t.Fatalf("agent mode must not mark content shown, got %d", n)
	}
	if st := s.Ledger.Stats(key); st.TotalTurns != 1 || st.PatientTurns != 1 {
		t.Fatalf("expected only the patient turn, got %+v", st)
	}

	// an explicit mode overrides the classified intent
	res = ask(t, s, "beach", "5-pic")
	if res.DisplayMode != display.ModeFourPic || res.Text == nil {
		t.Fatalf("explicit photo mode: %+v", res)
	}
}

func TestPatientService_Query_NarrationFallback(t *testing.T) {
	s := newPatientSvc(t, replay, &recordingGen{err: errors.New("quota")})
	res := ask(t, s, "beach", "")
	want := FallbackNarration("beach", s.Locale)
	if res.Text == nil || *res.Text != want {
		t.Fatalf("expected fallback narration, got %v", res.Text)
	}
}

func TestPatientService_Query_DefaultPatient(t *testing.T) {
	s := newPatientSvc(t, replay, &recordingGen{reply: "ok"})
	_, err := s.Query(context.Background(), QueryRequest{Topic: " beach ", Transcription: "hi"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if n := s.Ledger.Stats(session.NewKey(DefaultPatientID, "beach")).TotalTurns; n != 2 {
		t.Fatalf("expected turns under the default patient, got %d", n)
	}
}

func TestPatientService_Query_Errors(t *testing.T) {
	s := newPatientSvc(t, replay, &recordingGen{reply: "ok"})
	s.MaxUtteranceRunes = 20

	cases := []struct {
		name string
		req  QueryRequest
		want error
	}{
		{"empty topic", QueryRequest{Topic: "  ", Transcription: "hi"}, ErrEmptyTopic},
		{"empty utterance", QueryRequest{Topic: "beach", Transcription: " "}, ErrEmptyUtterance},
		{"too long", QueryRequest{Topic: "beach", Transcription: strings.Repeat("é", 21)}, ErrTooLong},
		{"bad mode", QueryRequest{Topic: "beach", Transcription: "hi", DisplayMode: "7-pic"}, ErrInvalidMode},
		{"no memories", QueryRequest{Topic: "zebra", Transcription: "hi"}, ErrNoMemories},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Query(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
	if s.Ledger.Len() != 0 {
		t.Fatalf("rejected queries must not touch the ledger")
	}
}
