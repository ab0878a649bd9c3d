// Package services – PatientService
//
// PatientService answers a patient's spoken request about a topic. One query
// runs this pipeline:
//
//  1. Rank catalogued memories for the topic (memoized per patient).
//  2. Drop what this session already showed; when everything was shown the
//     session is reset and the full list is used again (a lap).
//  3. Classify the utterance and write a narration concurrently.
//  4. Resolve the display mode over the full inventory, or take the mode the
//     caller asked for, then adjust it to the unseen inventory.
//  5. Mark the chosen media as shown and record the conversation turns.
//
// Store locks are never held across the model calls in step 3.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/tbourn/go-remind-backend/internal/display"
	"github.com/tbourn/go-remind-backend/internal/intent"
	"github.com/tbourn/go-remind-backend/internal/observability"
	"github.com/tbourn/go-remind-backend/internal/session"
)

// DefaultPatientID is used when a request names no patient.
const DefaultPatientID = "default_patient"

// historyTurns bounds the history and do-not-repeat windows given to prompts.
const historyTurns = 5

// QueryRequest is one patient query.
type QueryRequest struct {
	PatientID     string
	Topic         string
	Transcription string
	// DisplayMode optionally overrides the classified mode.
	DisplayMode string
}

// QueryResult is what the patient is shown. Text is nil in agent mode.
type QueryResult struct {
	Topic       string            `json:"topic"`
	Text        *string           `json:"text"`
	DisplayMode display.Mode      `json:"displayMode"`
	Media       []string          `json:"media"`
	Lapped      bool              `json:"lapped"`
	Intent      intent.Descriptor `json:"intent"`
}

// Classifier is the part of intent.Classifier used here.
type Classifier interface {
	Classify(ctx context.Context, utterance, topic string) intent.Descriptor
}

// PatientService orchestrates patient queries.
type PatientService struct {
	Memories   *MemoryService
	Classifier Classifier
	Narrator   *Narrator
	Resolver   display.Resolver
	Shown      *session.Tracker
	Ledger     *session.Ledger

	// MaxUtteranceRunes rejects longer transcriptions; 0 disables the check.
	MaxUtteranceRunes int
	Locale            language.Tag
}

// normalizeSubject trims and defaults the (patient, topic) pair.
func normalizeSubject(patientID, topic string) (string, string, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		patientID = DefaultPatientID
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", "", ErrEmptyTopic
	}
	return patientID, topic, nil
}

func checkUtterance(u string, maxRunes int) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return "", ErrEmptyUtterance
	}
	if maxRunes > 0 && utf8.RuneCountInString(u) > maxRunes {
		return "", ErrTooLong
	}
	return u, nil
}

// Query answers one patient request.
func (s *PatientService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "Query",
		trace.WithAttributes(
			attribute.String("patient.id", req.PatientID),
			attribute.String("topic", req.Topic),
		),
	)
	defer span.End()

	patientID, topic, err := normalizeSubject(req.PatientID, req.Topic)
	if err != nil {
		return nil, err
	}
	utterance, err := checkUtterance(req.Transcription, s.MaxUtteranceRunes)
	if err != nil {
		return nil, err
	}
	var explicit display.Mode
	if m := strings.TrimSpace(req.DisplayMode); m != "" {
		var ok bool
		if explicit, ok = display.ParseMode(m); !ok {
			return nil, ErrInvalidMode
		}
	}

	mems, cached, err := s.Memories.Search(ctx, topic, patientID)
	if err != nil {
		return nil, err
	}
	if len(mems) == 0 {
		return nil, ErrNoMemories
	}

	key := session.NewKey(patientID, topic)
	unseen, lapped := session.Unseen(s.Shown, key, mems, ScoredMemory.ContentID)
	if lapped {
		observability.IncLapReset()
		log.Info().Str("patient_id", patientID).Str("topic", topic).Msg("all memories shown, starting a new lap")
	}

	narration := NarrationRequest{
		Topic:     topic,
		Utterance: utterance,
		Memories:  unseen,
		History:   s.Ledger.Formatted(key, historyTurns),
		Avoid:     s.Ledger.PreviousAgentMessages(key, historyTurns),
	}

	var (
		desc intent.Descriptor
		text string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		desc = s.Classifier.Classify(gctx, utterance, topic)
		return nil
	})
	g.Go(func() error {
		text = s.Narrator.Narrate(gctx, narration)
		return nil
	})
	_ = g.Wait() // both branches swallow their failures

	requested := explicit
	if requested == "" {
		requested = s.Resolver.Resolve(desc, Partition(mems)).Mode
	}
	res := s.Resolver.Adjust(requested, Partition(unseen))

	out := &QueryResult{
		Topic:       topic,
		DisplayMode: res.Mode,
		Media:       res.Media,
		Lapped:      lapped,
		Intent:      desc,
	}
	if res.Mode != display.ModeAgent {
		if len(res.Media) == 0 {
			text = NothingNewNarration(topic, s.Locale)
		}
		s.Shown.MarkShown(key, res.Media...)
		out.Text = &text
	}

	if _, err := s.Ledger.Append(key, session.RolePatient, utterance); err != nil {
		return nil, err
	}
	if out.Text != nil {
		if _, err := s.Ledger.Append(key, session.RoleAgent, text); err != nil {
			return nil, err
		}
	}

	observability.ObserveDisplayMode(res.Mode.String())
	span.SetAttributes(
		attribute.String("display.requested", requested.String()),
		attribute.String("display.mode", res.Mode.String()),
		attribute.Int("media", len(res.Media)),
		attribute.Bool("lapped", lapped),
		attribute.Bool("memories.cached", cached),
	)
	return out, nil
}
