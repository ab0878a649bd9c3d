package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-remind-backend/internal/session"
)

// SessionStats combines shown-content and conversation statistics for one
// (patient, topic) session.
type SessionStats struct {
	PatientID    string              `json:"patient_id"`
	Topic        string              `json:"topic"`
	Shown        session.ShownStats  `json:"shown"`
	Conversation session.LedgerStats `json:"conversation"`
	Agent        session.LedgerStats `json:"agent_conversation"`
}

// History is a window of one conversation.
type History struct {
	PatientID string         `json:"patient_id"`
	Topic     string         `json:"topic"`
	Turns     []session.Turn `json:"turns"`
	Formatted string         `json:"formatted"`
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	PatientID     string `json:"patient_id"`
	Topic         string `json:"topic,omitempty"`
	ShownSessions int    `json:"shown_sessions"`
	Conversations int    `json:"conversations"`
}

// SessionService exposes session state for inspection and reset.
type SessionService struct {
	Shown  *session.Tracker
	Ledger *session.Ledger
}

func patientKey(patientID string) (string, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return "", ErrEmptyPatient
	}
	return patientID, nil
}

// Stats reports the session of (patientID, topic). Topic may be empty.
func (s *SessionService) Stats(ctx context.Context, patientID, topic string) (*SessionStats, error) {
	_, span := otel.Tracer("services/SessionService").Start(ctx, "Stats",
		trace.WithAttributes(attribute.String("patient.id", patientID), attribute.String("topic", topic)))
	defer span.End()

	pid, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	key := session.NewKey(pid, topic)
	return &SessionStats{
		PatientID:    pid,
		Topic:        topic,
		Shown:        s.Shown.Stats(key),
		Conversation: s.Ledger.Stats(key),
		Agent:        s.Ledger.Stats(session.NewKey(pid, AgentTopic(topic))),
	}, nil
}

// History returns the last maxTurns turns (all when maxTurns <= 0).
func (s *SessionService) History(ctx context.Context, patientID, topic string, maxTurns int) (*History, error) {
	_, span := otel.Tracer("services/SessionService").Start(ctx, "History",
		trace.WithAttributes(attribute.String("patient.id", patientID), attribute.Int("max_turns", maxTurns)))
	defer span.End()

	pid, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	turns := s.Ledger.Recent(session.NewKey(pid, topic), maxTurns)
	return &History{
		PatientID: pid,
		Topic:     topic,
		Turns:     turns,
		Formatted: s.Ledger.Format(turns),
	}, nil
}

// Export returns the full conversation in its portable form.
func (s *SessionService) Export(ctx context.Context, patientID, topic string) ([]session.TurnRecord, error) {
	_, span := otel.Tracer("services/SessionService").Start(ctx, "Export")
	defer span.End()

	pid, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Export(session.NewKey(pid, topic)), nil
}

// Reset clears shown content and conversations. A nil topic resets every
// topic of the patient; a non-nil topic (possibly "") resets that topic and
// its agent conversation.
func (s *SessionService) Reset(ctx context.Context, patientID string, topic *string) (*ResetResult, error) {
	_, span := otel.Tracer("services/SessionService").Start(ctx, "Reset",
		trace.WithAttributes(attribute.String("patient.id", patientID), attribute.Bool("all_topics", topic == nil)))
	defer span.End()

	pid, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	out := &ResetResult{PatientID: pid}
	if topic == nil {
		out.ShownSessions = s.Shown.ResetPatient(pid)
		out.Conversations = s.Ledger.ResetPatient(pid)
	} else {
		out.Topic = *topic
		key := session.NewKey(pid, *topic)
		agentKey := session.NewKey(pid, AgentTopic(*topic))
		if s.Shown.Stats(key).Count > 0 {
			out.ShownSessions = 1
		}
		for _, k := range []session.Key{key, agentKey} {
			if s.Ledger.Stats(k).TotalTurns > 0 {
				out.Conversations++
			}
			s.Ledger.Reset(k)
		}
		s.Shown.Reset(key)
	}
	log.Info().Str("patient_id", pid).Int("shown", out.ShownSessions).Int("conversations", out.Conversations).Msg("session reset")
	return out, nil
}
