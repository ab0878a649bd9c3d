// Package services – AgentService
//
// AgentService lets a patient talk with a named persona. Each (patient,
// topic) pair has its own agent conversation, kept in the ledger under the
// topic "agent_<topic>" so it never mixes with narration history. Speech
// synthesis happens outside this service.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/prompts"
	"github.com/tbourn/go-remind-backend/internal/repo"
	"github.com/tbourn/go-remind-backend/internal/session"
)

// DefaultAgentTopic is used when a talk request names no topic.
const DefaultAgentTopic = "general"

// agentMemories bounds the memories shown to the agent prompt.
const agentMemories = 5

// AgentTopic is the ledger topic of the agent conversation about topic.
func AgentTopic(topic string) string { return "agent_" + topic }

// TalkRequest is one patient utterance addressed to an agent.
type TalkRequest struct {
	PatientID     string
	Topic         string
	AgentName     string
	Transcription string
}

// TalkResult is the agent's reply.
type TalkResult struct {
	AgentName   string `json:"agent_name"`
	Text        string `json:"text"`
	Personality string `json:"personality_note"`
}

// AgentService runs agent conversations.
type AgentService struct {
	DB       *gorm.DB
	Memories *MemoryService
	Gen      llm.Generator
	Prompts  *prompts.Set
	Ledger   *session.Ledger
	Timeout  time.Duration

	MaxUtteranceRunes int
}

// Profile returns the named agent, or the default agent for an empty name.
func (s *AgentService) Profile(ctx context.Context, name string) (*domain.AgentProfile, error) {
	if strings.TrimSpace(name) == "" {
		name = domain.DefaultAgentName
	}
	a, err := repo.GetAgentByName(ctx, s.DB, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAgentNotFound
	}
	return a, err
}

// Agents lists every agent profile.
func (s *AgentService) Agents(ctx context.Context) ([]domain.AgentProfile, error) {
	return repo.ListAgents(ctx, s.DB)
}

// Talk generates the agent's reply and records both turns.
func (s *AgentService) Talk(ctx context.Context, req TalkRequest) (*TalkResult, error) {
	tr := otel.Tracer("services/AgentService")
	ctx, span := tr.Start(ctx, "Talk",
		trace.WithAttributes(
			attribute.String("patient.id", req.PatientID),
			attribute.String("topic", req.Topic),
			attribute.String("agent.name", req.AgentName),
		),
	)
	defer span.End()

	if strings.TrimSpace(req.Topic) == "" {
		req.Topic = DefaultAgentTopic
	}
	patientID, topic, err := normalizeSubject(req.PatientID, req.Topic)
	if err != nil {
		return nil, err
	}
	utterance, err := checkUtterance(req.Transcription, s.MaxUtteranceRunes)
	if err != nil {
		return nil, err
	}
	agent, err := s.Profile(ctx, req.AgentName)
	if err != nil {
		return nil, err
	}

	var mems []ScoredMemory
	if s.Memories != nil {
		found, _, err := s.Memories.Search(ctx, topic, patientID)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("agent memory search failed, talking without memories")
		}
		mems = found
		if len(mems) > agentMemories {
			mems = mems[:agentMemories]
		}
	}

	key := session.NewKey(patientID, AgentTopic(topic))
	ps := s.Prompts
	if ps == nil {
		ps = prompts.Default()
	}
	prompt, opts, err := ps.Agent(prompts.AgentData{
		AgentName:    agent.Name,
		Description:  agent.Description,
		Personality:  agent.Personality,
		Knowledge:    formatKnowledge(agent.Knowledge),
		Topic:        topic,
		Utterance:    utterance,
		Memories:     FormatMemories(mems),
		HasMemories:  len(mems) > 0,
		History:      s.Ledger.Formatted(key, historyTurns),
		AvoidPhrases: s.Ledger.PreviousAgentMessages(key, historyTurns),
	})
	if err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if _, err := s.Ledger.Append(key, session.RolePatient, utterance); err != nil {
		return nil, err
	}
	if _, err := s.Ledger.Append(key, session.RoleAgent, text); err != nil {
		return nil, err
	}
	return &TalkResult{AgentName: agent.Name, Text: text, Personality: agent.Personality}, nil
}

func (s *AgentService) generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	if s.Gen == nil {
		return "", llm.ErrNoBackends
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Gen.Generate(ctx, prompt, opts)
}

// formatKnowledge renders the persona's facts one per line, sorted by key.
func formatKnowledge(k map[string]string) string {
	if len(k) == 0 {
		return ""
	}
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", key, k[key])
	}
	return strings.TrimRight(b.String(), "\n")
}
