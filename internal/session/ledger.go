package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the author of a conversation turn.
type Role string

const (
	RolePatient Role = "patient"
	RoleAgent   Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RolePatient || r == RoleAgent }

const (
	// NoHistory is what Formatted renders for an empty conversation.
	NoHistory = "No previous conversation."

	// DefaultAgentLabel prefixes agent turns in Formatted output.
	DefaultAgentLabel = "You (Agent)"

	patientLabel = "Patient"
)

// ErrInvalidRole is returned by Append for roles other than patient/agent.
var ErrInvalidRole = errors.New("invalid role")

// Turn is one appended message. Turns are never modified.
type Turn struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	Topic     string    `json:"topic"`
}

// TurnRecord is the export shape of a Turn.
type TurnRecord struct {
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Topic     string `json:"topic"`
}

// LedgerStats summarizes one conversation.
type LedgerStats struct {
	TotalTurns      int        `json:"total_turns"`
	PatientTurns    int        `json:"patient_turns"`
	AgentTurns      int        `json:"agent_turns"`
	FirstTurn       *time.Time `json:"first_turn"`
	LastTurn        *time.Time `json:"last_turn"`
	DurationMinutes float64    `json:"duration_minutes"`
}

// Ledger stores the ordered conversation of each session.
// It is safe for concurrent use.
type Ledger struct {
	st         *store[[]Turn]
	agentLabel string

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewLedger returns an empty Ledger.
func NewLedger(opts ...Option) *Ledger {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Ledger{
		st:         newStore[[]Turn](o),
		agentLabel: o.agentLabel,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

func (l *Ledger) newID(at time.Time) string {
	l.idMu.Lock()
	defer l.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), l.entropy).String()
}

// Append records a turn for key and returns it.
func (l *Ledger) Append(key Key, role Role, message string) (Turn, error) {
	if !role.Valid() {
		return Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	now := l.st.now()
	turn := Turn{
		ID:        l.newID(now),
		Timestamp: now,
		Role:      role,
		Message:   message,
		Topic:     key.Topic,
	}
	l.st.update(key, func() []Turn { return nil }, func(turns []Turn) []Turn {
		return append(turns, turn)
	})
	return turn, nil
}

// Recent returns the last maxTurns turns in chronological order, or the
// whole history when maxTurns <= 0. The result is a copy.
func (l *Ledger) Recent(key Key, maxTurns int) []Turn {
	var out []Turn
	l.st.view(key, func(turns []Turn, _ time.Time) {
		start := 0
		if maxTurns > 0 && len(turns) > maxTurns {
			start = len(turns) - maxTurns
		}
		out = make([]Turn, len(turns)-start)
		copy(out, turns[start:])
	})
	if out == nil {
		out = []Turn{}
	}
	return out
}

// Formatted renders the recent turns as "Label: message" lines.
func (l *Ledger) Formatted(key Key, maxTurns int) string {
	return l.Format(l.Recent(key, maxTurns))
}

// Format renders turns already read from the ledger the way Formatted does,
// with this ledger's agent label. No turns yield NoHistory.
func (l *Ledger) Format(turns []Turn) string {
	if len(turns) == 0 {
		return NoHistory
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := patientLabel
		if t.Role == RoleAgent {
			label = l.agentLabel
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Message)
	}
	return b.String()
}

// PreviousAgentMessages returns up to maxTurns agent messages taken from the
// last 2*maxTurns turns, oldest first. maxTurns <= 0 returns all of them.
func (l *Ledger) PreviousAgentMessages(key Key, maxTurns int) []string {
	window := 0
	if maxTurns > 0 {
		window = 2 * maxTurns
	}
	out := []string{}
	for _, t := range l.Recent(key, window) {
		if t.Role == RoleAgent {
			out = append(out, t.Message)
		}
	}
	if maxTurns > 0 && len(out) > maxTurns {
		out = out[len(out)-maxTurns:]
	}
	return out
}

// Stats counts turns by role and measures the conversation span.
func (l *Ledger) Stats(key Key) LedgerStats {
	turns := l.Recent(key, 0)
	st := LedgerStats{TotalTurns: len(turns)}
	if len(turns) == 0 {
		return st
	}
	for _, t := range turns {
		switch t.Role {
		case RolePatient:
			st.PatientTurns++
		case RoleAgent:
			st.AgentTurns++
		}
	}
	first, last := turns[0].Timestamp, turns[len(turns)-1].Timestamp
	st.FirstTurn, st.LastTurn = &first, &last
	st.DurationMinutes = math.Round(last.Sub(first).Minutes()*10) / 10
	return st
}

// Export returns every turn of key as records, in append order.
func (l *Ledger) Export(key Key) []TurnRecord {
	turns := l.Recent(key, 0)
	out := make([]TurnRecord, len(turns))
	for i, t := range turns {
		out[i] = TurnRecord{
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
			Role:      string(t.Role),
			Message:   t.Message,
			Topic:     t.Topic,
		}
	}
	return out
}

// Reset drops the conversation for key.
func (l *Ledger) Reset(key Key) { l.st.remove(key) }

// ResetPatient drops every conversation of patientID and returns how many
// were removed.
func (l *Ledger) ResetPatient(patientID string) int {
	return l.st.removePatient(patientID)
}

// Sweep removes idle conversations and returns how many were dropped.
func (l *Ledger) Sweep() int { return l.st.sweep(l.st.now()) }

// Len returns the number of stored conversations.
func (l *Ledger) Len() int { return l.st.len() }
