// Package handlers exposes the memory-serving services over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call a service
// through the narrow interfaces below, and translate results and errors
// into JSON responses.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/http/middleware"
	"github.com/tbourn/go-remind-backend/internal/repo"
	"github.com/tbourn/go-remind-backend/internal/services"
	"github.com/tbourn/go-remind-backend/internal/session"
)

//
// Service contracts
//

// PatientService answers patient queries.
type PatientService interface {
	Query(ctx context.Context, req services.QueryRequest) (*services.QueryResult, error)
}

// AgentService runs agent conversations and serves agent profiles.
type AgentService interface {
	Talk(ctx context.Context, req services.TalkRequest) (*services.TalkResult, error)
	Profile(ctx context.Context, name string) (*domain.AgentProfile, error)
	Agents(ctx context.Context) ([]domain.AgentProfile, error)
}

// SessionService inspects and resets session state.
type SessionService interface {
	Stats(ctx context.Context, patientID, topic string) (*services.SessionStats, error)
	History(ctx context.Context, patientID, topic string, maxTurns int) (*services.History, error)
	Export(ctx context.Context, patientID, topic string) ([]session.TurnRecord, error)
	Reset(ctx context.Context, patientID string, topic *string) (*services.ResetResult, error)
}

// CacheService administers the memoization caches.
type CacheService interface {
	Stats() services.CacheStats
	Clear(name string) ([]string, error)
}

// MemoryService maintains and searches the memory catalog.
type MemoryService interface {
	Import(ctx context.Context, items []domain.Memory) (int64, error)
	Search(ctx context.Context, topic, patientID string) ([]services.ScoredMemory, bool, error)
	Get(ctx context.Context, id string) (*domain.Memory, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (repo.CatalogStats, error)
}

// Handlers groups every endpoint of the API.
type Handlers struct {
	patients PatientService
	agents   AgentService
	sessions SessionService
	caches   CacheService
	memories MemoryService
}

// New binds handlers to their services.
func New(p PatientService, a AgentService, s SessionService, c CacheService, m MemoryService) *Handlers {
	return &Handlers{patients: p, agents: a, sessions: s, caches: c, memories: m}
}

// patientID picks the body value, then the identity resolved by middleware.
// An empty result lets the service apply its default.
func patientID(c *gin.Context, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	pid, _ := middleware.GetPatientID(c)
	return pid
}
