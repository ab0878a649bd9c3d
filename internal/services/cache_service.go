package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/observability"
	"github.com/tbourn/go-remind-backend/internal/repo"
	"github.com/tbourn/go-remind-backend/internal/session"
)

// Cache names accepted by CacheService.Clear.
const (
	CacheMemories = "memories"
	CacheLLM      = "llm"
)

// CacheStats reports both caches. TTLMinutes is the memories cache TTL.
type CacheStats struct {
	Memories   cache.Stats `json:"memory_cache"`
	LLM        cache.Stats `json:"llm_cache"`
	TTLMinutes float64     `json:"ttl_minutes"`
}

// CacheService administers the memoization caches.
type CacheService struct {
	Memories *cache.Cache[[]ScoredMemory]
	LLM      *cache.Cache[string]
}

// Stats reports entry counts of both caches.
func (s *CacheService) Stats() CacheStats {
	return CacheStats{
		Memories:   s.Memories.Stats(),
		LLM:        s.LLM.Stats(),
		TTLMinutes: s.Memories.TTL().Minutes(),
	}
}

// Clear drops the named cache, or both when name is empty. It returns the
// names it cleared.
func (s *CacheService) Clear(name string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CacheMemories:
		s.Memories.InvalidateAll()
		return []string{CacheMemories}, nil
	case CacheLLM:
		s.LLM.InvalidateAll()
		return []string{CacheLLM}, nil
	case "":
		s.Memories.InvalidateAll()
		s.LLM.InvalidateAll()
		return []string{CacheMemories, CacheLLM}, nil
	}
	return nil, ErrInvalidCache
}

// Janitor periodically removes stale cache entries, idle sessions and
// expired idempotency records.
type Janitor struct {
	Caches   *CacheService
	Shown    *session.Tracker
	Ledger   *session.Ledger
	DB       *gorm.DB
	Interval time.Duration
}

// Sweep runs one pass and reports evictions per store.
func (j *Janitor) Sweep(ctx context.Context) map[string]int {
	n := map[string]int{
		"memories_cache": j.Caches.Memories.Sweep(),
		"llm_cache":      j.Caches.LLM.Sweep(),
		"shown":          j.Shown.Sweep(),
		"ledger":         j.Ledger.Sweep(),
	}
	if j.DB != nil {
		purged, err := repo.PurgeIdempotency(ctx, j.DB, time.Now().UTC())
		if err != nil {
			log.Warn().Err(err).Msg("purge idempotency records")
		}
		n["idempotency"] = int(purged)
	}
	for store, c := range n {
		observability.ObserveEvictions(store, c)
	}
	return n
}

// Run sweeps every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.Interval <= 0 {
		return
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := j.Sweep(ctx)
			log.Debug().Interface("evicted", n).Msg("janitor sweep")
		}
	}
}
