// Package services – MemoryService
//
// MemoryService owns the memory catalog at runtime. It keeps an immutable
// search.Index over the catalogued memories, rebuilt whenever the catalog
// changes, and memoizes ranked results per (topic, patient) in an expiring
// cache so repeated queries about the same topic skip ranking entirely.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/display"
	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/repo"
	"github.com/tbourn/go-remind-backend/internal/search"
)

// DefaultSearchLimit caps how many memories a topic search returns.
const DefaultSearchLimit = 15

// ScoredMemory is a catalogued memory with its relevance to a query.
type ScoredMemory struct {
	domain.Memory
	Score float64 `json:"score"`
}

// ContentID identifies a memory for shown-content tracking.
func (m ScoredMemory) ContentID() string { return m.FileURL }

type catalog struct {
	index search.Index
	byID  map[string]domain.Memory
}

// MemoryService searches and maintains the memory catalog.
type MemoryService struct {
	DB *gorm.DB

	// Results memoizes search results keyed by ("memories", topic, patientID).
	// Nil disables memoization.
	Results *cache.Cache[[]ScoredMemory]

	// Limit caps results per search; <= 0 means DefaultSearchLimit.
	Limit int
	// MinScore drops weaker matches.
	MinScore float64

	cat atomic.Pointer[catalog]
}

// Reload rebuilds the search index from the database and drops memoized
// results. It returns the number of indexed memories.
func (s *MemoryService) Reload(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/MemoryService")
	ctx, span := tr.Start(ctx, "Reload")
	defer span.End()

	items, err := repo.ListMemories(ctx, s.DB)
	if err != nil {
		return 0, fmt.Errorf("list memories: %w", err)
	}
	docs := make([]search.Doc, 0, len(items))
	byID := make(map[string]domain.Memory, len(items))
	for _, m := range items {
		docs = append(docs, search.Doc{ID: m.ID, Text: m.SearchText()})
		byID[m.ID] = m
	}
	c := &catalog{index: search.New(docs, search.WithMinScore(s.MinScore)), byID: byID}
	s.cat.Store(c)
	if s.Results != nil {
		s.Results.InvalidateAll()
	}
	span.SetAttributes(attribute.Int("catalog.size", c.index.Len()))
	return c.index.Len(), nil
}

func (s *MemoryService) loaded(ctx context.Context) (*catalog, error) {
	if c := s.cat.Load(); c != nil {
		return c, nil
	}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s.cat.Load(), nil
}

// Search returns the memories ranked for topic. Results are memoized per
// patient, so cached reports whether ranking was skipped.
func (s *MemoryService) Search(ctx context.Context, topic, patientID string) (out []ScoredMemory, cached bool, err error) {
	tr := otel.Tracer("services/MemoryService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("patient.id", patientID),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("results", len(out)), attribute.Bool("cached", cached))
		span.End()
	}()

	rank := func(ctx context.Context) ([]ScoredMemory, error) {
		c, err := s.loaded(ctx)
		if err != nil {
			return nil, err
		}
		return c.rank(topic, s.limit()), nil
	}
	if s.Results == nil {
		out, err = rank(ctx)
		return out, false, err
	}
	return s.Results.Memoize(ctx, rank, "memories", topic, patientID)
}

func (s *MemoryService) limit() int {
	if s.Limit <= 0 {
		return DefaultSearchLimit
	}
	return s.Limit
}

func (c *catalog) rank(query string, k int) []ScoredMemory {
	hits := c.index.TopK(query, k)
	out := make([]ScoredMemory, 0, len(hits))
	for _, h := range hits {
		if m, ok := c.byID[h.ID]; ok {
			out = append(out, ScoredMemory{Memory: m, Score: h.Score})
		}
	}
	return out
}

// Import validates and upserts memories, then reloads the index. Records are
// matched on FileURL, so importing the same file twice updates it in place.
func (s *MemoryService) Import(ctx context.Context, items []domain.Memory) (int64, error) {
	tr := otel.Tracer("services/MemoryService")
	ctx, span := tr.Start(ctx, "Import", trace.WithAttributes(attribute.Int("items", len(items))))
	defer span.End()

	for i := range items {
		if err := normalizeMemory(&items[i]); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	n, err := repo.UpsertMemories(ctx, s.DB, items)
	if err != nil {
		return 0, err
	}
	if _, err := s.Reload(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func normalizeMemory(m *domain.Memory) error {
	m.EventName = strings.TrimSpace(m.EventName)
	m.FileURL = strings.TrimSpace(m.FileURL)
	m.FileType = strings.ToLower(strings.TrimSpace(m.FileType))
	m.Description = strings.TrimSpace(m.Description)
	switch {
	case m.FileURL == "":
		return fmt.Errorf("%w: file_url is required", ErrInvalidMemory)
	case m.EventName == "":
		return fmt.Errorf("%w: event_name is required", ErrInvalidMemory)
	case m.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidMemory)
	case m.FileType != domain.FileTypeImage && m.FileType != domain.FileTypeVideo:
		return fmt.Errorf("%w: file_type %q must be image or video", ErrInvalidMemory, m.FileType)
	}
	people := m.People[:0]
	for _, p := range m.People {
		if p = strings.TrimSpace(p); p != "" {
			people = append(people, p)
		}
	}
	m.People = people
	return nil
}

// Get returns one memory by id.
func (s *MemoryService) Get(ctx context.Context, id string) (*domain.Memory, error) {
	m, err := repo.GetMemory(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMemoryNotFound
	}
	return m, err
}

// Delete soft-deletes a memory and reloads the index.
func (s *MemoryService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/MemoryService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("memory.id", id)))
	defer span.End()

	if err := repo.DeleteMemory(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMemoryNotFound
		}
		return err
	}
	_, err := s.Reload(ctx)
	return err
}

// Stats summarizes the catalog.
func (s *MemoryService) Stats(ctx context.Context) (repo.CatalogStats, error) {
	return repo.MemoryStats(ctx, s.DB)
}

// Partition splits memories into a display inventory keyed by content id.
// Videos whose description mentions a vertical or portrait framing are
// vertical; all other videos are horizontal. Order is preserved.
func Partition(mems []ScoredMemory) display.Inventory {
	var inv display.Inventory
	for _, m := range mems {
		switch {
		case m.IsImage():
			inv.Images = append(inv.Images, m.ContentID())
		case m.IsVertical():
			inv.VerticalVideos = append(inv.VerticalVideos, m.ContentID())
		case m.IsVideo():
			inv.HorizontalVideos = append(inv.HorizontalVideos, m.ContentID())
		}
	}
	return inv
}

// FormatMemories renders memories as prompt context.
func FormatMemories(mems []ScoredMemory) string {
	if len(mems) == 0 {
		return "No memories found."
	}
	var b strings.Builder
	for i, m := range mems {
		people := "unknown"
		if len(m.People) > 0 {
			people = strings.Join(m.People, ", ")
		}
		fmt.Fprintf(&b, "\nMemory %d (Relevance: %.2f):\n", i+1, m.Score)
		fmt.Fprintf(&b, "Event: %s\n", m.EventName)
		fmt.Fprintf(&b, "File: %s (%s)\n", m.FileName, m.FileType)
		fmt.Fprintf(&b, "People: %s\n", people)
		fmt.Fprintf(&b, "Description: %s\n", m.Description)
		fmt.Fprintf(&b, "Event Summary: %s\n---\n", m.EventSummary)
	}
	return strings.TrimRight(b.String(), "\n")
}
