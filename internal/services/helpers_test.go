package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/intent"
	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func img(event, url, desc string, people ...string) domain.Memory {
	return domain.Memory{EventName: event, FileType: "image", Description: desc, FileURL: url, People: people}
}

func vid(event, url, desc string) domain.Memory {
	return domain.Memory{EventName: event, FileType: "video", Description: desc, FileURL: url}
}

// seedCatalog imports four beach photos and two lake videos.
func seedCatalog(t *testing.T, s *MemoryService) {
	t.Helper()
	items := []domain.Memory{
		img("Beach day", "https://cdn/b1.jpg", "sand castle", "Avery"),
		img("Beach day", "https://cdn/b2.jpg", "ice cream"),
		img("Beach day", "https://cdn/b3.jpg", "sunset walk"),
		img("Beach day", "https://cdn/b4.jpg", "kite flying"),
		vid("Lake trip", "https://cdn/l1.mp4", "canoe ride, wide shot"),
		vid("Lake trip", "https://cdn/l2.mp4", "portrait clip of the dock"),
	}
	if _, err := s.Import(context.Background(), items); err != nil {
		t.Fatalf("seed import: %v", err)
	}
}

// fixedClassifier always returns the same descriptor.
type fixedClassifier intent.Descriptor

func (f fixedClassifier) Classify(context.Context, string, string) intent.Descriptor {
	return intent.Descriptor(f)
}

var replay = fixedClassifier(intent.Fallback("beach"))

var chat = fixedClassifier(intent.Descriptor{
	Type: intent.TypeConversation, Style: intent.StyleInteractive, Tone: "warm",
	RequestText: "talk to Avery", Confidence: 0.9,
})

// recordingGen answers with reply and remembers every prompt.
type recordingGen struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *recordingGen) Generate(_ context.Context, prompt string, _ llm.Options) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *recordingGen) last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	m := map[string]int{}
	for _, x := range a {
		m[x]++
	}
	for _, x := range b {
		m[x]--
	}
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}

func countOf(s, sub string) int { return strings.Count(s, sub) }
