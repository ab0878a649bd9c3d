package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/cache"
	"github.com/tbourn/go-remind-backend/internal/config"
	"github.com/tbourn/go-remind-backend/internal/display"
	"github.com/tbourn/go-remind-backend/internal/intent"
	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/observability"
	"github.com/tbourn/go-remind-backend/internal/prompts"
	"github.com/tbourn/go-remind-backend/internal/repo"
	"github.com/tbourn/go-remind-backend/internal/services"
	"github.com/tbourn/go-remind-backend/internal/session"
)

// app is the assembled service graph shared by the commands.
type app struct {
	cfg config.Config
	db  *gorm.DB

	memCache *cache.Cache[[]services.ScoredMemory]
	llmCache *cache.Cache[string]
	shown    *session.Tracker
	ledger   *session.Ledger

	gen        llm.Generator
	classifier *intent.Classifier

	memories *services.MemoryService
	patients *services.PatientService
	agents   *services.AgentService
	sessions *services.SessionService
	caches   *services.CacheService
	janitor  *services.Janitor

	closeLLM func() error
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// newApp opens the catalog and builds every service. Missing model
// credentials are not fatal; narration and classification fall back.
func newApp(ctx context.Context, cfg config.Config) (a *app, err error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	built := &app{cfg: cfg, db: db}
	defer func() {
		if err != nil {
			built.Close()
		}
	}()
	a = built

	a.memCache = cache.New[[]services.ScoredMemory](cfg.CacheTTL,
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithObserver(observability.CacheObserver(services.CacheMemories)))
	a.llmCache = cache.New[string](cfg.CacheTTL,
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithObserver(observability.CacheObserver(services.CacheLLM)))

	sessOpts := []session.Option{
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithAgentLabel(cfg.AgentLabel),
	}
	a.shown = session.NewTracker(sessOpts...)
	a.ledger = session.NewLedger(sessOpts...)

	backends, err := llm.ParseBackends(cfg.LLM.Backends)
	if err != nil {
		return nil, fmt.Errorf("LLM_BACKENDS: %w", err)
	}
	chain, closeLLM, err := llm.Build(ctx, backends, llm.Credentials{
		GeminiAPIKey:    cfg.LLM.GeminiAPIKey,
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.LLM.OpenAIBaseURL,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
	})
	a.closeLLM = closeLLM
	if err != nil {
		return nil, err
	}
	if chain.Len() == 0 {
		log.Warn().Msg("no language model credentials configured, using fallback narration and intent")
	} else {
		log.Info().Strs("backends", chain.Names()).Msg("language models ready")
	}
	a.gen = chain

	ps := prompts.Default()
	if cfg.LLM.PromptsPath != "" {
		if ps, err = prompts.Load(cfg.LLM.PromptsPath); err != nil {
			return nil, fmt.Errorf("prompts: %w", err)
		}
	}

	a.classifier = intent.NewClassifier(a.gen, ps,
		intent.WithTimeout(cfg.LLM.Timeout),
		intent.WithResponseCache(a.llmCache),
		intent.WithFallbackHook(observability.IncClassifierFallback))

	a.memories = &services.MemoryService{
		DB:       db,
		Results:  a.memCache,
		Limit:    cfg.SearchLimit,
		MinScore: cfg.MinScore,
	}
	a.patients = &services.PatientService{
		Memories:   a.memories,
		Classifier: a.classifier,
		Narrator: &services.Narrator{
			Gen:     a.gen,
			Prompts: ps,
			Timeout: cfg.LLM.Timeout,
			Locale:  language.English,
		},
		Resolver:          display.NewResolver(cfg.PlaceholderURL),
		Shown:             a.shown,
		Ledger:            a.ledger,
		MaxUtteranceRunes: cfg.MaxUtterance,
		Locale:            language.English,
	}
	a.agents = &services.AgentService{
		DB:                db,
		Memories:          a.memories,
		Gen:               a.gen,
		Prompts:           ps,
		Ledger:            a.ledger,
		Timeout:           cfg.LLM.Timeout,
		MaxUtteranceRunes: cfg.MaxUtterance,
	}
	a.sessions = &services.SessionService{Shown: a.shown, Ledger: a.ledger}
	a.caches = &services.CacheService{Memories: a.memCache, LLM: a.llmCache}
	a.janitor = &services.Janitor{
		Caches:   a.caches,
		Shown:    a.shown,
		Ledger:   a.ledger,
		DB:       db,
		Interval: cfg.CacheSweepInterval,
	}
	return a, nil
}

func (a *app) Close() {
	if a.closeLLM != nil {
		if err := a.closeLLM(); err != nil {
			log.Warn().Err(err).Msg("close model clients")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
