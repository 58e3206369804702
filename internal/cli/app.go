package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/config"
	"github.com/innovaplus/innova/internal/db"
	"github.com/innovaplus/innova/internal/intent"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/modify"
	"github.com/innovaplus/innova/internal/prompt"
	"github.com/innovaplus/innova/internal/render"
	"github.com/innovaplus/innova/internal/turn"
)

// app is the wired runtime shared by the commands.
type app struct {
	cfgPath  string
	holder   *config.Holder
	database *db.DB
	store    *memory.Store
	recaller *memory.Recaller
	// engine is nil unless the app was opened with withEngine.
	engine *turn.Engine
}

type appOptions struct {
	withEngine bool
	onProgress func(capability.Progress)
}

// configPath resolves --config or the default location.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file, applying defaults for anything missing.
func loadConfig() (config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	if flagVerbose {
		cfg.Output.Verbose = true
	}
	return cfg, path, nil
}

// openApp loads the config, opens the database and, when asked, wires the
// full turn pipeline.
func openApp(opts appOptions) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := memory.NewStore(database.KV(), logger)
	recaller := memory.NewRecaller(store, memory.NewVectorIndex(database), buildEmbedder(cfg), logger)
	a := &app{
		cfgPath:  path,
		holder:   config.NewHolder(cfg),
		database: database,
		store:    store,
		recaller: recaller,
	}
	if !opts.withEngine {
		return a, nil
	}

	engine, err := a.buildEngine(cfg, opts.onProgress)
	if err != nil {
		database.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func (a *app) buildEngine(cfg config.Config, onProgress func(capability.Progress)) (*turn.Engine, error) {
	llm, err := adapter.New(adapter.Options{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey(),
		Model:      cfg.CompletionModel(),
		EmbedModel: cfg.Ollama.EmbedModel,
		OllamaHost: cfg.Ollama.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("init LLM adapter: %w", err)
	}
	llm = adapter.WithRateLimit(llm, cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)

	images, err := adapter.NewImageGenerator(cfg.Image.Provider, cfg.Keys.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("init image generator: %w", err)
	}

	holder := a.holder
	enabled := func(c memory.Capability) bool { return holder.Get().Capabilities.Enabled(c) }

	handlers := capability.NewHandlers(llm, images, capability.Options{
		Language:    cfg.Language,
		AspectRatio: cfg.Image.AspectRatio,
		Logger:      logger,
	})
	dispatcher := capability.NewDispatcher(handlers, a.store, capability.DispatcherOptions{
		BatchSize:  cfg.Limits.BatchSize,
		Enabled:    enabled,
		Indexer:    a.recaller,
		OnProgress: onProgress,
		Logger:     logger,
	})

	return turn.NewEngine(turn.Deps{
		LLM:      llm,
		Store:    a.store,
		Analyzer: intent.NewAnalyzer(llm, logger),
		Detector: modify.NewDetector(llm, logger),
		Fulfiller: modify.NewFulfiller(llm, handlers, a.store, modify.Options{
			Language: cfg.Language,
			Indexer:  a.recaller,
			Logger:   logger,
		}),
		Dispatcher: dispatcher,
		Builder:    prompt.NewBuilder(nil, prompt.NewCounter()),
		Live:       turn.ClockLive{Language: cfg.Language},
		Resetter:   a.recaller,
	}, turn.Options{
		Language:        cfg.Language,
		LanguageFunc:    func() string { return holder.Get().Language },
		Enabled:         enabled,
		MaxTokens:       cfg.Prompt.MaxTokens,
		HistoryMessages: cfg.Prompt.HistoryMessages,
		Logger:          logger,
	}), nil
}

// watchConfig reloads the config on file changes until ctx is done.
// Capability toggles and the reply language take effect on the next turn.
func (a *app) watchConfig(ctx context.Context) {
	go func() {
		if err := config.Watch(ctx, a.cfgPath, a.holder, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("config watch unavailable", zap.Error(err))
		}
	}()
}

func (a *app) renderer() *render.Renderer {
	out := a.holder.Get().Output
	return render.New(render.Options{
		Color:    out.Color && stdoutIsTerminal(),
		Markdown: out.Markdown,
	})
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close database:", err)
	}
}

// buildEmbedder creates the content-recall embedder (nil when unavailable).
func buildEmbedder(cfg config.Config) adapter.Embedder {
	if cfg.Embedder == "" {
		return nil
	}
	emb, err := adapter.New(adapter.Options{
		Provider:   cfg.Embedder,
		APIKey:     apiKey(cfg, cfg.Embedder),
		EmbedModel: cfg.Ollama.EmbedModel,
		OllamaHost: cfg.Ollama.Host,
	})
	if err != nil {
		logger.Debug("embedder unavailable", zap.String("embedder", cfg.Embedder), zap.Error(err))
		return nil
	}
	return emb
}

// apiKey returns the correct API key from the config for the given provider.
func apiKey(cfg config.Config, provider string) string {
	switch provider {
	case adapter.ProviderClaude:
		return cfg.Keys.Anthropic
	case adapter.ProviderOpenAI:
		return cfg.Keys.OpenAI
	case adapter.ProviderGemini:
		return cfg.Keys.Gemini
	default:
		return ""
	}
}
