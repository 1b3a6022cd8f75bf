package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai/gemini"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/logger"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/secrets"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/store"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/vectorindex"
)

// appContext bundles everything a command needs after wiring.
type appContext struct {
	config    *Config
	logger    *zap.Logger
	store     *store.Store
	matcher   *core.Matcher
	generator *gemini.Generator
}

// newStoreContext builds the logger and opens storage, without touching the
// AI provider. Enough for repository-only commands. The caller must Close
// the result.
func newStoreContext() (*appContext, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	st, err := store.Open(filepath.Join(config.DataDir, "matching.db"))
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	return &appContext{config: config, logger: log, store: st}, nil
}

// newAppContext builds on newStoreContext and wires the provider and the
// matcher. The caller must Close the result.
func newAppContext(ctx context.Context) (*appContext, error) {
	a, err := newStoreContext()
	if err != nil {
		return nil, err
	}
	config, log, st := a.config, a.logger, a.store

	grader, err := buildGrader(config)
	if err != nil {
		st.Close()
		return nil, err
	}

	generator, err := buildGenerator(ctx, config, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	matcher, err := core.NewMatcher(&core.MatcherDeps{
		Docs:       st.Documents(),
		Matches:    st.Matches(),
		Jobs:       vectorindex.Open(filepath.Join(config.DataDir, "jobs.index")),
		Engineers:  vectorindex.Open(filepath.Join(config.DataDir, "engineers.index")),
		Embedder:   gemini.NewEmbedder(generator),
		Grader:     grader,
		Logger:     log,
		OnProgress: progressLogger(log),
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building matcher: %w", err)
	}

	return &appContext{
		config:    config,
		logger:    log,
		store:     st,
		matcher:   matcher,
		generator: generator,
	}, nil
}

func (a *appContext) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func buildGrader(config *Config) (*core.Grader, error) {
	if len(config.Grading) == 0 {
		return core.MustDefaultGrader(), nil
	}
	grader, err := core.NewGrader(config.Grading)
	if err != nil {
		return nil, fmt.Errorf("invalid grading table: %w", err)
	}
	return grader, nil
}

func buildGenerator(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	cfg := config.AI.Gemini

	keyFile := strings.TrimSpace(cfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load("gemini api key", cfg.APIKey, keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithProvider(log, "gemini", cfg.Model)

	return gemini.NewGenerator(ctx, gemini.Config{
		APIKey:         apiKey,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
	}, genLogger)
}

// progressLogger surfaces pipeline events at debug level.
func progressLogger(log *zap.Logger) core.ProgressFunc {
	return func(ev core.Event) {
		fields := []zap.Field{
			zap.String("batch_id", ev.BatchID),
		}
		if ev.DocumentID != 0 {
			fields = append(fields, zap.Int64("document_id", ev.DocumentID))
		}
		if ev.JobID != 0 {
			fields = append(fields, zap.Int64("job_id", ev.JobID), zap.Int64("engineer_id", ev.EngineerID))
		}
		if ev.Kind == core.EventMatched {
			fields = append(fields, zap.Float64("score", ev.Score), zap.String("grade", string(ev.Grade)))
		}
		if ev.Reason != "" {
			fields = append(fields, zap.String("reason", ev.Reason))
		}
		log.Debug(string(ev.Kind), fields...)
	}
}
