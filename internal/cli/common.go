package cli

import (
	"context"
	"fmt"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/assistant"
	"github.com/carbonledger/carbonledger/internal/config"
	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/logging"
	"github.com/carbonledger/carbonledger/internal/match"
	"github.com/carbonledger/carbonledger/internal/persist"
)

// configKey carries the loaded config through the command context.
type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFromContext returns the config stored by the root command.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// buildEngine assembles the backend chain from configuration.
func buildEngine(cfg *config.Config, opts ...engine.Option) (*engine.Engine, error) {
	store := factors.Default()
	if cfg.Engine.DatasetPath != "" {
		loaded, err := factors.Load(cfg.Engine.DatasetPath)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		store = loaded
	}

	matchOpts := []match.Option{match.WithFloor(cfg.Engine.SimilarityFloor)}
	if cfg.Engine.PreferredSource != "" {
		matchOpts = append(matchOpts, match.WithPreferredSource(cfg.Engine.PreferredSource))
	}
	matcher := match.New(store, matchOpts...)

	client := assistant.New(assistant.Config{
		BaseURL: cfg.Assistant.BaseURL,
		APIKey:  cfg.Assistant.APIKey,
		Timeout: cfg.Assistant.Timeout,
	})

	normalizer := activity.NewNormalizer(activity.WithTextParser(client))
	chain := []engine.Backend{
		engine.NewVectorMatchBackend(matcher),
		engine.NewAssistantBackend(client),
		engine.NewDemoBackend(),
	}
	return engine.New(normalizer, chain, opts...), nil
}

// buildSink opens the configured persistence sink, falling back to discard
// when no database is configured.
func buildSink(ctx context.Context, cfg *config.Config) (persist.Sink, error) {
	if cfg.Database.DSN == "" {
		logging.FromContext(ctx).Debug().
			Str("component", "cli").
			Msg("no database configured, results will not be persisted")
		return persist.NewDiscard(), nil
	}
	return persist.OpenPostgres(ctx, cfg.Database.DSN)
}
