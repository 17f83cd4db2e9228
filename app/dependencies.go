package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/config"
	"github.com/agent-platform/llm-gateway/services/gateway"
	"github.com/agent-platform/llm-gateway/services/observability"
	"github.com/agent-platform/llm-gateway/services/providers"
	"github.com/agent-platform/llm-gateway/services/providers/openai"
	"github.com/agent-platform/llm-gateway/services/routing"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sql.DB // nil when call-record persistence is not configured
	Logger *zap.Logger

	// Domain
	Registry *providers.Registry
	Resolver *routing.Resolver
	Gateway  *gateway.Gateway
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	sink, err := deps.initObservability(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	deps.Resolver = routing.NewResolver(buildRoutePolicy(cfg))
	deps.Gateway = gateway.New(deps.Registry, deps.Resolver, buildGatewayOptions(cfg), sink, logger)

	logger.Info("all dependencies initialized",
		zap.Strings("providers", deps.Registry.Names()),
		zap.String("primary", cfg.Routing.PrimaryProvider),
		zap.Bool("call_records", deps.DB != nil))
	return deps, nil
}

// initProviders builds the registry from every enabled provider block.
// Credentials are checked lazily on first call, never here; a provider with
// a bad key fails its attempts, not process startup.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	var list []providers.Provider
	for _, pc := range []config.ProviderConfig{cfg.Providers.DeepSeek, cfg.Providers.OpenAI, cfg.Providers.Local} {
		if !pc.Enabled {
			continue
		}
		list = append(list, openai.New(providers.Config{
			Name:           pc.Name,
			BaseURL:        pc.BaseURL,
			APIKey:         pc.APIKey,
			Model:          pc.Model,
			Enabled:        pc.Enabled,
			DefaultTimeout: pc.DefaultTimeout,
		}))
		d.Logger.Info("registered provider",
			zap.String("provider", pc.Name),
			zap.String("model", pc.Model))
	}

	registry, err := providers.NewRegistry(list...)
	if err != nil {
		return err
	}
	if registry.Count() == 0 {
		d.Logger.Warn("no providers configured, generation requests will fail")
	}

	d.Registry = registry
	return nil
}

// initObservability wires the log sink, plus the Postgres sink when a
// database is configured
func (d *Dependencies) initObservability(ctx context.Context, cfg *config.Config) (observability.Sink, error) {
	logSink := observability.NewLogSink(d.Logger)
	if cfg.DatabaseURL == "" {
		return logSink, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	pgSink := observability.NewPostgresSink(db, d.Logger)
	if err := pgSink.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	d.DB = db
	d.Logger.Info("call-record persistence enabled")
	return observability.MultiSink{logSink, pgSink}, nil
}

// buildRoutePolicy translates the configuration into the static route table.
// Every purpose falls back to the primary cloud provider; purposes listed in
// LLM_LOCAL_PURPOSES try the local provider first when it is enabled.
func buildRoutePolicy(cfg *config.Config) routing.Policy {
	primary := cfg.Routing.PrimaryProvider

	policy := routing.Policy{
		Routes:       map[string][]string{},
		DefaultRoute: []string{primary},
	}

	if cfg.Providers.Local.Enabled {
		for _, purpose := range cfg.Routing.LocalPurposes {
			policy.Routes[purpose] = []string{cfg.Providers.Local.Name, primary}
		}
	}

	return policy
}

// buildGatewayOptions translates the configuration into attempt-timeout defaults
func buildGatewayOptions(cfg *config.Config) gateway.Options {
	opts := gateway.Options{
		PurposeTimeouts:  map[gateway.Purpose]time.Duration{},
		ProviderTimeouts: map[string]time.Duration{},
	}

	if t := cfg.Routing.CloudFieldsOnlyTimeout; t > 0 {
		opts.PurposeTimeouts[gateway.PurposeProposeFieldsOnly] = t
	}
	if t := cfg.Providers.Local.DefaultTimeout; t > 0 {
		opts.ProviderTimeouts[cfg.Providers.Local.Name] = t
	}

	return opts
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
