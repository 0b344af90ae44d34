package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/evanmcb/autoreview/internal/adapter/cli"
	"github.com/evanmcb/autoreview/internal/adapter/diff"
	"github.com/evanmcb/autoreview/internal/adapter/git"
	"github.com/evanmcb/autoreview/internal/adapter/llm"
	"github.com/evanmcb/autoreview/internal/adapter/llm/anthropic"
	"github.com/evanmcb/autoreview/internal/adapter/llm/fallback"
	llmhttp "github.com/evanmcb/autoreview/internal/adapter/llm/http"
	openaiprovider "github.com/evanmcb/autoreview/internal/adapter/llm/openai"
	"github.com/evanmcb/autoreview/internal/adapter/llm/static"
	"github.com/evanmcb/autoreview/internal/adapter/store/sqlite"
	"github.com/evanmcb/autoreview/internal/cache"
	"github.com/evanmcb/autoreview/internal/config"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/observability"
	"github.com/evanmcb/autoreview/internal/resilience"
	"github.com/evanmcb/autoreview/internal/tool"
	"github.com/evanmcb/autoreview/internal/tool/builtin"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	"github.com/evanmcb/autoreview/internal/version"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return
		}
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "arv",
		EnvPrefix:   "ARV",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	logger := observability.NewDefaultLogger(
		observability.ParseLogLevel(cfg.Observability.Logging.Level),
		observability.ResolveLogFormat(cfg.Observability.Logging.Format),
	)
	logProviderConfiguration(ctx, logger, cfg)
	var metrics observability.Metrics = observability.NopMetrics{}
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewDefaultMetrics()
	}

	breakers := resilience.NewBreakerSet(cfg.BreakerSettings(), func(dep string, from, to resilience.State) {
		metrics.RecordBreakerTransition(dep, from.String(), to.String())
		logger.LogWarning(ctx, "circuit breaker state change", map[string]interface{}{
			"dependency": dep,
			"from":       from.String(),
			"to":         to.String(),
		})
	})

	resultCache := cache.New(cfg.CacheTTL())
	runner := tool.NewRunner(cfg.RunnerSettings(), resultCache, logger, metrics)

	registry := tool.NewRegistry(cfg.RegistryOptions())
	if err := registerBuiltinTools(registry, cfg, breakers); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	var store review.Store
	var history cli.History
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
		s, err := sqlite.NewStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
		history = s
	}

	orchestrator := review.NewOrchestrator(review.Deps{
		Registry:  registry,
		Runner:    runner,
		Provider:  provider,
		Breakers:  breakers,
		Retry:     cfg.RetrySettings(),
		Retryable: llmhttp.ShouldRetry,
		PromptBuilder: review.NewPromptBuilder(review.PromptOptions{
			MaxFindings:     cfg.Review.MaxFindings,
			MaxPromptTokens: cfg.Review.MaxPromptTokens,
			EstimateTokens:  llm.EstimateTokens,
		}),
		Logger:  logger,
		Metrics: metrics,
		Store:   store,
		Timeout: cfg.ReviewTimeout(),
	})

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer:      &refReviewer{engine: git.NewEngine(repoDir), orchestrator: orchestrator},
		Tools:         registry.All,
		History:       history,
		DefaultOutput: cfg.Output.Directory,
		DefaultFormat: cfg.Output.Format,
		Version:       version.Value(),
	})
	return root.ExecuteContext(ctx)
}

// refReviewer glues the git engine and the orchestrator behind the
// CLI's Reviewer port.
type refReviewer struct {
	engine       *git.Engine
	orchestrator *review.Orchestrator
}

func (r *refReviewer) ReviewRefs(ctx context.Context, baseRef, targetRef string) (*domain.ReviewResult, error) {
	rctx, err := r.engine.Context(ctx, baseRef, targetRef)
	if err != nil {
		return nil, err
	}
	result, err := r.orchestrator.Review(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *refReviewer) ReviewDiff(ctx context.Context, baseRef, targetRef, raw string) (*domain.ReviewResult, error) {
	rctx, err := diff.NewContext(r.engine.RepositoryName(), baseRef, targetRef, raw)
	if err != nil {
		return nil, err
	}
	result, err := r.orchestrator.Review(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *refReviewer) CurrentBranch(ctx context.Context) (string, error) {
	return r.engine.CurrentBranch(ctx)
}

func registerBuiltinTools(registry *tool.Registry, cfg config.Config, breakers *resilience.BreakerSet) error {
	descriptors := []tool.Descriptor{
		builtin.SecretScan(),
		builtin.TodoTracker(),
		builtin.LongAddition(),
		builtin.GoPrintDebug(),
	}

	if cfg.Tools.DocsLinkCheck {
		client := &http.Client{Timeout: 10 * time.Second}
		lookup := func(ctx context.Context, url string) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			if resp.StatusCode >= 400 {
				return llmhttp.FromStatusCode("docs", resp.StatusCode, "")
			}
			return nil
		}
		descriptors = append(descriptors, builtin.DocsLink(
			lookup,
			breakers.Get("docs-link"),
			cfg.RetrySettings(),
			llmhttp.ShouldRetry,
		))
	}

	for _, d := range descriptors {
		if err := registry.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// logProviderConfiguration records the enabled providers at startup.
// Key material is reduced to its last 4 characters unless redaction is
// explicitly switched off.
func logProviderConfiguration(ctx context.Context, logger observability.Logger, cfg config.Config) {
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		fields := map[string]interface{}{
			"provider": name,
			"model":    pc.Model,
		}
		if pc.BaseURL != "" {
			fields["baseURL"] = pc.BaseURL
		}
		if pc.APIKey != "" {
			key := pc.APIKey
			if cfg.Observability.Logging.RedactAPIKeys {
				key = observability.RedactAPIKey(key)
			}
			fields["apiKey"] = key
		}
		logger.LogInfo(ctx, "provider configured", fields)
	}
}

// buildProvider assembles the provider chain: every enabled provider
// in a fixed preference order, chained so secondaries cover a primary
// outage. The static provider serves as the offline default.
func buildProvider(cfg config.Config) (review.Provider, error) {
	order := []string{"anthropic", "openai", "static"}
	if len(cfg.Review.Fallback) > 0 {
		order = cfg.Review.Fallback
	}

	var providers []review.Provider
	for _, name := range order {
		pc, ok := cfg.Providers[name]
		if !ok || !pc.Enabled {
			continue
		}
		switch name {
		case "anthropic":
			if pc.APIKey == "" || pc.APIKey == "${ANTHROPIC_API_KEY}" {
				return nil, fmt.Errorf("provider anthropic enabled but no API key configured")
			}
			client := anthropic.NewClient(pc.APIKey, pc.Model)
			if pc.BaseURL != "" {
				client.SetBaseURL(pc.BaseURL)
			}
			if pc.Timeout != "" {
				timeout, err := time.ParseDuration(pc.Timeout)
				if err != nil {
					return nil, fmt.Errorf("providers.anthropic.timeout: %w", err)
				}
				client.SetTimeout(timeout)
			}
			providers = append(providers, anthropic.NewProvider(client, pc.Model))
		case "openai":
			if pc.APIKey == "" || pc.APIKey == "${OPENAI_API_KEY}" {
				return nil, fmt.Errorf("provider openai enabled but no API key configured")
			}
			if pc.BaseURL != "" {
				providers = append(providers, openaiprovider.NewProviderWithBaseURL(pc.APIKey, pc.BaseURL, pc.Model))
			} else {
				providers = append(providers, openaiprovider.NewProvider(pc.APIKey, pc.Model))
			}
		case "static":
			providers = append(providers, static.NewProvider(pc.Model))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	if len(providers) == 0 {
		return nil, errors.New("no providers enabled; enable at least the static provider")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return fallback.New(providers...)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "arv"))
	}
	return paths
}
