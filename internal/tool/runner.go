package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanmcb/autoreview/internal/cache"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/observability"
)

// RunnerConfig bounds tool execution.
type RunnerConfig struct {
	// Timeout applies independently to each tool invocation.
	Timeout time.Duration

	// MaxParallel bounds concurrent tool executions. Must be >= 1.
	MaxParallel int
}

// DefaultRunnerConfig returns sensible runner defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Timeout:     30 * time.Second,
		MaxParallel: 4,
	}
}

// Runner executes tool sets concurrently with per-tool isolation,
// wrapping each invocation in the result cache.
type Runner struct {
	config  RunnerConfig
	cache   *cache.Cache
	logger  observability.Logger
	metrics observability.Metrics
}

// NewRunner wires a runner. Logger and metrics fall back to no-ops.
func NewRunner(config RunnerConfig, resultCache *cache.Cache, logger observability.Logger, metrics observability.Metrics) *Runner {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &Runner{
		config:  config,
		cache:   resultCache,
		logger:  logger,
		metrics: metrics,
	}
}

// RunAll executes the given tools concurrently, bounded by MaxParallel,
// each under an independent timeout. One tool's failure, timeout, or
// panic is confined to its own result slot and does not cancel or delay
// siblings. The returned slice is ordered deterministically by tool
// name regardless of completion order.
func (r *Runner) RunAll(ctx context.Context, rctx *domain.ReviewContext, tools []Descriptor) []domain.ToolResult {
	if len(tools) == 0 {
		return nil
	}

	ordered := make([]Descriptor, len(tools))
	copy(ordered, tools)
	sortDescriptors(ordered)

	contentFingerprint := rctx.Fingerprint()
	results := make([]domain.ToolResult, len(ordered))

	// errgroup is used only for its bounded fan-out and join point;
	// per-tool errors land in the result slot, never in the group.
	var g errgroup.Group
	g.SetLimit(r.config.MaxParallel)

	for i, d := range ordered {
		g.Go(func() error {
			results[i] = r.runOne(ctx, rctx, d, contentFingerprint)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runOne executes a single tool through the cache, converting every
// failure mode into a ToolError on the result.
func (r *Runner) runOne(ctx context.Context, rctx *domain.ReviewContext, d Descriptor, contentFingerprint string) domain.ToolResult {
	start := time.Now()
	key := cache.Fingerprint(contentFingerprint, d.Name, d.Version)

	result, cached, err := cache.GetOrCompute(ctx, r.cache, key, func(ctx context.Context) (domain.ToolResult, error) {
		return r.invoke(ctx, rctx, d)
	})
	elapsed := time.Since(start)

	if err != nil {
		result = domain.ToolResult{
			Tool:     d.Name,
			Version:  d.Version,
			Category: d.Category,
			Err:      asToolError(d.Name, err),
		}
		r.logger.LogWarning(ctx, "tool execution failed", map[string]interface{}{
			"tool":  d.Name,
			"error": result.Err.Message,
		})
	}

	result.Metrics.Duration = elapsed
	result.Metrics.Cached = cached
	r.metrics.RecordToolRun(d.Name, elapsed, cached, result.Err != nil)
	return result
}

type invocation struct {
	result domain.ToolResult
	err    error
}

// invoke runs the tool under its own timeout with panic containment.
func (r *Runner) invoke(ctx context.Context, rctx *domain.ReviewContext, d Descriptor) (domain.ToolResult, error) {
	toolCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- invocation{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		result, err := d.Analyze(toolCtx, rctx)
		done <- invocation{result: result, err: err}
	}()

	var inv invocation
	select {
	case inv = <-done:
	case <-toolCtx.Done():
		// The tool overran its deadline (or the review was cancelled).
		// Its goroutine is abandoned; the slot reports the timeout.
		return domain.ToolResult{}, toolCtx.Err()
	}

	if inv.err != nil {
		return domain.ToolResult{}, inv.err
	}

	result := inv.result
	result.Tool = d.Name
	result.Version = d.Version
	result.Category = d.Category
	result.Metrics.FilesScanned = len(rctx.Files)
	return result, nil
}

func asToolError(tool string, err error) *domain.ToolError {
	var te *domain.ToolError
	if errors.As(err, &te) {
		return te
	}
	return &domain.ToolError{
		Tool:     tool,
		Message:  err.Error(),
		TimedOut: errors.Is(err, context.DeadlineExceeded),
	}
}
