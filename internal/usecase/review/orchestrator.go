// Package review implements the orchestrator that sequences language
// detection, tool execution, and the provider call for one review.
package review

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/language"
	"github.com/evanmcb/autoreview/internal/observability"
	"github.com/evanmcb/autoreview/internal/resilience"
	"github.com/evanmcb/autoreview/internal/tool"
)

// Provider defines the outbound port for LLM assessment.
type Provider interface {
	// Name identifies the provider for breaker and metrics purposes.
	Name() string

	// Assess synthesizes a review from the request.
	Assess(ctx context.Context, req ProviderRequest) (domain.Assessment, error)
}

// ProviderRequest describes the payload the LLM provider expects.
type ProviderRequest struct {
	Prompt    string
	MaxTokens int
}

// PromptBuilder constructs the provider request from the review inputs.
type PromptBuilder func(rctx *domain.ReviewContext, profile language.Profile, findings []domain.Finding) (ProviderRequest, error)

// RunRecord captures a completed review for persistence.
type RunRecord struct {
	RunID      string
	CreatedAt  time.Time
	Repository string
	BaseRef    string
	TargetRef  string
	Degraded   bool
	Provider   string
	Summary    string
}

// Store defines the outbound port for persisting review history.
// Optional; failures are logged and never break a review.
type Store interface {
	SaveRun(ctx context.Context, run RunRecord) error
	SaveToolResults(ctx context.Context, runID string, results []domain.ToolResult) error
	SaveFindings(ctx context.Context, runID string, findings []domain.Finding) error
}

// Deps captures the inbound dependencies for the orchestrator.
type Deps struct {
	Registry      *tool.Registry
	Runner        *tool.Runner
	Provider      Provider
	Breakers      *resilience.BreakerSet
	Retry         resilience.RetryConfig
	Retryable     resilience.Classifier
	PromptBuilder PromptBuilder

	// Detect overrides language detection; defaults to language.Detect.
	Detect func([]string) language.Profile

	Logger  observability.Logger  // optional
	Metrics observability.Metrics // optional
	Store   Store                 // optional

	// Timeout bounds one whole review, zero means no bound.
	Timeout time.Duration
}

// Orchestrator implements the core review flow.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator wires the orchestrator dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Detect == nil {
		deps.Detect = language.Detect
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NopMetrics{}
	}
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) validateDependencies() error {
	if o.deps.Registry == nil {
		return errors.New("tool registry is required")
	}
	if o.deps.Runner == nil {
		return errors.New("tool runner is required")
	}
	if o.deps.Provider == nil {
		return errors.New("provider is required")
	}
	if o.deps.Breakers == nil {
		return errors.New("breaker set is required")
	}
	if o.deps.PromptBuilder == nil {
		return errors.New("prompt builder is required")
	}
	return nil
}

// Review runs the full flow for one context: detect languages, select
// and execute the applicable tools, then ask the provider for a
// synthesized assessment. When the provider call ultimately fails the
// already-computed tool findings are returned as a degraded result
// instead of being discarded.
func (o *Orchestrator) Review(ctx context.Context, rctx *domain.ReviewContext) (domain.ReviewResult, error) {
	if err := o.validateDependencies(); err != nil {
		return domain.ReviewResult{}, err
	}
	if rctx == nil || len(rctx.Files) == 0 {
		return domain.ReviewResult{}, errors.New("review context has no changed files")
	}
	if rctx.ID == "" {
		rctx.ID = uuid.NewString()
	}

	if o.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deps.Timeout)
		defer cancel()
	}

	profile := o.deps.Detect(rctx.Paths())
	applicable := o.deps.Registry.Applicable(profile)
	o.deps.Logger.LogInfo(ctx, "starting review", map[string]interface{}{
		"reviewID":  rctx.ID,
		"files":     len(rctx.Files),
		"languages": profile.Languages(),
		"tools":     len(applicable),
	})

	toolResults := o.deps.Runner.RunAll(ctx, rctx, applicable)

	// If the review deadline passed before aggregation, the completed
	// tools keep their cache writes but this response is abandoned.
	if err := ctx.Err(); err != nil {
		return domain.ReviewResult{}, err
	}

	findings := mergeFindings(toolResults)

	result := domain.ReviewResult{
		ID:          rctx.ID,
		Repository:  rctx.Repository,
		BaseRef:     rctx.BaseRef,
		TargetRef:   rctx.TargetRef,
		Languages:   profile,
		ToolResults: toolResults,
		Findings:    findings,
		CreatedAt:   time.Now(),
	}

	assessment, err := o.callProvider(ctx, rctx, profile, findings)
	if err != nil {
		result.Degraded = true
		result.ProviderError = providerErrorMessage(err)
		o.deps.Logger.LogWarning(ctx, "provider assessment failed, returning degraded result", map[string]interface{}{
			"reviewID": rctx.ID,
			"provider": o.deps.Provider.Name(),
			"error":    result.ProviderError,
		})
	} else {
		result.Assessment = &assessment
	}

	o.persist(ctx, result)
	return result, nil
}

// callProvider invokes the provider through the retry policy and its
// circuit breaker.
func (o *Orchestrator) callProvider(ctx context.Context, rctx *domain.ReviewContext, profile language.Profile, findings []domain.Finding) (domain.Assessment, error) {
	req, err := o.deps.PromptBuilder(rctx, profile, findings)
	if err != nil {
		return domain.Assessment{}, err
	}

	breaker := o.deps.Breakers.Get(o.deps.Provider.Name())
	start := time.Now()
	assessment, err := resilience.Do(ctx, breaker, o.deps.Retry, o.deps.Retryable,
		func(ctx context.Context) (domain.Assessment, error) {
			return o.deps.Provider.Assess(ctx, req)
		})
	o.deps.Metrics.RecordProviderCall(o.deps.Provider.Name(), time.Since(start), err != nil)
	return assessment, err
}

// persist saves the result when a store is configured. Store failures
// are logged and never break the review.
func (o *Orchestrator) persist(ctx context.Context, result domain.ReviewResult) {
	if o.deps.Store == nil {
		return
	}

	run := RunRecord{
		RunID:      result.ID,
		CreatedAt:  result.CreatedAt,
		Repository: result.Repository,
		BaseRef:    result.BaseRef,
		TargetRef:  result.TargetRef,
		Degraded:   result.Degraded,
		Provider:   o.deps.Provider.Name(),
	}
	if result.Assessment != nil {
		run.Summary = result.Assessment.Summary
	}

	if err := o.deps.Store.SaveRun(ctx, run); err != nil {
		o.deps.Logger.LogWarning(ctx, "failed to save run record", map[string]interface{}{
			"runID": result.ID,
			"error": err.Error(),
		})
		return
	}
	if err := o.deps.Store.SaveToolResults(ctx, result.ID, result.ToolResults); err != nil {
		o.deps.Logger.LogWarning(ctx, "failed to save tool results", map[string]interface{}{
			"runID": result.ID,
			"error": err.Error(),
		})
	}
	if err := o.deps.Store.SaveFindings(ctx, result.ID, result.Findings); err != nil {
		o.deps.Logger.LogWarning(ctx, "failed to save findings", map[string]interface{}{
			"runID": result.ID,
			"error": err.Error(),
		})
	}
}

// mergeFindings flattens successful tool results into one ordered list.
func mergeFindings(results []domain.ToolResult) []domain.Finding {
	var findings []domain.Finding
	for _, tr := range results {
		findings = append(findings, tr.Findings...)
	}
	domain.SortFindings(findings)
	return findings
}

// providerErrorMessage reduces a provider failure to a classified,
// human-readable message with no internal detail.
func providerErrorMessage(err error) string {
	var boe *resilience.BreakerOpenError
	if errors.As(err, &boe) {
		return "provider temporarily unavailable: " + boe.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "provider call timed out"
	}
	return err.Error()
}
