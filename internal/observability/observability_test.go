package observability_test

import (
	"testing"
	"time"

	"github.com/evanmcb/autoreview/internal/observability"
	"github.com/stretchr/testify/assert"
)

func TestRedactAPIKey(t *testing.T) {
	assert.Equal(t, "[REDACTED-7890]", observability.RedactAPIKey("sk-1234567890"))
	assert.Equal(t, "[REDACTED]", observability.RedactAPIKey("abc"))
	assert.Equal(t, "[REDACTED]", observability.RedactAPIKey(""))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.LogLevelDebug, observability.ParseLogLevel("debug"))
	assert.Equal(t, observability.LogLevelWarning, observability.ParseLogLevel("WARN"))
	assert.Equal(t, observability.LogLevelError, observability.ParseLogLevel("error"))
	assert.Equal(t, observability.LogLevelInfo, observability.ParseLogLevel("anything"))
}

func TestParseLogFormat(t *testing.T) {
	assert.Equal(t, observability.LogFormatJSON, observability.ParseLogFormat("JSON"))
	assert.Equal(t, observability.LogFormatHuman, observability.ParseLogFormat("human"))
	assert.Equal(t, observability.LogFormatHuman, observability.ParseLogFormat(""))
}

func TestMetricsToolRuns(t *testing.T) {
	m := observability.NewDefaultMetrics()

	m.RecordToolRun("secret-scan", 10*time.Millisecond, false, false)
	m.RecordToolRun("secret-scan", 5*time.Millisecond, true, false)
	m.RecordToolRun("docs-link", 20*time.Millisecond, false, true)

	stats := m.GetStats()
	assert.Equal(t, 3, stats.ToolRuns)
	assert.Equal(t, 1, stats.ToolFailures)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 2, stats.ByTool["secret-scan"].Runs)
	assert.Equal(t, 1, stats.ByTool["secret-scan"].CacheHits)
	assert.Equal(t, 1, stats.ByTool["docs-link"].Failures)
	assert.Equal(t, 15*time.Millisecond, stats.ByTool["secret-scan"].Duration)
}

func TestMetricsProviderCalls(t *testing.T) {
	m := observability.NewDefaultMetrics()

	m.RecordProviderCall("anthropic", time.Second, false)
	m.RecordProviderCall("anthropic", time.Second, true)

	stats := m.GetStats()
	assert.Equal(t, 2, stats.ProviderCalls)
	assert.Equal(t, 1, stats.ProviderFailures)
	assert.Equal(t, 2, stats.ByProvider["anthropic"].Calls)
}

func TestMetricsBreakerTransitions(t *testing.T) {
	m := observability.NewDefaultMetrics()

	m.RecordBreakerTransition("anthropic", "closed", "open")
	m.RecordBreakerTransition("anthropic", "closed", "open")
	m.RecordBreakerTransition("anthropic", "open", "half-open")

	stats := m.GetStats()
	assert.Equal(t, 2, stats.BreakerTransitions["anthropic:closed->open"])
	assert.Equal(t, 1, stats.BreakerTransitions["anthropic:open->half-open"])
}

func TestGetStatsReturnsCopy(t *testing.T) {
	m := observability.NewDefaultMetrics()
	m.RecordToolRun("a", time.Millisecond, false, false)

	stats := m.GetStats()
	stats.ByTool["a"] = observability.ToolStats{Runs: 99}

	assert.Equal(t, 1, m.GetStats().ByTool["a"].Runs)
}
