package observability_test

import (
	"os"
	"testing"

	"github.com/evanmcb/autoreview/internal/observability"
	"github.com/stretchr/testify/assert"
)

func TestIsTTYStdout(t *testing.T) {
	// Under `go test` stdout is normally a pipe, but the call must be
	// safe and boolean either way.
	result := observability.IsTTY(os.Stdout.Fd())
	t.Logf("IsTTY(stdout) = %v (expected: false in CI, true in a terminal)", result)
}

func TestIsOutputTerminalMatchesStdout(t *testing.T) {
	assert.Equal(t, observability.IsTTY(os.Stdout.Fd()), observability.IsOutputTerminal())
}

func TestResolveLogFormatExplicit(t *testing.T) {
	assert.Equal(t, observability.LogFormatJSON, observability.ResolveLogFormat("json"))
	assert.Equal(t, observability.LogFormatHuman, observability.ResolveLogFormat("human"))
}

func TestResolveLogFormatAutoFollowsTerminal(t *testing.T) {
	want := observability.LogFormatJSON
	if observability.IsOutputTerminal() {
		want = observability.LogFormatHuman
	}
	assert.Equal(t, want, observability.ResolveLogFormat("auto"))
	assert.Equal(t, want, observability.ResolveLogFormat(""))
}
