package observability

import (
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal reports whether stdout is a terminal, indicating a
// user is watching the output rather than a pipe or CI collector.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}

// ResolveLogFormat maps a configured format name to a LogFormat.
// "auto" (or empty) picks human output when stdout is a terminal and
// JSON otherwise; explicit "human" or "json" always win.
func ResolveLogFormat(configured string) LogFormat {
	switch configured {
	case "", "auto":
		if IsOutputTerminal() {
			return LogFormatHuman
		}
		return LogFormatJSON
	default:
		return ParseLogFormat(configured)
	}
}
