package hlog

import (
	"os"

	"github.com/mattn/go-isatty"
)

var defaultLogger = NewLogger(NewLock(NewLevelEnabler(
	NewCore(NewConsole(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))),
	func(Level) bool { return true },
)))

var current = defaultLogger

// SetDefault replaces the process-wide default logger, e.g. once the CLI
// has parsed -v/--verbose and knows the desired minimum level.
func SetDefault(l Logger) {
	current = l
}

func Default() Logger {
	return current
}

// SetLevel narrows the default logger to only emit entries at or above lvl.
func SetLevel(lvl Level) {
	current = NewLogger(NewLevelEnabler(current.core, func(l Level) bool {
		return l >= lvl
	}))
}
