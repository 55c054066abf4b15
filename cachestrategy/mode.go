package cachestrategy

import "fmt"

// Mode selects which cache tiers Lookup and Store consult, and in what
// order. The project config sets a default; the CLI may override it.
type Mode string

const (
	LocalOnly   Mode = "local_only"
	RemoteOnly  Mode = "remote_only"
	LocalFirst  Mode = "local_first"
	RemoteFirst Mode = "remote_first"
	Disabled    Mode = "disabled"
)

// ParseMode parses a bake.yml/CLI mode string, defaulting to LocalFirst
// for an empty string so an unconfigured project still gets a usable
// local cache rather than silently running uncached.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return LocalFirst, nil
	case LocalOnly, RemoteOnly, LocalFirst, RemoteFirst, Disabled:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("cachestrategy: unknown cache strategy mode %q", s)
	}
}
