// Package logging builds the structured logger shared by every grfbuild
// component.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Verbosity selects how much the tool reports.
type Verbosity string

const (
	// Quiet only reports errors.
	Quiet Verbosity = "quiet"
	// Normal reports progress and warnings.
	Normal Verbosity = "normal"
	// Debug additionally reports per-fragment decisions.
	Debug Verbosity = "debug"
)

// ParseVerbosity accepts quiet, normal or debug (case-insensitive). Empty means normal.
func ParseVerbosity(value string) (Verbosity, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "normal", "info":
		return Normal, nil
	case "quiet":
		return Quiet, nil
	case "debug":
		return Debug, nil
	default:
		return "", fmt.Errorf("invalid verbosity %q (expected quiet|normal|debug)", value)
	}
}

// FromFlags maps the --quiet/--debug pair onto a Verbosity.
func FromFlags(quiet, debug bool) (Verbosity, error) {
	switch {
	case quiet && debug:
		return "", fmt.Errorf("--quiet and --debug are mutually exclusive")
	case quiet:
		return Quiet, nil
	case debug:
		return Debug, nil
	default:
		return Normal, nil
	}
}

// Level returns the log level for v.
func (v Verbosity) Level() log.Level {
	switch v {
	case Quiet:
		return log.ErrorLevel
	case Debug:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// New returns a logger writing to w at the level selected by v.
func New(w io.Writer, v Verbosity) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: "grfbuild",
		Level:  v.Level(),
	})
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
