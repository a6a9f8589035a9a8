package manager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// EnvLogLevel overrides the settings log_level when set.
	EnvLogLevel = "SSHDECK_LOG_LEVEL"

	defaultLogFilename = "sshdeck.log"
)

// ParseLevel maps a level name ("debug", "info", ...) to a zerolog level.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level %q: %w", name, err)
	}
	return lvl, nil
}

// EffectiveLevel applies the env override and the verbose flag on top of the
// configured level.
func EffectiveLevel(configured string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	if lvl, err := ParseLevel(os.Getenv(EnvLogLevel)); err == nil && os.Getenv(EnvLogLevel) != "" {
		return lvl
	}
	if lvl, err := ParseLevel(configured); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

// NewConsoleLogger writes human-readable logs to w (stderr for the CLI).
func NewConsoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// OpenLogFile opens (appending) the TUI log file inside dir. The TUI owns the
// terminal, so its diagnostics go here instead of stderr.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, defaultLogFilename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}

// NewFileLogger writes JSON lines to w.
func NewFileLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "sshdeck").Logger()
}
