// Package logging sets up the [slog.Logger] used by the eventsys tool.
// Console output is text on a terminal and JSON otherwise; an optional rotating log file is written in JSON.
package logging

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/eventsys/slogx"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

var ErrInvalidFormat = errors.New("invalid log format")

// Config holds logging configuration options.
type Config struct {
	// Level is the minimum log level to emit.
	Level slog.Level
	// Format is one of [FormatAuto], [FormatText], or [FormatJSON] for console output.
	Format string
	// File enables rotating file output at this path when not empty.
	File string
	// MaxSizeMB is the maximum size in megabytes of a single log file before rotation.
	MaxSizeMB int
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int
	// MaxAgeDays is the maximum number of days to retain old log files.
	MaxAgeDays int
	// Compress determines if rotated log files should be compressed.
	Compress bool
}

// DefaultConfig returns console-only logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		Format:     FormatAuto,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// ParseLevel maps a level name like "debug" or "WARN" to a [slog.Level].
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': %w", name, err)
	}
	return level, nil
}

// Setup creates a logger writing to console, and to cfg.File if set.
// The returned close function releases the log file and is always safe to call.
func Setup(cfg Config, console io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	consoleHandler, err := consoleHandler(cfg.Format, console, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.File) == 0 {
		return slog.New(consoleHandler), func() error { return nil }, nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	fileHandler := slog.NewJSONHandler(lj, opts)
	return slog.New(slogx.Fanout(consoleHandler, fileHandler)), lj.Close, nil
}

func consoleHandler(format string, out io.Writer, opts *slog.HandlerOptions) (slog.Handler, error) {
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(format) {
	case "", FormatAuto:
		if isTerminal(out) {
			return slog.NewTextHandler(out, opts), nil
		}
		return slog.NewJSONHandler(out, opts), nil
	case FormatText:
		return slog.NewTextHandler(out, opts), nil
	case FormatJSON:
		return slog.NewJSONHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidFormat, format)
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
