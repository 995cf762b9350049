// Package debug configures logging for the copaw relay and provides
// category-based debug output.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): COPAW_DEBUG env or logging.debug in config
//   - Levels (HOW MUCH detail): COPAW_LOG_LEVEL env or logging.level in config
//
// Usage:
//
//	debug.Log("upstream", "request", "url", url)
//	if debug.Enabled("upstream") { /* expensive formatting */ }
//
// Categories: upstream, relay, session, transport, config, remote, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, full upstream request bodies and raw stream lines are logged.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
var categories atomic.Pointer[map[string]bool]

// output is where Raw writes; Init points it at the log file when one is set.
var output atomic.Pointer[sink]

type sink struct{ io.Writer }

func init() {
	setCategories(os.Getenv("COPAW_DEBUG"))
	output.Store(&sink{os.Stderr})
}

// Options controls how the process-wide logger is built.
type Options struct {
	Categories string // comma separated debug categories
	Level      string // ERROR, WARN, INFO, DEBUG, TRACE
	Format     string // "text" (default) or "json"

	// File, when set, sends log output to a size-rotated file instead
	// of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures the default slog logger and the enabled categories.
// Environment variables take precedence over the given options. The
// returned closer releases the log file, if any.
func Init(opts Options) io.Closer {
	cats := os.Getenv("COPAW_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	setCategories(cats)

	level := os.Getenv("COPAW_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out, closer = lj, lj
	}

	output.Store(&sink{out})
	slog.SetDefault(slog.New(NewHandler(out, opts.Format, ParseLevel(level))))
	return closer
}

// NewHandler builds a text or JSON slog handler at the given level.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	hopts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes plain text to the log output without slog formatting. Only
// emitted when the category is enabled and the level is TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(output.Load(), text)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories.
func Categories() []string {
	var result []string
	for k := range *categories.Load() {
		result = append(result, k)
	}
	return result
}

// Truncate returns s cut to maxLen runes, with "..." appended if it was cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func setCategories(s string) {
	m := parseCategories(s)
	categories.Store(&m)
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
