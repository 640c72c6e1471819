// Package logging builds the charmbracelet logger evmtrace writes
// diagnostics to. Everything is configured from the environment:
//
//	EVMTRACE_LOG_LEVEL    debug, info, warn or error (default info)
//	EVMTRACE_LOG_PREFIX   message prefix (default "evmtrace ")
//	EVMTRACE_LOG_FORMAT   text, json or logfmt (default text)
//	EVMTRACE_LOG_TO_FILE  "1" writes to evmtrace-<timestamp>-debug.log instead of stderr
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const defaultPrefix = "evmtrace "

// Options is the logger configuration read from the environment.
type Options struct {
	Level  log.Level
	Prefix string
	Format log.Formatter
	ToFile bool
}

// OptionsFromEnv reads Options from the EVMTRACE_LOG_* variables.
func OptionsFromEnv() Options {
	opts := Options{
		Level:  LevelFromEnv(),
		Prefix: defaultPrefix,
		Format: log.TextFormatter,
		ToFile: os.Getenv("EVMTRACE_LOG_TO_FILE") == "1",
	}
	if p, ok := os.LookupEnv("EVMTRACE_LOG_PREFIX"); ok && p != "" {
		opts.Prefix = p
	}
	switch strings.ToLower(os.Getenv("EVMTRACE_LOG_FORMAT")) {
	case "json":
		opts.Format = log.JSONFormatter
	case "logfmt":
		opts.Format = log.LogfmtFormatter
	}
	return opts
}

// LoggerCloser is a logger that may own its output file.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// New creates a logger writing to w. w is closed by Close when it is an
// io.Closer.
func New(w io.Writer, opts Options) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Formatter:       opts.Format,
		Level:           opts.Level,
		Prefix:          strings.TrimSpace(opts.Prefix),
	})

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}
	return &LoggerCloser{Logger: lg, closer: closer}
}

// NewLoggerWithWriter creates a logger for w configured from the environment.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	return New(w, OptionsFromEnv())
}

// NewLogger creates a logger configured from the environment. It logs to
// stderr unless EVMTRACE_LOG_TO_FILE asks for a file and the file can be
// created.
func NewLogger() *LoggerCloser {
	opts := OptionsFromEnv()
	if !opts.ToFile {
		return New(os.Stderr, opts)
	}

	name := fmt.Sprintf("evmtrace-%s-debug.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return New(os.Stderr, opts)
	}
	return New(f, opts)
}

// LevelFromEnv parses EVMTRACE_LOG_LEVEL, defaulting to info.
func LevelFromEnv() log.Level {
	lvl, err := log.ParseLevel(os.Getenv("EVMTRACE_LOG_LEVEL"))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
