// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logger configures the default slog logger of the feedkit command.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dsh2dsh/feedkit/internal/config"
)

// InitializeDefaultLogger sets default logger configured by logs and returns
// closer of its log files.
func InitializeDefaultLogger(logs []config.Log) (io.Closer, error) {
	if len(logs) == 0 {
		return nil, nil
	}

	closers := make([]io.Closer, len(logs))
	handlers := make([]slog.Handler, len(logs))
	for i := range logs {
		h, closer, err := handlerFromConfig(&logs[i])
		if err != nil {
			closeAll(closers[:i])
			return nil, err
		}
		closers[i] = closer
		handlers[i] = h
	}

	h := NewMultiHandler(handlers).WithClosers(closers)
	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
	} else {
		slog.SetDefault(slog.New(h))
	}
	return h, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

func handlerFromConfig(c *config.Log) (slog.Handler, io.Closer, error) {
	w, closer, err := openLogFile(c.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return parseFormat(w, c.LogFormat, c.LogLevel, c.LogDateTime), closer, nil
}

// openLogFile returns writer of logFile. Its closer is nil for stdout and
// stderr.
func openLogFile(logFile string) (io.Writer, io.Closer, error) {
	if w, ok := stdWriters[logFile]; ok {
		return w, nil, nil
	}

	f, err := NewLogFile(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open log file %q: %w", logFile,
			err)
	}
	return f, f, nil
}

var stdWriters = map[string]io.Writer{
	"stdout": os.Stdout,
	"stderr": os.Stderr,
}

// parseLogLevel returns level named s, like "debug" or "warning". Unknown
// names are info.
func parseLogLevel(s string) slog.Level {
	if s == "warning" {
		return slog.LevelWarn
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func hideTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

func parseFormat(w io.Writer, format, level string, logTime bool,
) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if !logTime {
		opts.ReplaceAttr = hideTime
	}

	switch format {
	case "human":
		return NewHumanTextHandler(w, opts, logTime)
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}
