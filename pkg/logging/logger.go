// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging configures the process-wide slog logger for the
// switchboard gateway and CLI.
//
// The gateway logs JSON to stdout so collectors can scrape container
// output; the CLI defaults to human-readable text on stderr. An optional
// log directory duplicates every record to a per-service file, created on
// first write.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config selects the handler, level, and optional file destination.
// The zero value logs Info and above as text to stderr.
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// Format is "json" or "text".
	Format string

	// Dir enables file logging when non-empty. The file is named
	// <service>-<yyyymmdd>.log and appended to across restarts.
	Dir string

	// Service names the log file and is attached to every record.
	Service string

	// Stdout routes console output to stdout instead of stderr.
	Stdout bool
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger described by cfg, installs it as the slog
// default, and returns it with a close function for the log file.
// The close function is never nil.
func Setup(cfg Config) (*slog.Logger, func() error, error) {
	console := io.Writer(os.Stderr)
	if cfg.Stdout {
		console = os.Stdout
	}

	out := console
	closer := func() error { return nil }
	if cfg.Dir != "" {
		file, err := openLogFile(cfg.Dir, cfg.Service)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(console, file)
		closer = file.Close
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

func openLogFile(dir, service string) (*os.File, error) {
	if service == "" {
		service = "switchboard"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s-%s.log", service, time.Now().UTC().Format("20060102"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return file, nil
}
