// Package logging wires the global zerolog logger to the console and to the
// append-only hub log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/config"
)

// safeWriter reports every write as successful. A broken log sink must not
// surface errors to the code that logs.
type safeWriter struct {
	w io.Writer
}

func (s safeWriter) Write(p []byte) (int, error) {
	_, _ = s.w.Write(p)
	return len(p), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup replaces the global logger. Console output is human friendly; the
// file gets one JSON line per event. If the file cannot be opened the hub
// keeps running with console output only.
func Setup(cfg config.LogConfig) io.Closer {
	return setup(cfg, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func setup(cfg config.LogConfig, console io.Writer) io.Closer {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	var openErr error
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			openErr = err
		} else {
			writers = append(writers, safeWriter{zerolog.SyncWriter(f)})
			closer = f
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if err := SetLevel(cfg.Level); err != nil {
		log.Warn().Err(err).Str("module", "logging").Msg("falling back to info level")
	}
	if openErr != nil {
		log.Error().Err(openErr).Str("module", "logging").Str("file", cfg.File).Msg("log file unavailable")
	}
	return closer
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// SetLevel applies level globally; empty means info.
func SetLevel(level string) error {
	if level == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
