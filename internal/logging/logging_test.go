package logging

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/config"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestSetup_WritesFileLines(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "hub.log")

	var console bytes.Buffer
	closer := setup(config.LogConfig{Level: "info", File: path}, &console)

	log.Info().Str("module", "test").Msg("first")
	log.Debug().Msg("hidden")
	log.Info().Msg("second")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2:\n%s", len(lines), data)
	}
	for _, l := range lines {
		if !strings.Contains(l, `"time":`) {
			t.Errorf("line without timestamp: %s", l)
		}
	}
	if !strings.Contains(console.String(), "first") {
		t.Error("console did not receive the event")
	}
}

func TestSetup_AppendsAcrossRuns(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "hub.log")

	for _, msg := range []string{"run-1", "run-2"} {
		c := setup(config.LogConfig{File: path}, io.Discard)
		log.Info().Msg(msg)
		_ = c.Close()
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "run-1") || !strings.Contains(string(data), "run-2") {
		t.Errorf("log not appended: %s", data)
	}
}

func TestSetup_UnwritableFileKeepsConsole(t *testing.T) {
	restoreLogger(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	var console bytes.Buffer
	c := setup(config.LogConfig{File: filepath.Join(blocker, "hub.log")}, &console)
	defer c.Close()

	log.Info().Msg("still here")
	if !strings.Contains(console.String(), "still here") {
		t.Error("console lost events after file failure")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSafeWriter_SwallowsErrors(t *testing.T) {
	n, err := safeWriter{failingWriter{}}.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Errorf("Write: got (%d, %v), want (3, nil)", n, err)
	}
}

func TestSetLevel(t *testing.T) {
	restoreLogger(t)
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level: got %v, want debug", zerolog.GlobalLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud): want error")
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level after bad input: got %v, want info", zerolog.GlobalLevel())
	}
}
