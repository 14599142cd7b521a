package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, env, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(dir, "config", "config."+env+".yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", env)
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port: got %d, want 8080", cfg.Port)
	}
	if cfg.Reaper.Interval != 30*time.Second {
		t.Errorf("reaper.interval: got %v, want 30s", cfg.Reaper.Interval)
	}
	if cfg.Reaper.Timeout != 60*time.Second {
		t.Errorf("reaper.timeout: got %v, want 60s", cfg.Reaper.Timeout)
	}
	if cfg.ShutdownGrace != time.Second {
		t.Errorf("shutdown_grace: got %v, want 1s", cfg.ShutdownGrace)
	}
	if !cfg.Features.AudioSignaling || !cfg.Features.RelayTrace {
		t.Errorf("features: got %+v, want both enabled", cfg.Features)
	}
	if cfg.Roles.Strict {
		t.Error("roles.strict: want false by default")
	}
	if len(cfg.ICEServers) != 1 {
		t.Errorf("ice_servers: got %v, want one default STUN server", cfg.ICEServers)
	}
}

func TestLoad_PortEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "9091")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9091 {
		t.Errorf("port: got %d, want 9091", cfg.Port)
	}
}

func TestLoad_File(t *testing.T) {
	writeConfig(t, "test", `port: 9000
mode: debug
reaper:
  interval: 5s
  timeout: 10s
features:
  audio_signaling: false
roles:
  strict: true
log:
  level: debug
  file: ""
`)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port: got %d, want 9000", cfg.Port)
	}
	if cfg.Mode != "debug" {
		t.Errorf("mode: got %q, want debug", cfg.Mode)
	}
	if cfg.Reaper.Interval != 5*time.Second || cfg.Reaper.Timeout != 10*time.Second {
		t.Errorf("reaper: got %+v", cfg.Reaper)
	}
	if cfg.Features.AudioSignaling {
		t.Error("features.audio_signaling: want false")
	}
	if !cfg.Features.RelayTrace {
		t.Error("features.relay_trace: want default true")
	}
	if !cfg.Roles.Strict {
		t.Error("roles.strict: want true")
	}
	if cfg.Log.File != "" {
		t.Errorf("log.file: got %q, want empty", cfg.Log.File)
	}
}

func TestLoad_FileEnvOverridesPort(t *testing.T) {
	writeConfig(t, "test", "port: 9000\n")
	t.Setenv("PORT", "7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Port)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	writeConfig(t, "test", "port: 70000\n")
	t.Setenv("PORT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoad_InvalidReaper(t *testing.T) {
	writeConfig(t, "test", "reaper:\n  timeout: 0s\n")
	t.Setenv("PORT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero reaper timeout")
	}
}

func TestOnChange_DefaultsOnlyIsNoop(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	called := false
	cfg.OnChange(func(*Config) { called = true }, nil)
	if called {
		t.Error("OnChange callback fired without a config file")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
