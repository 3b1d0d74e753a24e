package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.WSBase != "ws://127.0.0.1:8888/ws" {
		t.Fatalf("WSBase = %q, want ws://127.0.0.1:8888/ws", cfg.WSBase)
	}
	if cfg.PollInterval != 2*time.Second || cfg.PageSize != defaultPageSize || cfg.Model != defaultModel {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	wantStateDir, err := expandPath(defaultStateDir)
	if err != nil {
		t.Fatalf("expandPath(defaultStateDir) returned error: %v", err)
	}
	if cfg.StateDir != wantStateDir {
		t.Fatalf("StateDir = %q, want %q", cfg.StateDir, wantStateDir)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "  https://novels.example:9443/api  "
poll_seconds = 5
model = " qwen "
page_size = 0
request_timeout_seconds = 3
state_dir = "  ~/.quill  "
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "https://novels.example:9443/api" {
		t.Fatalf("APIBase = %q", cfg.APIBase)
	}
	if cfg.WSBase != "wss://novels.example:9443/ws" {
		t.Fatalf("WSBase = %q, want wss://novels.example:9443/ws", cfg.WSBase)
	}
	if cfg.PollInterval != 5*time.Second || cfg.Model != "qwen" || cfg.PageSize != 0 || cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("parsed config = %+v", cfg)
	}
	if !strings.HasPrefix(cfg.StateDir, home) {
		t.Fatalf("StateDir = %q, want it under HOME %q", cfg.StateDir, home)
	}
	if cfg.DebugLogPath() != filepath.Join(cfg.StateDir, "quill.log") {
		t.Fatalf("DebugLogPath = %q", cfg.DebugLogPath())
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "   "
ws_base = ""
poll_seconds = 0
page_size = -4
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase || cfg.PollInterval != defaultPollInterval || cfg.PageSize != defaultPageSize {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_base = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestWithAPIBase_RederivesStreamURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := Default().WithAPIBase("10.0.0.5:7000/api")
	if cfg.LogStreamURL() != "ws://10.0.0.5:7000/ws/logs" {
		t.Fatalf("LogStreamURL = %q", cfg.LogStreamURL())
	}

	cfg.WSBase = "ws://elsewhere/stream"
	cfg = cfg.WithAPIBase("http://other/api")
	if cfg.LogStreamURL() != "ws://elsewhere/stream/logs" {
		t.Fatalf("explicit ws_base overridden: %q", cfg.LogStreamURL())
	}
	if same := cfg.WithAPIBase("  "); same.APIBase != "http://other/api" {
		t.Fatalf("blank override changed APIBase to %q", same.APIBase)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
