package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures how quill reaches the backend and how it polls it.
type Config struct {
	APIBase        string
	WSBase         string
	PollInterval   time.Duration
	Model          string
	PageSize       int
	RequestTimeout time.Duration
	StateDir       string
}

const (
	defaultConfigPath     = "~/.config/quill/config.toml"
	defaultStateDir       = "~/.local/state/quill"
	defaultAPIBase        = "http://127.0.0.1:8888/api"
	defaultModel          = "default"
	defaultPollInterval   = 2 * time.Second
	defaultPageSize       = 50
	defaultRequestTimeout = 10 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{
		APIBase:        defaultAPIBase,
		PollInterval:   defaultPollInterval,
		Model:          defaultModel,
		PageSize:       defaultPageSize,
		RequestTimeout: defaultRequestTimeout,
		StateDir:       mustExpand(defaultStateDir),
	}
	cfg.WSBase = deriveWSBase(cfg.APIBase)
	return cfg
}

// Load locates and parses the quill config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase        string `toml:"api_base"`
		WSBase         string `toml:"ws_base"`
		PollSeconds    int    `toml:"poll_seconds"`
		Model          string `toml:"model"`
		PageSize       *int   `toml:"page_size"`
		TimeoutSeconds int    `toml:"request_timeout_seconds"`
		StateDir       string `toml:"state_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	cfg.WSBase = strings.TrimSpace(raw.WSBase)
	if cfg.WSBase == "" {
		cfg.WSBase = deriveWSBase(cfg.APIBase)
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	if raw.PageSize != nil && *raw.PageSize >= 0 {
		cfg.PageSize = *raw.PageSize
	}
	if raw.TimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.StateDir); v != "" {
		cfg.StateDir = mustExpand(v)
	}

	return cfg, nil
}

// WithAPIBase returns a copy pointed at apiBase, re-deriving the WebSocket
// root when it was derived rather than configured.
func (c Config) WithAPIBase(apiBase string) Config {
	apiBase = strings.TrimSpace(apiBase)
	if apiBase == "" {
		return c
	}
	if c.WSBase == deriveWSBase(c.APIBase) {
		c.WSBase = deriveWSBase(apiBase)
	}
	c.APIBase = apiBase
	return c
}

// LogStreamURL returns the WebSocket endpoint for real-time logs.
func (c Config) LogStreamURL() string {
	base := strings.TrimSpace(c.WSBase)
	if base == "" {
		base = deriveWSBase(c.APIBase)
	}
	return strings.TrimRight(base, "/") + "/logs"
}

// DebugLogPath returns where the TUI writes its own log when enabled.
func (c Config) DebugLogPath() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir + "/quill.log")
	}
	return filepath.Join(c.StateDir, "quill.log")
}

// deriveWSBase maps http://host/api to ws://host/ws, mirroring the dev proxy
// that serves /api and /ws from the same backend.
func deriveWSBase(apiBase string) string {
	trimmed := strings.TrimSpace(apiBase)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "ws://127.0.0.1:8888/ws"
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: "/ws"}).String()
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
