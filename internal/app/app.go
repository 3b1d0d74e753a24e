package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/quill/internal/config"
	"github.com/five82/quill/internal/novel"
	"github.com/five82/quill/internal/prefs"
	"github.com/five82/quill/internal/state"
	"github.com/five82/quill/internal/ui"
)

// Options configure the quill TUI.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/quill/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
	APIBase    string // overrides api_base from the config file
	DebugLog   bool   // write the TUI's own log to config.DebugLogPath
	// Logger overrides DebugLog when set.
	Logger *slog.Logger
}

// LoadConfig reads the config file and applies the command-line overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load quill config: %w", err)
	}
	cfg = cfg.WithAPIBase(opts.APIBase)
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	return cfg, nil
}

// Run boots the quill TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil && opts.DebugLog {
		var closer io.Closer
		logger, closer, err = OpenDebugLog(cfg.DebugLogPath())
		if err != nil {
			return err
		}
		defer closer.Close()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("load prefs failed", "error", err)
	}

	client, err := novel.NewClient(cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init novel client: %w", err)
	}

	store := &state.Store{}

	// Poll goroutines only signal; the UI reads the store itself. One
	// pending signal is enough to trigger a re-read.
	changes := make(chan struct{}, 1)
	watcher := NewChapterWatcher(ctx, client, store, WatcherOptions{
		Interval: cfg.PollInterval,
		Logger:   logger,
		OnChange: func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	defer watcher.StopAll()

	logger.Info("starting quill", "api", cfg.APIBase, "poll", cfg.PollInterval, "page_size", cfg.PageSize)

	return ui.Run(ui.Options{
		Context:   ctx,
		Client:    client,
		Store:     store,
		Watcher:   watcher,
		Config:    &cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
		Changes:   changes,
	})
}

// OpenDebugLog opens path for appending and returns a text logger writing to
// it. The caller closes the returned file.
func OpenDebugLog(path string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	handler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), file, nil
}
