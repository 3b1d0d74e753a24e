package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/five82/quill/internal/app"
	"github.com/five82/quill/internal/config"
	"github.com/five82/quill/internal/novel"
)

type commandContext struct {
	configFlag string
	apiFlag    string
	prefsFlag  string
	pollFlag   int
	outputFlag string
	debugLog   bool
	verbose    bool

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func (c *commandContext) options() app.Options {
	return app.Options{
		ConfigPath: strings.TrimSpace(c.configFlag),
		PrefsPath:  strings.TrimSpace(c.prefsFlag),
		PollEvery:  c.pollFlag,
		APIBase:    c.apiFlag,
		DebugLog:   c.debugLog,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = app.LoadConfig(c.options())
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*novel.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := novel.NewClient(cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("init novel client: %w", err)
	}
	return client, nil
}

// logger writes diagnostics to stderr with --verbose and discards them
// otherwise, keeping stdout clean for structured output.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	if !c.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (c *commandContext) format() outputFormat {
	return outputFormat(strings.ToLower(strings.TrimSpace(c.outputFlag)))
}

func validateOutput(value string) error {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", value)
}
