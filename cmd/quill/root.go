package main

import (
	"github.com/spf13/cobra"

	"github.com/five82/quill/internal/app"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "quill",
		Short:         "Terminal client for the novel parsing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(ctx.outputFlag); err != nil {
				return err
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ctx.options()
			if ctx.verbose && !ctx.debugLog {
				// The TUI owns the terminal; verbose output goes to the debug log.
				opts.DebugLog = true
			}
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default ~/.config/quill/config.toml)")
	flags.StringVar(&ctx.apiFlag, "api", "", "Backend API base URL, e.g. http://127.0.0.1:8888/api")
	flags.IntVar(&ctx.pollFlag, "poll", 0, "Status poll interval in seconds")
	flags.StringVarP(&ctx.outputFlag, "output", "o", string(outputTable), "Output format: table, json or yaml")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	rootCmd.Flags().StringVar(&ctx.prefsFlag, "prefs", "", "Preferences file path (default ~/.config/quill/prefs.toml)")
	rootCmd.Flags().BoolVar(&ctx.debugLog, "debug-log", false, "Write the TUI log to the state directory")

	rootCmd.AddCommand(newNovelsCommand(ctx))
	rootCmd.AddCommand(newChaptersCommand(ctx))
	rootCmd.AddCommand(newParseCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newTextCommand(ctx))
	rootCmd.AddCommand(newAudioCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
