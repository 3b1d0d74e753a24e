package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/quill/internal/logstream"
	"github.com/five82/quill/internal/logtail"
	"github.com/five82/quill/internal/novel"
)

type logFlags struct {
	level  string
	taskID string
}

func (f *logFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.level, "level", string(novel.LevelAll), "Log level: all, error, warning, info or debug")
	cmd.Flags().StringVar(&f.taskID, "task", "", "Only logs of this task id")
}

func (f *logFlags) logLevel() (novel.LogLevel, error) {
	level := novel.LogLevel(strings.ToLower(strings.TrimSpace(f.level)))
	switch level {
	case "":
		return novel.LevelAll, nil
	case "warn":
		return novel.LevelWarning, nil
	case novel.LevelAll, novel.LevelError, novel.LevelWarning, novel.LevelInfo, novel.LevelDebug:
		return level, nil
	}
	return "", fmt.Errorf("unknown log level %q", f.level)
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var flags logFlags
	var limit, offset, tail int
	var file string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show backend logs",
		Long:  "Show backend logs. With --file a previously exported text log is read instead of the backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.logLevel()
			if err != nil {
				return err
			}

			var lines []string
			if strings.TrimSpace(file) != "" {
				lines, err = logtail.Read(file, tail)
				if err != nil {
					return err
				}
				lines = logtail.Filter(lines, level)
			} else {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				body, err := client.FetchLogs(cmd.Context(), novel.LogFilter{
					Level:  level,
					TaskID: flags.taskID,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return fmt.Errorf("fetch logs: %w", err)
				}
				lines, err = logtail.Tail(strings.NewReader(body), tail)
				if err != nil {
					return err
				}
			}

			if lines == nil {
				lines = []string{}
			}
			if done, err := writeStructured(cmd, ctx.format(), lines); done {
				return err
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, line := range lines {
				fmt.Fprintln(w, colorLevel(line, logtail.ParseLevel(line), colorize))
			}
			return w.Flush()
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of lines the backend returns")
	cmd.Flags().IntVar(&offset, "offset", 0, "Lines to skip on the backend")
	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "Only print the last N lines")
	cmd.Flags().StringVar(&file, "file", "", "Read an exported text log instead of the backend")

	cmd.AddCommand(newLogsExportCommand(ctx))
	cmd.AddCommand(newLogsStatsCommand(ctx))
	cmd.AddCommand(newLogsFollowCommand(ctx))
	return cmd
}

func newLogsExportCommand(ctx *commandContext) *cobra.Command {
	var flags logFlags
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download backend logs to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.logLevel()
			if err != nil {
				return err
			}
			exportFormat := novel.ExportFormat(strings.ToLower(strings.TrimSpace(format)))
			if exportFormat != novel.ExportText && exportFormat != novel.ExportJSON {
				return fmt.Errorf("unknown export format %q (want txt or json)", format)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err := client.ExportLogs(cmd.Context(), novel.LogFilter{Level: level, TaskID: flags.taskID, Format: exportFormat}, cmd.OutOrStdout())
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}
			tmp := out + ".part"
			f, err := os.Create(tmp)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			n, err := client.ExportLogs(cmd.Context(), novel.LogFilter{Level: level, TaskID: flags.taskID, Format: exportFormat}, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(tmp)
				return fmt.Errorf("export logs: %w", err)
			}
			if err := os.Rename(tmp, out); err != nil {
				_ = os.Remove(tmp)
				return fmt.Errorf("export logs: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s to %s\n", humanize.Bytes(uint64(n)), out)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&format, "format", string(novel.ExportText), "Export format: txt or json")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func newLogsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show log totals per level and the most recent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stats, err := client.FetchLogStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch log stats: %w", err)
			}
			if done, err := writeStructured(cmd, ctx.format(), stats); done {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Total: %s\n", humanize.Comma(int64(stats.Total)))

			rows := make([][]string, 0, len(stats.ByLevel))
			for _, entry := range sortedLevels(stats.ByLevel) {
				label := strings.ToUpper(entry.level)
				rows = append(rows, []string{
					colorLevel(label, logtail.ParseLevel(label), colorize),
					humanize.Comma(int64(entry.count)),
				})
			}
			if len(rows) > 0 {
				fmt.Fprint(out, renderTable([]string{"Level", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			}

			if len(stats.Recent) == 0 {
				return nil
			}
			recent := make([][]string, 0, len(stats.Recent))
			for _, rec := range stats.Recent {
				when := rec.Timestamp
				if t := rec.ParsedTime(); !t.IsZero() {
					when = humanize.Time(t)
				}
				label := strings.ToUpper(rec.Level)
				recent = append(recent, []string{when, colorLevel(label, logtail.ParseLevel(label), colorize), rec.Message})
			}
			fmt.Fprint(out, renderTable([]string{"When", "Level", "Message"}, recent, nil))
			return nil
		},
	}
}

func newLogsFollowCommand(ctx *commandContext) *cobra.Command {
	var flags logFlags

	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Stream backend logs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.logLevel()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sub, err := logstream.Subscribe(cmd.Context(), cfg.LogStreamURL(), logstream.Options{
				Level:  level,
				Logger: ctx.logger(cmd),
			})
			if err != nil {
				return err
			}
			return printStream(cmd, ctx.format(), sub)
		},
	}

	// The stream has no task filter.
	cmd.Flags().StringVar(&flags.level, "level", string(novel.LevelAll), "Log level: all, error, warning, info or debug")
	return cmd
}

type streamRecord struct {
	Time    string `json:"time,omitempty" yaml:"time,omitempty"`
	Level   string `json:"level" yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

func printStream(cmd *cobra.Command, format outputFormat, sub *logstream.Subscription) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for entry := range sub.Entries {
		switch format {
		case outputJSON, outputYAML:
			rec := streamRecord{Level: string(entry.Level), Message: entry.Message}
			if !entry.Time.IsZero() {
				rec.Time = entry.Time.Format(time.RFC3339)
			}
			if format == outputYAML {
				fmt.Fprintln(out, "---")
				if err := writeYAML(cmd, rec); err != nil {
					return err
				}
				continue
			}
			if err := json.NewEncoder(out).Encode(rec); err != nil {
				return err
			}
		default:
			fmt.Fprintln(out, colorLevel(entry.Line(), entry.Level, colorize))
		}
	}
	err := sub.Err()
	if err == nil {
		err = cmd.Context().Err()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("log stream: %w", err)
	}
	return nil
}

type levelTotal struct {
	level string
	count int
}

// sortedLevels orders levels by severity, unknown levels last by name.
func sortedLevels(byLevel map[string]int) []levelTotal {
	rank := map[novel.LogLevel]int{novel.LevelError: 0, novel.LevelWarning: 1, novel.LevelInfo: 2, novel.LevelDebug: 3}
	out := make([]levelTotal, 0, len(byLevel))
	for level, count := range byLevel {
		out = append(out, levelTotal{level: level, count: count})
	}
	rankOf := func(level string) int {
		if r, ok := rank[logtail.ParseLevel(level)]; ok {
			return r
		}
		return len(rank)
	}
	slices.SortFunc(out, func(a, b levelTotal) int {
		if ra, rb := rankOf(a.level), rankOf(b.level); ra != rb {
			return ra - rb
		}
		return strings.Compare(a.level, b.level)
	})
	return out
}
