package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/five82/quill/internal/app"
	"github.com/five82/quill/internal/novel"
	"github.com/five82/quill/internal/state"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var model string
	var watch bool

	cmd := &cobra.Command{
		Use:   "parse <novel> <chapter>",
		Short: "Ask the backend to parse a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if strings.TrimSpace(model) == "" {
				model = cfg.Model
			}
			novelName, chapter := args[0], args[1]
			if err := client.ParseChapter(cmd.Context(), novelName, chapter, model); err != nil {
				return fmt.Errorf("parse %s: %w", chapter, err)
			}
			ctx.logger(cmd).Info("parse requested", "novel", novelName, "chapter", chapter, "model", model)

			if !watch {
				if done, err := writeStructured(cmd, ctx.format(), map[string]string{
					"novel": novelName, "chapter": chapter, "model": model, "status": string(novel.StatusParsing),
				}); done {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Parsing %s with model %s\n", chapter, model)
				return nil
			}
			return runWatch(cmd, ctx, client, novelName, []string{chapter}, true)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Parse model (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the parse until it completes")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <novel> [chapters...]",
		Short: "Follow parse status until every chapter is parsed",
		Long:  "Follow parse status until every chapter is parsed. Without chapter names, every chapter the backend reports as parsing is followed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			return runWatch(cmd, ctx, client, args[0], args[1:], false)
		},
	}
}

// runWatch polls chapters of novelName through a ChapterWatcher and prints
// every status change until all of them are parsed or a poll fails. With
// requested set the chapters were just sent for parsing and count as parsing
// whatever the listing says.
func runWatch(cmd *cobra.Command, ctx *commandContext, client *novel.Client, novelName string, chapters []string, requested bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	page, err := client.ListChapters(runCtx, novelName, novel.ChapterQuery{})
	if err != nil {
		return fmt.Errorf("list chapters: %w", err)
	}
	store := &state.Store{}
	store.SelectNovel(novelName)
	store.AppendChapters(novelName, 1, page.Items, 0, nil)
	if requested {
		for _, name := range chapters {
			store.SetStatus(novelName, name, novel.StatusParsing)
		}
	}
	snapshot := store.Snapshot()

	if len(chapters) == 0 {
		chapters = snapshot.Parsing()
		if len(chapters) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No chapters of %s are parsing\n", novelName)
			return nil
		}
	}
	for _, name := range chapters {
		if _, ok := snapshot.Chapter(name); !ok {
			return fmt.Errorf("chapter %q not found in %s", name, novelName)
		}
	}

	changes := make(chan struct{}, 1)
	watcher := app.NewChapterWatcher(runCtx, client, store, app.WatcherOptions{
		Interval: cfg.PollInterval,
		Logger:   ctx.logger(cmd),
		OnChange: func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	defer watcher.StopAll()

	printer := newWatchPrinter(cmd.OutOrStdout(), ctx.format(), shouldColorize(cmd.OutOrStdout()))
	printer.print(snapshot, chapters)

	if allChaptersParsed(snapshot, chapters) {
		printer.done(len(chapters))
		return nil
	}
	watcher.Watch(novelName, chapters)

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-changes:
		}
		snapshot = store.Snapshot()
		printer.print(snapshot, chapters)
		if len(watcher.Watching(novelName)) > 0 {
			continue
		}
		if allChaptersParsed(snapshot, chapters) {
			printer.done(len(chapters))
			return nil
		}
		if snapshot.LastError != nil {
			return snapshot.LastError
		}
		return fmt.Errorf("watch %s ended before every chapter was parsed", novelName)
	}
}

func allChaptersParsed(snapshot state.Snapshot, chapters []string) bool {
	for _, name := range chapters {
		ch, ok := snapshot.Chapter(name)
		if !ok || !ch.Status.Terminal() {
			return false
		}
	}
	return true
}

// watchPrinter writes one line per observed status change. Structured
// formats emit one JSON document per line, or one YAML document per change.
type watchPrinter struct {
	out      io.Writer
	format   outputFormat
	colorize bool
	seen     map[string]novel.Chapter
}

func newWatchPrinter(out io.Writer, format outputFormat, colorize bool) *watchPrinter {
	return &watchPrinter{out: out, format: format, colorize: colorize, seen: make(map[string]novel.Chapter)}
}

func (p *watchPrinter) print(snapshot state.Snapshot, chapters []string) {
	for _, name := range chapters {
		ch, ok := snapshot.Chapter(name)
		if !ok {
			continue
		}
		if prev, seen := p.seen[name]; seen && prev == ch {
			continue
		}
		p.seen[name] = ch
		p.line(ch)
	}
}

type watchEvent struct {
	Time     string       `json:"time" yaml:"time"`
	Name     string       `json:"name" yaml:"name"`
	Status   novel.Status `json:"status" yaml:"status"`
	Progress float64      `json:"progress" yaml:"progress"`
}

func (p *watchPrinter) line(ch novel.Chapter) {
	now := time.Now()
	event := watchEvent{Time: now.Format(time.RFC3339), Name: ch.Name, Status: ch.Status, Progress: ch.Percent()}
	switch p.format {
	case outputJSON:
		_ = json.NewEncoder(p.out).Encode(event)
	case outputYAML:
		data, err := yaml.Marshal(event)
		if err == nil {
			fmt.Fprintf(p.out, "---\n%s", data)
		}
	default:
		fmt.Fprintf(p.out, "%s  %s  %s  %3.0f%%\n",
			now.Format("15:04:05"), ch.Name, colorStatus(ch.Status, p.colorize), ch.Percent())
	}
}

func (p *watchPrinter) done(count int) {
	if p.format != outputTable {
		return
	}
	noun := "chapters"
	if count == 1 {
		noun = "chapter"
	}
	fmt.Fprintf(p.out, "All %d %s parsed\n", count, noun)
}
