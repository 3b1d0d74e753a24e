package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/five82/quill/internal/novel"
)

func newNovelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "novels",
		Short: "List novels known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			names, err := client.ListNovels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list novels: %w", err)
			}
			if names == nil {
				names = []string{}
			}
			if done, err := writeStructured(cmd, ctx.format(), names); done {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No novels")
				return nil
			}
			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{strconv.Itoa(i + 1), name}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"#", "Novel"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var page, pageSize int
	var parsingOnly bool

	cmd := &cobra.Command{
		Use:   "chapters <novel>",
		Short: "List chapters of a novel with their parse status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			query := novel.ChapterQuery{Page: page, PageSize: pageSize}
			if pageSize > 0 && page <= 0 {
				query.Page = 1
			}
			result, err := client.ListChapters(cmd.Context(), args[0], query)
			if err != nil {
				return fmt.Errorf("list chapters: %w", err)
			}

			chapters := result.Items
			if parsingOnly {
				chapters = filterStatus(chapters, novel.StatusParsing)
			}
			if chapters == nil {
				chapters = []novel.Chapter{}
			}
			if done, err := writeStructured(cmd, ctx.format(), chapters); done {
				return err
			}
			if len(chapters) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chapters")
				return nil
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			offset := 0
			if query.PageSize > 0 {
				offset = (query.Page - 1) * query.PageSize
			}
			rows := make([][]string, len(chapters))
			for i, ch := range chapters {
				rows[i] = []string{
					strconv.Itoa(offset + i + 1),
					ch.Name,
					colorStatus(ch.Status, colorize),
					fmt.Sprintf("%.0f%%", ch.Percent()),
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Chapter", "Status", "Progress"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page to list (1-based); requires --page-size")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Chapters per page; 0 lists every chapter")
	cmd.Flags().BoolVar(&parsingOnly, "parsing", false, "Only list chapters that are being parsed")
	return cmd
}

func newTextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "text <novel> <chapter>",
		Short: "Print the source text of a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			content, err := client.FetchChapterText(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("fetch text: %w", err)
			}
			payload := struct {
				Novel   string `json:"novel" yaml:"novel"`
				Chapter string `json:"chapter" yaml:"chapter"`
				Text    string `json:"text" yaml:"text"`
			}{args[0], args[1], content}
			if done, err := writeStructured(cmd, ctx.format(), payload); done {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			if len(content) > 0 && content[len(content)-1] != '\n' {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audio <novel> <chapter>",
		Short: "Print the audio manifest of a chapter",
		Long:  "Print the audio manifest of a chapter. The manifest is passed through as returned by the backend; table output prints it as indented JSON.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			manifest, err := client.FetchAudioManifest(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("fetch audio manifest: %w", err)
			}
			if ctx.format() == outputYAML {
				var decoded any
				if err := json.Unmarshal(manifest, &decoded); err != nil {
					return fmt.Errorf("decode audio manifest: %w", err)
				}
				return writeYAML(cmd, decoded)
			}
			if len(manifest) == 0 {
				manifest = novel.AudioManifest("null")
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, manifest, "", "  "); err != nil {
				return fmt.Errorf("decode audio manifest: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func filterStatus(chapters []novel.Chapter, status novel.Status) []novel.Chapter {
	var out []novel.Chapter
	for _, ch := range chapters {
		if ch.Status == status {
			out = append(out, ch)
		}
	}
	return out
}
