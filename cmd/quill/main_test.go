package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

type fakeBackend struct {
	mu       sync.Mutex
	parsed   []string
	statuses int
	logQuery string
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/novels":
			_, _ = io.WriteString(w, `["三体","球状闪电"]`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/novels/三体/chapters":
			_, _ = io.WriteString(w, `{"items":[
				{"name":"第1章","status":"已解析","progress":100},
				{"name":"第2章","status":"正在解析","progress":40},
				{"name":"第3章","status":"未解析","progress":0}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/novels/三体/chapters/statuses":
			b.statuses++
			var names []string
			if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
				t.Errorf("decode statuses body: %v", err)
			}
			out := make([]map[string]any, len(names))
			for i, n := range names {
				out[i] = map[string]any{"name": n, "status": "已解析", "progress": 100}
			}
			_ = json.NewEncoder(w).Encode(out)
		case r.Method == http.MethodPost && r.URL.Path == "/api/novels/三体/chapters/第3章/parse":
			b.parsed = append(b.parsed, r.URL.Query().Get("model"))
			_, _ = io.WriteString(w, `{"ok":true}`)
		case r.URL.Path == "/api/novels/三体/chapters/第1章/view":
			_, _ = io.WriteString(w, "汪淼觉得，来找他的这几个人")
		case r.URL.Path == "/api/novels/三体/chapters/第1章/audio_list_with_text":
			_, _ = io.WriteString(w, `[{"src":"/audio/1.mp3","text":"汪淼"}]`)
		case r.URL.Path == "/api/logs":
			b.logQuery = r.URL.RawQuery
			_, _ = io.WriteString(w, "2026-10-15 09:00:00 - INFO - one\n2026-10-15 09:00:01 - ERROR - two\n2026-10-15 09:00:02 - INFO - three\n")
		case r.URL.Path == "/api/logs/export":
			_, _ = io.WriteString(w, "exported "+r.URL.Query().Get("format"))
		case r.URL.Path == "/api/logs/stats":
			_, _ = io.WriteString(w, `{"total":12345,"byLevel":{"info":12000,"error":345},"recent":[{"timestamp":"2026-10-15 09:00:01","level":"ERROR","message":"two"}]}`)
		default:
			http.NotFound(w, r)
		}
	})
}

func startBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	t.Setenv("HOME", t.TempDir())
	return backend, server.URL + "/api"
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCLINovels(t *testing.T) {
	_, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "novels")
	if err != nil {
		t.Fatalf("novels: %v", err)
	}
	if !strings.Contains(out, "三体") || !strings.Contains(out, "球状闪电") {
		t.Fatalf("table output = %q", out)
	}

	out, _, err = runCLI(t, "--api", api, "-o", "json", "novels")
	if err != nil {
		t.Fatalf("novels json: %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("decode json: %v (%q)", err, out)
	}
	if len(names) != 2 || names[0] != "三体" {
		t.Fatalf("names = %v", names)
	}
}

func TestCLIChapters(t *testing.T) {
	_, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "chapters", "三体")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	for _, want := range []string{"第1章", "已解析", "正在解析", "40%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("chapters output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, "--api", api, "-o", "yaml", "chapters", "三体", "--parsing")
	if err != nil {
		t.Fatalf("chapters yaml: %v", err)
	}
	var chapters []struct {
		Name   string `yaml:"name"`
		Status string `yaml:"status"`
	}
	if err := yaml.Unmarshal([]byte(out), &chapters); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != "第2章" || chapters[0].Status != "PARSING" {
		t.Fatalf("chapters = %+v, want only 第2章 PARSING", chapters)
	}
}

func TestCLIParseAndWatch(t *testing.T) {
	backend, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "parse", "三体", "第3章", "--model", "fast")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "Parsing 第3章 with model fast") {
		t.Fatalf("parse output = %q", out)
	}

	out, _, err = runCLI(t, "--api", api, "--poll", "1", "parse", "--watch", "三体", "第3章")
	if err != nil {
		t.Fatalf("parse --watch: %v", err)
	}
	if !strings.Contains(out, "All 1 chapter parsed") {
		t.Fatalf("watch output = %q", out)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.parsed) != 2 || backend.parsed[0] != "fast" || backend.parsed[1] != "default" {
		t.Fatalf("parse models = %v, want [fast default]", backend.parsed)
	}
	if backend.statuses == 0 {
		t.Fatal("watch never polled statuses")
	}
}

func TestCLIWatchUnknownChapter(t *testing.T) {
	_, api := startBackend(t)
	_, _, err := runCLI(t, "--api", api, "watch", "三体", "第9章")
	if err == nil || !strings.Contains(err.Error(), "第9章") {
		t.Fatalf("err = %v, want unknown chapter error", err)
	}
}

func TestCLIWatchAlreadyParsed(t *testing.T) {
	backend, api := startBackend(t)
	out, _, err := runCLI(t, "--api", api, "watch", "三体", "第1章")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out, "All 1 chapter parsed") {
		t.Fatalf("watch output = %q", out)
	}
	if backend.statuses != 0 {
		t.Fatalf("statuses polled %d times, want 0", backend.statuses)
	}
}

func TestCLITextAndAudio(t *testing.T) {
	_, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "text", "三体", "第1章")
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if out != "汪淼觉得，来找他的这几个人\n" {
		t.Fatalf("text = %q", out)
	}

	out, _, err = runCLI(t, "--api", api, "audio", "三体", "第1章")
	if err != nil {
		t.Fatalf("audio: %v", err)
	}
	if !strings.Contains(out, `"src": "/audio/1.mp3"`) {
		t.Fatalf("audio = %q", out)
	}
}

func TestCLILogs(t *testing.T) {
	backend, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "logs", "--level", "warn", "--limit", "50", "--tail", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "2026-10-15 09:00:01 - ERROR - two\n2026-10-15 09:00:02 - INFO - three\n" {
		t.Fatalf("logs = %q", out)
	}
	if !strings.Contains(backend.logQuery, "level=warning") || !strings.Contains(backend.logQuery, "limit=50") {
		t.Fatalf("query = %q", backend.logQuery)
	}

	if _, _, err := runCLI(t, "--api", api, "logs", "--level", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestCLILogsFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "export.txt")
	content := "a - INFO - one\nb - ERROR - two\nc - INFO - three\nd - ERROR - four\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	out, _, err := runCLI(t, "logs", "--file", path, "--level", "error")
	if err != nil {
		t.Fatalf("logs --file: %v", err)
	}
	if out != "b - ERROR - two\nd - ERROR - four\n" {
		t.Fatalf("logs = %q", out)
	}
}

func TestCLILogsExport(t *testing.T) {
	_, api := startBackend(t)
	dest := filepath.Join(t.TempDir(), "logs", "out.json")

	_, stderr, err := runCLI(t, "--api", api, "logs", "export", "--format", "json", "--out", dest)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "exported json" {
		t.Fatalf("export = %q", data)
	}
	if !strings.Contains(stderr, "13 B") {
		t.Fatalf("stderr = %q, want byte count", stderr)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	if _, _, err := runCLI(t, "--api", api, "logs", "export", "--format", "csv"); err == nil {
		t.Fatal("expected error for unknown export format")
	}
}

func TestCLILogStats(t *testing.T) {
	_, api := startBackend(t)

	out, _, err := runCLI(t, "--api", api, "logs", "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Total: 12,345", "12,000", "ERROR", "two"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ERROR") > strings.Index(out, "INFO") {
		t.Fatalf("levels not ordered by severity:\n%s", out)
	}
}

func TestCLIRejectsUnknownOutput(t *testing.T) {
	_, api := startBackend(t)
	if _, _, err := runCLI(t, "--api", api, "-o", "xml", "novels"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestSortedLevels(t *testing.T) {
	got := sortedLevels(map[string]int{"debug": 1, "zzz": 2, "WARN": 3, "error": 4, "info": 5})
	var order []string
	for _, entry := range got {
		order = append(order, entry.level)
	}
	want := []string{"error", "WARN", "info", "debug", "zzz"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}
