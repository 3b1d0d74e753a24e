package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/five82/quill/internal/novel"
)

func TestTail(t *testing.T) {
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
		{name: "read one", maxLines: 1, expected: expectedAll[9:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tail(strings.NewReader(content.String()), tt.maxLines)
			if err != nil {
				t.Fatalf("Tail returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Tail = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTail_EmptyInput(t *testing.T) {
	got, err := Tail(strings.NewReader(""), 5)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Tail = %v, want empty", got)
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Read(path, 2)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("Read = %v, want [b c]", got)
	}

	missing, err := Read(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || missing != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		line string
		want novel.LogLevel
	}{
		{"2024-10-10 14:32:15,123 - parser - INFO - 第1章 parsed", novel.LevelInfo},
		{"2024-10-10 14:32:15,123 - parser - ERROR - model timeout", novel.LevelError},
		{"2024-10-10 14:32:15 - WARNING - slow response", novel.LevelWarning},
		{"[warn] retrying", novel.LevelWarning},
		{"debug: cache miss", novel.LevelDebug},
		{"INFO - recovered from ERROR state", novel.LevelInfo},
		{"INFORMATION only", novel.LevelAll},
		{"plain text", novel.LevelAll},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.line); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	lines := []string{"x - INFO - a", "x - ERROR - b", "x - INFO - c"}

	if got := Filter(lines, novel.LevelAll); !reflect.DeepEqual(got, lines) {
		t.Fatalf("Filter(all) = %v", got)
	}
	if got := Filter(lines, novel.LevelError); !reflect.DeepEqual(got, []string{"x - ERROR - b"}) {
		t.Fatalf("Filter(error) = %v", got)
	}
	if got := Filter(lines, novel.LevelDebug); len(got) != 0 {
		t.Fatalf("Filter(debug) = %v, want empty", got)
	}
}
