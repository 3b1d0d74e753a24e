package prefs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme || p.LastNovel != "" || p.Model != "" {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "quill")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "theme = \"Slate\"\nlast_novel = \"  三体  \"\nmodel = \"qwen\"\n"
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" || p.LastNovel != "三体" || p.Model != "qwen" {
		t.Fatalf("Load = %+v", p)
	}
}

func TestSave_RoundTripsAndCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	want := Prefs{Theme: "Slate", LastNovel: "novel-a", Model: "default"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".prefs-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestSave_ConcurrentWritersLeaveValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	var wg sync.WaitGroup
	for _, theme := range []string{"Dracula", "Slate", "Dracula", "Slate"} {
		wg.Add(1)
		go func(theme string) {
			defer wg.Done()
			if err := Save(path, Prefs{Theme: theme}); err != nil {
				t.Errorf("Save(%s): %v", theme, err)
			}
		}(theme)
	}
	wg.Wait()

	p, _ := Load(path)
	if p.Theme != "Dracula" && p.Theme != "Slate" {
		t.Fatalf("Theme = %q after concurrent saves", p.Theme)
	}
}

func TestLoad_BadContentFallsBackToDefault(t *testing.T) {
	cases := map[string]string{
		"empty theme":  "theme = \"\"\n",
		"invalid toml": "not valid toml {{{\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if p.Theme != defaultTheme {
				t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
			}
		})
	}
}
