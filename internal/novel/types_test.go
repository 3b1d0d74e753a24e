package novel

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  Status
		known bool
	}{
		{"已解析", StatusParsed, true},
		{" 正在解析 ", StatusParsing, true},
		{"未解析", StatusUnparsed, true},
		{"parsed", StatusParsed, true},
		{"PARSING", StatusParsing, true},
		{"queued", Status("queued"), false},
	}
	for _, tc := range cases {
		got := ParseStatus(tc.in)
		if got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if got.Known() != tc.known {
			t.Fatalf("ParseStatus(%q).Known() = %v, want %v", tc.in, got.Known(), tc.known)
		}
	}
}

func TestChapterUnmarshalAndPercent(t *testing.T) {
	var ch Chapter
	if err := json.Unmarshal([]byte(`{"name":"c","status":"已解析","progress":140}`), &ch); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if ch.Status != StatusParsed || !ch.Status.Terminal() {
		t.Fatalf("Status = %q, want PARSED", ch.Status)
	}
	if ch.Percent() != 100 {
		t.Fatalf("Percent = %v, want 100", ch.Percent())
	}
	if (Chapter{Progress: -3}).Percent() != 0 {
		t.Fatalf("Percent should clamp negatives to 0")
	}
	if err := json.Unmarshal([]byte(`{"status":7}`), &ch); err == nil {
		t.Fatalf("Unmarshal returned nil error for numeric status")
	}
}

func TestAudioManifestMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		M AudioManifest `json:"m"`
	}{M: AudioManifest(`{"a":1}`)})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"m":{"a":1}}` {
		t.Fatalf("Marshal = %s", data)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if ParseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("ParseTime should parse RFC3339")
	}
	got := ParseTime("2025-12-13 10:11:12,345")
	if got.IsZero() {
		t.Fatalf("ParseTime should parse backend timestamp with millis")
	}
	if got.Year() != 2025 || got.Month() != time.December || got.Day() != 13 {
		t.Fatalf("ParseTime = %v, want 2025-12-13", got)
	}
	if !ParseTime("yesterday").IsZero() {
		t.Fatalf("ParseTime should return zero for garbage")
	}
}
