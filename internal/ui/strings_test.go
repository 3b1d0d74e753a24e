package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"fits", "chapter", 10, "chapter"},
		{"trims", "  chapter  ", 7, "chapter"},
		{"ascii", "chapter one", 8, "chapter…"},
		{"cjk", "第一章开始", 6, "第一…"},
		{"zero", "anything", 0, ""},
		{"one", "第一章", 1, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncate(tc.in, tc.limit); got != tc.want {
				t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
			if w := cellWidth(truncate(tc.in, tc.limit)); tc.limit > 0 && w > tc.limit {
				t.Fatalf("truncate(%q, %d) is %d cells wide", tc.in, tc.limit, w)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("/home/user/novels/第一章.txt", 14)
	if got == "/home/user/novels/第一章.txt" {
		t.Fatal("expected truncation")
	}
	if w := cellWidth(got); w > 14 {
		t.Fatalf("got %q (%d cells), want <=14", got, w)
	}
	if got[len(got)-len(".txt"):] != ".txt" {
		t.Fatalf("truncateMiddle dropped the tail: %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("已解析", 8); cellWidth(got) != 8 {
		t.Fatalf("padRight width = %d, want 8", cellWidth(got))
	}
	if got := padRight("long value", 4); got != "long value" {
		t.Fatalf("padRight shortened value: %q", got)
	}
}

func TestScrollOffset(t *testing.T) {
	cases := []struct {
		cursor, prev, height, count, want int
	}{
		{0, 0, 10, 100, 0},
		{9, 0, 10, 100, 0},
		{10, 0, 10, 100, 1},
		{5, 8, 10, 100, 5},
		{50, 45, 10, 100, 45},
		{0, 0, 0, 100, 0},
		{0, 3, 10, 0, 0},
	}
	for _, tc := range cases {
		if got := scrollOffset(tc.cursor, tc.prev, tc.height, tc.count); got != tc.want {
			t.Fatalf("scrollOffset(%d, %d, %d, %d) = %d, want %d",
				tc.cursor, tc.prev, tc.height, tc.count, got, tc.want)
		}
	}
}

func TestTrimLogBuffer(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	got := trimLogBuffer(lines, 2)
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("trimLogBuffer = %v, want [c d]", got)
	}
	if got := trimLogBuffer(lines, 0); len(got) != 4 {
		t.Fatalf("trimLogBuffer limit 0 = %v, want unchanged", got)
	}
}
