package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/five82/quill/internal/novel"
)

// Tail returns at most maxLines from the end of r. A non-positive maxLines
// returns every line.
func Tail(r io.Reader, maxLines int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()
	return Tail(file, maxLines)
}

// ParseLevel reports the severity named in a backend log line, or
// novel.LevelAll when none is present. The backend formats lines as
// "2024-10-10 14:32:15,123 - task - INFO - message", so the first level
// token wins.
func ParseLevel(line string) novel.LogLevel {
	upper := strings.ToUpper(line)
	best := -1
	level := novel.LevelAll
	for _, candidate := range []struct {
		token string
		level novel.LogLevel
	}{
		{"ERROR", novel.LevelError},
		{"CRITICAL", novel.LevelError},
		{"WARNING", novel.LevelWarning},
		{"WARN", novel.LevelWarning},
		{"INFO", novel.LevelInfo},
		{"DEBUG", novel.LevelDebug},
	} {
		pos := indexWord(upper, candidate.token)
		if pos >= 0 && (best < 0 || pos < best) {
			best = pos
			level = candidate.level
		}
	}
	return level
}

// Filter keeps lines at the given level. LevelAll keeps everything.
func Filter(lines []string, level novel.LogLevel) []string {
	if level == novel.LevelAll || level == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if ParseLevel(line) == level {
			out = append(out, line)
		}
	}
	return out
}

// indexWord finds token in s where it is not part of a longer word.
func indexWord(s, token string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], token)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(token)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return start
		}
		offset = end
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
