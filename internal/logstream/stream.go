package logstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/five82/quill/internal/logtail"
	"github.com/five82/quill/internal/novel"
)

// Entry is one log record received from the stream.
type Entry struct {
	Time    time.Time
	Level   novel.LogLevel
	Message string
	// Raw holds the line as received for plain-text frames.
	Raw string
}

// Line renders the entry in the backend's text log layout.
func (e Entry) Line() string {
	if e.Raw != "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("2006-01-02 15:04:05"))
		b.WriteString(" - ")
	}
	if e.Level != "" && e.Level != novel.LevelAll {
		b.WriteString(strings.ToUpper(string(e.Level)))
		b.WriteString(" - ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Options tune a subscription.
type Options struct {
	// Origin is sent in the handshake. Defaults to the stream URL's http(s) origin.
	Origin string
	// Buffer is the channel capacity. Defaults to 256.
	Buffer int
	// Level drops entries at other levels. Empty or LevelAll keeps everything.
	Level  novel.LogLevel
	Logger *slog.Logger
}

const defaultBuffer = 256

// Subscription is a live log stream. Entries is closed when the connection
// ends or the context is cancelled; Err then reports why.
type Subscription struct {
	Entries <-chan Entry

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// Err returns the terminal error once Entries is closed. A cancelled context
// and a clean close by the server both yield nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed after Entries is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe dials rawURL and streams log entries until ctx is done or the
// connection drops. It does not reconnect.
func Subscribe(ctx context.Context, rawURL string, opts Options) (*Subscription, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origin := opts.Origin
	if origin == "" {
		var err error
		origin, err = originFor(rawURL)
		if err != nil {
			return nil, err
		}
	}
	cfg, err := websocket.NewConfig(rawURL, origin)
	if err != nil {
		return nil, fmt.Errorf("log stream config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial log stream: %w", err)
	}

	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	entries := make(chan Entry, buffer)
	sub := &Subscription{Entries: entries, done: make(chan struct{})}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	go func() {
		defer close(sub.done)
		defer close(entries)
		defer stop()
		defer conn.Close()

		logger.Debug("log stream connected", "url", rawURL)
		for {
			var frame string
			if err := websocket.Message.Receive(conn, &frame); err != nil {
				if ctx.Err() == nil && !errors.Is(err, io.EOF) {
					sub.mu.Lock()
					sub.err = fmt.Errorf("receive log frame: %w", err)
					sub.mu.Unlock()
					logger.Warn("log stream ended", "error", err)
				}
				return
			}
			for _, entry := range ParseFrame(frame) {
				if opts.Level != "" && opts.Level != novel.LevelAll && entry.Level != opts.Level {
					continue
				}
				select {
				case entries <- entry:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}

type wireEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ParseFrame decodes one WebSocket frame. Frames are a JSON object, a JSON
// array of objects, or plain text with one record per line.
func ParseFrame(frame string) []Entry {
	trimmed := strings.TrimSpace(frame)
	if trimmed == "" {
		return nil
	}
	switch trimmed[0] {
	case '{':
		var w wireEntry
		if err := json.Unmarshal([]byte(trimmed), &w); err == nil {
			return []Entry{fromWire(w)}
		}
	case '[':
		var ws []wireEntry
		if err := json.Unmarshal([]byte(trimmed), &ws); err == nil {
			out := make([]Entry, 0, len(ws))
			for _, w := range ws {
				out = append(out, fromWire(w))
			}
			return out
		}
	}

	var out []Entry
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Entry{Level: logtail.ParseLevel(line), Message: line, Raw: line})
	}
	return out
}

func fromWire(w wireEntry) Entry {
	level := novel.LogLevel(strings.ToLower(strings.TrimSpace(w.Level)))
	switch level {
	case "warn":
		level = novel.LevelWarning
	case "critical":
		level = novel.LevelError
	case "":
		level = logtail.ParseLevel(w.Message)
	}
	return Entry{
		Time:    novel.ParseTime(w.Timestamp),
		Level:   level,
		Message: w.Message,
	}
}

func originFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse log stream url: %w", err)
	}
	scheme := "http"
	switch u.Scheme {
	case "wss":
		scheme = "https"
	case "ws":
	default:
		return "", fmt.Errorf("log stream url must use ws or wss, got %q", u.Scheme)
	}
	return scheme + "://" + u.Host, nil
}
