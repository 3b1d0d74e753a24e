package logstream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/five82/quill/internal/novel"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/logs"
}

func collect(t *testing.T, sub *Subscription) []Entry {
	t.Helper()
	var got []Entry
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-sub.Entries:
			if !ok {
				return got
			}
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out waiting for stream to close; got %d entries", len(got))
		}
	}
}

func TestSubscribe_DeliversFramesUntilServerCloses(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		_ = websocket.Message.Send(ws, `{"timestamp":"2024-10-10 14:32:15","level":"INFO","message":"parse started"}`)
		_ = websocket.Message.Send(ws, "2024-10-10 14:32:16,001 - parser - ERROR - model timeout")
		_ = websocket.Message.Send(ws, `[{"level":"warn","message":"slow"},{"level":"","message":"DEBUG cache"}]`)
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), wsURL(srv), Options{})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	got := collect(t, sub)
	if len(got) != 4 {
		t.Fatalf("got %d entries, want 4: %+v", len(got), got)
	}
	if got[0].Level != novel.LevelInfo || got[0].Message != "parse started" || got[0].Time.IsZero() {
		t.Fatalf("entry[0] = %+v", got[0])
	}
	if got[1].Level != novel.LevelError || got[1].Line() != "2024-10-10 14:32:16,001 - parser - ERROR - model timeout" {
		t.Fatalf("entry[1] = %+v", got[1])
	}
	if got[2].Level != novel.LevelWarning || got[3].Level != novel.LevelDebug {
		t.Fatalf("array entries = %+v %+v", got[2], got[3])
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("Err after clean close = %v, want nil", err)
	}
}

func TestSubscribe_LevelFilter(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		_ = websocket.Message.Send(ws, "x - INFO - a\nx - ERROR - b\nx - INFO - c")
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), wsURL(srv), Options{Level: novel.LevelError})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	got := collect(t, sub)
	if len(got) != 1 || got[0].Message != "x - ERROR - b" {
		t.Fatalf("filtered entries = %+v", got)
	}
}

func TestSubscribe_CancelClosesWithoutError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		_ = websocket.Message.Send(ws, "x - INFO - hello")
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Subscribe(ctx, wsURL(srv), Options{})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	select {
	case e := <-sub.Entries:
		if e.Message != "x - INFO - hello" {
			t.Fatalf("first entry = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no entry received")
	}

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not end after cancel")
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("Err after cancel = %v, want nil", err)
	}
}

func TestSubscribe_DialFailure(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := wsURL(srv)
	srv.Close()

	if _, err := Subscribe(context.Background(), url, Options{}); err == nil {
		t.Fatal("Subscribe returned nil error for closed server")
	}
	if _, err := Subscribe(context.Background(), "http://example.com/ws/logs", Options{}); err == nil {
		t.Fatal("Subscribe accepted a non-websocket scheme")
	}
}

func TestParseFrame(t *testing.T) {
	if got := ParseFrame("   "); got != nil {
		t.Fatalf("ParseFrame(blank) = %+v", got)
	}
	got := ParseFrame("{not json")
	if len(got) != 1 || got[0].Raw != "{not json" {
		t.Fatalf("malformed JSON should fall back to text: %+v", got)
	}
	got = ParseFrame(`{"timestamp":"2024-10-10T14:32:15Z","level":"CRITICAL","message":"boom"}`)
	if len(got) != 1 || got[0].Level != novel.LevelError {
		t.Fatalf("critical entry = %+v", got)
	}
	if line := got[0].Line(); !strings.HasSuffix(line, "ERROR - boom") {
		t.Fatalf("Line = %q", line)
	}
}
