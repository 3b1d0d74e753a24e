// Package novel provides an HTTP client for the novel-processing backend.
//
// # Overview
//
// The backend stores novels as directories of chapters, parses chapters on
// request with a chosen model, and keeps its own task logs. This package
// covers every endpoint quill needs:
//
//   - GET  /novels                                   novel names
//   - GET  /novels/{novel}/chapters                  chapters, optionally paged
//   - POST /novels/{novel}/chapters/statuses         statuses for named chapters
//   - POST /novels/{novel}/chapters/{chapter}/parse  start parsing (?model=)
//   - GET  /novels/{novel}/chapters/{chapter}/view   raw chapter text
//   - GET  /novels/{novel}/chapters/{chapter}/audio_list_with_text
//   - GET  /logs, /logs/export, /logs/stats
//
// Paths are relative to the configured API root, which normally ends in /api
// (the backend is served behind the same /api prefix the web client uses).
//
// # Client Usage
//
//	client, err := novel.NewClient("http://127.0.0.1:8888/api", 0)
//	if err != nil {
//		return err
//	}
//	chapters, err := client.FetchChapterStatuses(ctx, "三体", []string{"第1章"})
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Include User-Agent: quill/0.1 and a fresh X-Request-ID
//   - NFC-normalise novel and chapter names and escape each path segment
//   - Return wrapped errors with context about what failed
//
// # Error Handling
//
//   - Transport failures: "execute request: dial tcp: connection refused"
//   - Non-2xx responses: *APIError, "api GET /api/logs returned status 500: ..."
//   - Malformed payloads: "decode response: ..."
//
// A status response whose record count differs from the request is treated as
// malformed, since callers rely on the one-to-one ordering.
//
// # Chapter Status
//
// The backend labels statuses in Chinese (未解析, 正在解析, 已解析). Status
// decodes those and the English names to the same three values; anything
// else is kept verbatim and reports Known() == false.
package novel
