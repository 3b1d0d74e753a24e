// Package app is the composition root of the quill TUI.
//
// # Overview
//
// Run loads the configuration and preferences, builds the HTTP client and
// the shared state.Store, and starts the Bubble Tea UI. It blocks until the
// user quits or the context is cancelled.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read quill config
//	       ├─────> prefs.Load()           Theme, last novel, model
//	       ├─────> novel.NewClient()      Create HTTP client
//	       ├─────> state.Store{}          Shared state container
//	       ├─────> NewChapterWatcher()    Status polls for parsing chapters
//	       └─────> ui.Run()               Start TUI (blocks)
//
//	Watcher loop (one per novel):
//	┌─────────────────────────────────────────┐
//	│ poll.Start() goroutine                  │
//	│  ├─> FetchChapterStatuses()             │
//	│  ├─> store.MergeStatuses()              │
//	│  └─> OnChange -> UI re-reads snapshot   │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// Nothing is polled until a chapter is parsing. The UI hands those chapters
// to ChapterWatcher, which keeps a single poll.Handle per novel and replaces
// it whenever the watched set grows. A loop ends once every chapter it
// watches reports PARSED, or on its first failed fetch; the failure is
// recorded in the store and shown in the header.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file unreadable or invalid
//   - Invalid API base URL
//   - Debug log file cannot be opened
//
// Everything else is recorded in the store or logged, and the UI keeps
// running.
package app
