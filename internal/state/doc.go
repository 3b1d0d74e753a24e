// Package state holds the client-side view of the backend for the TUI.
//
// # Overview
//
// Requests and status polls complete on background goroutines while the UI
// renders from its own loop. Store is the meeting point: writers call its
// mutators, readers take a Snapshot, and every access is guarded by a
// RWMutex.
//
//	Producers:                     Consumer (UI):
//	┌──────────────────────┐      ┌──────────────────┐
//	│ SetNovels()          │      │                  │
//	│ AppendChapters()     │─────→│ store.Snapshot() │
//	│ MergeStatuses() poll │(mutex│      ↓           │
//	│ RecordError()        │)     │  render          │
//	└──────────────────────┘      └──────────────────┘
//
// # Chapters and Pagination
//
// Selecting a novel clears the chapter list and resets the page cursor.
// AppendChapters only accepts the page the cursor expects for the selected
// novel, so a slow response for a novel the user already left, or a page
// requested twice, cannot corrupt the list. A page shorter than the page size
// clears HasMore.
//
// MergeStatuses applies poll results by chapter name. Display order is the
// order pages arrived in and never changes.
//
// # Failures
//
// A failed request keeps whatever was loaded and records the error.
// ConsecutiveFailures counts failures since the last success and IsOffline
// reports two or more in a row.
//
// # Snapshots
//
// Snapshot copies the slices and wraps LastError so callers may keep or
// modify what they receive without affecting the store.
package state
