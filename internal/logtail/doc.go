// Package logtail trims and classifies backend log text.
//
// The backend returns logs as plain text, one record per line. Tail keeps
// the last N lines of a reader in a single pass using a ring buffer of size
// N, so memory stays O(N) however large the export is. Read does the same
// for a file on disk and treats a missing file as empty.
//
// ParseLevel finds the first whole-word level token (ERROR, CRITICAL,
// WARNING, WARN, INFO, DEBUG) in a line, case-insensitively. The UI uses it
// to colour lines and Filter uses it to narrow streamed lines to one level.
package logtail
