package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/quill/internal/novel"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Novels   []string
	Novel    string // selected novel, empty when none
	Chapters []novel.Chapter
	// HasMore is true while further chapter pages may exist.
	HasMore bool
	// NextPage is the 1-based page to request next.
	NextPage            int
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple requests.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Chapter returns the chapter with the given name.
func (s Snapshot) Chapter(name string) (novel.Chapter, bool) {
	for _, ch := range s.Chapters {
		if ch.Name == name {
			return ch, true
		}
	}
	return novel.Chapter{}, false
}

// Parsing lists the chapters currently reported as parsing, in display order.
func (s Snapshot) Parsing() []string {
	var names []string
	for _, ch := range s.Chapters {
		if ch.Status == novel.StatusParsing {
			names = append(names, ch.Name)
		}
	}
	return names
}

// Store coordinates concurrent updates to the snapshot. Poll callbacks run on
// their own goroutines while the UI reads, so every access goes through mu.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetNovels replaces the novel list. When err is non-nil the previous list
// is kept and the failure recorded.
func (s *Store) SetNovels(names []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.recordFailureLocked(err)
		return
	}
	s.snapshot.Novels = append([]string(nil), names...)
	s.recordSuccessLocked()
}

// SelectNovel switches the chapter list to name and resets pagination.
// Selecting the current novel again is a no-op.
func (s *Store) SelectNovel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Novel == name && name != "" {
		return
	}
	s.snapshot.Novel = name
	s.snapshot.Chapters = nil
	s.snapshot.NextPage = 1
	s.snapshot.HasMore = name != ""
}

// AppendChapters adds one page of chapters for novelName. Pages for a novel
// that is no longer selected, or for a page that was already applied, are
// ignored and reported false. A short page, or pageSize <= 0 meaning the
// backend returned everything, ends pagination.
func (s *Store) AppendChapters(novelName string, page int, items []novel.Chapter, pageSize int, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if novelName != s.snapshot.Novel || page != s.snapshot.NextPage {
		return false
	}
	if err != nil {
		s.recordFailureLocked(err)
		return false
	}

	seen := make(map[string]struct{}, len(s.snapshot.Chapters))
	for _, ch := range s.snapshot.Chapters {
		seen[ch.Name] = struct{}{}
	}
	added := 0
	for _, ch := range items {
		if _, dup := seen[ch.Name]; dup {
			continue
		}
		seen[ch.Name] = struct{}{}
		s.snapshot.Chapters = append(s.snapshot.Chapters, ch)
		added++
	}
	s.snapshot.NextPage++
	// A backend that ignores paging answers every page with the full list;
	// a page with nothing new ends pagination.
	s.snapshot.HasMore = pageSize > 0 && added > 0 && len(items) == pageSize
	s.recordSuccessLocked()
	return true
}

// MergeStatuses applies status records for novelName to the loaded chapters,
// matching by name and keeping display order. Records for chapters that are
// not loaded are dropped. It returns how many chapters changed.
func (s *Store) MergeStatuses(novelName string, records []novel.Chapter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if novelName != s.snapshot.Novel {
		return 0
	}
	byName := make(map[string]novel.Chapter, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}
	changed := 0
	for i, ch := range s.snapshot.Chapters {
		rec, ok := byName[ch.Name]
		if !ok {
			continue
		}
		if rec.Status != ch.Status || rec.Progress != ch.Progress {
			s.snapshot.Chapters[i].Status = rec.Status
			s.snapshot.Chapters[i].Progress = rec.Progress
			changed++
		}
	}
	s.recordSuccessLocked()
	return changed
}

// SetStatus marks a single chapter, used when a parse request is accepted
// before the first poll reports back.
func (s *Store) SetStatus(novelName, chapter string, status novel.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if novelName != s.snapshot.Novel {
		return
	}
	for i := range s.snapshot.Chapters {
		if s.snapshot.Chapters[i].Name == chapter {
			s.snapshot.Chapters[i].Status = status
			return
		}
	}
}

// RecordError notes a failed request without touching loaded data.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordFailureLocked(err)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Novels = cloneStrings(s.snapshot.Novels)
	snap.Chapters = cloneChapters(s.snapshot.Chapters)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) recordFailureLocked(err error) {
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

func (s *Store) recordSuccessLocked() {
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

func cloneStrings(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return append([]string(nil), items...)
}

func cloneChapters(items []novel.Chapter) []novel.Chapter {
	if len(items) == 0 {
		return nil
	}
	dup := make([]novel.Chapter, len(items))
	copy(dup, items)
	return dup
}
