package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/five82/quill/internal/novel"
	"github.com/five82/quill/internal/poll"
	"github.com/five82/quill/internal/state"
)

// WatcherOptions configure a ChapterWatcher.
type WatcherOptions struct {
	Interval time.Duration
	Logger   *slog.Logger
	// OnChange runs after every merge or failure, on the poll goroutine.
	OnChange func()
}

// ChapterWatcher keeps the parse status of in-flight chapters current. It runs
// at most one poll loop per novel.
type ChapterWatcher struct {
	ctx     context.Context
	fetcher poll.Fetcher
	store   *state.Store
	opts    WatcherOptions
	logger  *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	watches map[string]watch
}

type watch struct {
	id       uint64
	handle   *poll.Handle
	chapters []string
}

// NewChapterWatcher returns a watcher whose loops end when ctx does.
func NewChapterWatcher(ctx context.Context, fetcher poll.Fetcher, store *state.Store, opts WatcherOptions) *ChapterWatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Interval <= 0 {
		opts.Interval = poll.DefaultInterval
	}
	return &ChapterWatcher{
		ctx:     ctx,
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  logger.With("component", "watcher"),
		watches: make(map[string]watch),
	}
}

// Watch replaces whatever is being watched for novelName with chapters.
// Results are merged into the store. The loop stops on its own once every
// chapter reports PARSED, and on the first failed fetch.
func (w *ChapterWatcher) Watch(novelName string, chapters []string) {
	names := slices.Clone(chapters)

	w.mu.Lock()
	prev, id := w.reserveLocked(novelName, names)
	w.mu.Unlock()

	w.launch(novelName, id, names, prev)
}

// Add extends the watch for novelName with chapters not already watched. A
// running loop is left alone when nothing new is added.
func (w *ChapterWatcher) Add(novelName string, chapters ...string) {
	w.mu.Lock()
	merged := slices.Clone(w.watches[novelName].chapters)
	added := false
	for _, name := range chapters {
		if name != "" && !slices.Contains(merged, name) {
			merged = append(merged, name)
			added = true
		}
	}
	if !added {
		w.mu.Unlock()
		return
	}
	prev, id := w.reserveLocked(novelName, merged)
	w.mu.Unlock()

	w.launch(novelName, id, merged, prev)
}

// reserveLocked swaps the slot for novelName to a new watch of names and
// returns the handle it displaced. The slot is reserved before the loop
// exists so callbacks can find it. An empty names clears the slot and
// returns id 0. Called with w.mu held.
func (w *ChapterWatcher) reserveLocked(novelName string, names []string) (*poll.Handle, uint64) {
	prev := w.watches[novelName].handle
	delete(w.watches, novelName)
	if len(names) == 0 {
		return prev, 0
	}
	w.nextID++
	w.watches[novelName] = watch{id: w.nextID, chapters: names}
	return prev, w.nextID
}

// launch stops the displaced loop and starts the one reserved under id.
func (w *ChapterWatcher) launch(novelName string, id uint64, names []string, prev *poll.Handle) {
	prev.Stop()
	if id == 0 {
		return
	}

	handle := poll.Start(w.ctx, w.fetcher, novelName, names,
		func(records []novel.Chapter) { w.handleUpdate(novelName, id, records) },
		func(err error) { w.handleError(novelName, id, err) },
		poll.WithInterval(w.opts.Interval),
		poll.WithLogger(w.logger),
	)

	w.mu.Lock()
	current, ok := w.watches[novelName]
	if ok && current.id == id {
		current.handle = handle
		w.watches[novelName] = current
		w.mu.Unlock()
		w.logger.Debug("watching chapters", "novel", novelName, "count", len(names))
		return
	}
	w.mu.Unlock()
	// Superseded or finished before the handle was recorded.
	handle.Stop()
}

// Watching returns the chapters being polled for novelName.
func (w *ChapterWatcher) Watching(novelName string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.watches[novelName].chapters)
}

// Stop ends the watch for novelName, if any.
func (w *ChapterWatcher) Stop(novelName string) {
	w.mu.Lock()
	prev, ok := w.watches[novelName]
	delete(w.watches, novelName)
	w.mu.Unlock()
	if ok {
		prev.handle.Stop()
	}
}

// StopAll ends every watch.
func (w *ChapterWatcher) StopAll() {
	w.mu.Lock()
	all := w.watches
	w.watches = make(map[string]watch)
	w.mu.Unlock()
	for _, entry := range all {
		entry.handle.Stop()
	}
}

func (w *ChapterWatcher) handleUpdate(novelName string, id uint64, records []novel.Chapter) {
	changed := w.store.MergeStatuses(novelName, records)
	if changed > 0 {
		w.logger.Debug("chapter statuses changed", "novel", novelName, "changed", changed)
	}
	if allParsed(records) {
		w.logger.Info("all watched chapters parsed", "novel", novelName, "count", len(records))
		w.finish(novelName, id)
	}
	w.notify()
}

func (w *ChapterWatcher) handleError(novelName string, id uint64, err error) {
	w.store.RecordError(fmt.Errorf("poll %s: %w", novelName, err))
	w.logger.Warn("status poll failed", "novel", novelName, "error", err)
	w.finish(novelName, id)
	w.notify()
}

// finish drops the watch if it is still the one identified by id. It runs
// inside poll callbacks, where stopping the handle is allowed.
func (w *ChapterWatcher) finish(novelName string, id uint64) {
	w.mu.Lock()
	current, ok := w.watches[novelName]
	if !ok || current.id != id {
		w.mu.Unlock()
		return
	}
	delete(w.watches, novelName)
	w.mu.Unlock()
	current.handle.Stop()
}

func (w *ChapterWatcher) notify() {
	if w.opts.OnChange != nil {
		w.opts.OnChange()
	}
}

func allParsed(records []novel.Chapter) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if !rec.Status.Terminal() {
			return false
		}
	}
	return true
}
