package ui

import "github.com/five82/quill/internal/visibility"

// pagerPrefetchRows extends the visible window downwards so the next page is
// requested slightly before the user reaches the end of the list.
const pagerPrefetchRows = 3

// sentinelRow is the "load more" row drawn after the last loaded chapter.
type sentinelRow struct {
	line  int
	width int
}

func (s sentinelRow) Bounds() visibility.Rect {
	return visibility.Rect{X: 0, Y: s.line, W: max(s.width, 1), H: 1}
}

// chapterPager drives lazy loading of the chapter list. The sentinel row is
// the anchor of a visibility trigger; each time it scrolls into view the next
// page is due. The pager lives behind a pointer so it survives Bubble Tea's
// model copies.
type chapterPager struct {
	viewport *visibility.Viewport
	sentinel *visibility.Ref
	trigger  *visibility.Trigger

	anchorLine int // -1 when no sentinel is placed
	pending    bool
	loading    bool
	failed     bool
}

func newChapterPager() *chapterPager {
	p := &chapterPager{
		viewport:   visibility.NewViewport(),
		sentinel:   visibility.NewRef(nil),
		anchorLine: -1,
	}
	p.trigger = visibility.Attach(p.sentinel, func() { p.pending = true },
		visibility.Options{Margin: visibility.Margin{Bottom: pagerPrefetchRows}},
		p.viewport.NewObserver)
	return p
}

// Sync places the sentinel after rows loaded rows, or removes it when no
// further pages exist, then reports the visible window. It returns true when
// the next page should be requested; the caller must answer with Loaded or
// Failed.
func (p *chapterPager) Sync(rows int, hasMore bool, window visibility.Rect) bool {
	switch {
	case !hasMore:
		if p.anchorLine >= 0 {
			p.trigger.Stop()
			p.sentinel.Set(nil)
			p.anchorLine = -1
		}
	case p.anchorLine != rows || !p.trigger.Active():
		// A moved sentinel gets a fresh observation so it fires again if it
		// is still in view after the page lands.
		p.sentinel.Set(sentinelRow{line: rows, width: window.W})
		p.trigger.Start()
		p.anchorLine = rows
	}

	p.viewport.Update(window)

	due := p.pending && !p.loading && !p.failed
	p.pending = false
	if due {
		p.loading = true
	}
	return due
}

// Loaded ends an in-flight request.
func (p *chapterPager) Loaded() {
	p.loading = false
	p.failed = false
}

// Failed ends an in-flight request without retrying it automatically.
func (p *chapterPager) Failed() {
	p.loading = false
	p.failed = true
}

// Retry re-arms the sentinel after a failure.
func (p *chapterPager) Retry() {
	p.failed = false
	if p.anchorLine >= 0 {
		p.trigger.Start()
	}
}

// Suspend ends the observation while the chapter list is off screen. The
// next Sync starts it again.
func (p *chapterPager) Suspend() {
	p.trigger.Stop()
	p.pending = false
}

// Reset forgets the current list, used when another novel is opened.
func (p *chapterPager) Reset() {
	p.trigger.Stop()
	p.sentinel.Set(nil)
	p.anchorLine = -1
	p.pending = false
	p.loading = false
	p.failed = false
}

// Loading reports whether a page request is in flight.
func (p *chapterPager) Loading() bool { return p.loading }

// Failing reports whether the last page request failed.
func (p *chapterPager) Failing() bool { return p.failed }
