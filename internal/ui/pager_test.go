package ui

import (
	"testing"

	"github.com/five82/quill/internal/visibility"
)

func window(offset, height int) visibility.Rect {
	return visibility.Rect{X: 0, Y: offset, W: 80, H: height}
}

func TestChapterPager_EmptyListRequestsFirstPage(t *testing.T) {
	p := newChapterPager()

	if !p.Sync(0, true, window(0, 20)) {
		t.Fatal("first Sync should request a page for an empty list")
	}
	if !p.Loading() {
		t.Fatal("pager should be loading after a request")
	}
	if p.Sync(0, true, window(0, 20)) {
		t.Fatal("no second request while one is in flight")
	}
}

func TestChapterPager_RequestsWhenSentinelScrollsIntoView(t *testing.T) {
	p := newChapterPager()
	p.Sync(0, true, window(0, 20))
	p.Loaded()

	// Sentinel at line 50 is far below a 20-line window.
	if p.Sync(50, true, window(0, 20)) {
		t.Fatal("sentinel out of view should not request")
	}
	if p.Sync(50, true, window(10, 20)) {
		t.Fatal("sentinel still out of view should not request")
	}
	// Prefetch margin: window 28..47 grows to 28..50, which includes line 50.
	if !p.Sync(50, true, window(28, 20)) {
		t.Fatal("sentinel inside the prefetch margin should request")
	}
}

func TestChapterPager_FiresOncePerEntry(t *testing.T) {
	p := newChapterPager()
	p.Sync(0, true, window(0, 20))
	p.Loaded()

	if !p.Sync(30, true, window(15, 20)) {
		t.Fatal("expected request on entry")
	}
	p.Failed()
	p.Retry()
	// Retry re-arms the same sentinel; it is still visible so it fires.
	if !p.Sync(30, true, window(15, 20)) {
		t.Fatal("expected request after retry")
	}
	p.Failed()
	// Without Retry a failed page is not requested again.
	if p.Sync(30, true, window(0, 10)) || p.Sync(30, true, window(15, 20)) {
		t.Fatal("failed page should wait for Retry")
	}
}

func TestChapterPager_NoMorePagesRemovesSentinel(t *testing.T) {
	p := newChapterPager()
	p.Sync(0, true, window(0, 20))
	p.Loaded()

	if p.Sync(5, false, window(0, 20)) {
		t.Fatal("no request once the list is complete")
	}
	if p.trigger.Active() {
		t.Fatal("trigger should stop when there are no more pages")
	}
	if n := p.viewport.Observing(); n != 0 {
		t.Fatalf("Observing = %d, want 0", n)
	}
}

func TestChapterPager_ResetStartsOver(t *testing.T) {
	p := newChapterPager()
	p.Sync(0, true, window(0, 20))
	p.Reset()
	if p.Loading() || p.trigger.Active() {
		t.Fatal("Reset should clear loading and stop the trigger")
	}
	if !p.Sync(0, true, window(0, 20)) {
		t.Fatal("a fresh list should request its first page")
	}
}
