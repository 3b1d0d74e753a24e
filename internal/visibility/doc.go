// Package visibility fires callbacks when an anchor element scrolls into
// view.
//
// A Trigger binds one anchor Ref and one callback to an Observer. Start
// replaces any running observation with a new one (or with none when the
// anchor is nil); Stop ends it. The callback fires every time the anchor
// enters the visible region, not just the first time.
//
// Observers are a capability, not a rendering system: anything that can
// report "this element came into view" can implement Observer. Viewport is
// the implementation used by the TUI. Its owner feeds it the visible line
// range after each scroll, and it computes the visible fraction of each
// observed element against the root grown by Options.Margin.
//
//	vp := visibility.NewViewport()
//	sentinel := visibility.NewRef(loadMoreRow)
//	trig := visibility.Attach(sentinel, loadNextPage, visibility.Options{}, vp.NewObserver)
//	trig.Start()                                   // view mounted
//	vp.Update(visibility.Rect{Y: yOffset, W: w, H: h}) // after every scroll
//	trig.Stop()                                    // view unmounted
package visibility
