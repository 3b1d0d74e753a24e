package visibility

import "sync"

// Viewport hosts observers for one scrollable region. The owner reports the
// region's current bounds with Update after every scroll, resize or content
// change, and the viewport dispatches enter events to its observers.
//
// Observers report an element that is already visible at the first Update
// (or Refresh) after Observe, matching how a freshly attached watch sees
// its initial state.
type Viewport struct {
	mu        sync.Mutex
	bounds    Rect
	hasBounds bool
	observers map[*viewportObserver]struct{}
}

// NewViewport returns an empty viewport.
func NewViewport() *Viewport {
	return &Viewport{observers: make(map[*viewportObserver]struct{})}
}

// NewObserver implements ObserverFactory.
func (v *Viewport) NewObserver(opts Options) Observer {
	return &viewportObserver{host: v, opts: opts}
}

// Update records the viewport bounds and evaluates every observer.
func (v *Viewport) Update(bounds Rect) {
	v.mu.Lock()
	v.bounds = bounds
	v.hasBounds = true
	v.mu.Unlock()
	v.Refresh()
}

// Refresh re-evaluates observers against the last reported bounds.
func (v *Viewport) Refresh() {
	v.mu.Lock()
	if !v.hasBounds {
		v.mu.Unlock()
		return
	}
	bounds := v.bounds
	var fire []func()
	for obs := range v.observers {
		if fn := obs.evaluate(bounds); fn != nil {
			fire = append(fire, fn)
		}
	}
	v.mu.Unlock()

	// Callbacks run unlocked so they may start or stop observations.
	for _, fn := range fire {
		fn()
	}
}

// Observing returns the number of connected observers.
func (v *Viewport) Observing() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.observers)
}

type viewportObserver struct {
	host *Viewport
	opts Options

	// guarded by host.mu
	el      Element
	onEnter func()
	inside  bool
}

func (o *viewportObserver) Observe(el Element, onEnter func()) {
	o.host.mu.Lock()
	defer o.host.mu.Unlock()
	o.el = el
	o.onEnter = onEnter
	o.inside = false
	o.host.observers[o] = struct{}{}
}

func (o *viewportObserver) Disconnect() {
	o.host.mu.Lock()
	defer o.host.mu.Unlock()
	delete(o.host.observers, o)
	o.el = nil
	o.onEnter = nil
}

// evaluate updates the inside state and returns onEnter when the element has
// just crossed the threshold. Called with host.mu held.
func (o *viewportObserver) evaluate(viewport Rect) func() {
	if o.el == nil {
		return nil
	}
	root := viewport
	if o.opts.Root != nil {
		root = o.opts.Root.Bounds()
	}
	root = root.Grow(o.opts.Margin)

	ratio := intersectionRatio(o.el.Bounds(), root)
	wasInside := o.inside
	o.inside = o.opts.visible(ratio)
	if o.inside && !wasInside {
		return o.onEnter
	}
	return nil
}
