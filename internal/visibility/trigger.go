package visibility

import "sync"

// DefaultThreshold fires once a tenth of the anchor is visible.
const DefaultThreshold = 0.1

// Element is anything laid out in the scrollable content.
type Element interface {
	Bounds() Rect
}

// Root supplies the region elements are tested against. A nil Root means
// the containing viewport.
type Root interface {
	Bounds() Rect
}

// Options configure an observation.
//
// Threshold is the visible fraction at which the anchor counts as in view.
// Without HasThreshold a zero Threshold means DefaultThreshold. With
// HasThreshold set, a Threshold of zero fires on any overlap at all.
type Options struct {
	Root         Root
	Margin       Margin
	Threshold    float64
	HasThreshold bool
}

func (o Options) threshold() float64 {
	if !o.HasThreshold && o.Threshold == 0 {
		return DefaultThreshold
	}
	return min(max(o.Threshold, 0), 1)
}

// visible reports whether ratio reaches the threshold. A zero threshold
// needs some overlap.
func (o Options) visible(ratio float64) bool {
	th := o.threshold()
	if th == 0 {
		return ratio > 0
	}
	return ratio >= th
}

// Observer watches one element and calls onEnter each time it comes into
// view. Observe must not call onEnter before it returns. Disconnect ends the
// watch; no onEnter call starts afterwards.
type Observer interface {
	Observe(el Element, onEnter func())
	Disconnect()
}

// ObserverFactory creates an observer for the given options.
type ObserverFactory func(Options) Observer

// Ref is a mutable reference to an element that may be nil.
type Ref struct {
	mu sync.RWMutex
	el Element
}

// NewRef returns a Ref holding el (which may be nil).
func NewRef(el Element) *Ref {
	return &Ref{el: el}
}

// Set replaces the referenced element.
func (r *Ref) Set(el Element) {
	r.mu.Lock()
	r.el = el
	r.mu.Unlock()
}

// Get returns the referenced element or nil.
func (r *Ref) Get() Element {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.el
}

// Trigger calls a callback whenever an anchor element enters view. The owner
// calls Start when its view becomes active and Stop when it goes away, and
// may call Start again after the anchor changes.
type Trigger struct {
	anchor      *Ref
	callback    func()
	opts        Options
	newObserver ObserverFactory

	mu         sync.Mutex
	observer   Observer
	generation uint64
}

// Attach prepares a trigger for anchor. Nothing is observed until Start.
func Attach(anchor *Ref, callback func(), opts Options, newObserver ObserverFactory) *Trigger {
	return &Trigger{
		anchor:      anchor,
		callback:    callback,
		opts:        opts,
		newObserver: newObserver,
	}
}

// Start drops any current observation and, when the anchor is set, observes
// it with a fresh observer. A nil anchor is not an error: nothing is
// observed until Start is called again.
func (t *Trigger) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.disconnectLocked()
	el := t.anchor.Get()
	if el == nil || t.newObserver == nil {
		return
	}

	t.generation++
	gen := t.generation
	obs := t.newObserver(t.opts)
	t.observer = obs
	obs.Observe(el, func() {
		t.mu.Lock()
		current := t.generation == gen && t.observer != nil
		t.mu.Unlock()
		if current && t.callback != nil {
			t.callback()
		}
	})
}

// Stop ends the current observation. It is a no-op when none is active.
// No callback starts once Stop returns, but a callback already approved on
// another goroutine may still be running or about to run.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnectLocked()
}

// Active reports whether an observation is running.
func (t *Trigger) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observer != nil
}

func (t *Trigger) disconnectLocked() {
	if t.observer == nil {
		return
	}
	t.observer.Disconnect()
	t.observer = nil
	t.generation++
}
