package visibility

import (
	"testing"
)

type row int

func (r row) Bounds() Rect { return Rect{X: 0, Y: int(r), W: 80, H: 1} }

type box Rect

func (b box) Bounds() Rect { return Rect(b) }

// window returns a viewport showing lines [top, top+height).
func window(top, height int) Rect {
	return Rect{X: 0, Y: top, W: 80, H: height}
}

func TestTrigger_FiresOncePerEntry(t *testing.T) {
	vp := NewViewport()
	fired := 0
	trig := Attach(NewRef(row(30)), func() { fired++ }, Options{}, vp.NewObserver)
	trig.Start()

	vp.Update(window(0, 10))
	if fired != 0 {
		t.Fatalf("fired = %d before the anchor is visible", fired)
	}
	vp.Update(window(25, 10))
	vp.Update(window(26, 10))
	if fired != 1 {
		t.Fatalf("fired = %d after entering view, want 1", fired)
	}
	vp.Update(window(0, 10))
	vp.Update(window(28, 10))
	if fired != 2 {
		t.Fatalf("fired = %d after re-entering view, want 2", fired)
	}
}

func TestTrigger_InitiallyVisibleFiresOnFirstUpdate(t *testing.T) {
	vp := NewViewport()
	vp.Update(window(0, 10))

	fired := 0
	trig := Attach(NewRef(row(3)), func() { fired++ }, Options{}, vp.NewObserver)
	trig.Start()
	if fired != 0 {
		t.Fatal("Start must not fire synchronously")
	}
	vp.Refresh()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestTrigger_NilAnchorIsNoop(t *testing.T) {
	vp := NewViewport()
	ref := NewRef(nil)
	fired := 0
	trig := Attach(ref, func() { fired++ }, Options{}, vp.NewObserver)

	trig.Start()
	if trig.Active() || vp.Observing() != 0 {
		t.Fatal("nil anchor should not establish an observation")
	}
	vp.Update(window(0, 10))
	if fired != 0 {
		t.Fatalf("fired = %d with nil anchor", fired)
	}

	ref.Set(row(2))
	trig.Start()
	vp.Refresh()
	if !trig.Active() || fired != 1 {
		t.Fatalf("after anchor set: active=%v fired=%d, want true 1", trig.Active(), fired)
	}
}

func TestTrigger_RestartSupersedesPreviousObservation(t *testing.T) {
	vp := NewViewport()
	ref := NewRef(row(50))
	fired := 0
	trig := Attach(ref, func() { fired++ }, Options{}, vp.NewObserver)

	trig.Start()
	ref.Set(row(5))
	trig.Start()
	if vp.Observing() != 1 {
		t.Fatalf("observers = %d, want 1", vp.Observing())
	}

	vp.Update(window(0, 10))
	if fired != 1 {
		t.Fatalf("fired = %d after second anchor enters, want 1", fired)
	}
	vp.Update(window(45, 10))
	if fired != 1 {
		t.Fatalf("old anchor fired: fired = %d, want 1", fired)
	}
}

func TestTrigger_StopIsSafeAndSilences(t *testing.T) {
	vp := NewViewport()
	fired := 0
	trig := Attach(NewRef(row(1)), func() { fired++ }, Options{}, vp.NewObserver)

	trig.Stop()
	trig.Start()
	trig.Stop()
	trig.Stop()
	vp.Update(window(0, 10))
	if fired != 0 || trig.Active() || vp.Observing() != 0 {
		t.Fatalf("after Stop: fired=%d active=%v observers=%d", fired, trig.Active(), vp.Observing())
	}
}

func TestTrigger_CallbackMayRestart(t *testing.T) {
	vp := NewViewport()
	ref := NewRef(row(1))
	fired := 0
	var trig *Trigger
	trig = Attach(ref, func() {
		fired++
		ref.Set(row(40))
		trig.Start()
	}, Options{}, vp.NewObserver)
	trig.Start()

	vp.Update(window(0, 10))
	vp.Update(window(35, 10))
	if fired != 2 {
		t.Fatalf("fired = %d, want 2", fired)
	}
}

type staleObserver struct {
	onEnter func()
}

func (s *staleObserver) Observe(_ Element, onEnter func()) { s.onEnter = onEnter }
func (s *staleObserver) Disconnect()                       {}

func TestTrigger_IgnoresCallbacksFromDisconnectedObserver(t *testing.T) {
	var observers []*staleObserver
	factory := func(Options) Observer {
		o := &staleObserver{}
		observers = append(observers, o)
		return o
	}
	fired := 0
	trig := Attach(NewRef(row(0)), func() { fired++ }, Options{}, factory)
	trig.Start()
	trig.Start()

	observers[0].onEnter()
	if fired != 0 {
		t.Fatalf("superseded observer fired the callback")
	}
	observers[1].onEnter()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	trig.Stop()
	observers[1].onEnter()
	if fired != 1 {
		t.Fatalf("stopped observer fired the callback")
	}
}

func TestTrigger_StopFromCallback(t *testing.T) {
	obs := &staleObserver{}
	fired := 0
	var trig *Trigger
	trig = Attach(NewRef(row(0)), func() {
		fired++
		trig.Stop()
	}, Options{}, func(Options) Observer { return obs })
	trig.Start()

	obs.onEnter()
	obs.onEnter()
	if fired != 1 || trig.Active() {
		t.Fatalf("fired=%d active=%v, want one call then stopped", fired, trig.Active())
	}
}

func TestViewport_ThresholdMarginAndRoot(t *testing.T) {
	vp := NewViewport()
	fired := 0
	tall := box{X: 0, Y: 10, W: 10, H: 10}

	trig := Attach(NewRef(tall), func() { fired++ }, Options{Threshold: 0.5}, vp.NewObserver)
	trig.Start()
	vp.Update(window(0, 14)) // 4 of 10 lines visible
	if fired != 0 {
		t.Fatalf("fired below threshold")
	}
	vp.Update(window(0, 15))
	if fired != 1 {
		t.Fatalf("fired = %d at threshold, want 1", fired)
	}
	trig.Stop()

	fired = 0
	trig = Attach(NewRef(row(12)), func() { fired++ }, Options{Margin: Margin{Bottom: 3}}, vp.NewObserver)
	trig.Start()
	vp.Update(window(0, 10))
	if fired != 1 {
		t.Fatalf("bottom margin should pull row 12 into view, fired = %d", fired)
	}
	trig.Stop()

	fired = 0
	trig = Attach(NewRef(row(100)), func() { fired++ }, Options{Root: box(window(95, 10))}, vp.NewObserver)
	trig.Start()
	vp.Update(window(0, 10))
	if fired != 1 {
		t.Fatalf("explicit root should be used, fired = %d", fired)
	}
}

func TestViewport_ZeroThresholdFiresOnAnyOverlap(t *testing.T) {
	tall := box{X: 0, Y: 10, W: 10, H: 20}

	for _, tc := range []struct {
		name string
		opts Options
		want int
	}{
		{"default", Options{}, 0},
		{"explicit zero", Options{HasThreshold: true}, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vp := NewViewport()
			fired := 0
			trig := Attach(NewRef(tall), func() { fired++ }, tc.opts, vp.NewObserver)
			trig.Start()
			defer trig.Stop()

			vp.Update(window(0, 10)) // touching, no overlap
			if fired != 0 {
				t.Fatalf("fired = %d without overlap", fired)
			}
			vp.Update(window(1, 10)) // 1 of 20 lines visible
			if fired != tc.want {
				t.Fatalf("fired = %d with one visible line, want %d", fired, tc.want)
			}
		})
	}
}

func TestOptionsThreshold(t *testing.T) {
	for _, tc := range []struct {
		opts Options
		want float64
	}{
		{Options{}, DefaultThreshold},
		{Options{HasThreshold: true}, 0},
		{Options{Threshold: 0.5}, 0.5},
		{Options{Threshold: 2}, 1},
		{Options{Threshold: -1}, 0},
	} {
		if got := tc.opts.threshold(); got != tc.want {
			t.Errorf("threshold(%+v) = %v, want %v", tc.opts, got, tc.want)
		}
	}
}
