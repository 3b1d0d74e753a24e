package poll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/five82/quill/internal/novel"
)

// DefaultInterval matches the web client's refresh cadence.
const DefaultInterval = 2 * time.Second

// Fetcher retrieves the status of a set of chapters in request order.
// *novel.Client implements it.
type Fetcher interface {
	FetchChapterStatuses(ctx context.Context, novelName string, chapters []string) ([]novel.Chapter, error)
}

// Option customises a poll loop.
type Option func(*settings)

type settings struct {
	interval time.Duration
	logger   *slog.Logger
}

// WithInterval overrides DefaultInterval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger records loop termination and callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Handle controls one running poll loop. The zero value is not usable; obtain
// one from Start.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger

	stopOnce   sync.Once
	stopped    atomic.Bool
	delivering atomic.Bool
	deliverMu  sync.Mutex // held for the duration of every callback

	errMu sync.Mutex
	err   error
}

// Start polls the status of chapters in novelName every interval until the
// chapter set is empty, a fetch fails, Stop is called, or ctx is cancelled.
//
// The chapter names are copied; later changes to the caller's slice are not
// seen. The first fetch happens one interval after Start. Ticks never
// overlap: ticks that elapse while a fetch is running are dropped.
//
// onUpdate receives the records of every successful fetch. onError is called
// at most once, with the fetch error, after which the loop ends without
// retrying. Either callback may be nil. Callbacks run on the loop goroutine.
func Start(ctx context.Context, fetcher Fetcher, novelName string, chapters []string, onUpdate func([]novel.Chapter), onError func(error), opts ...Option) *Handle {
	s := settings{
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}
	ticker := time.NewTicker(s.interval)
	return start(ctx, fetcher, novelName, chapters, onUpdate, onError, ticker.C, ticker.Stop, s.logger)
}

func start(ctx context.Context, fetcher Fetcher, novelName string, chapters []string, onUpdate func([]novel.Chapter), onError func(error), ticks <-chan time.Time, stopTicks func(), logger *slog.Logger) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ctx:    loopCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger.With("novel", novelName),
	}
	names := slices.Clone(chapters)

	go func() {
		defer close(h.done)
		defer stopTicks()
		defer cancel()

		for {
			select {
			case <-loopCtx.Done():
				h.stopped.Store(true)
				h.logger.Debug("status poll cancelled")
				return
			case <-ticks:
			}
			if h.stopped.Load() {
				return
			}

			if len(names) == 0 {
				h.stopped.Store(true)
				h.logger.Debug("status poll finished: no chapters")
				return
			}

			records, err := fetcher.FetchChapterStatuses(loopCtx, novelName, names)
			if err != nil {
				if loopCtx.Err() != nil {
					// Stopped while the request was in flight.
					h.stopped.Store(true)
					return
				}
				h.setErr(err)
				h.logger.Warn("status poll failed", "chapters", len(names), "error", err)
				h.deliver(func() {
					if onError != nil {
						onError(err)
					}
				})
				h.stopped.Store(true)
				return
			}

			if !h.deliver(func() {
				if onUpdate != nil {
					onUpdate(records)
				}
			}) {
				return
			}
		}
	}()

	return h
}

// deliver runs fn unless the handle is stopped or its context is done, and
// reports whether the loop may continue.
func (h *Handle) deliver(fn func()) (ok bool) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if h.ctx.Err() != nil {
		h.stopped.Store(true)
	}
	if h.stopped.Load() {
		return false
	}

	h.delivering.Store(true)
	defer h.delivering.Store(false)
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			h.logger.Error("status poll callback panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			h.stopped.Store(true)
			h.cancel()
			ok = false
		}
	}()

	fn()
	return !h.stopped.Load()
}

// Stop ends the loop. It is idempotent and may be called from a callback.
// Once Stop returns no callback starts; a result that arrives for a request
// already in flight is dropped. A callback already running on another
// goroutine when Stop is called is allowed to finish.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		h.cancel()
	})
	if h.delivering.Load() {
		return
	}
	// Wait out a delivery that has taken the lock but not yet started fn.
	h.deliverMu.Lock()
	h.deliverMu.Unlock()
}

// Stopped reports whether the loop has stopped or been asked to stop.
func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}

// Done is closed once the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the fetch error that ended the loop, if any.
func (h *Handle) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	h.errMu.Lock()
	h.err = err
	h.errMu.Unlock()
}
