// Package poll watches the parse status of a set of chapters.
//
// # Overview
//
// Start launches one goroutine that asks the backend for the status of a
// fixed set of chapters on a fixed cadence (2 seconds by default) and hands
// every successful result to onUpdate. It returns a *Handle whose Stop method
// ends the loop.
//
// # Lifecycle
//
//	Start ──> wait interval ──> empty set? ──yes──> stop (no fetch, no callback)
//	              ▲                  │no
//	              │                  ▼
//	              │               fetch ──error──> onError(err), stop
//	              │                  │ok
//	              └──── onUpdate ◄───┘
//
// The loop ends on the first of:
//
//   - an empty chapter set (silent)
//   - a failed fetch: transport error, non-2xx status, malformed payload
//     (onError is called once; there is no retry or backoff)
//   - Handle.Stop or cancellation of the parent context (silent)
//
// Restarting after a failure is the caller's job: call Start again.
//
// # Cancellation
//
// Stop is idempotent and can be called at any time, including from inside a
// callback. It cancels the context passed to the in-flight fetch and
// guarantees that no callback starts after it returns, so a response that
// arrives late is dropped rather than delivered.
//
// # Ordering
//
// Fetches run on the loop goroutine, so at most one is in flight per handle
// and results are delivered in tick order. If a fetch outlasts the interval
// the missed ticks are dropped, as with any time.Ticker.
//
// # Chapter Set
//
// The chapter names are copied at Start. A caller that wants to poll a
// different set stops the handle and starts a new one.
package poll
