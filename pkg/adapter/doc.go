// Package adapter observes raw transport signals and publishes canonical
// lifecycle events without disturbing the observed call.
//
// Two adapters cover the two transport shapes:
//
//   - Transport is an http.RoundTripper decorator for connection-oriented
//     clients. It derives lifecycle events from httptrace callbacks and from
//     wrapping the request and response bodies.
//
//   - HookObserver serves stream-oriented transports that expose only named
//     callbacks with opaque call handles (pkg/hook). It routes each callback
//     to the right per-call adapter through the session's correlation map.
//
// Both adapters are transparent: the instrumented call's data reaches its
// original consumer unmodified, and instrumentation faults are logged, never
// propagated into the call's control flow.
package adapter
