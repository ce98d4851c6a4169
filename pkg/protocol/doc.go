// Package protocol defines the Network-domain telemetry records emitted for
// each observed request, shaped after the Chrome DevTools Protocol so that
// standard debugging frontends can consume them directly.
//
// Records are built by the tracker (pkg/track) and fanned out to sinks
// (pkg/sink). All timestamps are seconds elapsed since the owning session
// started; wallTime is Unix seconds at request creation.
package protocol
