// Package lifecycle defines the canonical request-lifecycle event model and
// the per-request bus that carries it. Canonical events normalize the signals
// of every transport adapter into one closed set of kinds, so trackers and
// sinks never depend on which adapter produced a signal.
package lifecycle

// Kind identifies one canonical lifecycle signal.
type Kind int

// Canonical event kinds, in idealized lifecycle order. Individual phases may
// be skipped (a reused connection has no DNS or connect phase) but never
// reordered. Failure is reachable from any non-terminal state.
const (
	KindDNSStart Kind = iota
	KindConnectStart
	KindSendStart
	KindSendEnd
	KindResponseReceived
	KindDataReceived
	KindRequestFinished
	KindFailure

	kindCount
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindDNSStart:
		return "dnsStart"
	case KindConnectStart:
		return "connectStart"
	case KindSendStart:
		return "sendStart"
	case KindSendEnd:
		return "sendEnd"
	case KindResponseReceived:
		return "responseReceived"
	case KindDataReceived:
		return "dataReceived"
	case KindRequestFinished:
		return "requestFinished"
	case KindFailure:
		return "failure"
	}
	return "unknown"
}

// Terminal reports whether the kind ends a request's lifecycle.
func (k Kind) Terminal() bool {
	return k == KindRequestFinished || k == KindFailure
}

// ResponseSummary is the payload of a ResponseReceived event: everything an
// adapter learned from response headers, before any body bytes.
type ResponseSummary struct {
	URL              string
	Status           int
	StatusText       string
	Headers          map[string]string
	ConnectionReused bool
	ConnectionID     int64
	RemoteAddr       string
}

// Event is a canonical lifecycle signal with its kind-specific payload.
// Only the field matching the kind is meaningful.
type Event struct {
	Kind Kind

	// Response carries the header summary for KindResponseReceived.
	Response *ResponseSummary

	// ByteCount carries the chunk size for KindDataReceived and the total
	// body size for KindRequestFinished.
	ByteCount int64

	// Err carries the failure cause for KindFailure. A nil Err on a Failure
	// event means application-initiated cancellation.
	Err error
}
