// Package hook defines the collaborator contract for transports that expose
// lifecycle callbacks instead of an observable connection: named channels
// deliver an opaque call handle plus an event-specific payload. The
// stream-oriented adapter (pkg/adapter) subscribes to these channels and
// correlates later callbacks back to the right call through the session's
// handle map.
package hook

// Handle is an opaque identifier for one in-flight call, chosen by the hook
// source. It must be comparable; it is used as a correlation-map key.
type Handle any

// Channel names one lifecycle callback stream a Source exposes.
type Channel string

// Channels a source may expose. A source is free to omit channels it cannot
// observe; subscribing to an unknown channel returns an error.
const (
	// ChannelCallCreated fires when a call object is created, before any
	// network activity. Payload: *CallInfo.
	ChannelCallCreated Channel = "call-created"

	// ChannelSendHeaders fires when request headers are handed to the
	// transport. Payload: nil.
	ChannelSendHeaders Channel = "send-headers"

	// ChannelBodySent fires when the request body has been fully written.
	// Payload: []byte (the body written, may be nil).
	ChannelBodySent Channel = "body-sent"

	// ChannelHeadersReceived fires when response headers arrive.
	// Payload: *ResponseInfo.
	ChannelHeadersReceived Channel = "headers-received"

	// ChannelTrailersReceived fires when the response completes.
	// Payload: *TrailerInfo.
	ChannelTrailersReceived Channel = "trailers-received"

	// ChannelError fires when the call fails. Payload: error (nil for
	// application-initiated cancellation).
	ChannelError Channel = "error"

	// ChannelConnectError fires when the transport could not connect.
	// Payload: error.
	ChannelConnectError Channel = "connect-error"
)

// CallInfo is the payload of ChannelCallCreated.
type CallInfo struct {
	URL     string
	Method  string
	Headers map[string]string

	// Body holds the request body when the source knows it at call
	// creation. Sources that only observe the body on the write path leave
	// it nil and report through ChannelBodySent instead, never both.
	Body []byte

	// Cancel performs the source's original cancellation effect for this
	// call. May be nil when the source exposes no cancellation.
	Cancel func()
}

// ResponseInfo is the payload of ChannelHeadersReceived.
type ResponseInfo struct {
	Status     int
	StatusText string
	Headers    map[string]string
}

// TrailerInfo is the payload of ChannelTrailersReceived.
type TrailerInfo struct {
	Trailers map[string]string

	// BytesReceived is the total response body size the source observed.
	BytesReceived int64
}

// Callback receives one event from a channel.
type Callback func(h Handle, payload any)

// Source is implemented by transports that expose lifecycle callbacks.
// Callbacks for one handle must be delivered in call-lifecycle order;
// deliveries for different handles may interleave freely.
type Source interface {
	// Subscribe registers a callback on a channel and returns the function
	// that removes it again.
	Subscribe(ch Channel, fn Callback) (unsubscribe func(), err error)
}
