package protocol

// Network-domain event names. These are the method names a DevTools frontend
// expects on the wire.
const (
	EventRequestWillBeSent = "Network.requestWillBeSent"
	EventResponseReceived  = "Network.responseReceived"
	EventDataReceived      = "Network.dataReceived"
	EventLoadingFinished   = "Network.loadingFinished"
	EventLoadingFailed     = "Network.loadingFailed"
)

// Resource types reported in requestWillBeSent/loadingFailed.
const (
	ResourceTypeXHR   = "XHR"
	ResourceTypeFetch = "Fetch"
)

// Record is implemented by every Network-domain record.
type Record interface {
	// Name returns the protocol event name, e.g. "Network.requestWillBeSent".
	Name() string

	// ID returns the request id the record belongs to.
	ID() int64
}

// Request describes the outbound request inside a RequestWillBeSent record.
type Request struct {
	Headers         map[string]string `json:"headers"`
	Method          string            `json:"method"`
	PostData        string            `json:"postData,omitempty"`
	InitialPriority string            `json:"initialPriority"`
	ReferrerPolicy  string            `json:"referrerPolicy"`
	URL             string            `json:"url"`
}

// Initiator identifies what started the request. Outbound calls observed by
// this module always report a script initiator.
type Initiator struct {
	Type string `json:"type"`
}

// RequestWillBeSent is emitted once per request, when a transport attempt is
// confirmed underway.
type RequestWillBeSent struct {
	RequestID   int64     `json:"requestId"`
	LoaderID    string    `json:"loaderId"`
	DocumentURL string    `json:"documentURL"`
	Type        string    `json:"type"`
	WallTime    float64   `json:"wallTime"`
	Timestamp   float64   `json:"timestamp"`
	Request     Request   `json:"request"`
	Initiator   Initiator `json:"initiator"`
}

// Name implements Record.
func (r *RequestWillBeSent) Name() string { return EventRequestWillBeSent }

// ID implements Record.
func (r *RequestWillBeSent) ID() int64 { return r.RequestID }

// Response describes the received response inside a ResponseReceived record.
type Response struct {
	URL              string            `json:"url"`
	Status           int               `json:"status"`
	StatusText       string            `json:"statusText"`
	Headers          map[string]string `json:"headers"`
	ConnectionReused bool              `json:"connectionReused"`
	ConnectionID     int64             `json:"connectionId"`
	Timing           *Timing           `json:"timing"`
	RequestHeaders   map[string]string `json:"requestHeaders"`
}

// ResponseReceived is emitted when response headers arrive.
type ResponseReceived struct {
	RequestID int64    `json:"requestId"`
	LoaderID  string   `json:"loaderId"`
	Timestamp float64  `json:"timestamp"`
	Response  Response `json:"response"`
}

// Name implements Record.
func (r *ResponseReceived) Name() string { return EventResponseReceived }

// ID implements Record.
func (r *ResponseReceived) ID() int64 { return r.RequestID }

// DataReceived is emitted for each observed response body chunk.
type DataReceived struct {
	RequestID         int64   `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	DataLength        int64   `json:"dataLength"`
	EncodedDataLength int64   `json:"encodedDataLength"`
}

// Name implements Record.
func (r *DataReceived) Name() string { return EventDataReceived }

// ID implements Record.
func (r *DataReceived) ID() int64 { return r.RequestID }

// LoadingFinished is the success-terminal record. EncodedDataLength equals
// the sum of the request's DataReceived chunk lengths.
type LoadingFinished struct {
	RequestID         int64   `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	EncodedDataLength int64   `json:"encodedDataLength"`
}

// Name implements Record.
func (r *LoadingFinished) Name() string { return EventLoadingFinished }

// ID implements Record.
func (r *LoadingFinished) ID() int64 { return r.RequestID }

// LoadingFailed is the failure-terminal record. Canceled is true when the
// failure was application-initiated rather than a transport error.
type LoadingFailed struct {
	RequestID int64   `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	ErrorText string  `json:"errorText"`
	Canceled  bool    `json:"canceled"`
}

// Name implements Record.
func (r *LoadingFailed) Name() string { return EventLoadingFailed }

// ID implements Record.
func (r *LoadingFailed) ID() int64 { return r.RequestID }

// Ensure record types satisfy the interface at compile time.
var (
	_ Record = (*RequestWillBeSent)(nil)
	_ Record = (*ResponseReceived)(nil)
	_ Record = (*DataReceived)(nil)
	_ Record = (*LoadingFinished)(nil)
	_ Record = (*LoadingFailed)(nil)
)
