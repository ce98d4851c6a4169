package track

import (
	"time"

	"github.com/getmockd/reqtrace/pkg/lifecycle"
	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
)

// errorText reported for application-initiated cancellation, matching what
// DevTools frontends expect for an aborted load.
const canceledErrorText = "net::ERR_ABORTED"

// Config wires a Tracker to its collaborators.
type Config struct {
	// Request is the record being tracked.
	Request *Request

	// Bus is the request's canonical event bus.
	Bus *lifecycle.Bus

	// LoaderID is the owning session's loader id.
	LoaderID string

	// ResourceType is reported in requestWillBeSent and loadingFailed
	// (protocol.ResourceTypeXHR or protocol.ResourceTypeFetch).
	ResourceType string

	// Stamp returns seconds elapsed since the session started.
	Stamp func() float64

	// Emit receives each finished protocol record.
	Emit func(protocol.Record)

	// Logger receives instrumentation faults. Defaults to a no-op logger.
	Logger logging.ConsoleLogger
}

// Tracker is the per-request state machine. It subscribes to every canonical
// kind on the request's bus, records phase timing against a monotonic
// baseline, and builds protocol records. All state is mutated from bus
// dispatch, which is serialized, so the tracker itself holds no lock.
type Tracker struct {
	cfg    Config
	timing *protocol.Timing

	start    time.Time
	wallTime float64

	willBeSent bool
	done       bool
	bytes      int64
}

// New builds a tracker and attaches it to the request's bus. Events already
// published are replayed into it on attach.
func New(cfg Config) *Tracker {
	if cfg.Logger == nil {
		cfg.Logger = logging.NopConsole()
	}
	if cfg.ResourceType == "" {
		cfg.ResourceType = protocol.ResourceTypeXHR
	}
	t := &Tracker{
		cfg:      cfg,
		timing:   protocol.NewTiming(),
		start:    time.Now(),
		wallTime: float64(time.Now().UnixNano()) / 1e9,
	}
	cfg.Bus.SubscribeAll(t.handle)
	return t
}

// Done reports whether the tracker has seen a terminal event.
func (t *Tracker) Done() bool { return t.done }

// BytesReceived returns the response bytes observed so far.
func (t *Tracker) BytesReceived() int64 { return t.bytes }

// handle advances the state machine for one canonical event. After a
// terminal event, further events are tolerated as no-ops. A fault inside
// record construction or emission is logged and swallowed so it can never
// reach the instrumented call.
func (t *Tracker) handle(ev lifecycle.Event) {
	defer func() {
		if r := recover(); r != nil {
			t.cfg.Logger.Error("reqtrace: tracker fault:", r)
		}
	}()

	if t.done {
		return
	}

	switch ev.Kind {
	case lifecycle.KindDNSStart:
		t.mark(protocol.DNSStart)

	case lifecycle.KindConnectStart:
		t.markEnd(protocol.DNSStart, protocol.DNSEnd)
		t.mark(protocol.ConnectStart)

	case lifecycle.KindSendStart:
		t.markEnd(protocol.ConnectStart, protocol.ConnectEnd)
		t.mark(protocol.SendStart)
		t.sendWillBeSent()

	case lifecycle.KindSendEnd:
		t.mark(protocol.SendEnd)
		t.mark(protocol.ReceiveHeadersStart)

	case lifecycle.KindResponseReceived:
		t.mark(protocol.ReceiveHeadersEnd)
		t.emitResponse(ev.Response)

	case lifecycle.KindDataReceived:
		t.bytes += ev.ByteCount
		t.cfg.Emit(&protocol.DataReceived{
			RequestID:         t.cfg.Request.ID,
			Timestamp:         t.cfg.Stamp(),
			DataLength:        ev.ByteCount,
			EncodedDataLength: ev.ByteCount,
		})

	case lifecycle.KindRequestFinished:
		t.done = true
		t.cfg.Emit(&protocol.LoadingFinished{
			RequestID:         t.cfg.Request.ID,
			Timestamp:         t.cfg.Stamp(),
			EncodedDataLength: t.bytes,
		})

	case lifecycle.KindFailure:
		t.done = true
		// A failure record must always be preceded by a well-formed start
		// record, even when the call never reached the send phase.
		t.sendWillBeSent()
		canceled := ev.Err == nil
		errorText := canceledErrorText
		if !canceled {
			errorText = ev.Err.Error()
		}
		t.cfg.Emit(&protocol.LoadingFailed{
			RequestID: t.cfg.Request.ID,
			Timestamp: t.cfg.Stamp(),
			Type:      t.cfg.ResourceType,
			ErrorText: errorText,
			Canceled:  canceled,
		})
	}
}

// mark records elapsed time since the tracker's monotonic baseline into the
// named timing field. Last write wins on connection reuse.
func (t *Tracker) mark(f protocol.TimingField) {
	t.timing.Set(f, float64(time.Since(t.start))/float64(time.Millisecond))
}

// markEnd closes a phase pair, but only if its start was observed. Skipped
// phases (reused connections) keep both ends at the unset sentinel.
func (t *Tracker) markEnd(start, end protocol.TimingField) {
	if t.timing.Get(start) != protocol.TimingUnset {
		t.mark(end)
	}
}

// sendWillBeSent emits requestWillBeSent at most once, once headers and URL
// are final and a transport attempt is confirmed underway.
func (t *Tracker) sendWillBeSent() {
	if t.willBeSent {
		return
	}
	t.willBeSent = true

	req := t.cfg.Request
	t.cfg.Emit(&protocol.RequestWillBeSent{
		RequestID:   req.ID,
		LoaderID:    t.cfg.LoaderID,
		DocumentURL: req.URL,
		Type:        t.cfg.ResourceType,
		WallTime:    t.wallTime,
		Timestamp:   t.cfg.Stamp(),
		Request: protocol.Request{
			Headers:         req.Headers,
			Method:          req.Method,
			PostData:        req.PostData(),
			InitialPriority: "High",
			ReferrerPolicy:  "strict-origin-when-cross-origin",
			URL:             req.URL,
		},
		Initiator: protocol.Initiator{Type: "script"},
	})
}

func (t *Tracker) emitResponse(summary *lifecycle.ResponseSummary) {
	if summary == nil {
		return
	}
	t.cfg.Emit(&protocol.ResponseReceived{
		RequestID: t.cfg.Request.ID,
		LoaderID:  t.cfg.LoaderID,
		Timestamp: t.cfg.Stamp(),
		Response: protocol.Response{
			URL:              summary.URL,
			Status:           summary.Status,
			StatusText:       summary.StatusText,
			Headers:          summary.Headers,
			ConnectionReused: summary.ConnectionReused,
			ConnectionID:     summary.ConnectionID,
			Timing:           t.timing.Clone(),
			RequestHeaders:   t.cfg.Request.Headers,
		},
	})
}
