package adapter

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"

	"github.com/getmockd/reqtrace/pkg/lifecycle"
	"github.com/getmockd/reqtrace/pkg/protocol"
	"github.com/getmockd/reqtrace/pkg/session"
	"github.com/getmockd/reqtrace/pkg/track"
)

// Transport is an http.RoundTripper decorator that traces every request it
// carries. It delegates the actual round trip to a base transport and
// publishes canonical events as the call progresses.
type Transport struct {
	base http.RoundTripper
	sess *session.Session
}

// NewTransport wraps base with tracing for sess. A nil base means
// http.DefaultTransport.
func NewTransport(sess *session.Session, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, sess: sess}
}

// Client returns an http.Client whose transport traces into sess.
func Client(sess *session.Session) *http.Client {
	return &http.Client{Transport: NewTransport(sess, nil)}
}

// RoundTrip implements http.RoundTripper. The response and error of the base
// transport are returned untouched; any fault inside instrumentation is
// logged and swallowed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec, bus := t.sess.Track(req.URL.String(), req.Method, flattenHeader(req.Header), protocol.ResourceTypeXHR)
	log := t.sess.Logger()

	publish := func(ev lifecycle.Event) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("reqtrace: transport adapter fault:", r)
			}
		}()
		bus.Publish(ev)
	}

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			publish(lifecycle.Event{Kind: lifecycle.KindDNSStart})
		},
		ConnectStart: func(network, addr string) {
			publish(lifecycle.Event{Kind: lifecycle.KindConnectStart})
		},
		GotConn: func(info httptrace.GotConnInfo) {
			rec.SetConnection(info.Reused, connectionID(info.Conn))
			publish(lifecycle.Event{Kind: lifecycle.KindSendStart})
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			publish(lifecycle.Event{Kind: lifecycle.KindSendEnd})
		},
	}

	req = req.Clone(httptrace.WithClientTrace(req.Context(), trace))
	if req.Body != nil && req.Body != http.NoBody {
		if !snapshotBody(req, rec) {
			req.Body = &requestBody{rc: req.Body, rec: rec}
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		publish(failureEvent(err))
		return resp, err
	}

	reused, connID := rec.Connection()
	publish(lifecycle.Event{
		Kind: lifecycle.KindResponseReceived,
		Response: &lifecycle.ResponseSummary{
			URL:              rec.URL,
			Status:           resp.StatusCode,
			StatusText:       http.StatusText(resp.StatusCode),
			Headers:          flattenHeader(resp.Header),
			ConnectionReused: reused,
			ConnectionID:     connID,
		},
	})

	resp.Body = newResponseBody(resp.Body, publish)
	return resp, nil
}

// snapshotBody captures a replayable request body into rec before the round
// trip so postData is complete when requestWillBeSent fires. Streaming bodies
// without GetBody cannot be read ahead and fall back to write-path wrapping.
func snapshotBody(req *http.Request, rec *track.Request) bool {
	if req.GetBody == nil {
		return false
	}
	rc, err := req.GetBody()
	if err != nil {
		return false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return false
	}
	rec.AppendBody(data)
	return true
}

// failureEvent maps a transport error to a canonical Failure. Context
// cancellation is application-initiated, so it carries no error object.
func failureEvent(err error) lifecycle.Event {
	if errors.Is(err, context.Canceled) {
		return lifecycle.Event{Kind: lifecycle.KindFailure}
	}
	return lifecycle.Event{Kind: lifecycle.KindFailure, Err: err}
}

// connectionID derives a stable numeric id for a connection from its local
// port, mirroring what remote-debugging frontends show.
func connectionID(conn net.Conn) int64 {
	if conn == nil {
		return 0
	}
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		return int64(addr.Port)
	}
	return 0
}

// flattenHeader collapses a multi-value header into the single-value map the
// protocol records carry.
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

var _ http.RoundTripper = (*Transport)(nil)
