package adapter

import (
	"io"
	"sync"

	"github.com/getmockd/reqtrace/pkg/lifecycle"
	"github.com/getmockd/reqtrace/pkg/track"
)

// requestBody wraps the outbound body so the bytes written to the transport
// are also accumulated on the request record. The bytes themselves pass
// through unmodified.
type requestBody struct {
	rc  io.ReadCloser
	rec *track.Request
}

func (b *requestBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.rec.AppendBody(p[:n])
	}
	return n, err
}

func (b *requestBody) Close() error {
	return b.rc.Close()
}

// responseBody wraps the inbound body to publish DataReceived per chunk and
// exactly one terminal event. Closing before EOF still finishes the request
// with the bytes observed so far, so a caller that discards the body never
// leaves the tracker hanging.
type responseBody struct {
	rc      io.ReadCloser
	publish func(lifecycle.Event)

	mu       sync.Mutex
	finished bool
	total    int64
}

func newResponseBody(rc io.ReadCloser, publish func(lifecycle.Event)) *responseBody {
	return &responseBody{rc: rc, publish: publish}
}

func (b *responseBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)

	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 && !b.finished {
		b.total += int64(n)
		b.publish(lifecycle.Event{Kind: lifecycle.KindDataReceived, ByteCount: int64(n)})
	}
	switch {
	case err == io.EOF:
		b.finishLocked()
	case err != nil:
		b.failLocked(err)
	}
	return n, err
}

func (b *responseBody) Close() error {
	b.mu.Lock()
	b.finishLocked()
	b.mu.Unlock()
	return b.rc.Close()
}

func (b *responseBody) finishLocked() {
	if b.finished {
		return
	}
	b.finished = true
	b.publish(lifecycle.Event{Kind: lifecycle.KindRequestFinished, ByteCount: b.total})
}

func (b *responseBody) failLocked(err error) {
	if b.finished {
		return
	}
	b.finished = true
	b.publish(failureEvent(err))
}
