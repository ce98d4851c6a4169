package adapter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/reqtrace/pkg/hook"
	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
	"github.com/getmockd/reqtrace/pkg/session"
	"github.com/getmockd/reqtrace/pkg/sink"
)

// fakeSource implements hook.Source with in-process callback delivery.
type fakeSource struct {
	subs      map[hook.Channel][]hook.Callback
	unsubbed  []hook.Channel
	failOn    hook.Channel
	failError error
}

func newFakeSource() *fakeSource {
	return &fakeSource{subs: map[hook.Channel][]hook.Callback{}}
}

func (f *fakeSource) Subscribe(ch hook.Channel, fn hook.Callback) (func(), error) {
	if f.failOn == ch && f.failError != nil {
		return nil, f.failError
	}
	f.subs[ch] = append(f.subs[ch], fn)
	return func() { f.unsubbed = append(f.unsubbed, ch) }, nil
}

func (f *fakeSource) publish(ch hook.Channel, h hook.Handle, payload any) {
	for _, fn := range f.subs[ch] {
		fn(h, payload)
	}
}

type handleKey struct{ n int }

func observedSession(t *testing.T) (*session.Session, *recorder, *fakeSource) {
	t.Helper()
	sess, rec := newRecordingSession(t)
	src := newFakeSource()
	_, err := ObserveHooks(sess, src)
	require.NoError(t, err)
	return sess, rec, src
}

func TestObserver_SuccessfulCall(t *testing.T) {
	sess, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{
		URL:     "https://api.example.test/items",
		Method:  "GET",
		Headers: map[string]string{"accept": "application/json"},
	})
	src.publish(hook.ChannelSendHeaders, h, nil)
	src.publish(hook.ChannelHeadersReceived, h, &hook.ResponseInfo{
		Status:     200,
		StatusText: "OK",
		Headers:    map[string]string{"content-type": "application/json"},
	})
	src.publish(hook.ChannelTrailersReceived, h, &hook.TrailerInfo{BytesReceived: 42})

	recs := rec.records()
	require.Len(t, recs, 4)
	assert.Equal(t, protocol.EventRequestWillBeSent, recs[0].Name())
	assert.Equal(t, protocol.EventResponseReceived, recs[1].Name())
	assert.Equal(t, protocol.EventDataReceived, recs[2].Name())
	assert.Equal(t, protocol.EventLoadingFinished, recs[3].Name())

	start := recs[0].(*protocol.RequestWillBeSent)
	assert.Equal(t, protocol.ResourceTypeFetch, start.Type)
	assert.Equal(t, "https://api.example.test/items", start.Request.URL)

	data := recs[2].(*protocol.DataReceived)
	assert.Equal(t, int64(42), data.DataLength)
	finished := recs[3].(*protocol.LoadingFinished)
	assert.Equal(t, int64(42), finished.EncodedDataLength)

	assert.Equal(t, 0, sess.HandleCount(), "completed call must be evicted")
}

func TestObserver_CreationBodyInStartRecord(t *testing.T) {
	_, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{
		URL:    "https://example.test/",
		Method: "POST",
		Body:   []byte(`{"a":1}`),
	})
	src.publish(hook.ChannelSendHeaders, h, nil)
	src.publish(hook.ChannelTrailersReceived, h, &hook.TrailerInfo{})

	recs := rec.records()
	require.NotEmpty(t, recs)
	start := recs[0].(*protocol.RequestWillBeSent)
	assert.Equal(t, `{"a":1}`, start.Request.PostData)
}

func TestObserver_WritePathBodyInFailureStartRecord(t *testing.T) {
	// A source that reports the body on the write path delivers it before
	// send-headers ever fires when the call dies early; the late start
	// record must still carry it.
	_, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{URL: "https://example.test/", Method: "POST"})
	src.publish(hook.ChannelBodySent, h, []byte(`{"a":1}`))
	src.publish(hook.ChannelError, h, errors.New("socket hang up"))

	recs := rec.records()
	require.Len(t, recs, 2)
	start := recs[0].(*protocol.RequestWillBeSent)
	assert.Equal(t, `{"a":1}`, start.Request.PostData)
	assert.Equal(t, protocol.EventLoadingFailed, recs[1].Name())
}

func TestObserver_ErrorProducesFailure(t *testing.T) {
	sess, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{URL: "https://example.test/", Method: "GET"})
	src.publish(hook.ChannelSendHeaders, h, nil)
	src.publish(hook.ChannelError, h, errors.New("socket hang up"))

	recs := rec.records()
	require.Len(t, recs, 2)
	failed := recs[1].(*protocol.LoadingFailed)
	assert.Equal(t, "socket hang up", failed.ErrorText)
	assert.False(t, failed.Canceled)
	assert.Equal(t, 0, sess.HandleCount())
}

func TestObserver_ConnectErrorBeforeSend(t *testing.T) {
	_, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{URL: "https://down.example.test/", Method: "GET"})
	src.publish(hook.ChannelConnectError, h, errors.New("connect ECONNREFUSED"))

	recs := rec.records()
	require.Len(t, recs, 2, "a start record is still emitted before the failure")
	assert.Equal(t, protocol.EventRequestWillBeSent, recs[0].Name())
	assert.Equal(t, protocol.EventLoadingFailed, recs[1].Name())
}

func TestObserver_AbortIsIdempotentAndCancels(t *testing.T) {
	sess, rec, src := observedSession(t)
	h := &handleKey{1}

	cancels := 0
	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{
		URL:    "https://example.test/",
		Method: "GET",
		Cancel: func() { cancels++ },
	})
	src.publish(hook.ChannelSendHeaders, h, nil)

	v, ok := sess.Lookup(h)
	require.True(t, ok)
	call := v.(*HookCall)

	call.Abort()
	call.Abort()

	assert.Equal(t, 2, cancels, "each Abort performs the transport cancellation")

	var failures int
	for _, r := range rec.records() {
		if f, isFail := r.(*protocol.LoadingFailed); isFail {
			failures++
			assert.True(t, f.Canceled)
			assert.Equal(t, "net::ERR_ABORTED", f.ErrorText)
		}
	}
	assert.Equal(t, 1, failures, "double Abort delivers exactly one failure")
}

func TestObserver_LateEventAfterTerminalDropped(t *testing.T) {
	_, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, &hook.CallInfo{URL: "https://example.test/", Method: "GET"})
	src.publish(hook.ChannelError, h, errors.New("boom"))
	before := len(rec.records())

	// The call was evicted on failure; later events miss correlation.
	src.publish(hook.ChannelTrailersReceived, h, &hook.TrailerInfo{BytesReceived: 9})

	assert.Len(t, rec.records(), before)
}

func TestObserver_CorrelationMissLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	sess := session.Start(session.Options{
		Logger:       logging.ConsoleTo(&buf),
		EmitModes:    []sink.Mode{sink.ModePassthrough},
		DebugChannel: rec,
	})
	defer sess.Stop()
	src := newFakeSource()
	_, err := ObserveHooks(sess, src)
	require.NoError(t, err)

	src.publish(hook.ChannelHeadersReceived, &handleKey{99}, &hook.ResponseInfo{Status: 200})

	assert.Empty(t, rec.records())
	assert.Contains(t, buf.String(), "no tracked call for handle")
}

func TestObserver_SubscribeFailureRollsBack(t *testing.T) {
	sess, _ := newRecordingSession(t)
	src := newFakeSource()
	src.failOn = hook.ChannelHeadersReceived
	src.failError = errors.New("channel unavailable")

	_, err := ObserveHooks(sess, src)
	require.Error(t, err)
	assert.Len(t, src.unsubbed, 3, "earlier subscriptions are rolled back")
}

func TestObserver_StopUnsubscribes(t *testing.T) {
	rec := &recorder{}
	sess := session.Start(session.Options{
		Logger:       logging.NopConsole(),
		EmitModes:    []sink.Mode{sink.ModePassthrough},
		DebugChannel: rec,
	})
	src := newFakeSource()
	_, err := ObserveHooks(sess, src)
	require.NoError(t, err)

	sess.Stop()
	assert.Len(t, src.unsubbed, 7)
}

func TestObserver_BadPayloadTypeIgnored(t *testing.T) {
	sess, rec, src := observedSession(t)
	h := &handleKey{1}

	src.publish(hook.ChannelCallCreated, h, "not a CallInfo")
	assert.Empty(t, rec.records())
	assert.Equal(t, 0, sess.HandleCount())
}
