package adapter

import (
	"fmt"
	"sync"

	"github.com/getmockd/reqtrace/pkg/hook"
	"github.com/getmockd/reqtrace/pkg/lifecycle"
	"github.com/getmockd/reqtrace/pkg/protocol"
	"github.com/getmockd/reqtrace/pkg/session"
	"github.com/getmockd/reqtrace/pkg/track"
)

// HookObserver adapts a stream-oriented hook source (pkg/hook) to canonical
// events. Such sources expose no socket phases: every later callback carries
// only an opaque handle, so the observer routes it to the right per-call
// adapter through the session's correlation map. A callback whose handle has
// no tracked call is logged and dropped; correlation cannot be recovered.
type HookObserver struct {
	sess *session.Session
}

// ObserveHooks subscribes an observer to all lifecycle channels of src.
// Subscriptions are registered with the session and removed when it stops.
func ObserveHooks(sess *session.Session, src hook.Source) (*HookObserver, error) {
	o := &HookObserver{sess: sess}

	channels := []struct {
		ch hook.Channel
		fn hook.Callback
	}{
		{hook.ChannelCallCreated, o.guard(o.onCallCreated)},
		{hook.ChannelSendHeaders, o.guard(o.onSendHeaders)},
		{hook.ChannelBodySent, o.guard(o.onBodySent)},
		{hook.ChannelHeadersReceived, o.guard(o.onHeadersReceived)},
		{hook.ChannelTrailersReceived, o.guard(o.onTrailersReceived)},
		{hook.ChannelError, o.guard(o.onError)},
		{hook.ChannelConnectError, o.guard(o.onError)},
	}

	var unsubs []func()
	for _, c := range channels {
		u, err := src.Subscribe(c.ch, c.fn)
		if err != nil {
			for _, undo := range unsubs {
				undo()
			}
			return nil, fmt.Errorf("subscribe %s: %w", c.ch, err)
		}
		unsubs = append(unsubs, u)
	}

	sess.OnStop(func() {
		for _, undo := range unsubs {
			undo()
		}
	})
	return o, nil
}

func (o *HookObserver) onCallCreated(h hook.Handle, payload any) {
	info, ok := payload.(*hook.CallInfo)
	if !ok {
		o.sess.Logger().Error("reqtrace: call-created payload has unexpected type:", fmt.Sprintf("%T", payload))
		return
	}

	rec, bus := o.sess.Track(info.URL, info.Method, info.Headers, protocol.ResourceTypeFetch)
	if len(info.Body) > 0 {
		rec.AppendBody(info.Body)
	}
	call := &HookCall{
		rec:    rec,
		bus:    bus,
		cancel: info.Cancel,
		evict:  func() { o.sess.Unbind(h) },
	}
	o.sess.Bind(h, call)

	// No socket phases are observable on this transport; DNS start is
	// approximated at call creation.
	bus.Publish(lifecycle.Event{Kind: lifecycle.KindDNSStart})
}

func (o *HookObserver) onSendHeaders(h hook.Handle, _ any) {
	if call := o.lookup(h, hook.ChannelSendHeaders); call != nil {
		call.bus.Publish(lifecycle.Event{Kind: lifecycle.KindSendStart})
	}
}

func (o *HookObserver) onBodySent(h hook.Handle, payload any) {
	call := o.lookup(h, hook.ChannelBodySent)
	if call == nil {
		return
	}
	if body, ok := payload.([]byte); ok {
		call.rec.AppendBody(body)
	}
	call.bus.Publish(lifecycle.Event{Kind: lifecycle.KindSendEnd})
}

func (o *HookObserver) onHeadersReceived(h hook.Handle, payload any) {
	call := o.lookup(h, hook.ChannelHeadersReceived)
	if call == nil {
		return
	}
	info, ok := payload.(*hook.ResponseInfo)
	if !ok {
		o.sess.Logger().Error("reqtrace: headers-received payload has unexpected type:", fmt.Sprintf("%T", payload))
		return
	}
	call.bus.Publish(lifecycle.Event{
		Kind: lifecycle.KindResponseReceived,
		Response: &lifecycle.ResponseSummary{
			URL:        call.rec.URL,
			Status:     info.Status,
			StatusText: info.StatusText,
			Headers:    info.Headers,
		},
	})
}

func (o *HookObserver) onTrailersReceived(h hook.Handle, payload any) {
	call := o.lookup(h, hook.ChannelTrailersReceived)
	if call == nil {
		return
	}
	var total int64
	if info, ok := payload.(*hook.TrailerInfo); ok {
		total = info.BytesReceived
	}
	call.finish(total)
}

func (o *HookObserver) onError(h hook.Handle, payload any) {
	call := o.lookup(h, hook.ChannelError)
	if call == nil {
		return
	}
	err, _ := payload.(error)
	call.fail(err)
}

// guard keeps instrumentation faults out of the source's control flow.
func (o *HookObserver) guard(fn hook.Callback) hook.Callback {
	return func(h hook.Handle, payload any) {
		defer func() {
			if r := recover(); r != nil {
				o.sess.Logger().Error("reqtrace: hook adapter fault:", r)
			}
		}()
		fn(h, payload)
	}
}

// lookup resolves a handle or logs a correlation miss.
func (o *HookObserver) lookup(h hook.Handle, ch hook.Channel) *HookCall {
	v, ok := o.sess.Lookup(h)
	if !ok {
		o.sess.Logger().Error("reqtrace: no tracked call for handle on channel:", string(ch))
		return nil
	}
	call, ok := v.(*HookCall)
	if !ok {
		o.sess.Logger().Error("reqtrace: handle bound to unexpected type:", fmt.Sprintf("%T", v))
		return nil
	}
	return call
}

// HookCall is the per-call adapter for a hook-driven transport.
type HookCall struct {
	rec *track.Request
	bus *lifecycle.Bus

	cancel func()
	evict  func()

	terminal sync.Once
}

// Abort performs the source's original cancellation effect and delivers
// exactly one Failure, even when invoked more than once.
func (c *HookCall) Abort() {
	if c.cancel != nil {
		c.cancel()
	}
	c.fail(nil)
}

// finish delivers the terminal success events: a DataReceived for the body
// total (the source reports bytes only at completion) and RequestFinished.
func (c *HookCall) finish(total int64) {
	c.terminal.Do(func() {
		if total > 0 {
			c.bus.Publish(lifecycle.Event{Kind: lifecycle.KindDataReceived, ByteCount: total})
		}
		c.bus.Publish(lifecycle.Event{Kind: lifecycle.KindRequestFinished, ByteCount: total})
		c.evict()
	})
}

// fail delivers the terminal failure event. A nil err marks application-
// initiated cancellation.
func (c *HookCall) fail(err error) {
	c.terminal.Do(func() {
		c.bus.Publish(lifecycle.Event{Kind: lifecycle.KindFailure, Err: err})
		c.evict()
	})
}
