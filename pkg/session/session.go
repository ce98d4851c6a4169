// Package session owns the process state one tracing session needs: the
// timestamp baseline for relative timing, request id assignment, the sink
// set, hook-subscription teardown, and the handle correlation map used by
// the stream-oriented adapter.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/getmockd/reqtrace/pkg/hook"
	"github.com/getmockd/reqtrace/pkg/lifecycle"
	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
	"github.com/getmockd/reqtrace/pkg/sink"
	"github.com/getmockd/reqtrace/pkg/track"
)

// Options configures a session. Zero-value fields fall back to defaults
// field-by-field; malformed options are defaulted, never rejected.
type Options struct {
	// Logger receives sink output and instrumentation faults.
	// Defaults to logging.Console().
	Logger logging.ConsoleLogger

	// EmitModes selects the enabled sinks. Defaults to {SummaryLog}.
	// Modes are additive, not mutually exclusive.
	EmitModes []sink.Mode

	// DebugChannel is the collaborator the passthrough sink publishes to.
	// Required only when ModePassthrough is enabled; a passthrough mode
	// without a channel is skipped with a warning.
	DebugChannel sink.DebugChannel
}

// DefaultOptions returns the defaults caller options are merged over.
func DefaultOptions() Options {
	return Options{
		Logger:    logging.Console(),
		EmitModes: []sink.Mode{sink.ModeSummaryLog},
	}
}

// Session is one start/stop tracing lifetime. Each call to Start produces an
// independent session: ids, hook registrations, and the correlation map are
// never shared between sessions.
type Session struct {
	id       string
	loaderID string
	start    time.Time

	nextID atomic.Int64
	log    logging.ConsoleLogger
	sinks  []sink.Sink

	mu      sync.Mutex
	handles map[hook.Handle]any
	stopFns []func()
	stopped bool
}

// Start opens a new tracing session with the given options merged over
// DefaultOptions.
func Start(opts Options) *Session {
	def := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	if opts.EmitModes == nil {
		opts.EmitModes = def.EmitModes
	}

	s := &Session{
		id:       xid.New().String(),
		loaderID: uuid.NewString(),
		start:    time.Now(),
		log:      opts.Logger,
		handles:  make(map[hook.Handle]any),
	}

	for _, m := range opts.EmitModes {
		switch m {
		case sink.ModePassthrough:
			if opts.DebugChannel == nil {
				s.log.Warn("reqtrace: passthrough mode enabled without a debug channel, skipping")
				continue
			}
			s.sinks = append(s.sinks, sink.NewPassthrough(opts.DebugChannel))
		case sink.ModeFullLog:
			s.sinks = append(s.sinks, sink.NewFullLog(s.log))
		case sink.ModeSummaryLog:
			s.sinks = append(s.sinks, sink.NewSummaryLog(s.log))
		default:
			s.log.Warn("reqtrace: unknown emit mode, skipping:", string(m))
		}
	}

	s.log.Debug("reqtrace: session started:", s.id)
	return s
}

// Stop unregisters every hook subscription made for this session and clears
// the correlation map. Calling Stop twice is a safe no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	fns := s.stopFns
	s.stopFns = nil
	s.handles = make(map[hook.Handle]any)
	s.mu.Unlock()

	// Teardown in reverse registration order.
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	s.log.Debug("reqtrace: session stopped:", s.id)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// LoaderID returns the loader id shared by all the session's requests.
func (s *Session) LoaderID() string { return s.loaderID }

// Logger returns the session's logger.
func (s *Session) Logger() logging.ConsoleLogger { return s.log }

// Elapsed returns seconds since the session started. It is the timestamp
// baseline for every protocol record the session emits.
func (s *Session) Elapsed() float64 {
	return time.Since(s.start).Seconds()
}

// Track registers a newly observed call: assigns the next request id, builds
// the request record, its bus, and its tracker. resourceType is reported in
// the request's protocol records.
func (s *Session) Track(url, method string, headers map[string]string, resourceType string) (*track.Request, *lifecycle.Bus) {
	req := track.NewRequest(s.nextID.Add(1)-1, url, method, headers)
	bus := lifecycle.NewBus()
	track.New(track.Config{
		Request:      req,
		Bus:          bus,
		LoaderID:     s.loaderID,
		ResourceType: resourceType,
		Stamp:        s.Elapsed,
		Emit:         s.emit,
		Logger:       s.log,
	})
	return req, bus
}

// OnStop registers teardown to run when the session stops. If the session is
// already stopped the function runs immediately.
func (s *Session) OnStop(fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		fn()
		return
	}
	s.stopFns = append(s.stopFns, fn)
	s.mu.Unlock()
}

// Bind stores a handle-to-adapter correlation entry.
func (s *Session) Bind(h hook.Handle, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.handles[h] = v
}

// Lookup resolves a handle to its bound adapter.
func (s *Session) Lookup(h hook.Handle) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.handles[h]
	return v, ok
}

// Unbind evicts a correlation entry. Adapters call this on terminal events
// so the map stays bounded by the number of in-flight calls.
func (s *Session) Unbind(h hook.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, h)
}

// HandleCount returns the number of live correlation entries.
func (s *Session) HandleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// emit fans one record out to every enabled sink. A fault in one sink is
// logged and must not stop the others, and can never reach the instrumented
// call.
func (s *Session) emit(rec protocol.Record) {
	for _, snk := range s.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("reqtrace: sink fault:", r)
				}
			}()
			snk.Emit(rec)
		}()
	}
}
