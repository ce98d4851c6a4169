// Package sink implements the output strategies for protocol records. Sinks
// are additively enabled: every enabled sink sees every record.
package sink

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
)

// Mode names one emission strategy.
type Mode string

// Emission modes.
const (
	ModePassthrough Mode = "passthrough"
	ModeFullLog     Mode = "full"
	ModeSummaryLog  Mode = "summary"
)

// ParseMode parses a mode string. The second result is false for unknown
// modes.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModePassthrough, ModeFullLog, ModeSummaryLog:
		return Mode(s), true
	}
	return "", false
}

// Sink receives every emitted protocol record.
type Sink interface {
	Emit(rec protocol.Record)
}

// DebugChannel is the process-wide collaborator the passthrough sink
// publishes to, typically a remote-debugging endpoint.
type DebugChannel interface {
	Publish(event string, rec protocol.Record)
}

// Passthrough re-publishes each record, tagged with its protocol event name,
// onto a debug channel.
type Passthrough struct {
	ch DebugChannel
}

// NewPassthrough builds a passthrough sink.
func NewPassthrough(ch DebugChannel) *Passthrough {
	return &Passthrough{ch: ch}
}

// Emit implements Sink.
func (p *Passthrough) Emit(rec protocol.Record) {
	p.ch.Publish(rec.Name(), rec)
}

// FullLog logs the event name plus the complete structured record.
type FullLog struct {
	log logging.ConsoleLogger
}

// NewFullLog builds a full-record logging sink.
func NewFullLog(log logging.ConsoleLogger) *FullLog {
	return &FullLog{log: log}
}

// Emit implements Sink.
func (f *FullLog) Emit(rec protocol.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		f.log.Error("reqtrace: encode record:", err)
		return
	}
	f.log.Log(rec.Name(), string(data))
}

// SummaryLog logs one line per lifecycle milestone: request start, failure,
// and completion. All other record kinds are silently skipped.
type SummaryLog struct {
	log logging.ConsoleLogger

	mu      sync.Mutex
	started map[int64]float64
}

// NewSummaryLog builds a summary logging sink.
func NewSummaryLog(log logging.ConsoleLogger) *SummaryLog {
	return &SummaryLog{log: log, started: make(map[int64]float64)}
}

// Emit implements Sink.
func (s *SummaryLog) Emit(rec protocol.Record) {
	switch r := rec.(type) {
	case *protocol.RequestWillBeSent:
		s.mu.Lock()
		s.started[r.RequestID] = r.Timestamp
		s.mu.Unlock()
		s.line(r.Timestamp, r.RequestID, r.Name(), r.Request.URL)

	case *protocol.LoadingFailed:
		s.forget(r.RequestID)
		s.line(r.Timestamp, r.RequestID, r.Name(), r.ErrorText)

	case *protocol.LoadingFinished:
		took := s.took(r.RequestID, r.Timestamp)
		s.line(r.Timestamp, r.RequestID, r.Name(),
			fmt.Sprintf("%d Bytes\ttook %dms", r.EncodedDataLength, took))
	}
}

func (s *SummaryLog) line(elapsed float64, id int64, event, detail string) {
	s.log.Log(fmt.Sprintf("[%.3f] %d %s %s", elapsed, id, event, detail))
}

// took returns the whole milliseconds between the request's start record and
// the given timestamp, and forgets the request.
func (s *SummaryLog) took(id int64, now float64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, ok := s.started[id]
	if !ok {
		return 0
	}
	delete(s.started, id)
	return int64(math.Round((now - start) * 1000))
}

func (s *SummaryLog) forget(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.started, id)
}

// Ensure implementations satisfy the interface at compile time.
var (
	_ Sink = (*Passthrough)(nil)
	_ Sink = (*FullLog)(nil)
	_ Sink = (*SummaryLog)(nil)
)
