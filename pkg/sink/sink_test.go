package sink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		mode Mode
		ok   bool
	}{
		{"summary", ModeSummaryLog, true},
		{"full", ModeFullLog, true},
		{"passthrough", ModePassthrough, true},
		{"", "", false},
		{"verbose", "", false},
	}
	for _, tc := range cases {
		mode, ok := ParseMode(tc.in)
		if ok != tc.ok || mode != tc.mode {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tc.in, mode, ok, tc.mode, tc.ok)
		}
	}
}

func TestSummaryLog_OnlyMilestonesProduceLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummaryLog(logging.ConsoleTo(&buf))

	s.Emit(&protocol.ResponseReceived{RequestID: 0, Timestamp: 0.5})
	s.Emit(&protocol.DataReceived{RequestID: 0, Timestamp: 0.6, DataLength: 4})

	if buf.Len() != 0 {
		t.Errorf("responseReceived/dataReceived must not log in summary mode, got %q", buf.String())
	}
}

func TestSummaryLog_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummaryLog(logging.ConsoleTo(&buf))

	s.Emit(&protocol.RequestWillBeSent{
		RequestID: 0,
		Timestamp: 1.0,
		Request:   protocol.Request{URL: "http://example.test/a"},
	})
	s.Emit(&protocol.LoadingFinished{RequestID: 0, Timestamp: 1.5, EncodedDataLength: 10})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "[1.000] 0 Network.requestWillBeSent http://example.test/a" {
		t.Errorf("unexpected start line: %q", lines[0])
	}
	if lines[1] != "[1.500] 0 Network.loadingFinished 10 Bytes\ttook 500ms" {
		t.Errorf("unexpected finish line: %q", lines[1])
	}
}

func TestSummaryLog_FailureLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummaryLog(logging.ConsoleTo(&buf))

	s.Emit(&protocol.RequestWillBeSent{RequestID: 2, Timestamp: 0.1, Request: protocol.Request{URL: "http://example.test/b"}})
	s.Emit(&protocol.LoadingFailed{RequestID: 2, Timestamp: 0.2, ErrorText: "connection refused"})

	if !strings.Contains(buf.String(), "2 Network.loadingFailed connection refused") {
		t.Errorf("failure line missing error text: %q", buf.String())
	}
}

func TestSummaryLog_TookWithoutStartRecord(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummaryLog(logging.ConsoleTo(&buf))

	// A finish with no recorded start still logs, with a zero duration.
	s.Emit(&protocol.LoadingFinished{RequestID: 9, Timestamp: 3.0, EncodedDataLength: 7})

	if !strings.Contains(buf.String(), "7 Bytes\ttook 0ms") {
		t.Errorf("unexpected line: %q", buf.String())
	}
}

func TestFullLog_LogsNameAndRecord(t *testing.T) {
	var buf bytes.Buffer
	s := NewFullLog(logging.ConsoleTo(&buf))

	s.Emit(&protocol.DataReceived{RequestID: 1, Timestamp: 0.2, DataLength: 4, EncodedDataLength: 4})

	out := buf.String()
	if !strings.Contains(out, protocol.EventDataReceived) {
		t.Errorf("missing event name in %q", out)
	}
	if !strings.Contains(out, `"dataLength":4`) {
		t.Errorf("missing structured record in %q", out)
	}
}

type captureChannel struct {
	events []string
	recs   []protocol.Record
}

func (c *captureChannel) Publish(event string, rec protocol.Record) {
	c.events = append(c.events, event)
	c.recs = append(c.recs, rec)
}

func TestPassthrough_TagsRecordWithEventName(t *testing.T) {
	ch := &captureChannel{}
	s := NewPassthrough(ch)

	rec := &protocol.LoadingFinished{RequestID: 0, EncodedDataLength: 3}
	s.Emit(rec)

	if len(ch.events) != 1 || ch.events[0] != protocol.EventLoadingFinished {
		t.Fatalf("unexpected events %v", ch.events)
	}
	if ch.recs[0] != protocol.Record(rec) {
		t.Error("record must pass through unmodified")
	}
}
