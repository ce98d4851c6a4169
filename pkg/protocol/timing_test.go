package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewTiming_AllFieldsUnset(t *testing.T) {
	timing := NewTiming()
	for f := DNSStart; f <= ReceiveHeadersEnd; f++ {
		if timing.Get(f) != TimingUnset {
			t.Errorf("field %d: expected sentinel %v, got %v", f, float64(TimingUnset), timing.Get(f))
		}
	}
}

func TestTiming_SetOverwrites(t *testing.T) {
	timing := NewTiming()
	timing.Set(ConnectStart, 1.5)
	if timing.ConnectStart != 1.5 {
		t.Fatalf("expected 1.5, got %v", timing.ConnectStart)
	}

	// A repeated phase boundary (connection reuse) overwrites: last write wins.
	timing.Set(ConnectStart, 7.25)
	if timing.ConnectStart != 7.25 {
		t.Errorf("expected last write 7.25, got %v", timing.ConnectStart)
	}
}

func TestTiming_CloneIsIndependent(t *testing.T) {
	timing := NewTiming()
	timing.Set(SendStart, 3)

	cp := timing.Clone()
	timing.Set(SendStart, 9)

	if cp.SendStart != 3 {
		t.Errorf("clone changed with original: got %v", cp.SendStart)
	}
}

func TestTiming_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(NewTiming())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{
		"dnsStart", "dnsEnd", "connectStart", "connectEnd",
		"sslStart", "sslEnd", "sendStart", "sendEnd",
		"receiveHeadersStart", "receiveHeadersEnd",
	} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("missing JSON field %q in %s", field, data)
		}
	}
}
