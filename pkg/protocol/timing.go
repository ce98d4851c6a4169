package protocol

// TimingUnset marks a phase offset that was never observed. Reused
// connections legitimately skip DNS and connect phases, so consumers must
// treat the sentinel as "not applicable", not as an error.
const TimingUnset = -1

// TimingField names one offset slot in a Timing record.
type TimingField int

// Timing field identifiers, in request-lifecycle order.
const (
	DNSStart TimingField = iota
	DNSEnd
	ConnectStart
	ConnectEnd
	SSLStart
	SSLEnd
	SendStart
	SendEnd
	ReceiveHeadersStart
	ReceiveHeadersEnd
)

// Timing holds per-phase offsets in milliseconds since the request started.
// Unset fields carry TimingUnset.
type Timing struct {
	DNSStart            float64 `json:"dnsStart"`
	DNSEnd              float64 `json:"dnsEnd"`
	ConnectStart        float64 `json:"connectStart"`
	ConnectEnd          float64 `json:"connectEnd"`
	SSLStart            float64 `json:"sslStart"`
	SSLEnd              float64 `json:"sslEnd"`
	SendStart           float64 `json:"sendStart"`
	SendEnd             float64 `json:"sendEnd"`
	ReceiveHeadersStart float64 `json:"receiveHeadersStart"`
	ReceiveHeadersEnd   float64 `json:"receiveHeadersEnd"`
}

// NewTiming returns a Timing with every field at the unset sentinel.
func NewTiming() *Timing {
	return &Timing{
		DNSStart:            TimingUnset,
		DNSEnd:              TimingUnset,
		ConnectStart:        TimingUnset,
		ConnectEnd:          TimingUnset,
		SSLStart:            TimingUnset,
		SSLEnd:              TimingUnset,
		SendStart:           TimingUnset,
		SendEnd:             TimingUnset,
		ReceiveHeadersStart: TimingUnset,
		ReceiveHeadersEnd:   TimingUnset,
	}
}

// Set records an offset into the named field. A phase boundary that fires
// more than once (connection reuse) overwrites the previous value.
func (t *Timing) Set(f TimingField, ms float64) {
	switch f {
	case DNSStart:
		t.DNSStart = ms
	case DNSEnd:
		t.DNSEnd = ms
	case ConnectStart:
		t.ConnectStart = ms
	case ConnectEnd:
		t.ConnectEnd = ms
	case SSLStart:
		t.SSLStart = ms
	case SSLEnd:
		t.SSLEnd = ms
	case SendStart:
		t.SendStart = ms
	case SendEnd:
		t.SendEnd = ms
	case ReceiveHeadersStart:
		t.ReceiveHeadersStart = ms
	case ReceiveHeadersEnd:
		t.ReceiveHeadersEnd = ms
	}
}

// Get returns the current value of the named field.
func (t *Timing) Get(f TimingField) float64 {
	switch f {
	case DNSStart:
		return t.DNSStart
	case DNSEnd:
		return t.DNSEnd
	case ConnectStart:
		return t.ConnectStart
	case ConnectEnd:
		return t.ConnectEnd
	case SSLStart:
		return t.SSLStart
	case SSLEnd:
		return t.SSLEnd
	case SendStart:
		return t.SendStart
	case SendEnd:
		return t.SendEnd
	case ReceiveHeadersStart:
		return t.ReceiveHeadersStart
	case ReceiveHeadersEnd:
		return t.ReceiveHeadersEnd
	}
	return TimingUnset
}

// Clone returns an independent copy, used when a record must snapshot the
// timing accumulated so far.
func (t *Timing) Clone() *Timing {
	cp := *t
	return &cp
}
