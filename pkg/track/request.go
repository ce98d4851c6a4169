// Package track turns one request's canonical lifecycle events into timed
// Network-domain protocol records. Each observed call gets a Request record
// and a Tracker; the tracker subscribes to the request's bus, captures phase
// timing, and drives record emission.
package track

import "sync"

// Request is the immutable-at-creation snapshot of one observed call, plus
// the few fields adapters fill in as the call progresses (accumulated post
// body, connection info). It is owned by its Tracker.
type Request struct {
	// ID is the session-assigned sequential request id.
	ID int64

	// URL is the full request URL.
	URL string

	// Method is the request method.
	Method string

	// Headers holds the outbound request headers.
	Headers map[string]string

	mu           sync.Mutex
	postBody     []byte
	reused       bool
	connectionID int64
}

// NewRequest builds a request record. The headers map is used as-is; callers
// must not mutate it afterwards.
func NewRequest(id int64, url, method string, headers map[string]string) *Request {
	if headers == nil {
		headers = map[string]string{}
	}
	return &Request{ID: id, URL: url, Method: method, Headers: headers}
}

// AppendBody accumulates outbound body bytes as the adapter observes them.
func (r *Request) AppendBody(p []byte) {
	if len(p) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postBody = append(r.postBody, p...)
}

// PostData returns the body accumulated so far.
func (r *Request) PostData() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.postBody)
}

// SetConnection records whether the call went out on a reused connection and
// the connection's id.
func (r *Request) SetConnection(reused bool, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reused = reused
	r.connectionID = id
}

// Connection returns the recorded connection info.
func (r *Request) Connection() (reused bool, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reused, r.connectionID
}
