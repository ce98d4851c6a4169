// Package devtools exposes emitted protocol records over a remote-debugging
// endpoint: an HTTP discovery surface plus a websocket page channel that
// streams Network-domain events to attached frontends. The server implements
// sink.DebugChannel, so it plugs straight into the passthrough sink.
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/rs/xid"

	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/protocol"
	"github.com/getmockd/reqtrace/pkg/sink"
)

// writeTimeout bounds a single frame write so one stuck client cannot stall
// the publisher.
const writeTimeout = 5 * time.Second

// Server is the remote-debugging endpoint.
type Server struct {
	addr   string
	pageID string
	log    *slog.Logger

	ln  net.Listener
	srv *http.Server

	mu      sync.Mutex
	clients map[*ws.Conn]struct{}
}

// NewServer builds a server that will bind to addr. A nil log discards
// server output.
func NewServer(addr string, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		addr:    addr,
		pageID:  xid.New().String(),
		log:     log,
		clients: make(map[*ws.Conn]struct{}),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("devtools listen: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", s.handleVersion)
	mux.HandleFunc("/json", s.handleList)
	mux.HandleFunc("/json/list", s.handleList)
	mux.HandleFunc("/devtools/page/", s.handlePage)

	s.srv = &http.Server{Handler: mux}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("devtools server stopped", "error", err)
		}
	}()

	s.log.Info("devtools endpoint listening",
		"addr", s.Addr(), "page", s.pageID)
	return nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// WebSocketURL returns the page's debugger URL.
func (s *Server) WebSocketURL() string {
	return fmt.Sprintf("ws://%s/devtools/page/%s", s.Addr(), s.pageID)
}

// Publish implements sink.DebugChannel: the record is framed as a protocol
// notification and broadcast to every attached client.
func (s *Server) Publish(event string, rec protocol.Record) {
	frame, err := json.Marshal(struct {
		Method string          `json:"method"`
		Params protocol.Record `json:"params"`
	}{Method: event, Params: rec})
	if err != nil {
		s.log.Error("devtools encode", "event", event, "error", err)
		return
	}

	s.mu.Lock()
	conns := make([]*ws.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, ws.MessageText, frame)
		cancel()
		if err != nil {
			s.drop(c)
		}
	}
}

// Close shuts the endpoint down and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		_ = c.Close(ws.StatusGoingAway, "server closing")
	}
	s.clients = make(map[*ws.Conn]struct{})
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"Browser":          "reqtrace",
		"Protocol-Version": "1.3",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []map[string]string{{
		"id":                   s.pageID,
		"type":                 "node",
		"title":                "reqtrace",
		"webSocketDebuggerUrl": s.WebSocketURL(),
	}})
}

// handlePage upgrades to websocket and keeps the connection registered until
// the client goes away. Incoming protocol commands are acknowledged with an
// empty result so frontends can enable the Network domain.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		// The endpoint is a local debugging aid; any origin may attach.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("devtools accept failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("devtools client attached", "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.drop(conn)
			return
		}
		var cmd struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		reply, _ := json.Marshal(map[string]any{"id": cmd.ID, "result": map[string]any{}})
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = conn.Write(wctx, ws.MessageText, reply)
		cancel()
		if err != nil {
			s.drop(conn)
			return
		}
	}
}

func (s *Server) drop(c *ws.Conn) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		_ = c.Close(ws.StatusNormalClosure, "")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var _ sink.DebugChannel = (*Server)(nil)
