// Package ledgertest provides a scriptable stand-in for the remote ledger
// service. It records every request so tests can assert on the exact
// sequence of actions a flow produced.
package ledgertest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Canned replies used across tests.
const (
	AliceLogin   = `{"success":true,"user_id":1,"username":"alice"}`
	CashAccounts = `[{"account_id":1,"account_name":"Cash","account_type":"Cash","balance":500,"last_updated":"2024-01-01"}]`
	TwoAccounts  = `[{"account_id":1,"account_name":"Cash","account_type":"Cash","balance":500,"last_updated":"2024-01-01"},` +
		`{"account_id":2,"account_name":"HDFC","account_type":"Bank","balance":"1250.50","last_updated":"2024-01-02"}]`
	// UnreadableAccounts carries balances that do not coerce to a number.
	UnreadableAccounts = `[{"account_id":1,"account_name":"Cash","account_type":"Cash","balance":"1250.50"},` +
		`{"account_id":2,"account_name":"Old","account_type":"Bank","balance":"n/a"},` +
		`{"account_id":3,"account_name":"Forged","account_type":"Bank","balance":"1e99999999"}]`
	OK     = `{"success":true}`
	Failed = `{"success":false}`
)

// Call is one request received by the server.
type Call struct {
	Action string
	Params url.Values
}

// Get returns a single query parameter of the call.
func (c Call) Get(key string) string { return c.Params.Get(key) }

// Reply describes how to answer a request. A zero Status means 200.
// Drop closes the connection without answering.
type Reply struct {
	Status int
	Body   string
	Drop   bool
}

// Responder computes the reply for a request.
type Responder func(params url.Values) Reply

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	replies  map[string]Responder
	fallback Reply
}

// NewServer starts a server that answers {"success":false} to every action
// until told otherwise. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		replies:  make(map[string]Responder),
		fallback: Reply{Body: Failed},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Respond answers action with a fixed 200 body.
func (s *Server) Respond(action, body string) {
	s.RespondWith(action, Reply{Body: body})
}

// RespondWith answers action with a fixed reply.
func (s *Server) RespondWith(action string, r Reply) {
	s.RespondFunc(action, func(url.Values) Reply { return r })
}

// RespondFunc answers action with whatever fn computes.
func (s *Server) RespondFunc(action string, fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[action] = fn
}

// Calls returns every recorded call in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Actions returns the action names of every recorded call in order.
func (s *Server) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Action)
	}
	return out
}

// CallsFor returns the recorded calls for a single action.
func (s *Server) CallsFor(action string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call, if any.
func (s *Server) Last() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// ResetCalls forgets recorded calls but keeps configured replies.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	action := params.Get("action")

	s.mu.Lock()
	s.calls = append(s.calls, Call{Action: action, Params: params})
	fn, ok := s.replies[action]
	fallback := s.fallback
	s.mu.Unlock()

	reply := fallback
	if ok {
		reply = fn(params)
	}

	if reply.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("ledgertest: connection cannot be hijacked")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}
