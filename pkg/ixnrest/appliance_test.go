package ixnrest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSession = "/api/v1/sessions/1"

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeAppliance answers the session endpoint and serves the root status from
// a scripted list of states. Other routes are registered per test.
type fakeAppliance struct {
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	states   []string
	requests []recordedRequest
	rootGets int
}

func newFakeAppliance(t *testing.T) *fakeAppliance {
	t.Helper()
	a := &fakeAppliance{routes: map[string]http.HandlerFunc{}}
	a.handleJSON(http.MethodPost, sessionsPath, http.StatusCreated,
		`{"links":[{"rel":"self","method":"GET","href":"`+testSession+`"}]}`)
	a.server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAppliance) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	route, ok := a.routes[r.Method+" "+r.URL.Path]
	isRoot := r.Method == http.MethodGet && r.URL.Path == testSession+"/"
	var state string
	if isRoot {
		a.rootGets++
		if len(a.states) > 0 {
			state = a.states[0]
			if len(a.states) > 1 {
				a.states = a.states[1:]
			}
		}
	}
	a.mu.Unlock()

	switch {
	case ok:
		route(w, r)
	case isRoot:
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"id":1,"state":%q}]`, state)
	default:
		http.NotFound(w, r)
	}
}

func (a *fakeAppliance) handle(method, path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path] = h
}

func (a *fakeAppliance) handleJSON(method, path string, status int, body string) {
	a.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

// scriptStates sets the states the root status reports, one per GET. The
// last state repeats.
func (a *fakeAppliance) scriptStates(states ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = states
}

func (a *fakeAppliance) rootGetCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rootGets
}

func (a *fakeAppliance) lastRequest(method, path string) (recordedRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.requests) - 1; i >= 0; i-- {
		if a.requests[i].Method == method && a.requests[i].Path == path {
			return a.requests[i], true
		}
	}
	return recordedRequest{}, false
}

func (a *fakeAppliance) hostPort(t *testing.T) (string, int) {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

// fakeTimer fires immediately and records how long the caller meant to sleep.
type fakeTimer struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (f *fakeTimer) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.slept = append(f.slept, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (f *fakeTimer) total() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum time.Duration
	for _, d := range f.slept {
		sum += d
	}
	return sum
}

func connectFake(t *testing.T, a *fakeAppliance, opts ...Option) (*Client, *fakeTimer) {
	t.Helper()
	timer := &fakeTimer{}
	host, port := a.hostPort(t)
	opts = append([]Option{WithTimer(timer)}, opts...)
	c, err := Connect(context.Background(), host, port, opts...)
	require.NoError(t, err)
	return c, timer
}
