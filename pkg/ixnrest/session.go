package ixnrest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	sessionsPath = "/api/v1/sessions"
	rootObject   = "ixnetwork"
)

// Session identifies one interaction context with the appliance. It is
// fixed once Connect returns.
type Session struct {
	ServerURL   string // scheme://host:port
	SessionPath string // /api/v1/sessions/{id}/
	RootURL     string // ServerURL + SessionPath
}

func newSession(serverURL string, href Ref) Session {
	sessionPath := strings.TrimSuffix(string(href), "/") + "/"
	return Session{
		ServerURL:   serverURL,
		SessionPath: sessionPath,
		RootURL:     serverURL + sessionPath,
	}
}

// RootObjectPath is the reference of the root configuration object.
func (s Session) RootObjectPath() Ref {
	return Ref(s.SessionPath + rootObject)
}

// RelativeRef strips the session path from ref.
func (s Session) RelativeRef(ref Ref) string {
	return strings.TrimPrefix(string(ref), s.SessionPath)
}

// URL turns an object reference into an absolute URL.
func (s Session) URL(ref Ref) string {
	return s.ServerURL + string(ref)
}

func serverURL(scheme, host string, port int) string {
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
}

// Connect opens a session on the appliance at host:port and returns a client
// bound to it.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	o := newOptions(opts)
	transport := NewTransport(o.httpClient, o.logger)
	poller := NewPoller(transport, o.policy, o.timer, o.logger)
	server := serverURL(o.scheme, host, port)

	resp, err := transport.Invoke(ctx, http.MethodPost, server+sessionsPath, nil)
	if err != nil {
		return nil, err
	}
	href, err := ExtractRef(resp.Body)
	if err != nil {
		if opErr := reportedError(resp); opErr != nil {
			return nil, opErr
		}
		return nil, errors.Wrapf(err, "failed to read session from %s", resp.URL)
	}
	session := newSession(server, href)
	if resp.Get("id").Exists() {
		if err := poller.Await(ctx, resp, session.RootURL); err != nil {
			return nil, err
		}
	}

	o.logger.Info("session opened",
		zap.String("server", session.ServerURL),
		zap.String("session", session.SessionPath),
	)
	return newClient(session, transport, poller, o.logger), nil
}
