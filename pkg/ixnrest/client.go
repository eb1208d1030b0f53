package ixnrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// Client issues commands within one session. It is not safe for concurrent
// use; callers serialize requests or open separate sessions.
type Client struct {
	session   Session
	transport *Transport
	poller    *Poller
	logger    *zap.Logger
}

// NewClient binds a client to an already opened session.
func NewClient(session Session, opts ...Option) *Client {
	o := newOptions(opts)
	transport := NewTransport(o.httpClient, o.logger)
	poller := NewPoller(transport, o.policy, o.timer, o.logger)
	return newClient(session, transport, poller, o.logger)
}

func newClient(session Session, transport *Transport, poller *Poller, logger *zap.Logger) *Client {
	return &Client{
		session:   session,
		transport: transport,
		poller:    poller,
		logger:    logger,
	}
}

func (c *Client) Session() Session {
	return c.session
}

// Root is the reference of the root configuration object.
func (c *Client) Root() Ref {
	return c.session.RootObjectPath()
}

func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.transport.Invoke(ctx, http.MethodGet, url, nil)
}

// Post sends body to url. A response carrying an id is a tracked job and is
// awaited before Post returns.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	resp, err := c.transport.Invoke(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	if resp.Get("id").Exists() {
		if err := c.poller.Await(ctx, resp, c.session.RootURL); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Patch writes attributes. Only a 200 answer counts as success.
func (c *Client) Patch(ctx context.Context, url string, body any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("failed to encode attributes for %s: %w", url, err)
	}
	resp, err := c.transport.Invoke(ctx, http.MethodPatch, url, payload)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
			return &AttributeSetError{URL: url, Body: payload, StatusCode: reqErr.StatusCode, Err: err}
		}
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &AttributeSetError{URL: url, Body: payload, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) Options(ctx context.Context, url string) (*Response, error) {
	return c.transport.Invoke(ctx, http.MethodOptions, url, nil)
}

// Execute invokes the named operation. With an empty ref the operation is
// resolved under the root object, otherwise under ref's object type. args are
// sent positionally as arg1..argN and the response's result is returned.
func (c *Client) Execute(ctx context.Context, name string, ref Ref, args ...any) (gjson.Result, error) {
	body, err := argsBody(args)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode arguments for %s: %w", name, err)
	}
	c.logger.Debug("execute", zap.String("operation", name), zap.String("ref", string(ref)))
	resp, err := c.Post(ctx, c.OperationsURL(ref)+name, body)
	if err != nil {
		return gjson.Result{}, err
	}
	return resp.Get("result"), nil
}

// OperationsURL resolves the operations endpoint for ref.
func (c *Client) OperationsURL(ref Ref) string {
	if ref == "" {
		return c.session.RootURL + rootObject + "/operations/"
	}
	return c.session.RootURL + stripIDs(c.session.RelativeRef(ref)) + "/operations/"
}

// stripIDs drops every numeric path segment, turning an object reference
// into the path of its type.
func stripIDs(path string) string {
	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.TrimSuffix(strings.Join(kept, "/"), "/")
}

func argsBody(args []any) ([]byte, error) {
	body := []byte("{}")
	for i, arg := range args {
		var err error
		body, err = sjson.SetBytes(body, "arg"+strconv.Itoa(i+1), arg)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}
