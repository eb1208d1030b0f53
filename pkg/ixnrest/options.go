package ixnrest

import (
	"net/http"

	"go.uber.org/zap"
)

type options struct {
	scheme     string
	httpClient *http.Client
	logger     *zap.Logger
	policy     PollPolicy
	timer      Timer
}

// Option configures Connect and NewClient.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		scheme: "http",
		logger: zap.NewNop(),
		policy: DefaultPollPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithScheme selects http or https for the server URL.
func WithScheme(scheme string) Option {
	return func(o *options) {
		if scheme != "" {
			o.scheme = scheme
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithPollPolicy(p PollPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithTimer replaces the clock the poller sleeps on.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}
