package ixnrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	StateInProgress = "in_progress"
	StateDown       = "down"
	StateSuccess    = "success"
	StateError      = "error"
)

// DefaultPendingStates holds the job states that keep the poller waiting.
var DefaultPendingStates = []string{StateInProgress, StateDown}

// PollPolicy controls how a tracked job is awaited.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts uint
	Pending     []string
}

// DefaultPollPolicy polls once a second for 90 seconds.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    time.Second,
		MaxAttempts: 90,
		Pending:     DefaultPendingStates,
	}
}

// PollPolicyFor builds the default policy for a timeout in whole seconds.
func PollPolicyFor(timeoutSeconds int) PollPolicy {
	p := DefaultPollPolicy()
	if timeoutSeconds > 0 {
		p.MaxAttempts = uint(timeoutSeconds)
	}
	return p
}

// IsPending reports whether state keeps the job pending. Case is ignored.
func (p PollPolicy) IsPending(state string) bool {
	for _, s := range p.Pending {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// Timeout is the wall-clock budget the policy represents.
func (p PollPolicy) Timeout() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// Timer is the clock the poller sleeps on between attempts.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

type invoker interface {
	Invoke(ctx context.Context, verb, url string, body any) (*Response, error)
}

// Poller waits for tracked jobs to leave the pending states.
type Poller struct {
	transport invoker
	policy    PollPolicy
	timer     Timer
	logger    *zap.Logger
}

func NewPoller(transport invoker, policy PollPolicy, timer Timer, logger *zap.Logger) *Poller {
	if timer == nil {
		timer = realTimer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Interval <= 0 {
		policy.Interval = time.Second
	}
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = DefaultPollPolicy().MaxAttempts
	}
	if len(policy.Pending) == 0 {
		policy.Pending = DefaultPendingStates
	}
	return &Poller{
		transport: transport,
		policy:    policy,
		timer:     timer,
		logger:    logger,
	}
}

func (p *Poller) Policy() PollPolicy {
	return p.policy
}

var errStillPending = errors.New("job still pending")

// Await blocks until the job described by resp completes. statusURL is the
// session root, whose state mirrors the job in flight.
func (p *Poller) Await(ctx context.Context, resp *Response, statusURL string) error {
	if err := reportedError(resp); err != nil {
		return err
	}

	state := resp.Get("state")
	if !state.Exists() {
		return nil
	}
	if strings.EqualFold(state.String(), StateError) {
		return &OperationError{URL: resp.URL}
	}
	if strings.EqualFold(state.String(), StateSuccess) {
		return nil
	}

	last := state.String()
	p.logger.Debug("waiting for job",
		zap.String("url", resp.URL),
		zap.String("state", last),
		zap.Duration("timeout", p.policy.Timeout()),
	)
	err := retry.Do(func() error {
		status, err := p.transport.Invoke(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return err
		}
		if status.StatusCode >= http.StatusInternalServerError {
			return &RequestError{Verb: http.MethodGet, URL: statusURL, StatusCode: status.StatusCode}
		}
		current := first(status.JSON()).Get("state")
		if !current.Exists() {
			return &OperationError{URL: statusURL, Message: fmt.Sprintf("status of %s carries no state", statusURL)}
		}
		last = current.String()
		if p.policy.IsPending(last) {
			return errStillPending
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(p.policy.MaxAttempts),
		retry.Delay(p.policy.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errStillPending) }),
		retry.LastErrorOnly(true),
		retry.WithTimer(p.timer),
	)
	if errors.Is(err, errStillPending) {
		return &OperationTimeoutError{
			Session: statusURL,
			State:   last,
			Timeout: p.policy.Timeout(),
		}
	}
	if err != nil {
		return err
	}
	p.logger.Debug("job completed", zap.String("url", resp.URL), zap.String("state", last))
	return nil
}

// reportedError returns the first entry of the body's errors list, if any.
func reportedError(resp *Response) error {
	errs := resp.Get("errors")
	if !errs.IsArray() || len(errs.Array()) == 0 {
		return nil
	}
	return &OperationError{URL: resp.URL, Message: errorMessage(errs.Get("0"))}
}

func errorMessage(v gjson.Result) string {
	if v.IsObject() {
		for _, key := range []string{"errorMessage", "message", "detail"} {
			if m := v.Get(key); m.Exists() {
				return m.String()
			}
		}
	}
	return v.String()
}
