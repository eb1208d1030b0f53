package ixnrest

import (
	"fmt"
	"time"
)

// RequestError is returned when the appliance rejects a request with a
// client-error status, or when the request never reached it.
type RequestError struct {
	Verb       string
	URL        string
	Body       []byte
	StatusCode int // 0 when the request failed before a response arrived
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("failed to %s %s %s: %v", e.Verb, e.URL, e.Body, e.Err)
	}
	return fmt.Sprintf("failed to %s %s %s - status code %d", e.Verb, e.URL, e.Body, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// OperationError is returned when a tracked job reports errors or ends in the
// error state.
type OperationError struct {
	URL     string
	Message string
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("post %s failed", e.URL)
}

// AttributeSetError is returned when a PATCH is answered with anything but 200.
// A rejected PATCH also carries the underlying *RequestError.
type AttributeSetError struct {
	URL        string
	Body       []byte
	StatusCode int
	Err        error
}

func (e *AttributeSetError) Error() string {
	return fmt.Sprintf("object %s failed to set attributes %s - status code %d", e.URL, e.Body, e.StatusCode)
}

func (e *AttributeSetError) Unwrap() error { return e.Err }

// OperationTimeoutError is returned when a tracked job is still pending after
// the poll policy is exhausted.
type OperationTimeoutError struct {
	Session string
	State   string
	Timeout time.Duration
}

func (e *OperationTimeoutError) Error() string {
	return fmt.Sprintf("%s operation failed, state is %s after %s", e.Session, e.State, e.Timeout)
}
