package ixnrest

import (
	"bytes"
	"context"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Transport issues single HTTP verbs against absolute URLs.
type Transport struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTransport(httpClient *http.Client, logger *zap.Logger) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Invoke performs verb on url. body may be nil, raw JSON bytes or any value
// that encodes to JSON. A 4xx answer fails with *RequestError; every other
// status is handed back to the caller.
func (t *Transport) Invoke(ctx context.Context, verb, url string, body any) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, &RequestError{Verb: verb, URL: url, Err: err}
	}
	t.logger.Debug("request",
		zap.String("verb", verb),
		zap.String("url", url),
		zap.ByteString("body", payload),
	)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, verb, url, reader)
	if err != nil {
		return nil, &RequestError{Verb: verb, URL: url, Body: payload, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Verb: verb, URL: url, Body: payload, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Verb: verb, URL: url, Body: payload, StatusCode: resp.StatusCode, Err: err}
	}
	t.logger.Debug("response",
		zap.String("verb", verb),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", data),
	)

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		return nil, &RequestError{Verb: verb, URL: url, Body: payload, StatusCode: resp.StatusCode}
	}

	return &Response{
		Verb:       verb,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case jsoniter.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}
