package rest

import (
	"encoding/json"
	"strings"
	"time"
)

// Response is the result of a single transport attempt. Body holds the exact
// bytes the transport produced; nothing re-encodes them before decoding.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
	Elapsed time.Duration

	retryHint *bool
}

// IsSuccess reports whether Status is 2xx.
func (r *Response) IsSuccess() bool { return IsSuccessStatus(r.Status) }

// Header returns the first header named name.
func (r *Response) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// WithRetryableHint records whether a failure status on this response should
// be reported as retryable by the checked entrypoints, overriding the
// client's classifier.
func (r *Response) WithRetryableHint(retryable bool) *Response {
	r.retryHint = &retryable
	return r
}

// RetryableHint returns the hint set with WithRetryableHint.
func (r *Response) RetryableHint() (retryable, ok bool) {
	if r.retryHint == nil {
		return false, false
	}
	return *r.retryHint, true
}

// JSON decodes the body into v in one pass.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewDecodeError(err)
	}
	return nil
}

// Decode decodes the response body straight into a T, without an
// intermediate string or generic tree. Failures are non-retryable
// KindDecode errors.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if err := resp.JSON(&out); err != nil {
		return out, err
	}
	return out, nil
}
