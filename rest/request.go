package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Header is one name/value pair. Header order is preserved on requests and
// responses.
type Header struct {
	Name  string
	Value string
}

// RouteKey identifies a route by method and URL.
type RouteKey struct {
	Method string
	URL    string
}

func (k RouteKey) String() string { return k.Method + " " + k.URL }

// Request describes one HTTP call. It is a value: every With* method returns
// a modified copy and never touches the receiver, so a Request passed to
// Execute cannot change underneath it.
type Request struct {
	method  string
	url     string
	headers []Header
	body    []byte
	hasBody bool
	timeout time.Duration
	policy  RetryPolicy

	discardHeaders bool
}

// NewRequest creates a request for method and rawURL with no body, no
// timeout override and an empty retry policy.
func NewRequest(method, rawURL string) Request {
	return Request{method: strings.ToUpper(method), url: rawURL}
}

// Get creates a GET request.
func Get(rawURL string) Request { return NewRequest(http.MethodGet, rawURL) }

// Post creates a POST request.
func Post(rawURL string) Request { return NewRequest(http.MethodPost, rawURL) }

// Put creates a PUT request.
func Put(rawURL string) Request { return NewRequest(http.MethodPut, rawURL) }

// Patch creates a PATCH request.
func Patch(rawURL string) Request { return NewRequest(http.MethodPatch, rawURL) }

// Delete creates a DELETE request.
func Delete(rawURL string) Request { return NewRequest(http.MethodDelete, rawURL) }

// WithHeader sets a header. An existing header with the same name
// (case-insensitive) keeps its position and gets the new value.
func (r Request) WithHeader(name, value string) Request {
	headers := slices.Clone(r.headers)
	for i := range headers {
		if strings.EqualFold(headers[i].Name, name) {
			headers[i].Value = value
			r.headers = headers
			return r
		}
	}
	r.headers = append(headers, Header{Name: name, Value: value})
	return r
}

// WithBody attaches body. The slice is owned by the request from now on.
func (r Request) WithBody(body []byte) Request {
	r.body = body
	r.hasBody = true
	return r
}

// WithTimeout sets the per-attempt timeout. Every attempt, including
// retries, gets the full duration.
func (r Request) WithTimeout(timeout time.Duration) Request {
	r.timeout = timeout
	return r
}

// WithRetryOnStatus allows up to maxRetries additional attempts while the
// response status is status.
func (r Request) WithRetryOnStatus(status, maxRetries int) Request {
	r.policy = r.policy.withStatuses([]int{status}, maxRetries, false)
	return r
}

// WithRetryOnStatuses replaces every explicit per-status entry with the
// given statuses. The 4xx wildcard and transport entries are kept.
func (r Request) WithRetryOnStatuses(statuses []int, maxRetries int) Request {
	r.policy = r.policy.withStatuses(statuses, maxRetries, true)
	return r
}

// WithRetryOnStatusesExtend adds the given statuses to the existing entries.
func (r Request) WithRetryOnStatusesExtend(statuses []int, maxRetries int) Request {
	r.policy = r.policy.withStatuses(statuses, maxRetries, false)
	return r
}

// WithRetryOn4xx allows up to maxRetries additional attempts for each 4xx
// status that has no explicit entry.
func (r Request) WithRetryOn4xx(maxRetries int) Request {
	r.policy = r.policy.with4xx(maxRetries)
	return r
}

// WithRetryOnTransportError allows up to maxRetries additional attempts for
// transport errors marked retryable. Status entries never cover transport
// errors on their own unless the error carries that status.
func (r Request) WithRetryOnTransportError(maxRetries int) Request {
	r.policy = r.policy.withTransport(maxRetries)
	return r
}

// withoutResponseHeaders marks the request for the direct fast path.
func (r Request) withoutResponseHeaders() Request {
	r.discardHeaders = true
	return r
}

// Method returns the HTTP method.
func (r Request) Method() string { return r.method }

// URL returns the raw URL.
func (r Request) URL() string { return r.url }

// Headers returns a copy of the ordered header list.
func (r Request) Headers() []Header { return slices.Clone(r.headers) }

// Header returns the value of the first header named name.
func (r Request) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Body returns the body and whether one was set.
func (r Request) Body() ([]byte, bool) { return r.body, r.hasBody }

// Timeout returns the per-attempt timeout; zero means the client default.
func (r Request) Timeout() time.Duration { return r.timeout }

// RetryPolicy returns the request's retry policy.
func (r Request) RetryPolicy() RetryPolicy { return r.policy.clone() }

// RouteKey returns the (method, URL) pair used for mock routing.
func (r Request) RouteKey() RouteKey { return RouteKey{Method: r.method, URL: r.url} }

// DiscardsResponseHeaders reports whether the caller asked transports to skip
// materializing response headers.
func (r Request) DiscardsResponseHeaders() bool { return r.discardHeaders }

// Validate checks that the method is a known HTTP method and the URL is an
// absolute http(s) URL with a host.
func (r Request) Validate() error {
	switch r.method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
	default:
		return fmt.Errorf("invalid HTTP method %q", r.method)
	}

	u, err := url.Parse(r.url)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", r.url, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: absolute http(s) URL required", r.url)
	}
	return nil
}
