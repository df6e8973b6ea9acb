package rest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gaborage/restbricks/config"
	"github.com/gaborage/restbricks/internal/tracking"
	"github.com/gaborage/restbricks/logger"
)

// DefaultTimeout is the per-attempt timeout used when neither the request
// nor the client sets one.
const DefaultTimeout = 2 * time.Second

// RejectionClassifier decides whether a failure status seen by a checked
// entrypoint is reported as retryable.
type RejectionClassifier func(policy RetryPolicy, status int) bool

// PolicyCoversStatus reports a rejection as retryable only when the request
// opted into retries for that status. It is the default classifier.
func PolicyCoversStatus(policy RetryPolicy, status int) bool {
	return policy.CoversStatus(status)
}

// ClassicRetryableStatus reports 429 and every 5xx as retryable regardless
// of the request's policy.
func ClassicRetryableStatus(_ RetryPolicy, status int) bool {
	return IsRetryableStatus(status)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for attempts and retries.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDefaultTimeout sets the per-attempt timeout for requests without one.
// Non-positive values keep the current default.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.defaultTimeout = timeout
		}
	}
}

// WithRejectionClassifier replaces the classifier used by the checked
// entrypoints.
func WithRejectionClassifier(classify RejectionClassifier) Option {
	return func(c *Client) {
		if classify != nil {
			c.classify = classify
		}
	}
}

// OptionsFromConfig builds client options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithDefaultTimeout(cfg.Client.Timeout),
		WithLogger(logger.New(cfg.Log.Level, cfg.Log.Pretty)),
	}
}

// Client executes requests against a Transport and applies each request's
// retry policy. It is safe for concurrent use when the transport is.
type Client struct {
	transport      Transport
	log            logger.Logger
	defaultTimeout time.Duration
	classify       RejectionClassifier
}

// New creates a Client over transport.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport:      transport,
		log:            logger.Nop(),
		defaultTimeout: DefaultTimeout,
		classify:       PolicyCoversStatus,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute sends req and retries as its policy allows. Any status, including
// 4xx and 5xx, is returned as a response; only transport failures become
// errors.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	return c.execute(ctx, req)
}

// ExecuteChecked is Execute followed by a status check: a terminal status of
// 400 or above becomes a KindRejected error carrying the status and body.
func (c *Client) ExecuteChecked(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ExecuteDirect is Execute on the fast path: the transport is told not to
// materialize response headers.
func (c *Client) ExecuteDirect(ctx context.Context, req Request) (*Response, error) {
	return c.Execute(ctx, req.withoutResponseHeaders())
}

// ExecuteCheckedDirect is ExecuteChecked on the fast path.
func (c *Client) ExecuteCheckedDirect(ctx context.Context, req Request) (*Response, error) {
	return c.ExecuteChecked(ctx, req.withoutResponseHeaders())
}

// Get executes req, which is expected to be a GET request.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	return c.Execute(ctx, req)
}

// GetURL executes a plain GET of url.
func (c *Client) GetURL(ctx context.Context, url string) (*Response, error) {
	return c.Execute(ctx, Get(url))
}

// Post sends body to url.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.Execute(ctx, Post(url).WithBody(body))
}

// PostJSON encodes payload and posts it to url with a JSON content type.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (*Response, error) {
	req, err := jsonPost(url, payload)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, req)
}

func (c *Client) checkStatus(req Request, resp *Response) error {
	if resp.Status < 400 {
		return nil
	}
	retryable, ok := resp.RetryableHint()
	if !ok {
		retryable = c.classify(req.policy, resp.Status)
	}
	return NewRejectedError(resp.Status, resp.Body, retryable)
}

func (c *Client) attemptTimeout(req Request) time.Duration {
	if req.timeout > 0 {
		return req.timeout
	}
	return c.defaultTimeout
}

func (c *Client) execute(ctx context.Context, req Request) (*Response, error) {
	budget := newRetryBudget(req.policy)
	timeout := c.attemptTimeout(req)
	method := req.method

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, c.canceled(ctx, req, attempt-1, err)
		}

		resp, err := c.attempt(ctx, req, timeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, c.canceled(ctx, req, attempt, ctxErr)
			}

			restErr, ok := AsError(err)
			if !ok {
				// Not a transport failure; e.g. a mock with nothing queued.
				tracking.RecordOutcome(ctx, method, tracking.OutcomeError, attempt)
				return nil, err
			}

			status, _ := restErr.Status()
			if restErr.IsRetryable() && budget.takeTransport(status) {
				c.log.Warn().
					Str("method", method).
					Str("url", req.url).
					Int("attempt", attempt).
					Str("error_kind", restErr.Kind().String()).
					Err(err).
					Msg("Retrying REST request after transport error")
				tracking.RecordRetry(ctx, method, tracking.ReasonTransport, status)
				continue
			}

			c.log.Error().
				Str("method", method).
				Str("url", req.url).
				Int("attempts", attempt).
				Str("error_kind", restErr.Kind().String()).
				Err(err).
				Msg("REST request failed")
			tracking.RecordOutcome(ctx, method, tracking.OutcomeError, attempt)
			return nil, err
		}

		if budget.takeStatus(resp.Status) {
			c.log.Warn().
				Str("method", method).
				Str("url", req.url).
				Int("attempt", attempt).
				Int("status", resp.Status).
				Msg("Retrying REST request after status")
			tracking.RecordRetry(ctx, method, tracking.ReasonStatus, resp.Status)
			continue
		}

		tracking.RecordOutcome(ctx, method, tracking.OutcomeResponse, attempt)
		return resp, nil
	}
}

// attempt runs one transport call under its own deadline.
func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.transport.Send(attemptCtx, req)
	elapsed := time.Since(start)

	if err == nil && resp == nil {
		err = NewTransportError("transport returned no response", 0, false)
	}

	if err != nil {
		// A transport that only surfaced the context error still timed out.
		if _, isRest := AsError(err); !isRest && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = NewTimeoutError("attempt exceeded "+timeout.String(), 0, true).WithCause(err)
		}
		errType := "other"
		if restErr, ok := AsError(err); ok {
			errType = restErr.Kind().String()
		}
		tracking.RecordAttempt(ctx, req.method, 0, errType, elapsed)
		c.log.Debug().
			Str("method", req.method).
			Str("url", req.url).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("REST attempt failed")
		return nil, err
	}

	if resp.Elapsed == 0 {
		resp.Elapsed = elapsed
	}
	tracking.RecordAttempt(ctx, req.method, resp.Status, "", elapsed)
	c.log.Debug().
		Str("method", req.method).
		Str("url", req.url).
		Int("status", resp.Status).
		Dur("elapsed", elapsed).
		Msg("REST attempt completed")
	return resp, nil
}

// canceled builds the error returned when the caller's context ends. It is
// never retryable and unwraps to the context error.
func (c *Client) canceled(ctx context.Context, req Request, attempts int, cause error) error {
	kind := KindTransport
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	c.log.Warn().
		Str("method", req.method).
		Str("url", req.url).
		Int("attempts", attempts).
		Err(cause).
		Msg("REST request canceled")
	tracking.RecordOutcome(ctx, req.method, tracking.OutcomeCanceled, attempts)
	return NewError(kind, "request canceled", 0, false).WithCause(cause)
}

func jsonPost(url string, payload any) (Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, NewDecodeError(err)
	}
	return Post(url).WithHeader("Content-Type", "application/json").WithBody(body), nil
}

// ExecuteJSON executes req and decodes the body into T without checking the
// status.
func ExecuteJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return decodeResult[T](c.Execute(ctx, req))
}

// ExecuteJSONChecked executes req, rejects statuses of 400 and above, and
// decodes the body into T.
func ExecuteJSONChecked[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return decodeResult[T](c.ExecuteChecked(ctx, req))
}

// ExecuteJSONDirect is ExecuteJSON on the fast path.
func ExecuteJSONDirect[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return decodeResult[T](c.ExecuteDirect(ctx, req))
}

// ExecuteJSONCheckedDirect is ExecuteJSONChecked on the fast path.
func ExecuteJSONCheckedDirect[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return decodeResult[T](c.ExecuteCheckedDirect(ctx, req))
}

// PostJSONChecked posts payload as JSON and decodes a successful response
// into T.
func PostJSONChecked[T any](ctx context.Context, c *Client, url string, payload any) (T, error) {
	req, err := jsonPost(url, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return ExecuteJSONChecked[T](ctx, c, req)
}

func decodeResult[T any](resp *Response, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](resp)
}
