package httpclient

import (
	"bytes"
	"context"
	"io"
	"maps"
	nethttp "net/http"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gaborage/restbricks/config"
	"github.com/gaborage/restbricks/logger"
	"github.com/gaborage/restbricks/rest"
)

const (
	// DefaultTimeout is the default round-trip timeout of the underlying http.Client
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged body previews when no limit is configured
	DefaultMaxPayloadLogBytes = 1024
)

// client implements rest.Transport over net/http
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	callCount            int64
}

var _ rest.Transport = (*client)(nil)

// New creates a transport with default configuration
func New(log logger.Logger) rest.Transport {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the transport
type Builder struct {
	config       *Config
	logger       logger.Logger
	roundTripper nethttp.RoundTripper
}

// NewBuilder creates a new transport builder. A nil logger discards output.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
			TraceIDHeader:        HeaderXRequestID,
		},
		logger: log,
	}
}

// NewBuilderFromConfig creates a builder populated from the http section of cfg
func NewBuilderFromConfig(log logger.Logger, cfg *config.Config) *Builder {
	b := NewBuilder(log)
	if cfg == nil {
		return b
	}
	h := cfg.HTTP
	b.WithTimeout(h.Timeout).
		WithTraceIDHeader(h.TraceIDHeader).
		WithW3CTrace(h.W3CTrace)
	if h.LogPayloads {
		b.WithPayloadLogging(h.MaxPayloadLogBytes)
	}
	if h.Tracing {
		b.WithTracing()
	}
	for key, value := range h.Headers {
		b.WithDefaultHeader(key, value)
	}
	return b
}

// WithTimeout sets the round-trip timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews up
// to maxBytes (DefaultMaxPayloadLogBytes when maxBytes <= 0)
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader changes the request ID header name
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithTraceIDGenerator overrides how missing request IDs are generated
func (b *Builder) WithTraceIDGenerator(fn func() string) *Builder {
	b.config.NewTraceID = fn
	return b
}

// WithW3CTrace toggles traceparent/tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithTracing wraps the round tripper with otelhttp
func (b *Builder) WithTracing() *Builder {
	b.config.EnableTracing = true
	return b
}

// WithRoundTripper replaces the base round tripper (default: http.DefaultTransport)
func (b *Builder) WithRoundTripper(rt nethttp.RoundTripper) *Builder {
	b.roundTripper = rt
	return b
}

// Build creates the transport with the configured options
func (b *Builder) Build() rest.Transport {
	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)

	rt := b.roundTripper
	if rt == nil {
		rt = nethttp.DefaultTransport
	}
	if cfg.EnableTracing {
		rt = otelhttp.NewTransport(rt)
	}

	reqInterceptors := slices.Clone(cfg.RequestInterceptors)
	if cfg.EnableW3CTrace {
		reqInterceptors = append(reqInterceptors, NewW3CTraceInterceptor())
	}

	return &client{
		httpClient: &nethttp.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
		},
		logger:               b.logger,
		config:               &cfg,
		requestInterceptors:  reqInterceptors,
		responseInterceptors: slices.Clone(cfg.ResponseInterceptors),
	}
}

// Send performs exactly one HTTP round trip. Any status is a successful
// send; rest.Client decides what a failure status means.
func (c *client) Send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, rest.NewTransportError("invalid request", 0, false).WithCause(err)
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	body, _ := req.Body()
	requestID := httpReq.Header.Get(c.traceIDHeader())
	c.logRequest(httpReq, body, requestID)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifySendError(err)
	}

	resp, err := c.buildResponse(ctx, start, httpReq, httpResp, !req.DiscardsResponseHeaders())
	if err != nil {
		return nil, err
	}

	c.logResponse(resp, httpResp.Header, callCount, requestID)
	return resp, nil
}

func (c *client) traceIDHeader() string {
	if c.config.TraceIDHeader == "" {
		return HeaderXRequestID
	}
	return c.config.TraceIDHeader
}

func (c *client) requestID(ctx context.Context) string {
	if id, ok := TraceIDFromContext(ctx); ok {
		return id
	}
	if c.config.NewTraceID != nil {
		if id := c.config.NewTraceID(); id != "" {
			return id
		}
	}
	return EnsureTraceID(ctx)
}

// applyHeaders applies default headers, then request headers (which override
// defaults), then fills Content-Type and the request ID when missing
func (c *client) applyHeaders(ctx context.Context, httpReq *nethttp.Request, req rest.Request) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	for _, h := range req.Headers() {
		httpReq.Header.Set(h.Name, h.Value)
	}

	if body, ok := req.Body(); ok && len(body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	header := c.traceIDHeader()
	if httpReq.Header.Get(header) == "" {
		httpReq.Header.Set(header, c.requestID(ctx))
	}
}

// applyAuth applies configured basic auth unless the request carries its own
// Authorization header
func (c *client) applyAuth(httpReq *nethttp.Request) {
	if c.config.BasicAuth == nil || httpReq.Header.Get("Authorization") != "" {
		return
	}
	httpReq.SetBasicAuth(c.config.BasicAuth.Username, c.config.BasicAuth.Password)
}

// buildRequest constructs an *http.Request, applies headers/auth, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, req rest.Request) (*nethttp.Request, error) {
	var body io.Reader = nethttp.NoBody
	if b, ok := req.Body(); ok && len(b) > 0 {
		body = bytes.NewReader(b)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method(), req.URL(), body)
	if err != nil {
		return nil, rest.NewTransportError("failed to create HTTP request", 0, false).WithCause(err)
	}

	c.applyHeaders(ctx, httpReq, req)
	c.applyAuth(httpReq)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, rest.NewTransportError("request interceptor failed", 0, false).WithCause(err)
	}
	return httpReq, nil
}

// buildResponse runs response interceptors, reads the body, and builds a rest.Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, httpReq *nethttp.Request, httpResp *nethttp.Response, withHeaders bool) (*rest.Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, rest.NewTransportError("response interceptor failed", httpResp.StatusCode, false).WithCause(err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyReadError(httpResp.StatusCode, err)
	}

	resp := &rest.Response{
		Status:  httpResp.StatusCode,
		Body:    respBody,
		Elapsed: time.Since(start),
	}
	if withHeaders {
		resp.Headers = flattenHeaders(httpResp.Header)
	}
	return resp, nil
}

// flattenHeaders converts an http.Header into ordered name/value pairs,
// sorted by canonical name with repeated values kept in arrival order
func flattenHeaders(h nethttp.Header) []rest.Header {
	if len(h) == 0 {
		return nil
	}
	out := make([]rest.Header, 0, len(h))
	for _, name := range slices.Sorted(maps.Keys(h)) {
		for _, value := range h[name] {
			out = append(out, rest.Header{Name: name, Value: value})
		}
	}
	return out
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
