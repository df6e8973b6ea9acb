// Package mock provides a deterministic, network-free rest.Transport.
//
// Outcomes are scripted as behaviors. Each call resolves exactly one of
// them, in this order: the behavior plan, the queue for the request's
// (method, URL) route, then the default queue. A call with nothing to
// resolve fails with ErrNoMockConfigured, which is deliberately not a
// *rest.Error so it can never pass for a production failure.
//
// Queues and call history belong to one Transport and are never cleared;
// create a new Transport for a fresh script.
package mock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gaborage/restbricks/logger"
	"github.com/gaborage/restbricks/rest"
)

var (
	// ErrNoMockConfigured means a call found no plan step and no queued entry.
	ErrNoMockConfigured = errors.New("mock: no response configured")
	// ErrReplayOutOfRange means a Replay step referenced a response that was
	// never recorded for its route.
	ErrReplayOutOfRange = errors.New("mock: replay index out of range")
	// ErrPlanExhausted is returned after the plan runs out when it was built
	// with OnExhausted(ExhaustError).
	ErrPlanExhausted = errors.New("mock: behavior plan exhausted")
)

// Sleeper waits for d or until ctx ends, returning ctx.Err() in that case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Transport.
type Option func(*Transport)

// WithSleeper replaces the real timer used by Delay, e.g. with a virtual
// clock in tests.
func WithSleeper(sleep Sleeper) Option {
	return func(t *Transport) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// WithClock replaces time.Now for call timestamps and elapsed times.
func WithClock(now Clock) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger logs every resolution at debug level.
func WithLogger(log logger.Logger) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// Transport is the scripted rest.Transport. It is safe for concurrent use;
// every queued entry is consumed by exactly one call.
type Transport struct {
	mu       sync.Mutex
	plan     *Plan
	routes   map[rest.RouteKey][]Behavior
	defaults []Behavior
	calls    []Call
	recorded map[rest.RouteKey][]Response

	elapsedTotal time.Duration
	lastErr      error

	sleep Sleeper
	now   Clock
	log   logger.Logger
}

var _ rest.Transport = (*Transport)(nil)

// New creates a Transport with empty queues and no plan.
func New(opts ...Option) *Transport {
	t := &Transport{
		plan:     &Plan{},
		routes:   make(map[rest.RouteKey][]Behavior),
		recorded: make(map[rest.RouteKey][]Response),
		sleep:    sleepContext,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewWithBehaviorPlan creates a Transport pre-seeded with plan. The plan is
// copied; later changes to it have no effect.
func NewWithBehaviorPlan(plan *Plan, opts ...Option) *Transport {
	t := New(opts...)
	t.plan = plan.clone()
	return t
}

// QueueResponse appends resp to the default queue.
func (t *Transport) QueueResponse(resp Response) {
	t.QueueBehavior(Pass{Response: resp})
}

// QueueBehavior appends b to the default queue.
func (t *Transport) QueueBehavior(b Behavior) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaults = append(t.defaults, b)
}

// QueueRouteResponse appends resp to the queue for (method, url).
func (t *Transport) QueueRouteResponse(method, url string, resp Response) {
	t.QueueRouteBehavior(method, url, Pass{Response: resp})
}

// QueueRouteBehavior appends b to the queue for (method, url).
func (t *Transport) QueueRouteBehavior(method, url string, b Behavior) {
	key := rest.NewRequest(method, url).RouteKey()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[key] = append(t.routes[key], b)
}

// QueueGetResponse appends resp to the GET queue for url.
func (t *Transport) QueueGetResponse(url string, resp Response) {
	t.QueueRouteResponse(http.MethodGet, url, resp)
}

// QueuePostResponse appends resp to the POST queue for url.
func (t *Transport) QueuePostResponse(url string, resp Response) {
	t.QueueRouteResponse(http.MethodPost, url, resp)
}

// QueueErrorResponse queues a raw failure body for GET url.
func (t *Transport) QueueErrorResponse(url string, status int, body []byte) {
	t.QueueGetResponse(url, NewResponse(status, body))
}

// QueueErrorText queues a text failure body for GET url.
func (t *Transport) QueueErrorText(url string, status int, message string) {
	t.QueueGetResponse(url, TextError(status, message))
}

// QueueErrorJSON queues a JSON failure body for GET url.
func (t *Transport) QueueErrorJSON(url string, status int, payload any) error {
	resp, err := JSONError(status, payload)
	if err != nil {
		return err
	}
	t.QueueGetResponse(url, resp)
	return nil
}

// Send resolves one behavior for req. It never retries.
func (t *Transport) Send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	start := t.now()
	key := req.RouteKey()

	t.mu.Lock()
	b, err := t.nextLocked(key, true)
	t.mu.Unlock()

	out := outcome{behavior: b, err: err}
	if err == nil {
		out = t.resolve(ctx, req, b)
	}

	elapsed := t.now().Sub(start)
	if out.resp != nil {
		out.resp.Elapsed = elapsed
	}
	t.record(req, out, start, elapsed)

	t.log.Debug().
		Str("method", key.Method).
		Str("url", key.URL).
		Str("behavior", BehaviorName(out.behavior)).
		Dur("elapsed", elapsed).
		Err(out.err).
		Msg("Mock transport resolved call")

	return out.resp, out.err
}

type outcome struct {
	resp     *rest.Response
	behavior Behavior
	delayed  time.Duration
	err      error
}

// nextLocked pops the next behavior for key. The plan is skipped for the
// inner step of a Delay.
func (t *Transport) nextLocked(key rest.RouteKey, usePlan bool) (Behavior, error) {
	if usePlan {
		if b, ok := t.plan.pop(); ok {
			return b, nil
		}
		if t.plan.exhausted == ExhaustError {
			return nil, fmt.Errorf("%w: %s", ErrPlanExhausted, key)
		}
	}
	if queue := t.routes[key]; len(queue) > 0 {
		b := queue[0]
		queue[0] = nil
		t.routes[key] = queue[1:]
		return b, nil
	}
	if len(t.defaults) > 0 {
		b := t.defaults[0]
		t.defaults[0] = nil
		t.defaults = t.defaults[1:]
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMockConfigured, key)
}

func (t *Transport) resolve(ctx context.Context, req rest.Request, b Behavior) outcome {
	key := req.RouteKey()
	withHeaders := !req.DiscardsResponseHeaders()
	var delayed time.Duration

	for {
		switch v := b.(type) {
		case Delay:
			if err := t.sleep(ctx, v.Duration); err != nil {
				return outcome{behavior: v, delayed: delayed, err: interrupted(err)}
			}
			delayed += v.Duration
			if v.Then != nil {
				b = v.Then
				continue
			}
			t.mu.Lock()
			next, err := t.nextLocked(key, false)
			t.mu.Unlock()
			if err != nil {
				return outcome{behavior: v, delayed: delayed, err: err}
			}
			b = next

		case Pass:
			return outcome{resp: v.Response.toRest(withHeaders), behavior: v, delayed: delayed}

		case Reject:
			resp := &rest.Response{Status: v.Status, Body: []byte(v.Message)}
			if v.Retryable != nil {
				resp.WithRetryableHint(*v.Retryable)
			}
			return outcome{resp: resp, behavior: v, delayed: delayed}

		case Drop:
			err := rest.NewConnectError("mock transport dropped connection", 0, true)
			return outcome{behavior: v, delayed: delayed, err: err}

		case Replay:
			t.mu.Lock()
			history := t.recorded[key]
			var (
				replayed Response
				inRange  = v.Index >= 0 && v.Index < len(history)
			)
			if inRange {
				replayed = history[v.Index]
			}
			t.mu.Unlock()
			if !inRange {
				err := fmt.Errorf("%w: index %d for %s, %d recorded", ErrReplayOutOfRange, v.Index, key, len(history))
				return outcome{behavior: v, delayed: delayed, err: err}
			}
			return outcome{resp: replayed.toRest(withHeaders), behavior: v, delayed: delayed}

		case ConnectError:
			return outcome{behavior: v, delayed: delayed, err: rest.NewConnectError(v.Message, v.Status, v.Retryable)}

		case TimeoutError:
			return outcome{behavior: v, delayed: delayed, err: rest.NewTimeoutError(v.Message, v.Status, v.Retryable)}

		case TransportError:
			return outcome{behavior: v, delayed: delayed, err: rest.NewTransportError(v.Message, v.Status, v.Retryable)}

		default:
			return outcome{behavior: b, delayed: delayed, err: fmt.Errorf("mock: unsupported behavior %T", b)}
		}
	}
}

// interrupted maps a canceled delay to a transport failure. Hitting the
// attempt deadline is a retryable timeout.
func interrupted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return rest.NewTimeoutError("mock delay exceeded attempt deadline", 0, true).WithCause(err)
	}
	return rest.NewTransportError("mock delay canceled", 0, false).WithCause(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
