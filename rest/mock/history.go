package mock

import (
	"slices"
	"time"

	"github.com/gaborage/restbricks/rest"
)

// Call records one resolved call, retries included.
type Call struct {
	// Seq starts at 1 and orders calls across all routes.
	Seq     int
	Route   rest.RouteKey
	Request rest.Request
	// Behavior produced the outcome. A completed Delay records its inner
	// behavior; nil when nothing was configured.
	Behavior Behavior
	Delayed  time.Duration
	Status   int
	Err      error
	At       time.Time
	Elapsed  time.Duration
}

// Snapshot is a point-in-time view of a Transport.
type Snapshot struct {
	RequestCount    int
	LastURL         string
	LastStatus      int
	LastError       string
	PlanRemaining   int
	DefaultQueueLen int
	RouteQueueLen   int
	ElapsedTotal    time.Duration
}

func (t *Transport) record(req rest.Request, out outcome, at time.Time, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call := Call{
		Seq:      len(t.calls) + 1,
		Route:    req.RouteKey(),
		Request:  req,
		Behavior: out.behavior,
		Delayed:  out.delayed,
		Err:      out.err,
		At:       at,
		Elapsed:  elapsed,
	}
	if out.resp != nil {
		call.Status = out.resp.Status
		t.recorded[call.Route] = append(t.recorded[call.Route], Response{
			Status:  out.resp.Status,
			Headers: out.resp.Headers,
			Body:    out.resp.Body,
		})
	} else if restErr, ok := rest.AsError(out.err); ok {
		call.Status, _ = restErr.Status()
	}
	t.calls = append(t.calls, call)
	t.elapsedTotal += elapsed
	t.lastErr = out.err
}

// CallCount returns the number of calls resolved so far.
func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// CallCountForRoute returns the number of calls made to (method, url).
func (t *Transport) CallCountForRoute(method, url string) int {
	return len(t.CallsForRoute(method, url))
}

// CallsForRoute returns the calls made to (method, url) in order.
func (t *Transport) CallsForRoute(method, url string) []Call {
	key := rest.NewRequest(method, url).RouteKey()
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Call
	for _, c := range t.calls {
		if c.Route == key {
			out = append(out, c)
		}
	}
	return out
}

// LastCall returns the most recent call.
func (t *Transport) LastCall() (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		return Call{}, false
	}
	return t.calls[len(t.calls)-1], true
}

// Calls returns every call in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.calls)
}

// Snapshot returns counters and queue depths.
func (t *Transport) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		RequestCount:    len(t.calls),
		PlanRemaining:   t.plan.Len(),
		DefaultQueueLen: len(t.defaults),
		ElapsedTotal:    t.elapsedTotal,
	}
	for _, q := range t.routes {
		s.RouteQueueLen += len(q)
	}
	if n := len(t.calls); n > 0 {
		last := t.calls[n-1]
		s.LastURL = last.Route.URL
		s.LastStatus = last.Status
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}
