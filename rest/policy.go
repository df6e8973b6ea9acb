package rest

import (
	"maps"
	"slices"
)

// RetryPolicy maps response statuses to a number of additional attempts.
// The zero value retries nothing; retries are opt-in per request.
type RetryPolicy struct {
	statuses map[int]int

	any4xx    bool
	any4xxMax int

	transport    bool
	transportMax int
}

// Lookup returns the retry budget for status. An explicit per-status entry
// wins over the 4xx wildcard.
func (p RetryPolicy) Lookup(status int) (int, bool) {
	if n, ok := p.statuses[status]; ok {
		return n, true
	}
	if p.any4xx && status >= 400 && status < 500 {
		return p.any4xxMax, true
	}
	return 0, false
}

// CoversStatus reports whether status has an entry, explicit or wildcard.
func (p RetryPolicy) CoversStatus(status int) bool {
	_, ok := p.Lookup(status)
	return ok
}

// TransportErrors returns the budget for retryable transport errors.
func (p RetryPolicy) TransportErrors() (int, bool) {
	return p.transportMax, p.transport
}

// Any4xx returns the wildcard budget applied to every 4xx status.
func (p RetryPolicy) Any4xx() (int, bool) {
	return p.any4xxMax, p.any4xx
}

// Statuses returns the explicit per-status entries in ascending order.
func (p RetryPolicy) Statuses() []int {
	return slices.Sorted(maps.Keys(p.statuses))
}

// IsEmpty reports whether the policy retries nothing at all.
func (p RetryPolicy) IsEmpty() bool {
	return len(p.statuses) == 0 && !p.any4xx && !p.transport
}

func (p RetryPolicy) clone() RetryPolicy {
	c := p
	c.statuses = maps.Clone(p.statuses)
	return c
}

func (p RetryPolicy) withStatuses(statuses []int, maxRetries int, replace bool) RetryPolicy {
	c := p.clone()
	if replace || c.statuses == nil {
		c.statuses = make(map[int]int, len(statuses))
	}
	for _, status := range statuses {
		c.statuses[status] = nonNegative(maxRetries)
	}
	return c
}

func (p RetryPolicy) with4xx(maxRetries int) RetryPolicy {
	c := p.clone()
	c.any4xx = true
	c.any4xxMax = nonNegative(maxRetries)
	return c
}

func (p RetryPolicy) withTransport(maxRetries int) RetryPolicy {
	c := p.clone()
	c.transport = true
	c.transportMax = nonNegative(maxRetries)
	return c
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// transportBucket keys the transport-error budget; it can never collide with
// an HTTP status.
const transportBucket = -1

// retryBudget tracks remaining retries for one Execute call. Each status,
// including each distinct 4xx matched by the wildcard, gets its own budget.
type retryBudget struct {
	policy    RetryPolicy
	remaining map[int]int
}

func newRetryBudget(policy RetryPolicy) *retryBudget {
	return &retryBudget{policy: policy, remaining: make(map[int]int)}
}

// takeStatus consumes one retry for status.
func (b *retryBudget) takeStatus(status int) bool {
	limit, ok := b.policy.Lookup(status)
	if !ok {
		return false
	}
	return b.take(status, limit)
}

// takeTransport consumes one retry for a retryable transport error. An error
// that carries a status may also use an explicit per-status entry.
func (b *retryBudget) takeTransport(status int) bool {
	if limit, ok := b.policy.TransportErrors(); ok && b.take(transportBucket, limit) {
		return true
	}
	if status > 0 {
		if limit, ok := b.policy.statuses[status]; ok {
			return b.take(status, limit)
		}
	}
	return false
}

func (b *retryBudget) take(key, limit int) bool {
	left, seen := b.remaining[key]
	if !seen {
		left = limit
	}
	if left <= 0 {
		b.remaining[key] = 0
		return false
	}
	b.remaining[key] = left - 1
	return true
}
