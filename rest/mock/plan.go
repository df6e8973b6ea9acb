package mock

import (
	"slices"
	"time"
)

// ExhaustPolicy decides what happens once a Plan runs out of steps.
type ExhaustPolicy int

const (
	// ExhaustFallback resolves from the route and default queues.
	ExhaustFallback ExhaustPolicy = iota
	// ExhaustError fails every further call with ErrPlanExhausted.
	ExhaustError
)

// Plan is an ordered script of behaviors consumed front to back, one per
// call, before any queue is consulted.
type Plan struct {
	steps     []Behavior
	exhausted ExhaustPolicy
}

// NewPlan creates an empty plan that falls back to the queues when done.
func NewPlan(steps ...Behavior) *Plan {
	return &Plan{steps: slices.Clone(steps)}
}

// Push appends a behavior.
func (p *Plan) Push(b Behavior) *Plan {
	p.steps = append(p.steps, b)
	return p
}

// Pass appends a Pass step.
func (p *Plan) Pass(resp Response) *Plan { return p.Push(Pass{Response: resp}) }

// Delay appends a Delay step that resolves from the queues afterwards.
func (p *Plan) Delay(d time.Duration) *Plan { return p.Push(Delay{Duration: d}) }

// DelayThen appends a Delay step that resolves then afterwards.
func (p *Plan) DelayThen(d time.Duration, then Behavior) *Plan {
	return p.Push(Delay{Duration: d, Then: then})
}

// Reject appends a Reject step.
func (p *Plan) Reject(status int, message string) *Plan { return p.Push(NewReject(status, message)) }

// Drop appends a Drop step.
func (p *Plan) Drop() *Plan { return p.Push(Drop{}) }

// Replay appends a Replay step.
func (p *Plan) Replay(index int) *Plan { return p.Push(Replay{Index: index}) }

// ConnectError appends a ConnectError step.
func (p *Plan) ConnectError(message string, status int, retryable bool) *Plan {
	return p.Push(NewConnectError(message, status, retryable))
}

// TimeoutError appends a TimeoutError step.
func (p *Plan) TimeoutError(message string, status int, retryable bool) *Plan {
	return p.Push(NewTimeoutError(message, status, retryable))
}

// TransportError appends a TransportError step.
func (p *Plan) TransportError(message string, status int, retryable bool) *Plan {
	return p.Push(NewTransportError(message, status, retryable))
}

// OnExhausted sets the exhaustion policy.
func (p *Plan) OnExhausted(policy ExhaustPolicy) *Plan {
	p.exhausted = policy
	return p
}

// Len returns the number of steps left.
func (p *Plan) Len() int { return len(p.steps) }

func (p *Plan) clone() *Plan {
	if p == nil {
		return &Plan{}
	}
	return &Plan{steps: slices.Clone(p.steps), exhausted: p.exhausted}
}

func (p *Plan) pop() (Behavior, bool) {
	if len(p.steps) == 0 {
		return nil, false
	}
	b := p.steps[0]
	p.steps[0] = nil
	p.steps = p.steps[1:]
	return b, true
}
