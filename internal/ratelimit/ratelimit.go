// Package ratelimit implements per-client-IP fixed-window admission control
// governed by a single swappable plan.
package ratelimit

import (
	"sync"
	"time"
)

// Plan is the active rate-limit policy. At most one plan is active
// process-wide; a nil plan disables the limiter.
type Plan struct {
	Name              string `json:"name"`
	RequestsPerWindow int    `json:"requestsPerWindow"`
	WindowSeconds     int    `json:"windowSeconds"`
}

// Result is the outcome of an admission check, carried through to the
// RateLimit-* response headers and the 429 body.
type Result struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
}

// state tracks one client IP within the current window.
type state struct {
	requests    int
	windowStart time.Time
}

// Limiter admits requests per client IP under the active plan.
// The per-IP state map and the plan share one lock so a plan swap
// atomically drops all window state.
type Limiter struct {
	mu     sync.Mutex
	plan   *Plan
	states map[string]*state
	now    func() time.Time
}

// New creates a Limiter with the given initial plan (nil = disabled).
func New(plan *Plan) *Limiter {
	return &Limiter{
		plan:   plan,
		states: make(map[string]*state),
		now:    time.Now,
	}
}

// SetClock overrides the limiter clock. Intended for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Admit decides whether a request from ip is allowed under the active plan.
// With no plan every request is admitted with zeroed limit fields.
func (l *Limiter) Admit(ip string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.plan
	if p == nil {
		return Result{Allowed: true}
	}

	now := l.now()
	window := time.Duration(p.WindowSeconds) * time.Second

	st, ok := l.states[ip]
	if !ok {
		st = &state{windowStart: now}
		l.states[ip] = st
	}
	if now.Sub(st.windowStart) >= window {
		st.requests = 0
		st.windowStart = now
	}

	remaining := p.RequestsPerWindow - st.requests
	reset := p.WindowSeconds - int(now.Sub(st.windowStart)/time.Second)

	if st.requests >= p.RequestsPerWindow {
		return Result{Limit: p.RequestsPerWindow, Remaining: remaining, ResetSeconds: reset}
	}
	st.requests++
	return Result{Allowed: true, Limit: p.RequestsPerWindow, Remaining: remaining - 1, ResetSeconds: reset}
}

// SetPlan atomically replaces the active plan and drops all per-IP state.
// A nil plan disables the limiter.
func (l *Limiter) SetPlan(p *Plan) {
	l.mu.Lock()
	l.plan = p
	l.states = make(map[string]*state)
	l.mu.Unlock()
}

// Plan returns the active plan, or nil when the limiter is disabled.
func (l *Limiter) Plan() *Plan {
	l.mu.Lock()
	p := l.plan
	l.mu.Unlock()
	return p
}
