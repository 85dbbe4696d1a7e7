// Package admin holds the process-wide runtime-settable gateway state.
// Writers publish immutable snapshots behind atomic references; readers take
// one snapshot per request and never observe a partial update.
package admin

import (
	"sync/atomic"

	"github.com/eugener/radagast/internal/config"
	"github.com/eugener/radagast/internal/guardrails"
)

// State is the shared mutable configuration consumed by the dispatcher,
// guardrails stage, and logger. All accessors are safe for concurrent use.
type State struct {
	systemPrompt atomic.Pointer[string]
	guardrails   atomic.Pointer[guardrails.Config]
	logging      atomic.Pointer[config.LoggingConfig]
	verbose      atomic.Bool
}

// NewState seeds the runtime state from startup configuration.
func NewState(systemPrompt string, g guardrails.Config, lc config.LoggingConfig, verbose bool) *State {
	s := &State{}
	s.systemPrompt.Store(&systemPrompt)
	s.guardrails.Store(&g)
	s.logging.Store(&lc)
	s.verbose.Store(verbose)
	return s
}

// SystemPrompt returns the current system prompt snapshot.
func (s *State) SystemPrompt() string { return *s.systemPrompt.Load() }

// SetSystemPrompt atomically replaces the system prompt.
func (s *State) SetSystemPrompt(p string) { s.systemPrompt.Store(&p) }

// Guardrails returns the current guardrail policy snapshot.
func (s *State) Guardrails() guardrails.Config { return *s.guardrails.Load() }

// SetGuardrails atomically replaces the guardrail policy.
func (s *State) SetGuardrails(g guardrails.Config) { s.guardrails.Store(&g) }

// Logging returns the current sink configuration snapshot.
func (s *State) Logging() config.LoggingConfig { return *s.logging.Load() }

// SetLogging atomically replaces the sink configuration.
func (s *State) SetLogging(lc config.LoggingConfig) { s.logging.Store(&lc) }

// Verbose reports whether DEBUG logging is enabled.
func (s *State) Verbose() bool { return s.verbose.Load() }

// SetVerbose toggles DEBUG logging.
func (s *State) SetVerbose(v bool) { s.verbose.Store(v) }
