package admin

import (
	"sync"
	"testing"

	"github.com/eugener/radagast/internal/config"
	"github.com/eugener/radagast/internal/guardrails"
)

func TestStateRoundTrips(t *testing.T) {
	t.Parallel()
	s := NewState("initial", guardrails.Config{MaxLength: 100}, config.LoggingConfig{}, false)

	if s.SystemPrompt() != "initial" {
		t.Errorf("prompt = %q", s.SystemPrompt())
	}
	s.SetSystemPrompt("updated")
	if s.SystemPrompt() != "updated" {
		t.Errorf("prompt = %q", s.SystemPrompt())
	}

	s.SetGuardrails(guardrails.Config{MinLength: 5, MaxLength: 50})
	if g := s.Guardrails(); g.MinLength != 5 || g.MaxLength != 50 {
		t.Errorf("guardrails = %+v", g)
	}

	s.SetLogging(config.LoggingConfig{DatadogEnabled: true})
	if !s.Logging().DatadogEnabled {
		t.Error("logging not updated")
	}

	s.SetVerbose(true)
	if !s.Verbose() {
		t.Error("verbose not updated")
	}
}

// Concurrent readers must always see a complete snapshot, never a torn one.
func TestStateConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := NewState("p", guardrails.Config{MinLength: 1, MaxLength: 10}, config.LoggingConfig{}, false)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 100 {
				if i%2 == 0 {
					s.SetGuardrails(guardrails.Config{MinLength: 1, MaxLength: 10})
				} else {
					s.SetGuardrails(guardrails.Config{MinLength: 2, MaxLength: 20})
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				g := s.Guardrails()
				if g.MaxLength != 10*g.MinLength {
					t.Errorf("torn read: %+v", g)
				}
			}
		}()
	}
	wg.Wait()
}
