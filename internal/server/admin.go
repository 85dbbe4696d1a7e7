package server

import (
	"context"
	"net/http"
	"time"

	"github.com/eugener/radagast/internal/config"
	"github.com/eugener/radagast/internal/guardrails"
	"github.com/eugener/radagast/internal/ratelimit"
)

// healthTimeout bounds each provider connectivity probe on the providers
// listing.
const healthTimeout = 5 * time.Second

// --- System prompt ---

type systemPromptBody struct {
	SystemPrompt string `json:"systemPrompt"`
}

func (s *server) handleGetSystemPrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, systemPromptBody{SystemPrompt: s.deps.State.SystemPrompt()})
}

func (s *server) handleSetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var body systemPromptBody
	if !decodeJSON(w, r, &body) {
		return
	}
	s.deps.State.SetSystemPrompt(body.SystemPrompt)
	writeJSON(w, http.StatusOK, body)
}

// --- Guardrails ---

func (s *server) handleGetGuardrails(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.Guardrails())
}

func (s *server) handleSetGuardrails(w http.ResponseWriter, r *http.Request) {
	var g guardrails.Config
	if !decodeJSON(w, r, &g) {
		return
	}
	if g.MaxLength <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse("maxLength must be positive"))
		return
	}
	if g.MinLength > g.MaxLength {
		writeJSON(w, http.StatusBadRequest, errorResponse("minLength must not exceed maxLength"))
		return
	}
	s.deps.State.SetGuardrails(g)
	writeJSON(w, http.StatusOK, g)
}

// --- Rate limit ---

func (s *server) handleGetRateLimit(w http.ResponseWriter, _ *http.Request) {
	p := s.deps.Limiter.Plan()
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse("no rate limit plan active"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleSetRateLimit(w http.ResponseWriter, r *http.Request) {
	var p ratelimit.Plan
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.RequestsPerWindow <= 0 || p.WindowSeconds <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse("requestsPerWindow and windowSeconds must be positive"))
		return
	}
	s.deps.Limiter.SetPlan(&p)
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeleteRateLimit(w http.ResponseWriter, _ *http.Request) {
	s.deps.Limiter.SetPlan(nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- Logging and verbosity ---

func (s *server) handleGetLogging(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.Logging())
}

func (s *server) handleSetLogging(w http.ResponseWriter, r *http.Request) {
	var lc config.LoggingConfig
	if !decodeJSON(w, r, &lc) {
		return
	}
	s.deps.State.SetLogging(lc)
	writeJSON(w, http.StatusOK, lc)
}

type verboseBody struct {
	Verbose bool `json:"verbose"`
}

func (s *server) handleGetVerbose(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, verboseBody{Verbose: s.deps.State.Verbose()})
}

func (s *server) handleSetVerbose(w http.ResponseWriter, r *http.Request) {
	var body verboseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	s.deps.State.SetVerbose(body.Verbose)
	writeJSON(w, http.StatusOK, body)
}

// --- Cache ---

type cacheInfo struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

func (s *server) handleGetCache(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Cache.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	writeJSON(w, http.StatusOK, cacheInfo{Size: len(snap), Keys: keys})
}

func (s *server) handleFlushCache(w http.ResponseWriter, _ *http.Request) {
	s.deps.Cache.Flush()
	w.WriteHeader(http.StatusNoContent)
}

// --- Stats ---

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats.Snapshot())
}

// --- Providers ---

type providerStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// handleProviders lists enabled providers with a live connectivity probe.
func (s *server) handleProviders(w http.ResponseWriter, r *http.Request) {
	ids := s.deps.Registry.Enabled()
	out := make([]providerStatus, 0, len(ids))
	for _, id := range ids {
		st := providerStatus{Name: id}
		adapter, err := s.deps.Registry.Get(id)
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			if herr := adapter.HealthCheck(ctx); herr != nil {
				st.Error = herr.Error()
			} else {
				st.Healthy = true
			}
			cancel()
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}
