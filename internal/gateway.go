// Package gateway defines domain types and interfaces for the Radagast AI gateway.
// This package has no project imports -- it is the dependency root.
package gateway

import (
	"context"
	"fmt"
)

// Canonical provider identifiers. These are the values accepted in the
// x-llm-provider request header and reported in ChatResponse.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderMistral   = "mistral"
	ProviderCohere    = "cohere"
)

// KnownProviders lists all canonical provider ids in lexicographic order.
var KnownProviders = []string{
	ProviderAnthropic,
	ProviderCohere,
	ProviderGemini,
	ProviderMistral,
	ProviderOllama,
	ProviderOpenAI,
}

// IsKnownProvider reports whether id is a canonical provider identifier.
func IsKnownProvider(id string) bool {
	for _, p := range KnownProviders {
		if p == id {
			return true
		}
	}
	return false
}

// Defaults applied when the caller omits optional request fields.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// ChatRequest is the canonical, provider-agnostic chat request.
// It is immutable once accepted by the dispatcher.
type ChatRequest struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

// Validate checks the canonical request bounds.
func (r *ChatRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrBadRequest)
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("%w: temperature must be in [0,2]", ErrBadRequest)
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive", ErrBadRequest)
	}
	return nil
}

// ResolvedTemperature returns the request temperature or the default.
func (r *ChatRequest) ResolvedTemperature() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return DefaultTemperature
}

// ResolvedMaxTokens returns the request max token budget or the default.
func (r *ChatRequest) ResolvedMaxTokens() int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return DefaultMaxTokens
}

// ChatResponse is the canonical, provider-agnostic chat response.
// Provider carries the id of the adapter that actually served the request,
// which may differ from the caller-requested provider after failover.
type ChatResponse struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
}

// ProviderConfig describes one configured upstream provider.
// A provider is enabled iff its endpoint is non-empty.
type ProviderConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"-"        yaml:"api_key"`
	Model    string `json:"model"    yaml:"model"`
}

// Enabled reports whether the provider should be registered.
func (p ProviderConfig) Enabled() bool { return p.Endpoint != "" }

// Adapter is the interface implemented by all provider adapters.
// Implementations must be safe for concurrent use; each owns a bound
// HTTP client for its configured endpoint.
type Adapter interface {
	// Name returns the canonical provider id.
	Name() string
	// ChatCompletion translates the canonical request to the provider wire
	// format, performs the call, and translates the response back.
	// systemPrompt is the gateway-wide system prompt snapshot for this request.
	// Failures are reported as *ProviderError.
	ChatCompletion(ctx context.Context, req *ChatRequest, systemPrompt string) (*ChatResponse, error)
	// HealthCheck verifies connectivity to the provider.
	HealthCheck(ctx context.Context) error
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from context, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
