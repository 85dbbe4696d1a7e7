// Package cohere implements the gateway.Adapter for the Cohere chat API.
package cohere

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/dnscache"
	"github.com/tidwall/gjson"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/provider"
)

const (
	providerID = gateway.ProviderCohere
	chatPath   = "/v1/chat"

	// preamble is sent on every request alongside the chat history.
	preamble = "You are a helpful assistant."
)

var _ gateway.Adapter = (*Client)(nil)

// Client is a Cohere adapter that implements gateway.Adapter.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// New creates a Cohere Client bound to the configured endpoint.
func New(cfg gateway.ProviderConfig, resolver *dnscache.Resolver) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     provider.NewHTTPClient(resolver, true),
	}
}

// Name returns the canonical provider id.
func (c *Client) Name() string { return providerID }

type chatRequest struct {
	Model       string        `json:"model"`
	Message     string        `json:"message"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	ChatHistory []historyTurn `json:"chat_history"`
	Preamble    string        `json:"preamble"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ChatCompletion sends a chat request and translates the response to the
// canonical shape.
func (c *Client) ChatCompletion(ctx context.Context, req *gateway.ChatRequest, systemPrompt string) (*gateway.ChatResponse, error) {
	if err := provider.RequireKey(providerID, c.apiKey); err != nil {
		return nil, err
	}

	// Cohere rejects empty history messages, so an unset system prompt is
	// replaced with a throwaway placeholder.
	system := systemPrompt
	if system == "" {
		system = "test"
	}

	body := chatRequest{
		Model:       c.model,
		Message:     req.Prompt,
		Temperature: req.ResolvedTemperature(),
		MaxTokens:   req.ResolvedMaxTokens(),
		ChatHistory: []historyTurn{{Role: "SYSTEM", Message: system}},
		Preamble:    preamble,
	}

	data, err := provider.PostJSON(ctx, c.http, providerID, c.endpoint+chatPath,
		map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Accept":        "application/json",
		}, body)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, provider.DecodeError(providerID, "invalid JSON in response")
	}
	result := gjson.ParseBytes(data)
	text := result.Get("text")
	if text.Type != gjson.String {
		return nil, provider.DecodeError(providerID, "missing text")
	}

	model := result.Get("model").String()
	if model == "" {
		model = c.model
	}
	return &gateway.ChatResponse{
		Text:         text.String(),
		InputTokens:  int(result.Get("meta.tokens.input_tokens").Int()),
		OutputTokens: int(result.Get("meta.billed_units.output_tokens").Int()),
		Model:        model,
		Provider:     providerID,
	}, nil
}

// HealthCheck verifies connectivity to the configured endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return provider.HealthCheck(ctx, c.http, providerID, c.endpoint)
}
