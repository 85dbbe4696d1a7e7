// Package gemini implements the gateway.Adapter for the Gemini API through
// its OpenAI-compatible chat completions surface.
package gemini

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
	providerID = gateway.ProviderGemini
	// chatSuffix is appended verb-style to the configured endpoint, matching
	// the Gemini REST convention of colon-separated methods.
	chatSuffix = ":chatCompletions"
)

var _ gateway.Adapter = (*Client)(nil)

// Client is a Gemini adapter that implements gateway.Adapter.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// New creates a Gemini Client bound to the configured endpoint.
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
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletion sends a chat completion request and translates the response
// to the canonical shape. Token counts default to zero when the response
// carries no usage block.
func (c *Client) ChatCompletion(ctx context.Context, req *gateway.ChatRequest, systemPrompt string) (*gateway.ChatResponse, error) {
	if err := provider.RequireKey(providerID, c.apiKey); err != nil {
		return nil, err
	}

	body := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.ResolvedTemperature(),
		MaxTokens:   req.ResolvedMaxTokens(),
	}

	data, err := provider.PostJSON(ctx, c.http, providerID, c.endpoint+chatSuffix,
		map[string]string{"Authorization": "Bearer " + c.apiKey}, body)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, provider.DecodeError(providerID, "invalid JSON in response")
	}
	result := gjson.ParseBytes(data)
	content := result.Get("choices.0.message.content")
	if content.Type != gjson.String {
		return nil, provider.DecodeError(providerID, "missing choices[0].message.content")
	}

	model := result.Get("model").String()
	if model == "" {
		model = c.model
	}
	return &gateway.ChatResponse{
		Text:         content.String(),
		InputTokens:  int(result.Get("usage.prompt_tokens").Int()),
		OutputTokens: int(result.Get("usage.completion_tokens").Int()),
		Model:        model,
		Provider:     providerID,
	}, nil
}

// HealthCheck verifies connectivity to the configured endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return provider.HealthCheck(ctx, c.http, providerID, c.endpoint)
}
