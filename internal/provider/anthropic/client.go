// Package anthropic implements the gateway.Adapter for the Anthropic
// Messages API.
package anthropic

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
	providerID       = gateway.ProviderAnthropic
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

var _ gateway.Adapter = (*Client)(nil)

// Client is an Anthropic adapter that implements gateway.Adapter.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// New creates an Anthropic Client bound to the configured endpoint.
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

// messagesRequest is the Anthropic Messages API request body.
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletion sends a Messages API request and translates the response
// to the canonical shape.
func (c *Client) ChatCompletion(ctx context.Context, req *gateway.ChatRequest, systemPrompt string) (*gateway.ChatResponse, error) {
	if err := provider.RequireKey(providerID, c.apiKey); err != nil {
		return nil, err
	}

	body := messagesRequest{
		Model:       c.model,
		MaxTokens:   req.ResolvedMaxTokens(),
		System:      systemPrompt,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: req.ResolvedTemperature(),
	}

	data, err := provider.PostJSON(ctx, c.http, providerID, c.endpoint+messagesPath,
		map[string]string{
			"Authorization":     "Bearer " + c.apiKey,
			"anthropic-version": anthropicVersion,
		}, body)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, provider.DecodeError(providerID, "invalid JSON in response")
	}
	result := gjson.ParseBytes(data)
	text := result.Get("content.0.text")
	if text.Type != gjson.String {
		return nil, provider.DecodeError(providerID, "missing content[0].text")
	}

	model := result.Get("model").String()
	if model == "" {
		model = c.model
	}
	return &gateway.ChatResponse{
		Text:         text.String(),
		InputTokens:  int(result.Get("usage.input_tokens").Int()),
		OutputTokens: int(result.Get("usage.output_tokens").Int()),
		Model:        model,
		Provider:     providerID,
	}, nil
}

// HealthCheck verifies connectivity to the configured endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return provider.HealthCheck(ctx, c.http, providerID, c.endpoint)
}
