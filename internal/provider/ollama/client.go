// Package ollama implements the gateway.Adapter for a local Ollama server.
package ollama

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
	providerID = gateway.ProviderOllama
	chatPath   = "/api/chat"
)

var _ gateway.Adapter = (*Client)(nil)

// Client is an Ollama adapter that implements gateway.Adapter.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// New creates an Ollama Client bound to the configured endpoint. Ollama is
// typically local HTTP/1.1, so the transport does not force HTTP/2.
func New(cfg gateway.ProviderConfig, resolver *dnscache.Resolver) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     provider.NewHTTPClient(resolver, false),
	}
}

// Name returns the canonical provider id.
func (c *Client) Name() string { return providerID }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// ChatCompletion sends a non-streaming chat request and translates the
// response to the canonical shape.
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
		Stream: false,
		Options: options{
			Temperature: req.ResolvedTemperature(),
			NumPredict:  req.ResolvedMaxTokens(),
		},
	}

	data, err := provider.PostJSON(ctx, c.http, providerID, c.endpoint+chatPath,
		map[string]string{"Authorization": "Bearer " + c.apiKey}, body)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, provider.DecodeError(providerID, "invalid JSON in response")
	}
	result := gjson.ParseBytes(data)
	content := result.Get("message.content")
	if content.Type != gjson.String {
		return nil, provider.DecodeError(providerID, "missing message.content")
	}

	model := result.Get("model").String()
	if model == "" {
		model = c.model
	}
	return &gateway.ChatResponse{
		Text:         content.String(),
		InputTokens:  int(result.Get("prompt_eval_count").Int()),
		OutputTokens: int(result.Get("eval_count").Int()),
		Model:        model,
		Provider:     providerID,
	}, nil
}

// HealthCheck verifies connectivity to the configured endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return provider.HealthCheck(ctx, c.http, providerID, c.endpoint)
}
