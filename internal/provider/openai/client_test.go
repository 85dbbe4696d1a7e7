package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gateway "github.com/eugener/radagast/internal"
)

func newTestClient(url string) *Client {
	return New(gateway.ProviderConfig{
		Endpoint: url,
		APIKey:   "sk-test",
		Model:    "gpt-4o-mini",
	}, nil)
}

func TestChatCompletion(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-mini-2024",
			"choices": [{"message": {"role": "assistant", "content": "hi there"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "hello"}, "be brief")
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("system message = %v", first)
	}
	if gotBody["max_tokens"].(float64) != float64(gateway.DefaultMaxTokens) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}

	if resp.Text != "hi there" || resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Model != "gpt-4o-mini-2024" || resp.Provider != gateway.ProviderOpenAI {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChatCompletion_EmptyKey(t *testing.T) {
	t.Parallel()
	c := New(gateway.ProviderConfig{Endpoint: "http://localhost:1", Model: "m"}, nil)

	_, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassConfiguration {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCompletion_UpstreamError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassTransport || pe.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCompletion_MalformedResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassDecode {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCompletion_ModelFallback(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want configured fallback", resp.Model)
	}
	if resp.InputTokens != 0 || resp.OutputTokens != 0 {
		t.Errorf("missing usage should default to zero: %+v", resp)
	}
}
