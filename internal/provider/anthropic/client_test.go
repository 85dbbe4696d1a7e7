package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gateway "github.com/eugener/radagast/internal"
)

func TestChatCompletion(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth, gotVersion string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "hello"}],
			"usage": {"input_tokens": 9, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	c := New(gateway.ProviderConfig{Endpoint: srv.URL, APIKey: "sk-ant", Model: "claude-sonnet-4-20250514"}, nil)
	resp, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "hi"}, "stay factual")
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if gotPath != "/v1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-ant" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	// The system prompt rides in the top-level system field, not in messages.
	if gotBody["system"] != "stay factual" {
		t.Errorf("system = %v", gotBody["system"])
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
	user := msgs[0].(map[string]any)
	if user["role"] != "user" || user["content"] != "hi" {
		t.Errorf("user message = %v", user)
	}

	if resp.Text != "hello" || resp.InputTokens != 9 || resp.OutputTokens != 6 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Provider != gateway.ProviderAnthropic {
		t.Errorf("provider = %q", resp.Provider)
	}
}

func TestChatCompletion_EmptyKey(t *testing.T) {
	t.Parallel()
	c := New(gateway.ProviderConfig{Endpoint: "http://localhost:1"}, nil)

	_, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassConfiguration {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCompletion_MissingContent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()

	c := New(gateway.ProviderConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"}, nil)
	_, err := c.ChatCompletion(context.Background(), &gateway.ChatRequest{Prompt: "x"}, "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassDecode {
		t.Fatalf("err = %v", err)
	}
}
