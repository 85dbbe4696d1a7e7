package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/dnscache"

	gateway "github.com/eugener/radagast/internal"
)

type stubAdapter struct {
	name string
}

func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) ChatCompletion(context.Context, *gateway.ChatRequest, string) (*gateway.ChatResponse, error) {
	return nil, nil
}
func (s *stubAdapter) HealthCheck(context.Context) error { return nil }

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.Register(&stubAdapter{name: "openai"})
	r.Register(&stubAdapter{name: "anthropic"})
	r.Register(&stubAdapter{name: "cohere"})

	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
	a, err := r.Get("anthropic")
	if err != nil || a.Name() != "anthropic" {
		t.Errorf("Get = %v, %v", a, err)
	}
	if _, err := r.Get("gemini"); err == nil {
		t.Error("unregistered id should error")
	}

	got := r.Enabled()
	want := []string{"anthropic", "cohere", "openai"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Enabled = %v, want %v", got, want)
		}
	}
}

func TestNewTransportNilResolver(t *testing.T) {
	t.Parallel()
	tr := NewTransport(nil, false)
	if tr.DialContext != nil {
		t.Error("DialContext should be nil without a resolver")
	}
	if tr.MaxIdleConnsPerHost != 100 || tr.MaxConnsPerHost != 200 {
		t.Errorf("pool sizing = %d/%d", tr.MaxIdleConnsPerHost, tr.MaxConnsPerHost)
	}
}

func TestNewTransportWithResolver(t *testing.T) {
	t.Parallel()
	tr := NewTransport(&dnscache.Resolver{}, true)
	if tr.DialContext == nil {
		t.Error("DialContext should be set with a resolver")
	}
	if !tr.ForceAttemptHTTP2 {
		t.Error("HTTP/2 should be forced")
	}
}

func TestRequireKey(t *testing.T) {
	t.Parallel()
	if err := RequireKey("openai", "sk-x"); err != nil {
		t.Errorf("non-empty key: %v", err)
	}

	err := RequireKey("openai", "")
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassConfiguration {
		t.Fatalf("err = %v", err)
	}
	if pe.Provider != "openai" {
		t.Errorf("provider = %q", pe.Provider)
	}
}

func TestPostJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if got := r.Header.Get("X-Custom"); got != "v" {
			t.Errorf("custom header = %q", got)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	data, err := PostJSON(context.Background(), srv.Client(), "openai", srv.URL,
		map[string]string{"X-Custom": "v"}, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !strings.Contains(string(data), "ok") {
		t.Errorf("data = %s", data)
	}
}

func TestPostJSON_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := PostJSON(context.Background(), srv.Client(), "openai", srv.URL, nil, struct{}{})
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v", err)
	}
	if pe.Class != gateway.ErrClassTransport || pe.Status != http.StatusTooManyRequests {
		t.Errorf("class=%s status=%d", pe.Class, pe.Status)
	}
	if !strings.Contains(pe.Error(), "quota exceeded") {
		t.Errorf("error should carry the body snippet: %v", pe)
	}
}

func TestPostJSON_ConnectionRefused(t *testing.T) {
	t.Parallel()
	_, err := PostJSON(context.Background(), &http.Client{}, "openai", "http://127.0.0.1:1", nil, struct{}{})
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassTransport {
		t.Fatalf("err = %v", err)
	}
}

func TestPostJSON_ContextCancelled(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PostJSON(ctx, srv.Client(), "openai", srv.URL, nil, struct{}{})
	var pe *gateway.ProviderError
	if !errors.As(err, &pe) || pe.Class != gateway.ErrClassCancelled {
		t.Fatalf("err = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %q", r.Method)
		}
	}))
	defer srv.Close()

	if err := HealthCheck(context.Background(), srv.Client(), "openai", srv.URL); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if err := HealthCheck(context.Background(), &http.Client{}, "openai", "http://127.0.0.1:1"); err == nil {
		t.Error("unreachable endpoint should error")
	}
}
