package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/config"
	"github.com/eugener/radagast/internal/promptcache"
	"github.com/eugener/radagast/internal/ratelimit"
	"github.com/eugener/radagast/internal/testutil"
)

func adminReq(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAdmin_SystemPromptRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/system-prompt", `{"systemPrompt":"be terse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d", rec.Code)
	}

	rec = adminReq(t, f.admin, http.MethodGet, "/admin/system-prompt", "")
	var body systemPromptBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.SystemPrompt != "be terse" {
		t.Errorf("got %q", body.SystemPrompt)
	}
	if f.state.SystemPrompt() != "be terse" {
		t.Error("state not updated")
	}
}

func TestAdmin_GuardrailsRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/guardrails",
		`{"bannedPhrases":["bad"],"minLength":5,"maxLength":500,"requireDisclaimer":true,"disclaimer":"note"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}

	g := f.state.Guardrails()
	if len(g.BannedPhrases) != 1 || g.MinLength != 5 || g.MaxLength != 500 || !g.RequireDisclaimer {
		t.Errorf("state = %+v", g)
	}
}

func TestAdmin_GuardrailsValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/guardrails",
		`{"minLength":100,"maxLength":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("minLength > maxLength should 400, got %d", rec.Code)
	}

	rec = adminReq(t, f.admin, http.MethodPut, "/admin/guardrails", `{"minLength":0,"maxLength":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("maxLength 0 should 400, got %d", rec.Code)
	}
}

func TestAdmin_RateLimitLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	if rec := adminReq(t, f.admin, http.MethodGet, "/admin/rate-limit", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get with no plan: %d", rec.Code)
	}

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/rate-limit",
		`{"name":"standard","requestsPerWindow":10,"windowSeconds":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	if p := f.limiter.Plan(); p == nil || p.RequestsPerWindow != 10 {
		t.Errorf("plan = %+v", p)
	}

	rec = adminReq(t, f.admin, http.MethodGet, "/admin/rate-limit", "")
	var plan ratelimit.Plan
	json.Unmarshal(rec.Body.Bytes(), &plan)
	if plan.Name != "standard" || plan.WindowSeconds != 60 {
		t.Errorf("got %+v", plan)
	}

	if rec := adminReq(t, f.admin, http.MethodDelete, "/admin/rate-limit", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if f.limiter.Plan() != nil {
		t.Error("plan should be cleared")
	}
}

func TestAdmin_RateLimitValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/rate-limit",
		`{"name":"bad","requestsPerWindow":0,"windowSeconds":60}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAdmin_VerboseToggle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/verbose", `{"verbose":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d", rec.Code)
	}
	if !f.state.Verbose() {
		t.Error("verbose not enabled")
	}

	rec = adminReq(t, f.admin, http.MethodGet, "/admin/verbose", "")
	var body verboseBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Verbose {
		t.Error("get should report enabled")
	}
}

func TestAdmin_LoggingRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/logging",
		`{"splunkEnabled":true,"splunkUrl":"http://splunk:8088"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d", rec.Code)
	}

	lc := f.state.Logging()
	if !lc.SplunkEnabled || lc.SplunkURL != "http://splunk:8088" {
		t.Errorf("state = %+v", lc)
	}

	rec = adminReq(t, f.admin, http.MethodGet, "/admin/logging", "")
	var got config.LoggingConfig
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.SplunkEnabled {
		t.Errorf("got %+v", got)
	}
}

func TestAdmin_CacheInspectAndFlush(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	f.cache.Store(promptcache.Key("openai", "q"), &gateway.ChatResponse{Text: "a", Provider: "openai"})

	rec := adminReq(t, f.admin, http.MethodGet, "/admin/cache", "")
	var info cacheInfo
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Size != 1 || len(info.Keys) != 1 {
		t.Errorf("info = %+v", info)
	}

	if rec := adminReq(t, f.admin, http.MethodDelete, "/admin/cache", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("flush: %d", rec.Code)
	}

	rec = adminReq(t, f.admin, http.MethodGet, "/admin/cache", "")
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Size != 0 {
		t.Errorf("size after flush = %d", info.Size)
	}
}

func TestAdmin_Stats(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	f.stats.RecordSuccess(&gateway.ChatResponse{Provider: "openai", InputTokens: 3, OutputTokens: 2})

	rec := adminReq(t, f.admin, http.MethodGet, "/admin/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"requests", "tokens", "errors"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing %q section", key)
		}
	}
}

func TestAdmin_Providers(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil,
		&testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI},
		&testutil.FakeAdapter{
			ProviderName: gateway.ProviderOllama,
			HealthFn:     func(context.Context) error { return errors.New("connection refused") },
		})

	rec := adminReq(t, f.admin, http.MethodGet, "/admin/providers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Providers []providerStatus `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Providers) != 2 {
		t.Fatalf("providers = %+v", body.Providers)
	}
	byName := map[string]providerStatus{}
	for _, p := range body.Providers {
		byName[p.Name] = p
	}
	if !byName[gateway.ProviderOpenAI].Healthy {
		t.Error("openai should be healthy")
	}
	if byName[gateway.ProviderOllama].Healthy || byName[gateway.ProviderOllama].Error == "" {
		t.Errorf("ollama = %+v", byName[gateway.ProviderOllama])
	}
}

func TestAdmin_Dashboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{ProviderName: gateway.ProviderOpenAI})

	f.stats.RecordSuccess(&gateway.ChatResponse{Provider: "openai", InputTokens: 3, OutputTokens: 2})
	f.stats.RecordFailure("openai", "transport", "openai: transport: boom")

	rec := adminReq(t, f.admin, http.MethodGet, "/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "{{") {
		t.Error("unsubstituted template tokens remain")
	}
	if !strings.Contains(body, `["openai"]`) {
		t.Error("provider labels missing from charts")
	}
	if !strings.Contains(body, "openai: transport: boom") {
		t.Error("recent errors missing")
	}
}

func TestGuardrailUpdateVisibleToDispatcher(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, &testutil.FakeAdapter{
		ProviderName: gateway.ProviderOpenAI,
		ChatFn: func(context.Context, *gateway.ChatRequest, string) (*gateway.ChatResponse, error) {
			return &gateway.ChatResponse{Text: "contains badword here", Provider: gateway.ProviderOpenAI}, nil
		},
	})

	rec := adminReq(t, f.admin, http.MethodPut, "/admin/guardrails",
		`{"bannedPhrases":["badword"],"maxLength":1000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", chatBody("hello"))
	chatRec := httptest.NewRecorder()
	f.data.ServeHTTP(chatRec, req)
	if chatRec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, updated guardrail should reject", chatRec.Code)
	}
}
