package gateway

import (
	"context"
	"errors"
	"testing"
)

func TestChatRequestValidate(t *testing.T) {
	t.Parallel()

	if err := (&ChatRequest{Prompt: "hi"}).Validate(); err != nil {
		t.Errorf("minimal request: %v", err)
	}
	if err := (&ChatRequest{}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty prompt: %v", err)
	}

	temp := 2.5
	if err := (&ChatRequest{Prompt: "hi", Temperature: &temp}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("temperature 2.5: %v", err)
	}
	temp = 0
	if err := (&ChatRequest{Prompt: "hi", Temperature: &temp}).Validate(); err != nil {
		t.Errorf("temperature 0 is valid: %v", err)
	}

	mt := 0
	if err := (&ChatRequest{Prompt: "hi", MaxTokens: &mt}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("maxTokens 0: %v", err)
	}
}

func TestChatRequestDefaults(t *testing.T) {
	t.Parallel()

	r := &ChatRequest{Prompt: "hi"}
	if r.ResolvedTemperature() != DefaultTemperature {
		t.Errorf("temperature = %v", r.ResolvedTemperature())
	}
	if r.ResolvedMaxTokens() != DefaultMaxTokens {
		t.Errorf("maxTokens = %v", r.ResolvedMaxTokens())
	}

	temp, mt := 1.5, 64
	r = &ChatRequest{Prompt: "hi", Temperature: &temp, MaxTokens: &mt}
	if r.ResolvedTemperature() != 1.5 || r.ResolvedMaxTokens() != 64 {
		t.Errorf("explicit values not honored: %v %v", r.ResolvedTemperature(), r.ResolvedMaxTokens())
	}
}

func TestIsKnownProvider(t *testing.T) {
	t.Parallel()
	for _, id := range KnownProviders {
		if !IsKnownProvider(id) {
			t.Errorf("%q should be known", id)
		}
	}
	if IsKnownProvider("azure") {
		t.Error("azure is not a known provider")
	}
}

func TestProviderConfigEnabled(t *testing.T) {
	t.Parallel()
	if (ProviderConfig{}).Enabled() {
		t.Error("empty endpoint should be disabled")
	}
	if !(ProviderConfig{Endpoint: "http://x"}).Enabled() {
		t.Error("non-empty endpoint should be enabled")
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context should return empty id, got %q", got)
	}
}
