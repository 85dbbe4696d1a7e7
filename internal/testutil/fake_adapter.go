// Package testutil provides configurable test fakes for gateway interfaces.
package testutil

import (
	"context"
	"sync"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/logging"
)

// FakeAdapter is a configurable gateway.Adapter for testing.
type FakeAdapter struct {
	ProviderName string
	ChatFn       func(ctx context.Context, req *gateway.ChatRequest, systemPrompt string) (*gateway.ChatResponse, error)
	HealthFn     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// Name returns the configured provider name.
func (f *FakeAdapter) Name() string { return f.ProviderName }

// ChatCompletion delegates to ChatFn or returns a default response.
func (f *FakeAdapter) ChatCompletion(ctx context.Context, req *gateway.ChatRequest, systemPrompt string) (*gateway.ChatResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.ChatFn != nil {
		return f.ChatFn(ctx, req, systemPrompt)
	}
	return &gateway.ChatResponse{
		Text:         "hello from " + f.ProviderName,
		InputTokens:  10,
		OutputTokens: 5,
		Model:        "fake-model",
		Provider:     f.ProviderName,
	}, nil
}

// HealthCheck delegates to HealthFn or returns nil.
func (f *FakeAdapter) HealthCheck(ctx context.Context) error {
	if f.HealthFn != nil {
		return f.HealthFn(ctx)
	}
	return nil
}

// Calls returns the number of ChatCompletion invocations.
func (f *FakeAdapter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// CaptureSink is a logging.Sink that records every emitted record.
type CaptureSink struct {
	SinkName string

	mu      sync.Mutex
	records []logging.Record
}

// Name returns the configured sink name.
func (c *CaptureSink) Name() string { return c.SinkName }

// Emit appends the record to the capture buffer.
func (c *CaptureSink) Emit(rec logging.Record) error {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

// Records returns a copy of all captured records.
func (c *CaptureSink) Records() []logging.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logging.Record(nil), c.records...)
}
