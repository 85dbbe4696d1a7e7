// Package app wires the gateway pipeline: admission, prompt cache, provider
// dispatch with failover, guardrails, and usage bookkeeping.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/admin"
	"github.com/eugener/radagast/internal/analytics"
	"github.com/eugener/radagast/internal/guardrails"
	"github.com/eugener/radagast/internal/logging"
	"github.com/eugener/radagast/internal/promptcache"
	"github.com/eugener/radagast/internal/provider"
	"github.com/eugener/radagast/internal/ratelimit"
	"github.com/eugener/radagast/internal/telemetry"
)

// RateLimitedError carries the admission result for the 429 response
// headers and body.
type RateLimitedError struct {
	Result ratelimit.Result
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: limit %d, reset in %ds", e.Result.Limit, e.Result.ResetSeconds)
}

// Unwrap ties the error to the gateway sentinel.
func (e *RateLimitedError) Unwrap() error { return gateway.ErrRateLimited }

// Dispatcher runs one chat request through the full pipeline. It is safe for
// concurrent use; all mutable state lives behind its collaborators.
type Dispatcher struct {
	registry *provider.Registry
	cache    *promptcache.Cache
	limiter  *ratelimit.Limiter
	stats    *analytics.Aggregator
	state    *admin.State
	log      *logging.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// NewDispatcher assembles the pipeline. metrics may be nil when the
// Prometheus endpoint is disabled.
func NewDispatcher(
	registry *provider.Registry,
	cache *promptcache.Cache,
	limiter *ratelimit.Limiter,
	stats *analytics.Aggregator,
	state *admin.State,
	log *logging.Logger,
	metrics *telemetry.Metrics,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		cache:    cache,
		limiter:  limiter,
		stats:    stats,
		state:    state,
		log:      log,
		metrics:  metrics,
		tracer:   telemetry.Tracer("dispatch"),
	}
}

// Chat dispatches one canonical request. clientIP keys rate limiting and
// primary names the caller-requested provider. On failover the returned
// response carries the id of the provider that actually served it. The
// admission result is returned on every path so the transport can emit the
// RateLimit-* headers.
//
// Rate-limit denials are rejected before any bookkeeping: they appear in
// neither the request totals nor the cache counters.
func (d *Dispatcher) Chat(ctx context.Context, clientIP, primary string, req *gateway.ChatRequest) (*gateway.ChatResponse, ratelimit.Result, error) {
	admit := d.limiter.Admit(clientIP)
	if !admit.Allowed {
		if d.metrics != nil {
			d.metrics.RateLimitRejects.Inc()
		}
		d.log.Warn("ratelimit", "request rejected", map[string]any{
			"requestId": gateway.RequestIDFromContext(ctx),
			"clientIp":  clientIP,
			"limit":     admit.Limit,
		})
		return nil, admit, &RateLimitedError{Result: admit}
	}

	if !gateway.IsKnownProvider(primary) {
		err := gateway.NewProviderError(primary, gateway.ErrClassConfiguration,
			fmt.Errorf("unknown provider"))
		d.recordFailure(ctx, primary, err)
		return nil, admit, err
	}
	if _, regErr := d.registry.Get(primary); regErr != nil {
		err := gateway.NewProviderError(primary, gateway.ErrClassConfiguration,
			fmt.Errorf("provider not enabled"))
		d.recordFailure(ctx, primary, err)
		return nil, admit, err
	}

	key := promptcache.Key(primary, req.Prompt)
	if resp, res := d.cache.Lookup(key); res == promptcache.Hit {
		d.stats.RecordCacheHit(resp)
		if d.metrics != nil {
			d.metrics.CacheHits.Inc()
			d.recordTokens(resp)
		}
		d.log.Debug("cache", "hit", map[string]any{
			"requestId": gateway.RequestIDFromContext(ctx),
			"provider":  primary,
		})
		return resp, admit, nil
	}
	d.stats.RecordCacheMiss()
	if d.metrics != nil {
		d.metrics.CacheMisses.Inc()
	}

	// One snapshot per request: a concurrent admin update never splits
	// across providers within a single dispatch.
	systemPrompt := d.state.SystemPrompt()
	policy := d.state.Guardrails()

	resp, err := d.attempt(ctx, primary, req, systemPrompt, policy)
	if err == nil {
		d.recordSuccess(ctx, key, resp)
		return resp, admit, nil
	}

	lastErr := err
	if class := classOf(lastErr); class.FailsOver() && d.registry.Len() >= 2 {
		for _, id := range d.registry.Enabled() {
			if id == primary {
				continue
			}
			resp, err = d.attempt(ctx, id, req, systemPrompt, policy)
			if err == nil {
				d.log.Info("dispatch", "failover succeeded", map[string]any{
					"requestId": gateway.RequestIDFromContext(ctx),
					"primary":   primary,
					"provider":  id,
				})
				d.recordSuccess(ctx, key, resp)
				return resp, admit, nil
			}
			lastErr = err
			if !classOf(lastErr).FailsOver() {
				break
			}
		}
	}

	d.recordFailure(ctx, primary, lastErr)
	return nil, admit, lastErr
}

// attempt runs one provider call plus the guardrail stage.
func (d *Dispatcher) attempt(ctx context.Context, id string, req *gateway.ChatRequest,
	systemPrompt string, policy guardrails.Config) (*gateway.ChatResponse, error) {

	adapter, err := d.registry.Get(id)
	if err != nil {
		return nil, gateway.NewProviderError(id, gateway.ErrClassConfiguration, err)
	}

	ctx, span := d.tracer.Start(ctx, "provider.call",
		trace.WithAttributes(attribute.String("provider", id)))
	defer span.End()

	start := time.Now()
	resp, err := adapter.ChatCompletion(ctx, req, systemPrompt)
	if d.metrics != nil {
		d.metrics.UpstreamDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, classOf(err).String())
		d.observeError(ctx, id, err)
		return nil, err
	}

	filtered, err := policy.Apply(resp.Text)
	if err != nil {
		gerr := gateway.NewProviderError(id, gateway.ErrClassGuardrail, err)
		span.RecordError(gerr)
		span.SetStatus(codes.Error, gateway.ErrClassGuardrail.String())
		d.observeError(ctx, id, gerr)
		return nil, gerr
	}
	resp.Text = filtered
	return resp, nil
}

func (d *Dispatcher) recordSuccess(ctx context.Context, key string, resp *gateway.ChatResponse) {
	d.stats.RecordSuccess(resp)
	if d.metrics != nil {
		d.recordTokens(resp)
	}
	d.cache.Store(key, resp)
	d.log.Debug("dispatch", "request served", map[string]any{
		"requestId": gateway.RequestIDFromContext(ctx),
		"provider":  resp.Provider,
		"model":     resp.Model,
	})
}

func (d *Dispatcher) recordFailure(ctx context.Context, primary string, err error) {
	class := classOf(err)
	d.stats.RecordFailure(primary, class.String(), err.Error())
	d.log.Error("dispatch", "request failed", map[string]any{
		"requestId": gateway.RequestIDFromContext(ctx),
		"provider":  primary,
		"class":     class.String(),
		"error":     err.Error(),
	})
}

// observeError logs and counts one failed provider attempt.
func (d *Dispatcher) observeError(ctx context.Context, id string, err error) {
	class := classOf(err)
	if d.metrics != nil {
		d.metrics.UpstreamErrors.WithLabelValues(id, class.String()).Inc()
	}
	d.log.Error("provider", "call failed", map[string]any{
		"requestId": gateway.RequestIDFromContext(ctx),
		"provider":  id,
		"class":     class.String(),
		"status":    statusOf(err),
		"error":     err.Error(),
	})
}

func (d *Dispatcher) recordTokens(resp *gateway.ChatResponse) {
	d.metrics.TokensProcessed.WithLabelValues(resp.Provider, "input").
		Add(float64(resp.InputTokens))
	d.metrics.TokensProcessed.WithLabelValues(resp.Provider, "output").
		Add(float64(resp.OutputTokens))
}

func classOf(err error) gateway.ErrorClass {
	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return gateway.ErrClassTransport
}

func statusOf(err error) string {
	var pe *gateway.ProviderError
	if errors.As(err, &pe) && pe.Status != 0 {
		return strconv.Itoa(pe.Status)
	}
	return ""
}
