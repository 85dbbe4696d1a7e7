package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/dnscache"
	"golang.org/x/sync/errgroup"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/admin"
	"github.com/eugener/radagast/internal/analytics"
	"github.com/eugener/radagast/internal/app"
	"github.com/eugener/radagast/internal/config"
	"github.com/eugener/radagast/internal/guardrails"
	"github.com/eugener/radagast/internal/logging"
	"github.com/eugener/radagast/internal/promptcache"
	"github.com/eugener/radagast/internal/provider"
	"github.com/eugener/radagast/internal/provider/anthropic"
	"github.com/eugener/radagast/internal/provider/cohere"
	"github.com/eugener/radagast/internal/provider/gemini"
	"github.com/eugener/radagast/internal/provider/mistral"
	"github.com/eugener/radagast/internal/provider/ollama"
	"github.com/eugener/radagast/internal/provider/openai"
	"github.com/eugener/radagast/internal/ratelimit"
	"github.com/eugener/radagast/internal/server"
	"github.com/eugener/radagast/internal/telemetry"
)

// dnsRefreshInterval controls how often cached DNS entries are revalidated.
const dnsRefreshInterval = 5 * time.Minute

func run(configPath string) error {
	logging.InstallConsole(os.Stderr)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting radagast", "version", version,
		"port", cfg.Gateway.Port, "admin_port", cfg.Gateway.AdminPort)

	// Runtime-settable state, seeded from config.
	state := admin.NewState(cfg.SystemPrompt, guardrails.Config{
		BannedPhrases:     cfg.Guardrails.BannedPhrases,
		MinLength:         cfg.Guardrails.MinLength,
		MaxLength:         cfg.Guardrails.MaxLength,
		RequireDisclaimer: cfg.Guardrails.RequireDisclaimer,
		Disclaimer:        cfg.Guardrails.Disclaimer,
	}, cfg.Logging, cfg.Gateway.VerboseLogging)

	// Telemetry.
	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics = telemetry.NewMetrics(reg)
		gatherer = reg
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Structured logger with async sink fan-out.
	var onDrop func(string)
	if metrics != nil {
		onDrop = func(sink string) { metrics.SinkDrops.WithLabelValues(sink).Inc() }
	}
	logger := logging.New(logging.Options{
		Verbose:    state.Verbose,
		SinkConfig: state.Logging,
		OnDrop:     onDrop,
	}, logging.DefaultSinks(state.Logging)...)

	// Provider registry. All adapters share one caching DNS resolver.
	resolver := &dnscache.Resolver{}
	registry := provider.NewRegistry()
	for id, pc := range cfg.Providers {
		if !pc.Enabled() {
			continue
		}
		switch id {
		case gateway.ProviderOpenAI:
			registry.Register(openai.New(pc, resolver))
		case gateway.ProviderAnthropic:
			registry.Register(anthropic.New(pc, resolver))
		case gateway.ProviderGemini:
			registry.Register(gemini.New(pc, resolver))
		case gateway.ProviderOllama:
			registry.Register(ollama.New(pc, resolver))
		case gateway.ProviderMistral:
			registry.Register(mistral.New(pc, resolver))
		case gateway.ProviderCohere:
			registry.Register(cohere.New(pc, resolver))
		}
	}
	slog.Info("providers registered", "enabled", registry.Enabled())

	cache, err := promptcache.New(time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxSize)
	if err != nil {
		return err
	}

	var plan *ratelimit.Plan
	if p := cfg.RateLimit; p != nil {
		plan = &ratelimit.Plan{
			Name:              p.Name,
			RequestsPerWindow: p.RequestsPerWindow,
			WindowSeconds:     p.WindowSeconds,
		}
	}
	limiter := ratelimit.New(plan)
	stats := analytics.New()

	dispatcher := app.NewDispatcher(registry, cache, limiter, stats, state, logger, metrics)

	deps := server.Deps{
		Dispatcher: dispatcher,
		Registry:   registry,
		Cache:      cache,
		Limiter:    limiter,
		Stats:      stats,
		State:      state,
		Metrics:    metrics,
		Gatherer:   gatherer,
	}

	dataSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      server.New(deps),
		ReadTimeout:  cfg.Gateway.ReadTimeout,
		WriteTimeout: cfg.Gateway.WriteTimeout,
	}
	adminSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.AdminPort),
		Handler:      server.NewAdmin(deps),
		ReadTimeout:  cfg.Gateway.ReadTimeout,
		WriteTimeout: cfg.Gateway.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(gctx, dataSrv, cfg.Gateway.ShutdownTimeout) })
	g.Go(func() error { return serve(gctx, adminSrv, cfg.Gateway.ShutdownTimeout) })

	for _, w := range logger.Workers() {
		slog.Info("worker started", "type", w.Name())
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-gctx.Done():
				return nil
			}
		}
	})

	slog.Info("radagast ready", "addr", dataSrv.Addr, "admin_addr", adminSrv.Addr)
	err = g.Wait()
	slog.Info("radagast stopped")
	return err
}

// serve runs one http.Server until ctx cancellation, then shuts it down with
// the configured grace period.
func serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
