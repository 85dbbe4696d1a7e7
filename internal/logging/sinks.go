package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/eugener/radagast/internal/config"
)

// Sink names, matching the enable flags in config.LoggingConfig.
const (
	SinkSplunk        = "splunk"
	SinkDatadog       = "datadog"
	SinkElasticsearch = "elasticsearch"
)

// HTTPSink publishes records as JSON documents to a collector endpoint.
// The endpoint URL is re-read from config on each emit so admin updates
// take effect without a restart.
type HTTPSink struct {
	name string
	url  func() string
	http *http.Client
}

// NewHTTPSink creates a sink named name posting to the URL returned by url.
func NewHTTPSink(name string, url func() string) *HTTPSink {
	return &HTTPSink{
		name: name,
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the sink identifier.
func (s *HTTPSink) Name() string { return s.name }

// Emit posts one record. A missing URL is not an error; the record is skipped.
func (s *HTTPSink) Emit(rec Record) error {
	target := s.url()
	if target == "" {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: marshal record: %w", s.name, err)
	}
	resp, err := s.http.Post(target, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: post record: %w", s.name, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: collector returned HTTP %d", s.name, resp.StatusCode)
	}
	return nil
}

// DefaultSinks builds the Splunk, Datadog, and Elasticsearch sinks reading
// their URLs from the current logging config.
func DefaultSinks(cfg func() config.LoggingConfig) []Sink {
	return []Sink{
		NewHTTPSink(SinkSplunk, func() string { return cfg().SplunkURL }),
		NewHTTPSink(SinkDatadog, func() string { return cfg().DatadogURL }),
		NewHTTPSink(SinkElasticsearch, func() string { return cfg().ElasticsearchURL }),
	}
}
