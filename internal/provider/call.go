package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	gateway "github.com/eugener/radagast/internal"
)

// maxResponseBody caps upstream response reads (1 MB).
const maxResponseBody = 1 << 20

// maxErrorBody caps the error body snippet carried in transport errors (4 KB).
const maxErrorBody = 4096

// RequireKey returns a configuration error when the provider API key is
// empty. Adapters call it before any network activity.
func RequireKey(providerID, apiKey string) error {
	if apiKey == "" {
		return gateway.NewProviderError(providerID, gateway.ErrClassConfiguration,
			fmt.Errorf("api key not configured"))
	}
	return nil
}

// PostJSON marshals body, POSTs it to url with the given extra headers, and
// returns the raw response bytes. All failures come back as
// *gateway.ProviderError: connection errors and non-2xx statuses classify as
// transport (or cancelled/timeout), so the dispatcher can decide failover
// from the tag alone.
func PostJSON(ctx context.Context, client *http.Client, providerID, url string,
	headers map[string]string, body any) ([]byte, error) {

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, gateway.NewProviderError(providerID, gateway.ErrClassTransport,
			fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, gateway.NewProviderError(providerID, gateway.ErrClassTransport,
			fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, gateway.ClassifyTransport(providerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &gateway.ProviderError{
			Provider: providerID,
			Class:    gateway.ErrClassTransport,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", bytes.TrimSpace(snippet)),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, gateway.ClassifyTransport(providerID, err)
	}
	return data, nil
}

// DecodeError wraps a schema mismatch in the provider response.
func DecodeError(providerID string, format string, args ...any) error {
	return gateway.NewProviderError(providerID, gateway.ErrClassDecode, fmt.Errorf(format, args...))
}

// HealthCheck issues a HEAD request to the provider endpoint to verify
// connectivity. Shared by all adapters.
func HealthCheck(ctx context.Context, client *http.Client, providerID, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: health check: %w", providerID, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: health check: %w", providerID, err)
	}
	resp.Body.Close()
	return nil
}
