package server

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	gateway "github.com/eugener/radagast/internal"
	"github.com/eugener/radagast/internal/app"
	"github.com/eugener/radagast/internal/ratelimit"
)

// providerHeader selects the primary provider for a chat request.
const providerHeader = "x-llm-provider"

// defaultProvider is used when the header is absent.
const defaultProvider = gateway.ProviderOpenAI

// handleChat decodes the canonical chat request and runs it through the
// dispatcher pipeline.
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	primary := strings.ToLower(strings.TrimSpace(r.Header.Get(providerHeader)))
	if primary == "" {
		primary = defaultProvider
	}
	if !gateway.IsKnownProvider(primary) {
		writeJSON(w, http.StatusBadRequest, errorResponse("unknown provider: "+primary))
		return
	}

	resp, admit, err := s.deps.Dispatcher.Chat(r.Context(), clientIP(r), primary, &req)
	setRateLimitHeaders(w, admit)
	if err != nil {
		var rle *app.RateLimitedError
		if errors.As(err, &rle) {
			writeRateLimited(w, rle)
			return
		}
		writeJSON(w, errorStatus(err), errorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// setRateLimitHeaders emits the admission quota headers. With no active plan
// the result is all zeroes and no headers are written.
func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	if res.Limit == 0 {
		return
	}
	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("RateLimit-Reset", strconv.Itoa(res.ResetSeconds))
}

// clientIP extracts the rate-limiting key: the first X-Forwarded-For entry
// when present, otherwise the connection remote host. The value is not
// validated as an IP; an unparseable or empty value still keys a window.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimited(w http.ResponseWriter, rle *app.RateLimitedError) {
	res := rle.Result
	writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
		Error:     "rate limit exceeded",
		Limit:     res.Limit,
		Remaining: res.Remaining,
		Reset:     res.ResetSeconds,
	})
}
