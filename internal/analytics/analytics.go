// Package analytics aggregates process-wide usage counters for the gateway.
package analytics

import (
	"sync"

	gateway "github.com/eugener/radagast/internal"
)

// recentErrorCap bounds the recent-error FIFO.
const recentErrorCap = 10

// RequestStats counts request dispositions. All counters are monotonic.
type RequestStats struct {
	Total            int64            `json:"total"`
	Successful       int64            `json:"successful"`
	Failed           int64            `json:"failed"`
	ByProvider       map[string]int64 `json:"byProvider"`
	ErrorsByProvider map[string]int64 `json:"errorsByProvider"`
	CacheHits        int64            `json:"cacheHits"`
	CacheMisses      int64            `json:"cacheMisses"`
}

// TokenStats counts tokens reported by providers.
type TokenStats struct {
	TotalInput       int64            `json:"totalInput"`
	TotalOutput      int64            `json:"totalOutput"`
	InputByProvider  map[string]int64 `json:"inputByProvider"`
	OutputByProvider map[string]int64 `json:"outputByProvider"`
}

// ErrorStats counts failures. Recent holds the most recent descriptions,
// newest last, bounded at 10.
type ErrorStats struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"byType"`
	Recent []string         `json:"recent"`
}

// Stats is a consistent snapshot of all counter groups.
type Stats struct {
	Requests RequestStats `json:"requests"`
	Tokens   TokenStats   `json:"tokens"`
	Errors   ErrorStats   `json:"errors"`
}

// Aggregator holds the counter groups under a single lock so each terminal
// disposition of a request updates as one atomic bookkeeping block.
// Exactly one of RecordCacheHit, RecordSuccess, or RecordFailure runs per
// request; RecordCacheMiss additionally runs on the miss branch.
type Aggregator struct {
	mu       sync.Mutex
	requests RequestStats
	tokens   TokenStats
	errors   ErrorStats
}

// New returns a zeroed Aggregator.
func New() *Aggregator {
	return &Aggregator{
		requests: RequestStats{
			ByProvider:       make(map[string]int64),
			ErrorsByProvider: make(map[string]int64),
		},
		tokens: TokenStats{
			InputByProvider:  make(map[string]int64),
			OutputByProvider: make(map[string]int64),
		},
		errors: ErrorStats{
			ByType: make(map[string]int64),
		},
	}
}

// RecordCacheHit books a request served from the prompt cache: total,
// successful, cacheHits, and the serving provider's request and token
// counters move together in one critical section.
func (a *Aggregator) RecordCacheHit(resp *gateway.ChatResponse) {
	a.mu.Lock()
	a.requests.Total++
	a.requests.Successful++
	a.requests.CacheHits++
	a.requests.ByProvider[resp.Provider]++
	a.addTokensLocked(resp)
	a.mu.Unlock()
}

// RecordCacheMiss books the miss branch. Totals are left to the
// provider-success or failure block that follows.
func (a *Aggregator) RecordCacheMiss() {
	a.mu.Lock()
	a.requests.CacheMisses++
	a.mu.Unlock()
}

// RecordSuccess books a request served by a provider call.
func (a *Aggregator) RecordSuccess(resp *gateway.ChatResponse) {
	a.mu.Lock()
	a.requests.Total++
	a.requests.Successful++
	a.requests.ByProvider[resp.Provider]++
	a.addTokensLocked(resp)
	a.mu.Unlock()
}

// RecordFailure books a terminally failed request. primary is the
// caller-requested provider; class and desc describe the last error.
func (a *Aggregator) RecordFailure(primary, class, desc string) {
	a.mu.Lock()
	a.requests.Total++
	a.requests.Failed++
	a.requests.ErrorsByProvider[primary]++
	a.errors.Total++
	a.errors.ByType[class]++
	a.errors.Recent = append(a.errors.Recent, desc)
	if len(a.errors.Recent) > recentErrorCap {
		a.errors.Recent = a.errors.Recent[len(a.errors.Recent)-recentErrorCap:]
	}
	a.mu.Unlock()
}

func (a *Aggregator) addTokensLocked(resp *gateway.ChatResponse) {
	a.tokens.TotalInput += int64(resp.InputTokens)
	a.tokens.TotalOutput += int64(resp.OutputTokens)
	a.tokens.InputByProvider[resp.Provider] += int64(resp.InputTokens)
	a.tokens.OutputByProvider[resp.Provider] += int64(resp.OutputTokens)
}

// Snapshot returns a deep copy of all counter groups. Counters are monotonic,
// so any snapshot is internally consistent: Total == Successful + Failed.
func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Requests: RequestStats{
			Total:            a.requests.Total,
			Successful:       a.requests.Successful,
			Failed:           a.requests.Failed,
			ByProvider:       cloneMap(a.requests.ByProvider),
			ErrorsByProvider: cloneMap(a.requests.ErrorsByProvider),
			CacheHits:        a.requests.CacheHits,
			CacheMisses:      a.requests.CacheMisses,
		},
		Tokens: TokenStats{
			TotalInput:       a.tokens.TotalInput,
			TotalOutput:      a.tokens.TotalOutput,
			InputByProvider:  cloneMap(a.tokens.InputByProvider),
			OutputByProvider: cloneMap(a.tokens.OutputByProvider),
		},
		Errors: ErrorStats{
			Total:  a.errors.Total,
			ByType: cloneMap(a.errors.ByType),
			Recent: append([]string(nil), a.errors.Recent...),
		},
	}
}

func cloneMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
