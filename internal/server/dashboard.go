package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

var htmlCT = []string{"text/html; charset=utf-8"}

// handleDashboard renders the operational dashboard. The page is a static
// template with {{token}} placeholders substituted per request; no template
// engine is needed for a fixed token set.
func (s *server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	stats := s.deps.Stats.Snapshot()

	hitRate := "0.0%"
	if lookups := stats.Requests.CacheHits + stats.Requests.CacheMisses; lookups > 0 {
		hitRate = fmt.Sprintf("%.1f%%", float64(stats.Requests.CacheHits)/float64(lookups)*100)
	}

	reqLabels, reqData := chartSeries(stats.Requests.ByProvider)
	tokLabels, inData := chartSeries(stats.Tokens.InputByProvider)
	_, outData := chartSeriesFor(tokLabels, stats.Tokens.OutputByProvider)
	errLabels, errData := chartSeries(stats.Errors.ByType)

	recent, _ := json.Marshal(stats.Errors.Recent)

	page := strings.NewReplacer(
		"{{totalRequests}}", strconv.FormatInt(stats.Requests.Total, 10),
		"{{successfulRequests}}", strconv.FormatInt(stats.Requests.Successful, 10),
		"{{failedRequests}}", strconv.FormatInt(stats.Requests.Failed, 10),
		"{{cacheHits}}", strconv.FormatInt(stats.Requests.CacheHits, 10),
		"{{cacheMisses}}", strconv.FormatInt(stats.Requests.CacheMisses, 10),
		"{{cacheHitRate}}", hitRate,
		"{{cacheSize}}", strconv.Itoa(s.deps.Cache.Len()),
		"{{totalInputTokens}}", strconv.FormatInt(stats.Tokens.TotalInput, 10),
		"{{totalOutputTokens}}", strconv.FormatInt(stats.Tokens.TotalOutput, 10),
		"{{totalErrors}}", strconv.FormatInt(stats.Errors.Total, 10),
		"{{recentErrors}}", string(recent),
		"{{requestsLabels}}", reqLabels,
		"{{requestsData}}", reqData,
		"{{tokensLabels}}", tokLabels,
		"{{inputTokensData}}", inData,
		"{{outputTokensData}}", outData,
		"{{errorLabels}}", errLabels,
		"{{errorData}}", errData,
	).Replace(dashboardHTML)

	w.Header()["Content-Type"] = htmlCT
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

// chartSeries turns a counter map into sorted JSON label and data arrays.
func chartSeries(m map[string]int64) (labels, data string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lj, _ := json.Marshal(keys)
	return string(lj), seriesFor(keys, m)
}

// chartSeriesFor reuses an existing JSON label array so paired datasets line up.
func chartSeriesFor(labelsJSON string, m map[string]int64) (labels, data string) {
	var keys []string
	if err := json.Unmarshal([]byte(labelsJSON), &keys); err != nil {
		return labelsJSON, "[]"
	}
	return labelsJSON, seriesFor(keys, m)
}

func seriesFor(keys []string, m map[string]int64) string {
	vals := make([]int64, len(keys))
	for i, k := range keys {
		vals[i] = m[k]
	}
	dj, _ := json.Marshal(vals)
	return string(dj)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Radagast Gateway</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; margin: 2rem; background: #f6f7f9; color: #1e2430; }
h1 { font-size: 1.4rem; }
.cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 1rem; margin-bottom: 2rem; }
.card { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.card .value { font-size: 1.6rem; font-weight: 600; }
.card .label { color: #6b7280; font-size: .8rem; text-transform: uppercase; }
.charts { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 1rem; }
.chart { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
#recent { background: #fff; border-radius: 8px; padding: 1rem; margin-top: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
#recent li { font-family: monospace; font-size: .8rem; margin: .25rem 0; }
</style>
</head>
<body>
<h1>Radagast Gateway</h1>
<div class="cards">
  <div class="card"><div class="value">{{totalRequests}}</div><div class="label">Requests</div></div>
  <div class="card"><div class="value">{{successfulRequests}}</div><div class="label">Successful</div></div>
  <div class="card"><div class="value">{{failedRequests}}</div><div class="label">Failed</div></div>
  <div class="card"><div class="value">{{cacheHitRate}}</div><div class="label">Cache hit rate</div></div>
  <div class="card"><div class="value">{{cacheHits}} / {{cacheMisses}}</div><div class="label">Hits / Misses</div></div>
  <div class="card"><div class="value">{{cacheSize}}</div><div class="label">Cached entries</div></div>
  <div class="card"><div class="value">{{totalInputTokens}}</div><div class="label">Input tokens</div></div>
  <div class="card"><div class="value">{{totalOutputTokens}}</div><div class="label">Output tokens</div></div>
  <div class="card"><div class="value">{{totalErrors}}</div><div class="label">Errors</div></div>
</div>
<div class="charts">
  <div class="chart"><canvas id="requests"></canvas></div>
  <div class="chart"><canvas id="tokens"></canvas></div>
  <div class="chart"><canvas id="errors"></canvas></div>
</div>
<div id="recent">
  <strong>Recent errors</strong>
  <ul></ul>
</div>
<script>
new Chart(document.getElementById("requests"), {
  type: "bar",
  data: { labels: {{requestsLabels}}, datasets: [{ label: "Requests by provider", data: {{requestsData}}, backgroundColor: "#4f7cd1" }] }
});
new Chart(document.getElementById("tokens"), {
  type: "bar",
  data: { labels: {{tokensLabels}}, datasets: [
    { label: "Input tokens", data: {{inputTokensData}}, backgroundColor: "#57a773" },
    { label: "Output tokens", data: {{outputTokensData}}, backgroundColor: "#c96f4a" }
  ] }
});
new Chart(document.getElementById("errors"), {
  type: "doughnut",
  data: { labels: {{errorLabels}}, datasets: [{ data: {{errorData}}, backgroundColor: ["#d16a6a","#d1a04f","#8a6ad1","#6ad1c4","#999"] }] }
});
const recent = {{recentErrors}};
const ul = document.querySelector("#recent ul");
for (const e of recent) { const li = document.createElement("li"); li.textContent = e; ul.appendChild(li); }
</script>
</body>
</html>
`
