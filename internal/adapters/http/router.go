package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/core/ports"
	"github.com/storyforge/narrative-search/internal/core/usecase"
	"github.com/storyforge/narrative-search/internal/observability/metrics"
)

// TrafficConfig bounds inbound load before it reaches the use cases.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueTimeout   time.Duration
}

type Router struct {
	searchUC ports.HybridSearcher
	weighter ports.TermWeighter
	admin    ports.DictionaryAdmin

	service        string
	traffic        TrafficConfig
	serverMetrics  *metrics.HTTPServerMetrics
	defaultTopK    int
	metricsHandler http.Handler
}

func NewRouter(
	service string,
	searchUC ports.HybridSearcher,
	weighter ports.TermWeighter,
	admin ports.DictionaryAdmin,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficConfig,
	defaultTopK int,
) *Router {
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	rt := &Router{
		searchUC:      searchUC,
		weighter:      weighter,
		admin:         admin,
		service:       service,
		traffic:       traffic,
		serverMetrics: serverMetrics,
		defaultTopK:   defaultTopK,
	}
	if serverMetrics != nil {
		rt.metricsHandler = serverMetrics.Handler()
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/metrics", rt.metricsEndpoint)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/search/rank", rt.rank)
	mux.HandleFunc("/v1/query/weight", rt.weightQuery)
	mux.HandleFunc("/v1/admin/dictionary", rt.dictionaryStats)
	mux.HandleFunc("/v1/admin/dictionary/rebuild", rt.rebuildDictionary)

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		handler = rt.serverMetrics.Middleware(rt.service, handler)
	}
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) metricsEndpoint(w http.ResponseWriter, r *http.Request) {
	if rt.metricsHandler == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "metrics disabled"})
		return
	}
	rt.metricsHandler.ServeHTTP(w, r)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = rt.defaultTopK
	}

	start := time.Now()
	results, weighted, err := rt.searchUC.Search(r.Context(), req.Query, limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordSearch(rt.service, "/v1/search", weighted, len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":     results,
		"is_weighted": weighted,
	})
}

// rank scores and orders caller-provided lexical/vector pairs without touching
// the backends. Useful for replaying stored candidate sets.
func (rt *Router) rank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Pairs []domain.ScoredChunk `json:"pairs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Pairs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pairs are required"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": rt.searchUC.Rank(req.Pairs),
	})
}

func (rt *Router) weightQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string   `json:"query"`
		Terms []string `json:"terms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	terms := req.Terms
	if len(terms) == 0 {
		terms = usecase.QueryTerms(req.Query)
	}
	if len(terms) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query or terms are required"})
		return
	}

	weightedQuery, isWeighted := rt.weighter.Weight(terms)
	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordWeightRequest(rt.service, isWeighted)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":       weightedQuery.String(),
		"is_weighted": isWeighted,
		"terms":       weightedQuery.Terms,
	})
}

func (rt *Router) dictionaryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.admin.Stats())
}

func (rt *Router) rebuildDictionary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	started := rt.admin.ForceRefresh()
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
