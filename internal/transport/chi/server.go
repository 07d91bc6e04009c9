// Package chi exposes the retrieval engine over HTTP: a search endpoint, a
// health probe and Prometheus metrics. Handlers are hand-written on the chi
// router; domain sentinel errors map to HTTP statuses through an ordered
// handler table.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/request"
	healthuc "github.com/henribesnard/ohadai-sub001/internal/usecase/health"
	retrievaluc "github.com/henribesnard/ohadai-sub001/internal/usecase/retrieval"
)

// Error response codes returned to clients.
const (
	CodeBadRequest           = "bad_request"
	CodeValidationFailed     = "validation_failed"
	CodeUnauthorized         = "unauthorized"
	CodeRetrievalUnavailable = "retrieval_unavailable"
	CodeEmbeddingProvider    = "embedding_provider_error"
	CodeInternalError        = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query          string `json:"query"`
	NResults       int    `json:"n_results,omitempty"`
	Collection     string `json:"collection,omitempty"`
	Partie         string `json:"partie,omitempty"`
	Rerank         bool   `json:"rerank,omitempty"`
	IncludeSources bool   `json:"include_sources,omitempty"`
}

// SearchResultItem is one ranked passage in the response.
type SearchResultItem struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`

	// Per-channel provenance, present only when include_sources is set.
	Channels    []string `json:"channels,omitempty"`
	BM25Score   *float64 `json:"bm25_score,omitempty"`
	VectorScore *float64 `json:"vector_score,omitempty"`
	FusedScore  *float64 `json:"fused_score,omitempty"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// SearchResponse is the POST /search response body.
type SearchResponse struct {
	Results          []SearchResultItem `json:"results"`
	Total            int                `json:"total"`
	Degraded         bool               `json:"degraded"`
	DegradedChannels []string           `json:"degraded_channels,omitempty"`
	Reranked         bool               `json:"reranked"`
	RerankDegraded   bool               `json:"rerank_degraded,omitempty"`
	CacheHit         bool               `json:"cache_hit"`
	EmbeddingTokens  int                `json:"embedding_tokens,omitempty"`
}

// HealthResponse is the GET /healthz response body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the retrieval HTTP API.
type Server struct {
	retrieval     *retrievaluc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(retrieval *retrievaluc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		retrieval: retrieval,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidLimit, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
	}
	return s
}

// Routes registers all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.SearchDocuments)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchDocuments handles POST /search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(
		body.Query, body.NResults, body.Collection, body.Partie,
		body.Rerank, body.IncludeSources,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.retrieval.Retrieve(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp, req.IncludeSources()))
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchResponseFromDomain(resp retrievaluc.Response, includeSources bool) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultItemFromCandidate(&resp.Results[i], includeSources)
	}
	return SearchResponse{
		Results:          items,
		Total:            len(items),
		Degraded:         resp.Degraded,
		DegradedChannels: resp.DegradedChannels,
		Reranked:         resp.Reranked,
		RerankDegraded:   resp.RerankDegraded,
		CacheHit:         resp.CacheHit,
		EmbeddingTokens:  resp.EmbeddingTokens,
	}
}

func resultItemFromCandidate(c *candidate.Candidate, includeSources bool) SearchResultItem {
	item := SearchResultItem{
		ID:       c.DocumentID,
		Text:     c.Text,
		Metadata: c.Metadata,
		Score:    c.RelevanceScore(),
	}
	if !includeSources {
		return item
	}

	item.Channels = c.Channels()
	if c.HasBM25 {
		v := c.BM25Score
		item.BM25Score = &v
	}
	if c.HasVector {
		v := c.VectorScore
		item.VectorScore = &v
	}
	fused := c.FusedScore
	item.FusedScore = &fused
	if c.Reranked {
		v := c.RerankScore
		item.RerankScore = &v
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrInvalidLimit,
		domain.ErrDimensionMismatch,
		domain.ErrRetrievalUnavailable,
		domain.ErrModelUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
