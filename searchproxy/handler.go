// Package searchproxy is the HTTP facade over the upstream book catalog. It
// hides the catalog API key from clients, collapses duplicate searches into a
// shared server-side cache, and degrades with structured errors (or an
// offline page) when the upstream is down.
package searchproxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/viccon/sturdyc"
	"go.uber.org/zap"

	"github.com/librovision/librovision/cache"
	"github.com/librovision/librovision/internal/catalog"
	"github.com/librovision/librovision/model"
)

// SearchResponse is the proxy's normalized search result page.
type SearchResponse struct {
	Query      string              `json:"query"`
	Page       int                 `json:"page"`
	MaxResults int                 `json:"max_results"`
	TotalItems int                 `json:"total_items"`
	Items      []model.BookSummary `json:"items"`
}

// ErrorResponse is the structured error body for every non-2xx reply.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type searchRequest struct {
	Query      string `validate:"required,min=1,max=200"`
	Page       int    `validate:"min=1"`
	MaxResults int    `validate:"min=1,max=40"`
}

// Handler serves the search proxy routes.
type Handler struct {
	catalog  *catalog.Client
	results  *sturdyc.Client[SearchResponse]
	keys     cache.KeySerializer
	validate *validator.Validate
	logger   *zap.Logger
}

// Options configures a Handler.
type Options struct {
	// ResultTTL is how long a search result page stays cached. Defaults to
	// 10 minutes.
	ResultTTL time.Duration
	// Capacity is the result cache size in entries. Defaults to 10000.
	Capacity int
	Logger   *zap.Logger
}

// NewHandler creates the proxy handler over the given catalog client.
func NewHandler(cat *catalog.Client, keys cache.KeySerializer, opts Options) *Handler {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 10 * time.Minute
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 10000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		catalog:  cat,
		results:  sturdyc.New[SearchResponse](opts.Capacity, 64, opts.ResultTTL, 10),
		keys:     keys,
		validate: validator.New(),
		logger:   opts.Logger,
	}
}

// Routes mounts the proxy's routes on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Get("/v1/search", h.handleSearch)
	r.Get("/offline", h.handleOffline)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.catalog.IsOpen() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{
		Query:      r.URL.Query().Get("q"),
		Page:       intParam(r, "page", 1),
		MaxResults: intParam(r, "maxResults", 20),
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid_request",
			Message:    validationMessage(err),
			Suggestion: "provide q, and keep page >= 1 and maxResults between 1 and 40",
		})
		return
	}

	key := h.keys.SerializeKey("book_search", req.Query, req.Page, req.MaxResults)
	resp, err := h.results.GetOrFetch(r.Context(), key, func(ctx context.Context) (SearchResponse, error) {
		result, err := h.catalog.Search(ctx, req.Query, req.Page, req.MaxResults)
		if err != nil {
			return SearchResponse{}, err
		}
		return SearchResponse{
			Query:      req.Query,
			Page:       req.Page,
			MaxResults: req.MaxResults,
			TotalItems: result.TotalItems,
			Items:      result.Items,
		}, nil
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeUpstreamError maps catalog failures onto the structured error schema.
// Credential problems are our misconfiguration, not the client's, and say so;
// upstream server errors are mirrored; an open breaker reports 503 with a
// retry hint.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	var ue *catalog.UpstreamError
	if !errors.As(err, &ue) {
		h.logger.Error("search failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "the book catalog could not be reached",
		})
		return
	}

	switch {
	case ue == catalog.ErrUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:      "catalog_unavailable",
			Message:    "the book catalog is temporarily unavailable",
			Suggestion: "retry in about 30 seconds",
		})
	case ue.Credential():
		h.logger.Error("catalog rejected credentials", zap.Int("status", ue.Status))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:      "catalog_credentials",
			Message:    "the search service is misconfigured",
			Suggestion: "contact the operator; this is not a problem with your request",
		})
	case ue.Status >= 500:
		writeJSON(w, ue.Status, ErrorResponse{
			Error:   "upstream_error",
			Message: ue.Message,
		})
	default:
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: ue.Message,
		})
	}
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Query":
			return "q is required and must be at most 200 characters"
		case "Page":
			return "page must be a positive integer"
		case "MaxResults":
			return "maxResults must be between 1 and 40"
		}
	}
	return "invalid search parameters"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request with latency and status.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
