package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appcalls "github.com/bryanwahyu/callscore/internal/application/calls"
	domai "github.com/bryanwahyu/callscore/internal/domain/ai"
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	domain "github.com/bryanwahyu/callscore/internal/domain/calls"
	"github.com/bryanwahyu/callscore/internal/domain/runerrors"
	"github.com/bryanwahyu/callscore/internal/infra/logging"
	"github.com/bryanwahyu/callscore/internal/middleware"
	"github.com/bryanwahyu/callscore/internal/worker"
)

// CallsService is the pipeline surface the router needs.
type CallsService interface {
	Submit(ev domain.CallEvent) (string, error)
	AnalyzeNow(ctx context.Context, t *domain.Transcript) analysis.AnalysisResult
	ListErrors(ctx context.Context, reportID string, limit int) ([]*runerrors.RunError, error)
}

// Options configures the ambient middleware around the routes.
type Options struct {
	CORSOrigins    []string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Metrics        *middleware.Metrics
	HealthCheckers map[string]middleware.HealthChecker
	Queue          middleware.QueueStats
	MaxBodyBytes   int64
}

type Router struct {
	callsSvc CallsService
	maxBody  int64
}

const defaultMaxBody = 10 << 20

func NewRouter(callsSvc CallsService, opts Options) http.Handler {
	r := &Router{callsSvc: callsSvc, maxBody: opts.MaxBodyBytes}
	if r.maxBody <= 0 {
		r.maxBody = defaultMaxBody
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.DefaultMetrics
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware(opts.Metrics))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Queue))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Post("/webhook", r.wrap(r.handleWebhook))
	mux.Post("/test", r.wrap(r.handleTest))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/reports/{id}/errors", r.wrap(r.handleRunErrors))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a status code for wrap.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{code: http.StatusBadRequest, msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var he *httpError
		switch {
		case errors.As(err, &he):
			writeError(w, he.code, he.msg)
		case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusServiceUnavailable, "analysis queue is full, try again later")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			logging.FromContext(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// POST /webhook
// Body: {"meeting_title": "...", "created_at": "...", "transcript": [...] | "..."}
// Returns immediately; the report is produced in the background.
func (r *Router) handleWebhook(w http.ResponseWriter, req *http.Request) error {
	var ev domain.CallEvent
	if err := r.decode(w, req, &ev); err != nil {
		return err
	}

	if !ev.HasTranscript() {
		return writeJSON(w, http.StatusOK, map[string]string{
			"message": "No transcript found, skipping analysis",
		})
	}
	ev.MeetingTitle = middleware.SanitizeMeetingTitle(ev.MeetingTitle)

	id, err := r.callsSvc.Submit(ev)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Webhook received, processing started",
		"report_id": id,
	})
}

// POST /test
// Body: {"transcript": ...}; runs the evaluation synchronously without a report.
func (r *Router) handleTest(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Transcript *domain.Transcript `json:"transcript"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	if body.Transcript.Empty() {
		return badRequest("No transcript provided")
	}

	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Minute)
	defer cancel()
	res := r.callsSvc.AnalyzeNow(ctx, body.Transcript)
	return writeJSON(w, http.StatusOK, map[string]any{
		"message": "Analysis complete",
		"results": res,
	})
}

// GET /v1/reports/{id}/errors?limit=
func (r *Router) handleRunErrors(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest(err.Error())
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.callsSvc.ListErrors(req.Context(), id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"report_id": id,
		"errors":    list,
	})
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxBody)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, map[string]string{"error": msg})
}

var _ CallsService = (*appcalls.Service)(nil)
