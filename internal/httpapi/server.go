package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/invoice-roi/internal/logging"
	"github.com/joelkehle/invoice-roi/internal/ratelimit"
	"github.com/joelkehle/invoice-roi/internal/report"
	"github.com/joelkehle/invoice-roi/internal/roi"
	"github.com/joelkehle/invoice-roi/internal/scenario"
	"github.com/joelkehle/invoice-roi/internal/telemetry"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

var tracer = otel.Tracer("github.com/joelkehle/invoice-roi/internal/httpapi")

// Deps are the collaborators behind the HTTP surface. Limiter and Metrics
// are optional.
type Deps struct {
	Store    scenario.Store
	Renderer report.Renderer
	Archive  *report.Archive
	Limiter  ratelimit.Limiter
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger
}

type Options struct {
	WebDir      string
	Production  bool
	CORSOrigins []string
	Clock       func() time.Time
}

type Server struct {
	store    scenario.Store
	renderer report.Renderer
	archive  *report.Archive
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	opts     Options
}

func NewServer(deps Deps, opts Options) http.Handler {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Server{
		store:    deps.Store,
		renderer: deps.Renderer,
		archive:  deps.Archive,
		metrics:  deps.Metrics,
		logger:   logging.OrNop(deps.Logger),
		opts:     opts,
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if deps.Limiter != nil {
		api.Use(ratelimit.Middleware(deps.Limiter, ratelimit.Options{
			Logger:    s.logger,
			OnLimited: func(string) { s.metrics.RateLimited.Inc() },
		}))
	}
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/scenarios", s.handleSaveScenario).Methods(http.MethodPost)
	api.HandleFunc("/scenarios", s.handleListScenarios).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}", s.handleGetScenario).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}", s.handleDeleteScenario).Methods(http.MethodDelete)
	api.HandleFunc("/report/generate", s.handleGenerateReport).Methods(http.MethodPost)
	api.HandleFunc("/report/download/{filename}", s.handleDownloadReport).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(s.handleRoot).Methods(http.MethodGet, http.MethodHead)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", logging.RequestIDHeader}),
		handlers.ExposedHeaders([]string{logging.RequestIDHeader, "Retry-After"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(!opts.Production),
	)
	return logging.RequestLogger(s.logger)(recovery(cors(r)))
}

// instrument wraps each routed request in a span and records its duration.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		))
		defer span.End()

		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// calculate validates and computes in one traced step.
func (s *Server) calculate(ctx context.Context, in roi.ScenarioInputs) (roi.CalculationResult, error) {
	_, span := tracer.Start(ctx, "roi.calculate")
	defer span.End()

	if err := roi.CheckInputs(in); err != nil {
		s.metrics.ValidationFailures.Inc()
		s.metrics.Calculations.WithLabelValues("invalid").Inc()
		return roi.CalculationResult{}, err
	}
	res, err := roi.Calculate(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Calculations.WithLabelValues("error").Inc()
		return roi.CalculationResult{}, err
	}
	s.metrics.Calculations.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("roi.monthly_savings", res.MonthlySavings))
	return res, nil
}

func requestID(r *http.Request) string {
	return logging.RequestID(r.Context())
}
