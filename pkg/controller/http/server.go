package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type Server struct {
	router  *chi.Mux
	uc      *usecase.UseCases
	authUC  AuthUseCase
	metrics bool
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithMetrics exposes the Prometheus registry at /metrics
func WithMetrics(enabled bool) Options {
	return func(s *Server) {
		s.metrics = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		uc:      uc,
		metrics: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/orgs/{orgID}", func(r chi.Router) {
		r.Use(actorMiddleware(s.authUC))

		r.Route("/risks", func(r chi.Router) {
			r.Get("/", s.listRisks)
			r.Post("/", s.createRisk)
			r.Route("/{riskID}", func(r chi.Router) {
				r.Get("/", s.getRisk)
				r.Patch("/", s.updateRisk)
				r.Get("/derived", s.getDerived)
				r.Get("/controls", s.listControls)
				r.Post("/controls", s.createControl)
				r.Get("/history", s.listRiskHistory)
				r.Get("/history/{periodID}", s.getHistory)
			})
		})

		r.Route("/controls/{controlID}", func(r chi.Router) {
			r.Get("/", s.getControl)
			r.Put("/", s.updateControl)
			r.Delete("/", s.deleteControl)
		})

		r.Post("/sequences/{name}/next", s.nextSequence)

		r.Get("/period", s.getActivePeriod)
		r.Post("/period", s.initializePeriod)
		r.Post("/period/commit", s.commitPeriod)
		r.Get("/commits", s.listCommits)
		r.Get("/commits/{periodID}", s.getCommit)
		r.Get("/periods/{periodID}/history", s.listPeriodHistory)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
