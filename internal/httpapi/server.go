// Package httpapi serves the OKR board over a JSON REST API. Every /api/v1
// route acts on the session of the tenant resolved from the bearer token.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"okrboard/internal/identity"
	"okrboard/internal/metrics"
	"okrboard/internal/session"
)

// Options configures the API.
type Options struct {
	Sessions       *session.Registry
	Identity       identity.Provider
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	AllowedOrigins []string
}

// Server holds the collaborators shared by all handlers.
type Server struct {
	sessions *session.Registry
	identity identity.Provider
	metrics  *metrics.Metrics
	logger   *zap.Logger
	origins  []string
}

func New(opts Options) *Server {
	s := &Server{
		sessions: opts.Sessions,
		identity: opts.Identity,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		origins:  opts.AllowedOrigins,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", s.health)
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates/okr", s.okrTemplate)
		r.Get("/templates/orgchart", s.orgChartTemplate)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Delete("/session", s.withSession(s.signOut))

			r.Get("/dataset", s.withSession(s.getDataset))
			r.Get("/summary", s.withSession(s.getSummary))
			r.Get("/view", s.withSession(s.getView))
			r.Put("/view", s.withSession(s.setView))

			r.Route("/objectives", func(r chi.Router) {
				r.Post("/", s.withSession(s.addCompanyObjective))
				r.Put("/{id}", s.withSession(s.renameCompanyObjective))
				r.Delete("/{id}", s.withSession(s.deleteCompanyObjective))
				r.Post("/{id}/krs", s.withSession(s.addKR))
			})

			r.Route("/departments", func(r chi.Router) {
				r.Post("/", s.withSession(s.addDepartment))
				r.Put("/{id}", s.withSession(s.renameDepartment))
				r.Delete("/{id}", s.withSession(s.deleteDepartment))
				r.Post("/{id}/objectives", s.withSession(s.addDepartmentObjective))
			})

			r.Route("/department-objectives", func(r chi.Router) {
				r.Patch("/{id}", s.withSession(s.updateDepartmentObjective))
				r.Delete("/{id}", s.withSession(s.deleteDepartmentObjective))
				r.Post("/{id}/krs", s.withSession(s.addKR))
			})

			r.Route("/krs", func(r chi.Router) {
				r.Put("/{id}", s.withSession(s.updateKR))
				r.Delete("/{id}", s.withSession(s.deleteKR))
				r.Post("/{id}/checkins", s.withSession(s.recordCheckIn))
			})

			r.Route("/versions", func(r chi.Router) {
				r.Get("/", s.withSession(s.listVersions))
				r.Post("/", s.withSession(s.saveVersion))
				r.Delete("/{id}", s.withSession(s.deleteVersion))
				r.Get("/{id}/diff", s.withSession(s.diffVersion))
			})

			r.Get("/export", s.withSession(s.export))
			r.Post("/import", s.withSession(s.importWorkbook))
			r.Post("/orgchart", s.withSession(s.importOrgChart))

			r.Route("/suggestions", func(r chi.Router) {
				r.Post("/objectives", s.withSession(s.suggestObjectives))
				r.Post("/krs", s.withSession(s.suggestKRs))
				r.Post("/ask", s.withSession(s.ask))
			})
		})
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(s.sessions.Tenants())})
}
