package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kris790/Kaleidoscope/internal/http/handlers"
	"github.com/kris790/Kaleidoscope/internal/middleware"
)

// RouterOptions holds the cross cutting settings of the HTTP surface.
type RouterOptions struct {
	CORSOrigins     []string
	RateLimitPerMin int
	JWTSecret       string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin))
		r.Get("/catalog", app.Catalog)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret, app.Studio.Account().ID), app.RequireAccount)

			r.Get("/account", app.Account)
			r.Post("/account/top-up", app.TopUp)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", app.ListProjects)
				r.Post("/", app.CreateProject)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.GetProject)
					r.Patch("/", app.PatchProject)
					r.Delete("/", app.DeleteProject)
					r.Get("/log", app.ProjectLog)
					r.Get("/export", app.Export)
					r.Post("/generate", app.Generate)
					r.Post("/extend", app.Extend)
					r.Post("/narrate", app.Narrate)
					r.Post("/cancel", app.Cancel)
				})
			})
		})
	})

	return r
}
