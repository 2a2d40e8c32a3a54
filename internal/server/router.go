package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	recordsmw "github.com/tenantrx/recordsapi/internal/middleware"
	"github.com/tenantrx/recordsapi/internal/services/iam"
)

// RouterOptions controls the construction of the API router.
type RouterOptions struct {
	Logger        zerolog.Logger
	Authenticator recordsmw.TokenAuthenticator
	Resolver      recordsmw.Resolver
	Authorizer    *iam.Authorizer
	Clients       ClientCatalog
	TenantParam   string
	CORSOptions   *cors.Options
	HealthHandler http.HandlerFunc
}

// DefaultCORSOptions returns the development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "WWW-Authenticate"},
		MaxAge:         300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles the chi router: shared middleware, public health
// check, and the /api/v1 tree behind security-context resolution.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recordsmw.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(recordsmw.NewSecurityContextMiddleware(opts.Authenticator, opts.Resolver, opts.TenantParam))

		api.Get("/session", HandleSession())
		api.Get("/session/authorize", HandleAuthorize(opts.Authorizer))
		api.Get("/session/evaluate", HandleEvaluate())
		if opts.Clients != nil {
			api.Get("/session/client", HandleClient(opts.Clients))
		}
	})

	return r
}
