package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehost/internal/api/apierr"
	"github.com/mcoot/gamehost/internal/api/handler"
	apimiddleware "github.com/mcoot/gamehost/internal/api/middleware"
	"github.com/mcoot/gamehost/internal/metrics"
	"github.com/mcoot/gamehost/internal/middleware"
	"github.com/mcoot/gamehost/internal/services/auth"
	"github.com/mcoot/gamehost/internal/services/catalog"
	"github.com/mcoot/gamehost/internal/services/scores"
	"github.com/mcoot/gamehost/internal/services/versions"
)

// APIPrefix mirrors every route under a versioned path
const APIPrefix = "/api/v1"

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	CatalogService  *catalog.Service
	VersionManager  *versions.Manager
	ScoreService    *scores.Service
	MaxArchiveBytes int64
	AdminKey        string
	HealthChecks    map[string]handler.Pinger
}

// NewRouter creates a new router with all routes mounted at the root and
// under APIPrefix
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger, apiPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(metrics.Middleware)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	routes := newRoutes(cfg)
	routes.mount(r.PathPrefix(APIPrefix).Subrouter())
	routes.mount(r)

	return r
}

type routes struct {
	auth    *handler.AuthHandler
	games   *handler.GameHandler
	scores  *handler.ScoreHandler
	content *handler.ContentHandler
	admin   *handler.AdminHandler
	health  *handler.HealthHandler

	requireAuth  mux.MiddlewareFunc
	requireAdmin mux.MiddlewareFunc
}

func newRoutes(cfg RouterConfig) *routes {
	return &routes{
		auth:         handler.NewAuthHandler(cfg.AuthService),
		games:        handler.NewGameHandler(cfg.CatalogService, cfg.VersionManager, cfg.MaxArchiveBytes, cfg.Logger),
		scores:       handler.NewScoreHandler(cfg.ScoreService),
		content:      handler.NewContentHandler(cfg.VersionManager),
		admin:        handler.NewAdminHandler(cfg.AuthService),
		health:       handler.NewHealthHandler(cfg.HealthChecks),
		requireAuth:  apimiddleware.Auth(cfg.AuthService),
		requireAdmin: apimiddleware.AdminKey(cfg.AdminKey),
	}
}

// mount registers every route on r
func (rt *routes) mount(r *mux.Router) {
	r.HandleFunc("/health", rt.health.Health).Methods(http.MethodGet)

	// Session routes
	r.HandleFunc("/auth/signup", rt.auth.Signup).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", rt.auth.Signin).Methods(http.MethodPost)
	r.HandleFunc("/auth/signout", rt.auth.Signout).Methods(http.MethodPost)

	// Public profile
	r.HandleFunc("/users/{username}", rt.scores.Profile).Methods(http.MethodGet)

	// Public game routes
	r.HandleFunc("/games", rt.games.List).Methods(http.MethodGet)
	r.HandleFunc("/games/{slug}", rt.games.Get).Methods(http.MethodGet)
	r.HandleFunc("/games/{slug}/scores", rt.scores.List).Methods(http.MethodGet)

	// Authenticated game routes
	protected := r.NewRoute().Subrouter()
	protected.Use(rt.requireAuth)
	protected.HandleFunc("/games", rt.games.Create).Methods(http.MethodPost)
	protected.HandleFunc("/games/{slug}", rt.games.Update).Methods(http.MethodPut)
	protected.HandleFunc("/games/{slug}", rt.games.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/games/{slug}/upload", rt.games.Upload).Methods(http.MethodPost)
	protected.HandleFunc("/games/{slug}/scores", rt.scores.Submit).Methods(http.MethodPost)

	// Admin routes
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(rt.requireAdmin)
	admin.HandleFunc("/principals/{username}", rt.admin.Get).Methods(http.MethodGet)
	admin.HandleFunc("/principals/{username}/block", rt.admin.Block).Methods(http.MethodPost)
	admin.HandleFunc("/principals/{username}/unblock", rt.admin.Unblock).Methods(http.MethodPost)

	// Static content of a version
	const version = "/games/{slug}/{version:[0-9]+|latest}"
	r.HandleFunc(version, rt.content.Serve).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(version+"/{path:.*}", rt.content.Serve).Methods(http.MethodGet, http.MethodHead)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewNotFoundError())
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewMethodNotAllowedError())
}
