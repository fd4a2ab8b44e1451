package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/orgboard/internal/session"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Auth AuthOptions
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// AllowedOrigins enables CORS for browser clients when non-empty.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(store *session.Store, opts RouterOptions) chi.Router {
	h := NewHandler(store, opts.Logger)

	r := chi.NewRouter()
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"ETag", headerDirty},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(AuthMiddleware(opts.Auth))

	// Chart and session.
	r.Get("/chart", h.GetChart)
	r.Get("/session", h.GetSession)
	r.Post("/save", h.Save)
	r.Post("/reload", h.Reload)

	// Structure edits.
	r.Post("/departments", h.AddDepartment)
	r.Post("/departments/{id}/levels", h.AddLevel)

	// Roles.
	r.Post("/roles", h.AddRole)
	r.Get("/roles/lookup", h.LookupRole)
	r.Get("/roles/search", h.SearchRoles)
	r.Post("/moves", h.MoveRole)

	// SSE endpoint (protected by same auth middleware).
	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
