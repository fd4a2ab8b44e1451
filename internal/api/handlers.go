package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orgboard/internal/chart"
	"github.com/starford/orgboard/internal/checksum"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
	"github.com/starford/orgboard/internal/session"
)

const (
	headerDirty  = "X-Chart-Dirty"
	maxBodyBytes = 1 << 20
)

// Handler holds API route handlers.
type Handler struct {
	store  *session.Store
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(store *session.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetChart handles GET /api/chart.
//
//	@Summary		Get the current chart, including unsaved edits
//	@Tags			chart
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"Checksum from a previous ETag"
//	@Success		200		{object}	models.Chart
//	@Success		304		"Chart unchanged"
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chart [get]
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Snapshot()
	if err != nil {
		writeError(w, h.logger, "get chart", err)
		return
	}
	h.writeChart(w, r, c)
}

func (h *Handler) writeChart(w http.ResponseWriter, r *http.Request, c models.Chart) {
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		writeError(w, h.logger, "encode chart", err)
		return
	}
	etag := checksum.ETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set(headerDirty, strconv.FormatBool(h.store.Dirty()))
	if r.Method == http.MethodGet && checksum.MatchETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetSession handles GET /api/session.
//
//	@Summary		Session state and dirty flag
//	@Tags			chart
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Status())
}

// Save handles POST /api/save.
//
//	@Summary		Persist the current chart
//	@Tags			chart
//	@Success		204	"Saved"
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Save(r.Context()); err != nil {
		writeError(w, h.logger, "save chart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reload handles POST /api/reload.
//
//	@Summary		Discard unsaved edits and reload the stored chart
//	@Tags			chart
//	@Produce		json
//	@Success		200	{object}	models.Chart
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(r.Context()); err != nil {
		writeError(w, h.logger, "reload chart", err)
		return
	}
	h.GetChart(w, r)
}

// AddDepartment handles POST /api/departments.
//
//	@Summary		Add a department with one empty level
//	@Tags			structure
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NameRequest	true	"Department name"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/departments [post]
func (h *Handler) AddDepartment(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.store.AddDepartment(req.Name)
	if err != nil {
		writeError(w, h.logger, "add department", err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// AddLevel handles POST /api/departments/{id}/levels.
//
//	@Summary		Append an empty level to a department
//	@Tags			structure
//	@Produce		json
//	@Param			id	path		string	true	"Department id"
//	@Success		201	{object}	IDResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/departments/{id}/levels [post]
func (h *Handler) AddLevel(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.AddLevel(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "add level", err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// AddRole handles POST /api/roles.
//
//	@Summary		Register a role in Available Roles and save the chart
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NameRequest	true	"Role name"
//	@Success		201		{object}	RoleCreatedResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		503		{object}	errResponse	"Role added but not saved; the session stays dirty"
//	@Security		BearerAuth
//	@Router			/roles [post]
func (h *Handler) AddRole(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.AddRole(r.Context(), req.Name); err != nil {
		writeError(w, h.logger, "add role", err)
		return
	}
	writeJSON(w, http.StatusCreated, RoleCreatedResponse{Name: strings.TrimSpace(req.Name), Persisted: true})
}

// MoveRole handles POST /api/moves.
//
//	@Summary		Move a role between slots
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Drag-and-drop move"
//	@Success		200		{object}	models.Chart
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse	"Unknown target"
//	@Failure		409		{object}	errResponse	"Role is no longer at the source slot"
//	@Security		BearerAuth
//	@Router			/moves [post]
func (h *Handler) MoveRole(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	from, err := req.From.Location()
	if err != nil {
		writeError(w, h.logger, "move role", err)
		return
	}
	to, err := req.To.Location()
	if err != nil {
		writeError(w, h.logger, "move role", err)
		return
	}
	c, err := h.store.MoveRole(req.Role, from, to)
	if err != nil {
		var stale *chart.StaleMoveError
		if errors.As(err, &stale) {
			h.logger.Debug("stale move", slog.String("role", req.Role), slog.String("from", from.Key()))
		}
		writeError(w, h.logger, "move role", err)
		return
	}
	h.writeChart(w, r, c)
}

// LookupRole handles GET /api/roles/lookup.
//
//	@Summary		Find where a role sits (case-insensitive)
//	@Tags			roles
//	@Produce		json
//	@Param			name	query		string	true	"Role name"
//	@Success		200		{object}	models.Placement
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roles/lookup [get]
func (h *Handler) LookupRole(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	p, err := h.store.Lookup(name)
	if err != nil {
		writeError(w, h.logger, "lookup role", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SearchRoles handles GET /api/roles/search.
//
//	@Summary		Roles whose name contains the query
//	@Tags			roles
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roles/search [get]
func (h *Handler) SearchRoles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.store.Search(q, limit)
	if err != nil {
		writeError(w, h.logger, "search roles", err)
		return
	}
	if results == nil {
		results = []models.Placement{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

type validatable interface {
	Validate() error
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}
