package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/buildflow/permkit/pkg/permission"
	"github.com/buildflow/permkit/pkg/wildcard"
)

// Handler serves the read-only permission API.
type Handler struct {
	engine *permission.Engine
	log    *slog.Logger
	checks map[string]func(context.Context) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request failure logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHealthcheck registers a named dependency check served by
// GET /healthz. Checks with nil functions are ignored.
func WithHealthcheck(name string, check func(context.Context) error) Option {
	return func(h *Handler) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// New creates a handler around the engine.
func New(engine *permission.Engine, opts ...Option) *Handler {
	if engine == nil {
		panic("handler: engine cannot be nil")
	}
	h := &Handler{
		engine: engine,
		log:    slog.Default(),
		checks: make(map[string]func(context.Context) error),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router for the API surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/evaluate", h.evaluate)
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{id}/permissions", h.rolePermissions)
	r.Post("/roles/preview", h.previewRole)
	r.Get("/users/{id}/permissions", h.userPermissions)
	r.Get("/healthz", h.healthz)

	return r
}

type evaluateRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}
	if req.UserID == "" || req.Resource == "" || req.Action == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("user_id, resource, and action are required")))
		return
	}

	ev := h.engine.Evaluate(r.Context(), req.UserID, req.Resource, req.Action)
	respondJSON(w, http.StatusOK, ev)
}

type roleListResponse struct {
	// Roles are ordered base roles first, so rendering them top to
	// bottom never shows a child before its parents.
	Roles   []string `json:"roles"`
	Version uint64   `json:"snapshot_version"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, roleListResponse{
		Roles:   h.engine.RoleIDs(),
		Version: h.engine.Version(),
	})
}

type roleEntry struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	permission.RoleDecision
}

type rolePermissionsResponse struct {
	RoleID    string           `json:"role_id"`
	Rules     []roleEntry      `json:"rules"`
	Conflicts []permission.Key `json:"conflicts,omitempty"`
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	set, err := h.engine.ResolveRole(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roleSetResponse(set))
}

func (h *Handler) previewRole(w http.ResponseWriter, r *http.Request) {
	var role permission.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}
	if role.ID == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("role id is required")))
		return
	}

	set, err := h.engine.PreviewRole(role)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roleSetResponse(set))
}

func roleSetResponse(set *permission.EffectiveRuleSet) rolePermissionsResponse {
	entries := make([]roleEntry, 0, len(set.Rules))
	for k, d := range set.Rules {
		entries = append(entries, roleEntry{Resource: k.Resource, Action: k.Action, RoleDecision: d})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Resource != entries[j].Resource {
			return entries[i].Resource < entries[j].Resource
		}
		return entries[i].Action < entries[j].Action
	})
	return rolePermissionsResponse{
		RoleID:    set.RoleID,
		Rules:     entries,
		Conflicts: set.Conflicts,
	}
}

type userPermissionsResponse struct {
	UserID   string                   `json:"user_id"`
	Inactive bool                     `json:"inactive,omitempty"`
	Grants   []permission.MatrixEntry `json:"grants"`
	Version  uint64                   `json:"snapshot_version"`
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.engine.ResolveUser(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	query := r.URL.Query()
	grants := wildcard.Filter(perms.Matrix(), query["resource"], query["action"])

	respondJSON(w, http.StatusOK, userPermissionsResponse{
		UserID:   perms.UserID,
		Inactive: perms.Inactive,
		Grants:   grants,
		Version:  perms.Version,
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.ErrorContext(ctx, "healthcheck failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	respondJSON(w, status, results)
}
