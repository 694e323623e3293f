package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/steward-iam/steward/internal/guard"
	"github.com/steward-iam/steward/internal/platform/httpx"
)

// Handler manages permission catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    guard.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard guard.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    guard,
	}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("permissions.view", "permissions.manage"))
		r.Get("/", h.listPermissions)
		r.Get("/{code}", h.getPermission)
		r.Get("/{code}/children", h.listChildren)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll("permissions.manage"))
		r.Post("/", h.createPermission)
		r.Patch("/{id}", h.updatePermission)
		r.Post("/{id}/deactivate", h.deactivatePermission)
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	var (
		perms []Permission
		err   error
	)
	if r.URL.Query().Get("include_inactive") == "true" {
		perms, err = h.service.ListAll(r.Context())
	} else {
		perms, err = h.service.ListActive(r.Context())
	}
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err, "get permission")
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listChildren(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err, "get permission")
		return
	}
	children, err := h.service.Children(r.Context(), p.ID)
	if err != nil {
		h.respondError(w, err, "list children")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"children": children})
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err, "create permission")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return
	}
	var req UpdatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err, "update permission")
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deactivatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.respondError(w, err, "deactivate permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "permission not found")
	case errors.Is(err, ErrInvalidGraph):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Graph", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "permission code already exists")
	case errors.Is(err, ErrSystemPermission):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
