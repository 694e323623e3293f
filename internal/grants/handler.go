package grants

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/guard"
	"github.com/steward-iam/steward/internal/platform/httpx"
	"github.com/steward-iam/steward/internal/users"
)

// SweepEnqueuer schedules an out-of-band expiry sweep.
type SweepEnqueuer interface {
	EnqueueSweep(ctx context.Context) error
}

// Handler manages grant lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    guard.Middleware
	sweeps   SweepEnqueuer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard guard.Middleware, sweeps SweepEnqueuer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    guard,
		sweeps:   sweeps,
	}
}

// MountRoutes registers grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("grants.view", "grants.manage"))
		r.Get("/users/{id}", h.listUserGrants)
		r.Get("/users/{id}/effective", h.effectivePermissions)
		r.Get("/users/{id}/check", h.checkPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll("grants.manage"))
		r.Post("/", h.grant)
		r.Post("/revoke", h.revoke)
		r.Post("/bulk", h.bulkGrant)
		r.Post("/bulk/revoke", h.bulkRevoke)
		r.Post("/sweep", h.sweep)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll("grants.approve"))
		r.Get("/pending", h.listPending)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	// Delegation rights come from the delegator's own grant, not a
	// permission code, so only identity is required here.
	r.Post("/delegate", h.delegate)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := guard.ActorFromContext(r.Context())
	g, err := h.service.Grant(r.Context(), req, &actor.ID)
	if errors.Is(err, ErrPendingApproval) {
		httpx.JSON(w, http.StatusAccepted, g)
		return
	}
	if err != nil {
		h.respondError(w, err, "grant")
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := guard.ActorFromContext(r.Context())
	if err := h.service.Revoke(r.Context(), req, &actor.ID); err != nil {
		h.respondError(w, err, "revoke")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delegate(w http.ResponseWriter, r *http.Request) {
	var req DelegateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, ok := guard.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	g, err := h.service.Delegate(r.Context(), actor.ID, req)
	if errors.Is(err, ErrPendingApproval) {
		httpx.JSON(w, http.StatusAccepted, g)
		return
	}
	if err != nil {
		h.respondError(w, err, "delegate")
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context())
	if err != nil {
		h.respondError(w, err, "list pending")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid grant id")
		return
	}
	actor, _ := guard.ActorFromContext(r.Context())
	g, err := h.service.Approve(r.Context(), id, actor.ID)
	if err != nil {
		h.respondError(w, err, "approve")
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid grant id")
		return
	}
	var body struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := guard.ActorFromContext(r.Context())
	if err := h.service.Reject(r.Context(), id, actor.ID, body.Reason); err != nil {
		h.respondError(w, err, "reject")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bulkGrant(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.service.BulkGrant)
}

func (h *Handler) bulkRevoke(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.service.BulkRevoke)
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, op func(context.Context, BulkRequest, *int64) ([]BulkResult, error)) {
	var req BulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := guard.ActorFromContext(r.Context())
	results, err := op(r.Context(), req, &actor.ID)
	if err != nil {
		h.respondError(w, err, "bulk")
		return
	}
	failed := 0
	for _, res := range results {
		if !res.OK {
			failed++
		}
	}
	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, map[string]any{"results": results, "failed": failed})
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeps == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "sweep scheduling is not configured")
		return
	}
	if err := h.sweeps.EnqueueSweep(r.Context()); err != nil {
		h.logger.Error("enqueue sweep", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) listUserGrants(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	grants, err := h.service.ListActiveForUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "list grants")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	eff, err := h.service.Resolve(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "resolve")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"all":         eff.All(),
		"permissions": eff.Codes(),
	})
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "code query parameter is required")
		return
	}
	decision, err := h.service.Check(r.Context(), userID, code)
	if err != nil {
		h.respondError(w, err, "check")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"decision":    decision,
		"exercisable": decision.Exercisable(),
	})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, users.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, ErrMissingDependency), errors.Is(err, ErrPermissionInactive):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotPending):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrStepUpRequired), errors.Is(err, ErrNotDelegable), errors.Is(err, ErrDelegationExhausted):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
