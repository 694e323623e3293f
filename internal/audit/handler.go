package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/steward-iam/steward/internal/guard"
	"github.com/steward-iam/steward/internal/platform/httpx"
)

// Handler manages audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   guard.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard guard.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("audit.view"))
		r.Get("/", h.timeline)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := Filters{
		UserID:       parseID(q.Get("user_id")),
		PermissionID: parseID(q.Get("permission_id")),
		Action:       Action(q.Get("action")),
		Page:         atoi(q.Get("page")),
		PageSize:     atoi(q.Get("page_size")),
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseID(raw string) int64 {
	id, _ := strconv.ParseInt(raw, 10, 64)
	return id
}

func atoi(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
