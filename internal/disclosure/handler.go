package disclosure

import (
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"givers/internal/platform/middleware"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/httputil"
)

// Handler serves the host-only disclosure export endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a disclosure handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the export endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth, middleware.RequireHost)
		r.Get("/api/admin/disclosure-export", h.HandleExport)
	})
}

// HandleExport handles GET /api/admin/disclosure-export?type=&id=.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	subjectType, err := ParseSubjectType(r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID := r.URL.Query().Get("id")
	if !govalidator.IsUUID(subjectID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "id must be a UUID"))
		return
	}

	bundle, err := h.service.Export(r.Context(), subjectType, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bundle)
}
