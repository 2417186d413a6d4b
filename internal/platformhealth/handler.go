package platformhealth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"givers/internal/funding"
	"givers/internal/platform/middleware"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/httputil"
	"givers/pkg/requestcontext"
)

// Handler wires platform health endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a platform health handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints: the figure is public, configuration is
// host-only.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/host", h.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth, middleware.RequireHost)
		r.Put("/api/admin/host", h.HandleUpdateConfig)
	})
}

// ConfigRequest is the HTTP request body for PUT /api/admin/host.
type ConfigRequest struct {
	MonthlyCost int64                    `json:"monthly_cost"`
	Alerts      *funding.AlertThresholds `json:"alerts"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ConfigRequest) Validate() error {
	if r.MonthlyCost < 0 {
		return dErrors.New(dErrors.CodeValidation, "monthly_cost cannot be negative")
	}
	if r.Alerts != nil {
		return r.Alerts.Validate()
	}
	return nil
}

// HandleGet handles GET /api/host.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.Health(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, health)
}

// HandleUpdateConfig handles PUT /api/admin/host.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	cfg, err := h.service.UpdateConfig(ctx, id.Money(req.MonthlyCost), req.Alerts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}
