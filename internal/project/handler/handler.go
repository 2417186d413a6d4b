// Package handler wires project endpoints to the project service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"givers/internal/funding"
	"givers/internal/platform/middleware"
	"givers/internal/project/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/httputil"
	"givers/pkg/requestcontext"
)

// Service defines the interface for project operations.
type Service interface {
	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	GetProject(ctx context.Context, projectID id.ProjectID) (*models.Project, error)
	UpdatePledge(ctx context.Context, projectID id.ProjectID, cfg funding.PledgeConfig) (*models.Project, error)
	UpdateAlerts(ctx context.Context, projectID id.ProjectID, th funding.AlertThresholds) (*models.Project, error)
	UpdateStatus(ctx context.Context, projectID id.ProjectID, status models.ProjectStatus) (*models.Project, error)
	Achievement(ctx context.Context, projectID id.ProjectID) (funding.Achievement, error)
}

// Handler wires project endpoints to the project service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a project handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts project endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/projects/{projectID}", h.HandleGet)
	r.Get("/api/projects/{projectID}/achievement", h.HandleAchievement)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/api/projects", h.HandleCreate)
		r.Patch("/api/projects/{projectID}", h.HandleUpdateStatus)
		r.Put("/api/projects/{projectID}/pledge", h.HandleUpdatePledge)
		r.Put("/api/projects/{projectID}/alerts", h.HandleUpdateAlerts)
	})
}

func projectIDParam(r *http.Request) (id.ProjectID, error) {
	raw := chi.URLParam(r, "projectID")
	if !govalidator.IsUUID(raw) {
		return id.ProjectID{}, dErrors.New(dErrors.CodeBadRequest, "project id must be a UUID")
	}
	return id.ParseProjectID(raw)
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateProjectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.CreateProject(ctx, req.Name, req.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /api/projects/{projectID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdateStatus handles PATCH /api/projects/{projectID}.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	p, err := h.service.UpdateStatus(ctx, projectID, req.ParsedStatus())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdatePledge handles PUT /api/projects/{projectID}/pledge.
func (h *Handler) HandleUpdatePledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PledgeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	p, err := h.service.UpdatePledge(ctx, projectID, req.ToConfig())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pledge updated",
		"request_id", requestcontext.RequestID(ctx),
		"project_id", projectID,
		"monthly_target", int64(p.MonthlyTarget),
	)
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdateAlerts handles PUT /api/projects/{projectID}/alerts.
func (h *Handler) HandleUpdateAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AlertsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	p, err := h.service.UpdateAlerts(ctx, projectID, req.ToThresholds())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleAchievement handles GET /api/projects/{projectID}/achievement.
func (h *Handler) HandleAchievement(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.Achievement(r.Context(), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}
