// Package handler wires account endpoints to the user service: registration,
// the me endpoint, and host-only admin user management.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"givers/internal/platform/middleware"
	"givers/internal/user/models"
	"givers/internal/user/service"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/httputil"
	"givers/pkg/requestcontext"
)

// Service defines the interface for account operations.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	SetSuspension(ctx context.Context, userID id.UserID, suspended bool) (*models.User, error)
}

// PromptChecker reports whether the migration prompt should be shown.
// Owned by the donation vertical.
type PromptChecker interface {
	MigrationPromptVisible(ctx context.Context, userID id.UserID) (bool, error)
}

// Handler wires account endpoints to the user service.
type Handler struct {
	service Service
	prompts PromptChecker
	logger  *slog.Logger
}

// New constructs a user handler.
func New(service Service, prompts PromptChecker, logger *slog.Logger) *Handler {
	return &Handler{service: service, prompts: prompts, logger: logger}
}

// Register mounts account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/register", h.HandleRegister)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/api/me", h.HandleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth, middleware.RequireHost)
		r.Get("/api/admin/users", h.HandleListUsers)
		r.Patch("/api/admin/users/{userID}/suspend", h.HandleSuspend)
	})
}

// RegisterRequest is the HTTP request body for POST /api/register.
type RegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	return nil
}

// SuspendRequest is the HTTP request body for
// PATCH /api/admin/users/{userID}/suspend.
type SuspendRequest struct {
	Suspended bool `json:"suspended"`
}

// MeResponse is the HTTP response for GET /api/me.
type MeResponse struct {
	ID                    id.UserID  `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	SuspendedAt           *time.Time `json:"suspended_at,omitempty"`
	PendingTokenMigration bool       `json:"pending_token_migration"`
	ShowMigrationPrompt   bool       `json:"show_migration_prompt"`
}

// HandleRegister handles POST /api/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	u, err := h.service.Register(ctx, service.RegisterInput{Email: req.Email, Name: req.Name})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

// HandleMe handles GET /api/me. The migration prompt flag reflects the
// session-scoped dismissal; the underlying pending flag is reported as-is.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.service.Me(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	showPrompt := false
	if h.prompts != nil && u.PendingTokenMigration {
		visible, err := h.prompts.MigrationPromptVisible(ctx, u.ID)
		if err != nil {
			h.logger.WarnContext(ctx, "prompt visibility check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		} else {
			showPrompt = visible
		}
	}

	httputil.WriteJSON(w, http.StatusOK, MeResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  string(u.Role),
		SuspendedAt:           u.SuspendedAt,
		PendingTokenMigration: u.PendingTokenMigration,
		ShowMigrationPrompt:   showPrompt,
	})
}

// HandleListUsers handles GET /api/admin/users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	users, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// HandleSuspend handles PATCH /api/admin/users/{userID}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "userID")
	if !govalidator.IsUUID(raw) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user id must be a UUID"))
		return
	}
	userID, err := id.ParseUserID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user id must be a UUID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	u, err := h.service.SetSuspension(ctx, userID, req.Suspended)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account suspension updated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"suspended", req.Suspended,
	)
	httputil.WriteJSON(w, http.StatusOK, u)
}
