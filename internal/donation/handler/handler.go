// Package handler wires donation endpoints to the donation service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"givers/internal/donation/models"
	"givers/internal/donation/service"
	"givers/internal/platform/middleware"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/httputil"
	"givers/pkg/requestcontext"
)

// Service defines the interface for donation operations.
type Service interface {
	CreateCheckout(ctx context.Context, in service.CheckoutInput) (string, error)
	ConfirmDonation(ctx context.Context, projectID id.ProjectID, amount id.Money, message string) (*models.Donation, error)
	CreateRecurring(ctx context.Context, projectID id.ProjectID, amount id.Money, interval models.Interval, message string) (*models.RecurringDonation, error)
	Pause(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error)
	Resume(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error)
	Cancel(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error)
	Delete(ctx context.Context, recurringID id.RecurringDonationID) error
	UpdateRecurring(ctx context.Context, recurringID id.RecurringDonationID, amount *id.Money, interval *models.Interval) (*models.RecurringDonation, error)
	ListMyDonations(ctx context.Context) ([]*models.Donation, error)
	ListMyRecurring(ctx context.Context) ([]*models.RecurringDonation, error)
	MigrateFromToken(ctx context.Context) (service.MigrationResult, error)
	DismissMigrationPrompt(ctx context.Context) error
}

// Handler wires donation endpoints to the donation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts donation endpoints on the router. Checkout and confirm
// accept anonymous token donors; everything under /api/me requires a session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/donations/checkout", h.HandleCheckout)
	r.Post("/api/donations/confirm", h.HandleConfirm)
	r.Get("/api/me/donations", h.HandleMyDonations)
	r.Get("/api/me/recurring-donations", h.HandleMyRecurring)

	r.Post("/api/recurring-donations/{recurringID}/pause", h.transitionHandler(h.service.Pause))
	r.Post("/api/recurring-donations/{recurringID}/resume", h.transitionHandler(h.service.Resume))
	r.Post("/api/recurring-donations/{recurringID}/cancel", h.transitionHandler(h.service.Cancel))
	r.Patch("/api/recurring-donations/{recurringID}", h.HandleUpdateRecurring)
	r.Delete("/api/recurring-donations/{recurringID}", h.HandleDeleteRecurring)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/api/me/migrate-from-token", h.HandleMigrate)
		r.Post("/api/me/dismiss-migration", h.HandleDismissMigration)
	})
}

func recurringIDParam(r *http.Request) (id.RecurringDonationID, error) {
	raw := chi.URLParam(r, "recurringID")
	if !govalidator.IsUUID(raw) {
		return id.RecurringDonationID{}, dErrors.New(dErrors.CodeBadRequest, "recurring donation id must be a UUID")
	}
	return id.ParseRecurringDonationID(raw)
}

// HandleCheckout handles POST /api/donations/checkout.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckoutRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	url, err := h.service.CreateCheckout(ctx, service.CheckoutInput{
		ProjectID: req.ParsedProjectID(),
		Amount:    id.Money(req.Amount),
		Recurring: req.Recurring,
		Interval:  req.ParsedInterval(),
		Message:   req.Message,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

// HandleConfirm handles POST /api/donations/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if req.Recurring {
		rec, err := h.service.CreateRecurring(ctx, req.ParsedProjectID(), id.Money(req.Amount), req.ParsedInterval(), req.Message)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, rec)
		return
	}

	d, err := h.service.ConfirmDonation(ctx, req.ParsedProjectID(), id.Money(req.Amount), req.Message)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

// HandleMyDonations handles GET /api/me/donations.
func (h *Handler) HandleMyDonations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMyDonations(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.Donation{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleMyRecurring handles GET /api/me/recurring-donations.
func (h *Handler) HandleMyRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMyRecurring(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.RecurringDonation{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) transitionHandler(op func(context.Context, id.RecurringDonationID) (*models.RecurringDonation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recurringID, err := recurringIDParam(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		rec, err := op(r.Context(), recurringID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

// HandleUpdateRecurring handles PATCH /api/recurring-donations/{recurringID}.
func (h *Handler) HandleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recurringID, err := recurringIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRecurringRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	rec, err := h.service.UpdateRecurring(ctx, recurringID, req.ParsedAmount(), req.ParsedInterval())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleDeleteRecurring handles DELETE /api/recurring-donations/{recurringID}.
func (h *Handler) HandleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	recurringID, err := recurringIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), recurringID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMigrate handles POST /api/me/migrate-from-token.
func (h *Handler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.MigrateFromToken(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "token migration completed",
		"request_id", requestcontext.RequestID(ctx),
		"migrated_count", result.MigratedCount,
		"already_migrated", result.AlreadyMigrated,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDismissMigration handles POST /api/me/dismiss-migration.
func (h *Handler) HandleDismissMigration(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DismissMigrationPrompt(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
