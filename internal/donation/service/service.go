// Package service implements the donation vertical: one-time donations,
// recurring donation lifecycle, the live monthly aggregate, and
// anonymous-to-account migration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"givers/internal/donation/metrics"
	"givers/internal/donation/models"
	"givers/internal/platform/events"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/sentinel"
	"givers/pkg/platform/tx"
	"givers/pkg/requestcontext"
)

// RecurringStore is the persistence port for recurring donations.
type RecurringStore interface {
	Create(ctx context.Context, r *models.RecurringDonation) error
	FindByID(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error)
	ListByDonor(ctx context.Context, donor models.Donor) ([]*models.RecurringDonation, error)
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error)
	ActiveByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error)
	ActiveAll(ctx context.Context) ([]*models.RecurringDonation, error)
	Execute(ctx context.Context, recurringID id.RecurringDonationID,
		validate func(*models.RecurringDonation) error,
		apply func(*models.RecurringDonation)) (*models.RecurringDonation, error)
	MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error)
}

// DonationStore is the persistence port for one-time donations.
type DonationStore interface {
	Create(ctx context.Context, d *models.Donation) error
	ListByDonor(ctx context.Context, donor models.Donor) ([]*models.Donation, error)
	ListByProject(ctx context.Context, projectID id.ProjectID, limit, offset int) ([]*models.Donation, error)
	MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error)
}

// AccountGate is the slice of the user vertical this service needs: the
// suspension gate, the single-shot migration flag, and the public display
// label for the activity feed.
type AccountGate interface {
	IsSuspended(ctx context.Context, userID id.UserID) (bool, error)
	PendingMigration(ctx context.Context, userID id.UserID) (bool, error)
	ClearPendingMigration(ctx context.Context, userID id.UserID) error
	DisplayName(ctx context.Context, userID id.UserID) (string, error)
}

// ProjectGate reports whether a project currently accepts donations.
type ProjectGate interface {
	IsDonatable(ctx context.Context, projectID id.ProjectID) (bool, error)
}

// Cache holds the eventually-consistent per-project monthly total and the
// session-scoped migration prompt dismissal. A nil Cache disables both.
type Cache interface {
	GetMonthlyTotal(ctx context.Context, projectID id.ProjectID) (id.Money, bool, error)
	SetMonthlyTotal(ctx context.Context, projectID id.ProjectID, total id.Money) error
	InvalidateMonthlyTotal(ctx context.Context, projectID id.ProjectID) error
	DismissMigrationPrompt(ctx context.Context, userID id.UserID, sessionID string) error
	MigrationPromptDismissed(ctx context.Context, userID id.UserID, sessionID string) (bool, error)
}

// CheckoutInput describes a payment the donor wants to initiate.
type CheckoutInput struct {
	ProjectID id.ProjectID
	Amount    id.Money
	Recurring bool
	Interval  models.Interval
	Message   string
}

// CheckoutClient initiates a payment with the external provider and returns
// the redirect URL. Payment capture itself happens outside this service; the
// confirmation path records the donation.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (string, error)
}

// MigrationResult reports the outcome of a token migration.
type MigrationResult struct {
	MigratedCount   int  `json:"migrated_count"`
	AlreadyMigrated bool `json:"already_migrated"`
}

// Service coordinates donation operations.
type Service struct {
	recurring RecurringStore
	donations DonationStore
	accounts  AccountGate
	projects  ProjectGate
	runner    tx.Runner

	cache           Cache
	checkout        CheckoutClient
	publisher       events.Publisher
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	logger          *slog.Logger
	normalizeYearly bool
}

// Option configures the Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics attaches module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache attaches the totals/dismissal cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithCheckout attaches the payment checkout client.
func WithCheckout(c CheckoutClient) Option {
	return func(s *Service) { s.checkout = c }
}

// WithPublisher attaches the activity event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithYearlyNormalization controls whether yearly recurring amounts count
// as amount/12 in the monthly aggregate. Defaults to on.
func WithYearlyNormalization(enabled bool) Option {
	return func(s *Service) { s.normalizeYearly = enabled }
}

// New constructs a donation Service.
func New(recurring RecurringStore, donations DonationStore, accounts AccountGate, projects ProjectGate, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		recurring:       recurring,
		donations:       donations,
		accounts:        accounts,
		projects:        projects,
		runner:          runner,
		publisher:       events.NopPublisher{},
		tracer:          otel.Tracer("givers/internal/donation"),
		logger:          slog.Default(),
		normalizeYearly: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// donorFromContext resolves the caller's donor identity: an authenticated
// account wins over an anonymous browser token.
func donorFromContext(ctx context.Context) (models.Donor, error) {
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return models.UserDonor(userID), nil
	}
	if token := requestcontext.DonorToken(ctx); token != "" {
		return models.TokenDonor(token), nil
	}
	return models.Donor{}, dErrors.New(dErrors.CodeUnauthorized, "no donor identity")
}

// gates applies the write gates: suspended accounts and non-donatable
// projects are both rejected before anything is written or charged.
func (s *Service) gates(ctx context.Context, donor models.Donor, projectID id.ProjectID) error {
	if donor.Type == models.DonorTypeUser {
		userID, err := id.ParseUserID(donor.Ref)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "malformed donor reference")
		}
		suspended, err := s.accounts.IsSuspended(ctx, userID)
		if err != nil {
			return err
		}
		if suspended {
			return dErrors.New(dErrors.CodeSuspendedAccount, "account is suspended")
		}
	}
	donatable, err := s.projects.IsDonatable(ctx, projectID)
	if err != nil {
		return err
	}
	if !donatable {
		return dErrors.New(dErrors.CodeProjectNotDonatable, "project does not accept donations")
	}
	return nil
}

// CreateCheckout validates the gates and asks the payment provider for a
// redirect URL. Nothing is recorded yet.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	if s.checkout == nil {
		return "", dErrors.New(dErrors.CodeInternal, "checkout is not configured")
	}
	if in.Amount <= 0 {
		return "", dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if in.Recurring {
		if _, err := models.ParseInterval(string(in.Interval)); err != nil {
			return "", err
		}
	}
	donor, err := donorFromContext(ctx)
	if err != nil {
		return "", err
	}
	if err := s.gates(ctx, donor, in.ProjectID); err != nil {
		return "", err
	}
	url, err := s.checkout.CreateCheckout(ctx, in)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create checkout")
	}
	return url, nil
}

// ConfirmDonation records a one-time donation after the payment succeeded.
func (s *Service) ConfirmDonation(ctx context.Context, projectID id.ProjectID, amount id.Money, message string) (*models.Donation, error) {
	donor, err := donorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.gates(ctx, donor, projectID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	d, err := models.NewDonation(id.DonationID(uuid.New()), projectID, donor, amount, message, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.donations.Create(ctx, d); err != nil {
		return nil, wrapDonationErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementDonationCreated("one_time")
	}
	s.publish(ctx, events.Activity{
		Kind:       events.KindDonationCreated,
		ProjectID:  projectID.String(),
		Donor:      s.donorLabel(ctx, donor),
		Amount:     int64(amount),
		Message:    message,
		OccurredAt: now,
	})
	s.logger.InfoContext(ctx, "donation recorded",
		slog.String("donation_id", d.ID.String()),
		slog.String("project_id", projectID.String()))
	return d, nil
}

// CreateRecurring starts a new Active recurring donation.
func (s *Service) CreateRecurring(ctx context.Context, projectID id.ProjectID, amount id.Money, interval models.Interval, message string) (*models.RecurringDonation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.CreateRecurring",
		trace.WithAttributes(attribute.String("project_id", projectID.String())))
	defer span.End()

	donor, err := donorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.gates(ctx, donor, projectID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	r, err := models.NewRecurringDonation(id.RecurringDonationID(uuid.New()), projectID, donor, amount, interval, message, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.recurring.Create(ctx, r); err != nil {
		return nil, wrapDonationErr(err)
	}

	s.invalidateTotal(ctx, projectID)
	if s.metrics != nil {
		s.metrics.IncrementDonationCreated("recurring")
	}
	s.publish(ctx, events.Activity{
		Kind:       events.KindRecurringCreated,
		ProjectID:  projectID.String(),
		Donor:      s.donorLabel(ctx, donor),
		Amount:     int64(amount),
		Interval:   string(interval),
		Message:    message,
		OccurredAt: now,
	})
	s.logger.InfoContext(ctx, "recurring donation created",
		slog.String("recurring_id", r.ID.String()),
		slog.String("project_id", projectID.String()))
	return r, nil
}

// Pause suspends billing. Pausing an already-paused donation succeeds without
// effect.
func (s *Service) Pause(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error) {
	return s.transition(ctx, recurringID, "pause", events.KindRecurringPaused,
		(*models.RecurringDonation).CanPause,
		(*models.RecurringDonation).ApplyPause)
}

// Resume reactivates billing. Resuming an Active donation succeeds without
// effect.
func (s *Service) Resume(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error) {
	return s.transition(ctx, recurringID, "resume", events.KindRecurringResumed,
		(*models.RecurringDonation).CanResume,
		(*models.RecurringDonation).ApplyResume)
}

// Cancel ends the donation permanently; it stays visible in history.
func (s *Service) Cancel(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error) {
	return s.transition(ctx, recurringID, "cancel", events.KindRecurringCancelled,
		(*models.RecurringDonation).CanCancel,
		(*models.RecurringDonation).ApplyCancel)
}

// Delete removes the donation from every listing and aggregate.
func (s *Service) Delete(ctx context.Context, recurringID id.RecurringDonationID) error {
	_, err := s.transition(ctx, recurringID, "delete", "",
		(*models.RecurringDonation).CanDelete,
		(*models.RecurringDonation).ApplyDelete)
	return err
}

func (s *Service) transition(ctx context.Context, recurringID id.RecurringDonationID, name, eventKind string,
	can func(*models.RecurringDonation) error,
	apply func(*models.RecurringDonation, time.Time),
) (*models.RecurringDonation, error) {
	ctx, span := s.tracer.Start(ctx, "donation."+name,
		trace.WithAttributes(attribute.String("recurring_id", recurringID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	r, err := s.recurring.Execute(ctx, recurringID,
		func(r *models.RecurringDonation) error {
			if err := s.requireDonor(ctx, r); err != nil {
				return err
			}
			return can(r)
		},
		func(r *models.RecurringDonation) { apply(r, now) },
	)
	if err != nil {
		return nil, wrapDonationErr(err)
	}

	s.invalidateTotal(ctx, r.ProjectID)
	if s.metrics != nil {
		s.metrics.IncrementTransition(name)
	}
	if eventKind != "" {
		s.publish(ctx, events.Activity{
			Kind:       eventKind,
			ProjectID:  r.ProjectID.String(),
			Donor:      s.donorLabel(ctx, r.Donor),
			Amount:     int64(r.Amount),
			Interval:   string(r.Interval),
			OccurredAt: now,
		})
	}
	s.logger.InfoContext(ctx, "recurring donation transition",
		slog.String("recurring_id", recurringID.String()),
		slog.String("transition", name),
		slog.String("status", string(r.Status)))
	return r, nil
}

// UpdateRecurring edits amount and/or interval in a single atomic write.
func (s *Service) UpdateRecurring(ctx context.Context, recurringID id.RecurringDonationID, amount *id.Money, interval *models.Interval) (*models.RecurringDonation, error) {
	if interval != nil {
		if _, err := models.ParseInterval(string(*interval)); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)
	r, err := s.recurring.Execute(ctx, recurringID,
		func(r *models.RecurringDonation) error {
			if err := s.requireDonor(ctx, r); err != nil {
				return err
			}
			return r.CanUpdate(amount, interval)
		},
		func(r *models.RecurringDonation) { r.ApplyUpdate(amount, interval, now) },
	)
	if err != nil {
		return nil, wrapDonationErr(err)
	}

	s.invalidateTotal(ctx, r.ProjectID)
	if s.metrics != nil {
		s.metrics.IncrementTransition("update")
	}
	return r, nil
}

// requireDonor checks that the caller owns the record. Hosts have no special
// power over other donors' subscriptions.
func (s *Service) requireDonor(ctx context.Context, r *models.RecurringDonation) error {
	donor, err := donorFromContext(ctx)
	if err != nil {
		return err
	}
	if r.Donor != donor {
		return dErrors.New(dErrors.CodeForbidden, "not the donor of this donation")
	}
	return nil
}

// ListMyDonations returns the caller's one-time donation history.
func (s *Service) ListMyDonations(ctx context.Context) ([]*models.Donation, error) {
	donor, err := donorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.donations.ListByDonor(ctx, donor)
	if err != nil {
		return nil, wrapDonationErr(err)
	}
	return list, nil
}

// ListMyRecurring returns the caller's recurring donations, cancelled
// included, deleted excluded.
func (s *Service) ListMyRecurring(ctx context.Context) ([]*models.RecurringDonation, error) {
	donor, err := donorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.recurring.ListByDonor(ctx, donor)
	if err != nil {
		return nil, wrapDonationErr(err)
	}
	return list, nil
}

// ListProjectDonations returns a project's one-time donations, newest first.
func (s *Service) ListProjectDonations(ctx context.Context, projectID id.ProjectID, limit, offset int) ([]*models.Donation, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	list, err := s.donations.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, wrapDonationErr(err)
	}
	return list, nil
}

// CurrentMonthlyTotal sums the Active recurring donations of a project,
// normalized to monthly. Served from cache when available; the cache is
// invalidated on every write, so staleness is bounded by the TTL.
func (s *Service) CurrentMonthlyTotal(ctx context.Context, projectID id.ProjectID) (id.Money, error) {
	start := time.Now()
	if s.cache != nil {
		total, ok, err := s.cache.GetMonthlyTotal(ctx, projectID)
		if err == nil && ok {
			if s.metrics != nil {
				s.metrics.TotalsCacheHits.Inc()
			}
			return total, nil
		}
	}
	if s.metrics != nil {
		s.metrics.TotalsCacheMisses.Inc()
	}

	active, err := s.recurring.ActiveByProject(ctx, projectID)
	if err != nil {
		return 0, wrapDonationErr(err)
	}
	var total id.Money
	for _, r := range active {
		total += r.MonthlyAmount(s.normalizeYearly)
	}

	if s.cache != nil {
		if err := s.cache.SetMonthlyTotal(ctx, projectID, total); err != nil {
			s.logger.WarnContext(ctx, "totals cache write failed", slog.Any("error", err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveMonthlyTotal(start)
	}
	return total, nil
}

// PlatformMonthlyTotal sums every Active recurring donation across all
// projects, normalized to monthly. Feeds the platform health figure.
func (s *Service) PlatformMonthlyTotal(ctx context.Context) (id.Money, error) {
	active, err := s.recurring.ActiveAll(ctx)
	if err != nil {
		return 0, wrapDonationErr(err)
	}
	var total id.Money
	for _, r := range active {
		total += r.MonthlyAmount(s.normalizeYearly)
	}
	return total, nil
}

// MigrateFromToken reassigns every donation and recurring donation attributed
// to the caller's anonymous token to their account, atomically. The pending
// flag set at registration is cleared by the first successful call; later
// calls still sweep up records the token accumulated since (donating while
// logged out), and report AlreadyMigrated only when there was nothing left to
// claim, so a double-click on the claim button is harmless.
func (s *Service) MigrateFromToken(ctx context.Context) (MigrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "donation.MigrateFromToken")
	defer span.End()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return MigrationResult{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	token := requestcontext.DonorToken(ctx)
	if token == "" {
		return MigrationResult{}, dErrors.New(dErrors.CodeValidation, "no donor token present")
	}

	pending, err := s.accounts.PendingMigration(ctx, userID)
	if err != nil {
		return MigrationResult{}, err
	}

	var migrated int
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.donations.MigrateToken(ctx, token, userID)
		if err != nil {
			return err
		}
		m, err := s.recurring.MigrateToken(ctx, token, userID)
		if err != nil {
			return err
		}
		migrated = n + m
		if pending {
			return s.accounts.ClearPendingMigration(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return MigrationResult{}, wrapDonationErr(err)
	}
	if !pending && migrated == 0 {
		return MigrationResult{AlreadyMigrated: true}, nil
	}

	if s.metrics != nil {
		s.metrics.RecordMigration(migrated)
	}
	s.logger.InfoContext(ctx, "donor token migrated",
		slog.String("user_id", userID.String()),
		slog.Int("records", migrated))
	return MigrationResult{MigratedCount: migrated}, nil
}

// DismissMigrationPrompt hides the migration prompt for the current browser
// session only. The pending flag stays set, so the prompt returns next
// session.
func (s *Service) DismissMigrationPrompt(ctx context.Context) error {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "no session identifier")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DismissMigrationPrompt(ctx, userID, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record dismissal")
	}
	return nil
}

// MigrationPromptVisible reports whether the client should show the
// claim-your-donations prompt: a pending migration not dismissed in this
// session.
func (s *Service) MigrationPromptVisible(ctx context.Context, userID id.UserID) (bool, error) {
	pending, err := s.accounts.PendingMigration(ctx, userID)
	if err != nil {
		return false, err
	}
	if !pending {
		return false, nil
	}
	sessionID := requestcontext.SessionID(ctx)
	if s.cache == nil || sessionID == "" {
		return true, nil
	}
	dismissed, err := s.cache.MigrationPromptDismissed(ctx, userID, sessionID)
	if err != nil {
		return true, nil
	}
	return !dismissed, nil
}

// donorLabel resolves the feed display label: the account's display name for
// user donors, the anonymous label for token donors. Label failures fall back
// to anonymous rather than blocking the event.
func (s *Service) donorLabel(ctx context.Context, donor models.Donor) string {
	const anonymous = "Anonymous"
	if donor.Type != models.DonorTypeUser {
		return anonymous
	}
	userID, err := id.ParseUserID(donor.Ref)
	if err != nil {
		return anonymous
	}
	name, err := s.accounts.DisplayName(ctx, userID)
	if err != nil {
		return anonymous
	}
	return name
}

func (s *Service) invalidateTotal(ctx context.Context, projectID id.ProjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMonthlyTotal(ctx, projectID); err != nil {
		s.logger.WarnContext(ctx, "totals cache invalidation failed",
			slog.String("project_id", projectID.String()),
			slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, ev events.Activity) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "activity publish failed",
			slog.String("kind", ev.Kind),
			slog.Any("error", err))
	}
}

func wrapDonationErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "donation already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "donation store failure")
	}
}
