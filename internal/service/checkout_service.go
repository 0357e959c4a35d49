package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/calendar"
	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type checkoutSessionStore interface {
	Save(ctx context.Context, session *models.CheckoutSession) error
	Find(ctx context.Context, id string) (*models.CheckoutSession, error)
	CompareAndSwapState(ctx context.Context, id string, from, to models.CheckoutState) (bool, error)
	Delete(ctx context.Context, id string) error
}

type checkoutReservationRepository interface {
	ListIntervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error)
	CreateBatch(ctx context.Context, reservations []*models.Reservation) error
}

type checkoutTransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
}

type availabilityInvalidator interface {
	Invalidate(ctx context.Context, listingID string)
}

type receiptEnqueuer interface {
	EnqueueForTransaction(ctx context.Context, txn *models.Transaction, listing *models.ListingDetail, buyer *models.User, segments []calendar.Segment) error
}

type checkoutUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type checkoutMetrics interface {
	RecordCheckout(outcome string)
}

// CheckoutService drives a reservation purchase from slot selection through
// payment to committed reservation rows. Each session is a small state
// machine persisted in Redis; only one confirm may be in flight at a time.
type CheckoutService struct {
	sessions      checkoutSessionStore
	listings      availabilityListingRepository
	reservations  checkoutReservationRepository
	transactions  checkoutTransactionRepository
	users         checkoutUserRepository
	gateway       PaymentGateway
	invalidator   availabilityInvalidator
	receipts      receiptEnqueuer
	metrics       checkoutMetrics
	validator     *validator.Validate
	logger        *zap.Logger
	submitTimeout time.Duration
	now           func() time.Time
}

// CheckoutDeps bundles the collaborators of a CheckoutService.
type CheckoutDeps struct {
	Sessions     checkoutSessionStore
	Listings     availabilityListingRepository
	Reservations checkoutReservationRepository
	Transactions checkoutTransactionRepository
	Users        checkoutUserRepository
	Gateway      PaymentGateway
	Invalidator  availabilityInvalidator
	Receipts     receiptEnqueuer
	Metrics      checkoutMetrics
}

// NewCheckoutService constructs a CheckoutService instance.
func NewCheckoutService(deps CheckoutDeps, validate *validator.Validate, logger *zap.Logger, submitTimeout time.Duration) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Second
	}
	return &CheckoutService{
		sessions:      deps.Sessions,
		listings:      deps.Listings,
		reservations:  deps.Reservations,
		transactions:  deps.Transactions,
		users:         deps.Users,
		gateway:       deps.Gateway,
		invalidator:   deps.Invalidator,
		receipts:      deps.Receipts,
		metrics:       deps.Metrics,
		validator:     validate,
		logger:        logger,
		submitTimeout: submitTimeout,
		now:           time.Now,
	}
}

// Start validates the slot selection, prices it and opens a payment intent.
// The returned session is in the pending_payment state.
func (s *CheckoutService) Start(ctx context.Context, userID string, req models.StartCheckoutRequest) (*models.CheckoutResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	listing, err := s.loadListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}
	if err := s.validateSlots(ctx, listing, slots); err != nil {
		return nil, err
	}

	amount := int64(len(slots)) * listing.PricePerHour

	intent, err := s.gateway.CreateIntent(ctx, amount, listing.Currency, map[string]string{
		"listing_id": listing.ID,
		"user_id":    userID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentFailed.Code, appErrors.ErrPaymentFailed.Status, fmt.Sprintf("payment intent failed: %v", err))
	}

	now := s.now().UTC()
	session := &models.CheckoutSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		ListingID:       listing.ID,
		Slots:           req.Slots,
		AmountMinor:     amount,
		Currency:        listing.Currency,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		State:           models.CheckoutStatePendingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist checkout session")
	}

	return &models.CheckoutResult{Session: *session}, nil
}

// Confirm verifies the payment and commits the reservations. A session in
// the submitting state rejects concurrent confirms instead of queueing them;
// a failed confirm keeps the slot selection so the user can retry.
func (s *CheckoutService) Confirm(ctx context.Context, userID, sessionID string) (*models.CheckoutResult, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.enterSubmitting(ctx, session); err != nil {
		return nil, err
	}
	session.State = models.CheckoutStateSubmitting

	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	result, err := s.submit(submitCtx, session)
	if err != nil {
		s.recordOutcome("failed")
		s.failSession(ctx, session, err)
		return nil, err
	}

	s.recordOutcome("succeeded")
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to drop completed checkout session", zap.Error(err), zap.String("session_id", session.ID))
	}
	return result, nil
}

// Cancel abandons a session and returns the user to slot selection.
func (s *CheckoutService) Cancel(ctx context.Context, userID, sessionID string) error {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.State == models.CheckoutStateSubmitting {
		return appErrors.Clone(appErrors.ErrSubmitInFlight, "cannot cancel while submission is in progress")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel checkout session")
	}
	return nil
}

// Get returns the current session state.
func (s *CheckoutService) Get(ctx context.Context, userID, sessionID string) (*models.CheckoutSession, error) {
	return s.loadSession(ctx, userID, sessionID)
}

func (s *CheckoutService) submit(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutResult, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, session.PaymentIntentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentFailed.Code, appErrors.ErrPaymentFailed.Status, fmt.Sprintf("payment verification failed: %v", err))
	}
	if !intent.Succeeded {
		return nil, appErrors.Clone(appErrors.ErrPaymentFailed, fmt.Sprintf("payment not completed: status %s", intent.Status))
	}

	listing, err := s.loadListing(ctx, session.ListingID)
	if err != nil {
		return nil, err
	}

	slots, err := parseSlots(session.Slots)
	if err != nil {
		return nil, err
	}
	if err := s.validateSlots(ctx, listing, slots); err != nil {
		return nil, err
	}

	paidAt := s.now().UTC()
	txn := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          session.UserID,
		ListingID:       session.ListingID,
		PaymentIntentID: intent.ID,
		AmountMinor:     session.AmountMinor,
		Currency:        session.Currency,
		Paid:            true,
		PaidAt:          &paidAt,
	}

	segments := calendar.Compact(slots)
	reservations := make([]*models.Reservation, len(segments))
	for i, segment := range segments {
		reservations[i] = &models.Reservation{
			ListingID:     session.ListingID,
			UserID:        session.UserID,
			StartTime:     segment.Start,
			EndTime:       segment.End,
			AmountMinor:   int64(segment.Hours()) * listing.PricePerHour,
			Currency:      session.Currency,
			TransactionID: &txn.ID,
		}
	}
	// reservations first: a slot conflict here must leave no payment record
	// behind, and a retried confirm must not duplicate the transaction
	if err := s.reservations.CreateBatch(ctx, reservations); err != nil {
		return nil, err
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record transaction")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, session.ListingID)
	}
	s.enqueueReceipt(ctx, txn, listing, session.UserID, segments)
	s.audit(ctx, session)

	committed := make([]models.Reservation, len(reservations))
	for i, r := range reservations {
		committed[i] = *r
	}
	session.State = models.CheckoutStateSucceeded
	session.UpdatedAt = s.now().UTC()
	return &models.CheckoutResult{Session: *session, Reservations: committed}, nil
}

// enterSubmitting moves the session into the submitting state, accepting it
// from either pending_payment or a previous failure.
func (s *CheckoutService) enterSubmitting(ctx context.Context, session *models.CheckoutSession) error {
	for _, from := range []models.CheckoutState{models.CheckoutStatePendingPayment, models.CheckoutStateFailed} {
		swapped, err := s.sessions.CompareAndSwapState(ctx, session.ID, from, models.CheckoutStateSubmitting)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update checkout session")
		}
		if swapped {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrSubmitInFlight, "a submission is already in progress for this session")
}

// failSession records the failure but keeps the slot selection intact.
func (s *CheckoutService) failSession(ctx context.Context, session *models.CheckoutSession, cause error) {
	message := cause.Error()
	session.State = models.CheckoutStateFailed
	session.LastError = &message
	session.UpdatedAt = s.now().UTC()

	// the submit context may already be expired or cancelled; the state
	// transition must still land or the session stays stuck in submitting
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to persist failed checkout session", zap.Error(err), zap.String("session_id", session.ID))
	}
}

func (s *CheckoutService) loadSession(ctx context.Context, userID, sessionID string) (*models.CheckoutSession, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checkout session not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checkout session")
	}
	if session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "checkout session belongs to another user")
	}
	return session, nil
}

func (s *CheckoutService) loadListing(ctx context.Context, id string) (*models.ListingDetail, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if !listing.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	return listing, nil
}

// validateSlots enforces the engine's invariants server side: slots must be
// in the future, form one continuous run and not overlap committed rows.
func (s *CheckoutService) validateSlots(ctx context.Context, listing *models.ListingDetail, slots []calendar.Slot) error {
	now := s.now()
	for _, slot := range slots {
		if slot.Past(now) {
			return appErrors.Clone(appErrors.ErrValidation, "selection contains a past time slot")
		}
	}
	if !calendar.Continuous(slots) {
		return appErrors.ErrSelectionGap
	}

	segments := calendar.Compact(slots)
	from := segments[0].Start
	to := segments[len(segments)-1].End
	rows, err := s.reservations.ListIntervals(ctx, listing.ID, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}
	reserved := toIntervals(rows)
	for _, slot := range slots {
		if slot.Reserved(reserved) {
			return appErrors.Clone(appErrors.ErrSlotUnavailable, "a selected slot is already reserved")
		}
	}
	return nil
}

func (s *CheckoutService) enqueueReceipt(ctx context.Context, txn *models.Transaction, listing *models.ListingDetail, userID string, segments []calendar.Segment) {
	if s.receipts == nil {
		return
	}
	buyer, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load buyer for receipt", zap.Error(err), zap.String("user_id", userID))
		return
	}
	if err := s.receipts.EnqueueForTransaction(ctx, txn, listing, buyer, segments); err != nil {
		s.logger.Warn("failed to enqueue receipt job", zap.Error(err), zap.String("transaction_id", txn.ID))
	}
}

func (s *CheckoutService) audit(ctx context.Context, session *models.CheckoutSession) {
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &session.UserID,
		Action:     models.AuditActionCheckoutSubmit,
		Resource:   "checkout",
		ResourceID: &session.ID,
		NewValues:  []byte(fmt.Sprintf(`{"amount_minor":%d,"listing_id":%q}`, session.AmountMinor, session.ListingID)),
	}); err != nil {
		s.logger.Warn("failed to record checkout audit log", zap.Error(err))
	}
}

func (s *CheckoutService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCheckout(outcome)
	}
}

// parseSlots converts wire slot references into engine slots.
func parseSlots(refs []models.SlotRef) ([]calendar.Slot, error) {
	slots := make([]calendar.Slot, len(refs))
	seen := make(map[models.SlotRef]struct{}, len(refs))
	for i, ref := range refs {
		if _, dup := seen[ref]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate slot in selection")
		}
		seen[ref] = struct{}{}
		day, err := time.ParseInLocation("2006-01-02", ref.Day, time.UTC)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid slot day %q", ref.Day))
		}
		if ref.Hour < 0 || ref.Hour >= calendar.HoursPerDay {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid slot hour %d", ref.Hour))
		}
		slots[i] = calendar.NewSlot(day, ref.Hour)
	}
	return slots, nil
}
