package transfer

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/services/ledger"
	"paycore/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FailureCodeRejected marks an external transfer refused by review.
const FailureCodeRejected = "REVIEW_REJECTED"

// service implements the transfer Service interface.
type service struct {
	store         ledger.Store
	transfers     repositories.TransferRepository
	limits        LimitPolicy
	gate          VerificationGate
	beneficiaries BeneficiaryResolver
	events        EventEmitter
	now           func() time.Time
	log           zerolog.Logger
}

// NewService creates the transfer engine. events may be nil.
func NewService(
	store ledger.Store,
	transfers repositories.TransferRepository,
	limits LimitPolicy,
	gate VerificationGate,
	beneficiaries BeneficiaryResolver,
	events EventEmitter,
	config Config,
	log zerolog.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if transfers == nil {
		panic("transfers is required")
	}
	if limits == nil {
		panic("limits is required")
	}
	if gate == nil {
		panic("gate is required")
	}
	if beneficiaries == nil {
		panic("beneficiaries is required")
	}
	if events == nil {
		events = noopEmitter{}
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		store:         store,
		transfers:     transfers,
		limits:        limits,
		gate:          gate,
		beneficiaries: beneficiaries,
		events:        events,
		now:           config.Now,
		log:           log.With().Str("component", "transfer").Logger(),
	}
}

// draft is a transfer on its way to the store. persist either inserts it
// or moves an existing pending row forward. Activations of scheduled
// transfers record limit breaches as failures; new requests do not.
type draft struct {
	t           *models.Transfer
	explicitRef bool
	activation  bool
	event       string
	persist     func(ctx context.Context, t *models.Transfer) error
}

func (s *service) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*models.Transfer, error) {
	normalize(&req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.gate.Require(ctx, req.InitiatedBy); err != nil {
		return nil, err
	}

	if req.Reference != "" {
		existing, err := s.replay(ctx, req.InitiatedBy, req.FromAccountID, req.Reference)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	now := s.now()
	if err := s.checkLimits(ctx, req.Type, req.FromAccountID, req.Currency, req.Amount, req.ScheduledAt, now); err != nil {
		return nil, err
	}

	d := &draft{
		t: &models.Transfer{
			ID:            uuid.NewString(),
			Type:          req.Type,
			Status:        models.TransferStatusPending,
			AdminStatus:   models.AdminStatusNone,
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			BeneficiaryID: req.BeneficiaryID,
			Amount:        req.Amount,
			Currency:      req.Currency,
			Description:   req.Description,
			Reference:     req.Reference,
			InitiatedBy:   req.InitiatedBy,
			ScheduledAt:   req.ScheduledAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		explicitRef: req.Reference != "",
		event:       models.EventTransferCreated,
		persist:     s.transfers.Create,
	}
	if d.t.Reference == "" {
		d.t.Reference = uuid.NewString()
	}

	src, err := s.store.GetBalance(ctx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	if src.OwnerID != req.InitiatedBy {
		return nil, apperrors.ErrNotFound.WithDetail("account %s", req.FromAccountID)
	}
	if src.Currency != req.Currency {
		return nil, apperrors.ErrInvalidRequest.WithDetail("currency %s does not match account currency %s", req.Currency, src.Currency)
	}
	if src.Status != models.AccountStatusActive {
		return s.fail(ctx, d, apperrors.ErrAccountBlocked.WithDetail("account %s is %s", req.FromAccountID, src.Status))
	}
	// Scheduled transfers are funded when they run.
	if req.Type != models.TransferTypeScheduled && src.Amount.LessThan(req.Amount) {
		return s.fail(ctx, d, apperrors.ErrInsufficientFunds.WithDetail(
			"account %s has %s %s, needs %s", req.FromAccountID, src.Amount.StringFixed(2), src.Currency, req.Amount.StringFixed(2)))
	}

	var payee *models.Beneficiary
	if req.ToAccountID != "" {
		if err := s.checkDestination(ctx, req.FromAccountID, req.ToAccountID, req.Currency); err != nil {
			return nil, err
		}
	} else {
		payee, err = s.beneficiaries.Resolve(ctx, req.InitiatedBy, req.BeneficiaryID, req.Beneficiary)
		if err != nil {
			return nil, err
		}
	}

	if req.Type == models.TransferTypeScheduled {
		if req.ScheduledAt == nil || !req.ScheduledAt.After(now) {
			return nil, apperrors.ErrInvalidSchedule.WithDetail("scheduled_at must be in the future")
		}
	} else if req.ScheduledAt != nil {
		return nil, apperrors.ErrInvalidSchedule.WithDetail("only scheduled transfers take scheduled_at")
	}

	switch {
	case req.Type == models.TransferTypeScheduled:
		return s.schedule(ctx, d, payee)
	case payee != nil:
		return s.settleExternal(ctx, d, payee)
	default:
		return s.settleInternal(ctx, d)
	}
}

// settleInternal moves money between two ledger accounts under both locks.
func (s *service) settleInternal(ctx context.Context, d *draft) (*models.Transfer, error) {
	t := d.t
	h, err := s.store.LockPair(ctx, t.FromAccountID, t.ToAccountID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(h)

	if d.explicitRef {
		existing, err := s.replay(ctx, t.InitiatedBy, t.FromAccountID, t.Reference)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	now := s.now()
	if err := s.limits.CheckLimits(ctx, t.FromAccountID, t.Currency, t.Amount, now); err != nil {
		return s.rejectOverLimit(ctx, d, err)
	}

	if _, err := s.store.ApplyDelta(ctx, h, t.FromAccountID, t.Amount.Neg()); err != nil {
		return s.failOrAbort(ctx, d, err)
	}
	if _, err := s.store.ApplyDelta(ctx, h, t.ToAccountID, t.Amount); err != nil {
		if cerr := s.compensate(ctx, h, t, t.FromAccountID, t.Amount); cerr != nil {
			return nil, cerr
		}
		return s.failOrAbort(ctx, d, err)
	}

	if err := transition(t, models.TransferStatusCompleted); err != nil {
		return nil, err
	}
	t.SettledAt = &now
	t.ResolvedAt = &now
	t.UpdatedAt = now

	if err := d.persist(ctx, t); err != nil {
		if cerr := s.compensate(ctx, h, t, t.ToAccountID, t.Amount.Neg()); cerr != nil {
			return nil, cerr
		}
		if cerr := s.compensate(ctx, h, t, t.FromAccountID, t.Amount); cerr != nil {
			return nil, cerr
		}
		return s.persistFailure(ctx, t, err)
	}

	s.log.Info().
		Str("transfer_id", t.ID).
		Str("from", t.FromAccountID).
		Str("to", t.ToAccountID).
		Str("amount", t.Amount.StringFixed(2)).
		Msg("internal transfer completed")
	s.emit(ctx, d.event, t)
	return t, nil
}

// settleExternal debits the source and parks the transfer for review.
func (s *service) settleExternal(ctx context.Context, d *draft, payee *models.Beneficiary) (*models.Transfer, error) {
	t := d.t
	h, err := s.store.Lock(ctx, t.FromAccountID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(h)

	if d.explicitRef {
		existing, err := s.replay(ctx, t.InitiatedBy, t.FromAccountID, t.Reference)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	now := s.now()
	if err := s.limits.CheckLimits(ctx, t.FromAccountID, t.Currency, t.Amount, now); err != nil {
		return s.rejectOverLimit(ctx, d, err)
	}

	if payee.ID == "" {
		if err := s.beneficiaries.Save(ctx, payee); err != nil {
			return nil, err
		}
	}
	t.BeneficiaryID = payee.ID

	if _, err := s.store.ApplyDelta(ctx, h, t.FromAccountID, t.Amount.Neg()); err != nil {
		return s.failOrAbort(ctx, d, err)
	}

	if err := transition(t, models.TransferStatusProcessing); err != nil {
		return nil, err
	}
	if err := transitionAdmin(t, models.AdminStatusPendingReview); err != nil {
		return nil, err
	}
	t.SettledAt = &now
	t.UpdatedAt = now

	if err := d.persist(ctx, t); err != nil {
		if cerr := s.compensate(ctx, h, t, t.FromAccountID, t.Amount); cerr != nil {
			return nil, cerr
		}
		return s.persistFailure(ctx, t, err)
	}

	s.log.Info().
		Str("transfer_id", t.ID).
		Str("from", t.FromAccountID).
		Str("beneficiary_id", t.BeneficiaryID).
		Str("amount", t.Amount.StringFixed(2)).
		Msg("external transfer awaiting review")
	s.emit(ctx, d.event, t)
	return t, nil
}

// schedule stores a pending transfer without touching balances. The source
// lock serializes reservations of limit headroom.
func (s *service) schedule(ctx context.Context, d *draft, payee *models.Beneficiary) (*models.Transfer, error) {
	t := d.t
	h, err := s.store.Lock(ctx, t.FromAccountID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(h)

	if d.explicitRef {
		existing, err := s.replay(ctx, t.InitiatedBy, t.FromAccountID, t.Reference)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	if err := s.limits.CheckScheduled(ctx, t.FromAccountID, t.Currency, t.Amount, *t.ScheduledAt); err != nil {
		return nil, err
	}

	if payee != nil {
		if payee.ID == "" {
			if err := s.beneficiaries.Save(ctx, payee); err != nil {
				return nil, err
			}
		}
		t.BeneficiaryID = payee.ID
	}

	if err := d.persist(ctx, t); err != nil {
		return s.persistFailure(ctx, t, err)
	}

	s.log.Info().
		Str("transfer_id", t.ID).
		Time("scheduled_at", *t.ScheduledAt).
		Msg("transfer scheduled")
	s.emit(ctx, d.event, t)
	return t, nil
}

func (s *service) ExecuteScheduled(ctx context.Context, transferID string) (*models.Transfer, error) {
	th, err := s.store.LockKey(ctx, transferLockPrefix+transferID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(th)

	t, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Type != models.TransferTypeScheduled {
		return nil, apperrors.ErrInvalidState.WithDetail("transfer %s is not scheduled", transferID)
	}
	if t.Status != models.TransferStatusPending {
		return t, nil
	}
	if t.ScheduledAt != nil && t.ScheduledAt.After(s.now()) {
		return nil, apperrors.ErrInvalidSchedule.WithDetail("transfer %s is not due until %s", transferID, t.ScheduledAt.Format(time.RFC3339))
	}

	d := &draft{
		t:          t,
		activation: true,
		event:      models.EventTransferResolved,
		persist:    s.activate,
	}

	src, err := s.store.GetBalance(ctx, t.FromAccountID)
	if err != nil {
		return s.failOrAbort(ctx, d, err)
	}
	if src.Status != models.AccountStatusActive {
		return s.fail(ctx, d, apperrors.ErrAccountBlocked.WithDetail("account %s is %s", t.FromAccountID, src.Status))
	}
	if src.Currency != t.Currency {
		return s.fail(ctx, d, apperrors.ErrInvalidRequest.WithDetail("currency %s does not match account currency %s", t.Currency, src.Currency))
	}
	if src.Amount.LessThan(t.Amount) {
		return s.fail(ctx, d, apperrors.ErrInsufficientFunds.WithDetail(
			"account %s has %s %s, needs %s", t.FromAccountID, src.Amount.StringFixed(2), src.Currency, t.Amount.StringFixed(2)))
	}

	if t.ToAccountID != "" {
		if err := s.checkDestination(ctx, t.FromAccountID, t.ToAccountID, t.Currency); err != nil {
			return s.failOrAbort(ctx, d, err)
		}
		return s.settleInternal(ctx, d)
	}

	payee, err := s.beneficiaries.Resolve(ctx, src.OwnerID, t.BeneficiaryID, nil)
	if err != nil {
		return s.failOrAbort(ctx, d, err)
	}
	return s.settleExternal(ctx, d, payee)
}

func (s *service) CancelTransfer(ctx context.Context, transferID string, actor Actor) (*models.Transfer, error) {
	th, err := s.store.LockKey(ctx, transferLockPrefix+transferID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(th)

	t, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin {
		if err := s.authorize(ctx, t, actor.UserID, true); err != nil {
			return nil, err
		}
	}

	if err := transition(t, models.TransferStatusCancelled); err != nil {
		return nil, err
	}
	now := s.now()
	t.ResolvedAt = &now
	t.UpdatedAt = now

	if err := s.activate(ctx, t); err != nil {
		return s.persistFailure(ctx, t, err)
	}

	s.log.Info().Str("transfer_id", t.ID).Str("by", actor.UserID).Msg("transfer cancelled")
	s.emit(ctx, models.EventTransferResolved, t)
	return t, nil
}

func (s *service) ResolveExternalTransfer(ctx context.Context, transferID string, req ResolveRequest) (*models.Transfer, error) {
	if req.Decision != DecisionApproved && req.Decision != DecisionRejected {
		return nil, apperrors.ErrInvalidRequest.WithDetail("decision must be %q or %q", DecisionApproved, DecisionRejected)
	}
	if req.ReviewerID == "" {
		return nil, apperrors.ErrInvalidRequest.WithDetail("reviewer is required")
	}

	th, err := s.store.LockKey(ctx, transferLockPrefix+transferID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(th)

	t, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !t.SettlesExternally() || t.Status != models.TransferStatusProcessing {
		return nil, apperrors.ErrInvalidState.WithDetail("transfer %s is %s, not an external transfer under review", t.ID, t.Status)
	}

	now := s.now()
	t.ReviewedBy = req.ReviewerID
	t.ReviewNote = strings.TrimSpace(req.Note)
	t.ResolvedAt = &now
	t.UpdatedAt = now

	if req.Decision == DecisionApproved {
		if err := transitionAdmin(t, models.AdminStatusApproved); err != nil {
			return nil, err
		}
		if err := transition(t, models.TransferStatusCompleted); err != nil {
			return nil, err
		}
		if err := s.transfers.UpdateFrom(ctx, t, models.TransferStatusProcessing); err != nil {
			return s.persistFailure(ctx, t, err)
		}
	} else {
		if err := transitionAdmin(t, models.AdminStatusRejected); err != nil {
			return nil, err
		}
		if err := transition(t, models.TransferStatusFailed); err != nil {
			return nil, err
		}
		t.FailureCode = FailureCodeRejected
		t.FailureReason = t.ReviewNote
		if t.FailureReason == "" {
			t.FailureReason = "rejected by review"
		}
		if err := s.reverse(ctx, t); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("transfer_id", t.ID).
		Str("decision", req.Decision).
		Str("reviewer", req.ReviewerID).
		Msg("external transfer resolved")
	s.emit(ctx, models.EventTransferResolved, t)
	return t, nil
}

// reverse credits the debit of a rejected transfer back and stores the
// failed transfer. The credit is undone if the store refuses the update.
func (s *service) reverse(ctx context.Context, t *models.Transfer) error {
	h, err := s.store.Lock(ctx, t.FromAccountID)
	if err != nil {
		return err
	}
	defer s.store.Release(h)

	if _, err := s.store.ApplyDelta(ctx, h, t.FromAccountID, t.Amount); err != nil {
		return err
	}
	if err := s.transfers.UpdateFrom(ctx, t, models.TransferStatusProcessing); err != nil {
		if cerr := s.compensate(ctx, h, t, t.FromAccountID, t.Amount.Neg()); cerr != nil {
			return cerr
		}
		_, err = s.persistFailure(ctx, t, err)
		return err
	}
	return nil
}

func (s *service) GetTransfer(ctx context.Context, transferID string, actor Actor) (*models.Transfer, error) {
	t, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin {
		if err := s.authorize(ctx, t, actor.UserID, false); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *service) ListTransfers(ctx context.Context, filter TransferFilter) (*TransferPage, error) {
	repoFilter := repositories.TransferFilter{
		Type:        filter.Type,
		Status:      filter.Status,
		AdminStatus: filter.AdminStatus,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}

	if filter.OwnerID != "" {
		if err := s.gate.Require(ctx, filter.OwnerID); err != nil {
			return nil, err
		}
		accounts, err := s.store.ListAccounts(ctx, filter.OwnerID)
		if err != nil {
			return nil, err
		}
		for _, acc := range accounts {
			if filter.AccountID == "" || acc.ID == filter.AccountID {
				repoFilter.AccountIDs = append(repoFilter.AccountIDs, acc.ID)
			}
		}
		if filter.AccountID != "" && len(repoFilter.AccountIDs) == 0 {
			return nil, apperrors.ErrNotFound.WithDetail("account %s", filter.AccountID)
		}
		if len(repoFilter.AccountIDs) == 0 {
			return &TransferPage{Transfers: []*models.Transfer{}}, nil
		}
	} else if filter.AccountID != "" {
		repoFilter.AccountIDs = []string{filter.AccountID}
	}

	transfers, total, err := s.transfers.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &TransferPage{Transfers: transfers, Total: total}, nil
}

// replay returns the stored transfer for (account, reference), or nil when
// the reference is unused. A reference on an account the caller does not
// own reads as a missing account.
func (s *service) replay(ctx context.Context, callerID, accountID, reference string) (*models.Transfer, error) {
	existing, err := s.transfers.GetByReference(ctx, accountID, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransferNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal(err)
	}
	if existing.InitiatedBy != callerID {
		return nil, apperrors.ErrNotFound.WithDetail("account %s", accountID)
	}
	s.log.Debug().Str("transfer_id", existing.ID).Str("reference", reference).Msg("replayed transfer")
	return existing, nil
}

func (s *service) checkDestination(ctx context.Context, from, to, currency string) error {
	if from == to {
		return apperrors.ErrInvalidDestination.WithDetail("destination equals source account")
	}
	dst, err := s.store.GetBalance(ctx, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidDestination.WithDetail("account %s does not exist", to)
		}
		return err
	}
	if dst.Currency != currency {
		return apperrors.ErrInvalidDestination.WithDetail("account %s holds %s, not %s", to, dst.Currency, currency)
	}
	return nil
}

// authorize hides transfers from users who own neither side.
func (s *service) authorize(ctx context.Context, t *models.Transfer, userID string, sourceOnly bool) error {
	ids := []string{t.FromAccountID}
	if !sourceOnly && t.ToAccountID != "" {
		ids = append(ids, t.ToAccountID)
	}
	for _, id := range ids {
		bal, err := s.store.GetBalance(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return err
		}
		if bal.OwnerID == userID {
			return nil
		}
	}
	return apperrors.ErrNotFound.WithDetail("transfer %s", t.ID)
}

// checkLimits is the early limit check on a new request. Scheduled
// transfers are checked against the windows they fall due in.
func (s *service) checkLimits(ctx context.Context, typ models.TransferType, accountID, currency string, amount decimal.Decimal, scheduledAt *time.Time, now time.Time) error {
	if typ == models.TransferTypeScheduled && scheduledAt != nil && scheduledAt.After(now) {
		return s.limits.CheckScheduled(ctx, accountID, currency, amount, *scheduledAt)
	}
	return s.limits.CheckLimits(ctx, accountID, currency, amount, now)
}

// rejectOverLimit handles a limit breach found under the source lock. A
// new request leaves nothing behind; a scheduled activation fails.
func (s *service) rejectOverLimit(ctx context.Context, d *draft, cause error) (*models.Transfer, error) {
	if d.activation {
		return s.failOrAbort(ctx, d, cause)
	}
	return nil, cause
}

// failOrAbort stores a failed transfer for domain errors. Lock timeouts
// and infrastructure errors leave nothing behind so the caller can retry.
func (s *service) failOrAbort(ctx context.Context, d *draft, cause error) (*models.Transfer, error) {
	switch apperrors.CodeOf(cause) {
	case apperrors.CodeInternal, apperrors.CodeLockTimeout:
		return nil, cause
	}
	return s.fail(ctx, d, cause)
}

// fail stores d as failed and returns it together with cause.
func (s *service) fail(ctx context.Context, d *draft, cause error) (*models.Transfer, error) {
	t := d.t
	if err := transition(t, models.TransferStatusFailed); err != nil {
		return nil, err
	}
	now := s.now()
	t.FailureCode = apperrors.CodeOf(cause)
	t.FailureReason = cause.Error()
	t.ResolvedAt = &now
	t.UpdatedAt = now

	if err := d.persist(ctx, t); err != nil {
		return s.persistFailure(ctx, t, err)
	}

	s.log.Warn().
		Str("transfer_id", t.ID).
		Str("code", t.FailureCode).
		Str("reason", t.FailureReason).
		Msg("transfer failed")
	s.emit(ctx, d.event, t)
	return t, cause
}

// persistFailure turns a store error into the caller's result. A reference
// taken by a concurrent request replays that request's transfer.
func (s *service) persistFailure(ctx context.Context, t *models.Transfer, err error) (*models.Transfer, error) {
	switch {
	case errors.Is(err, repositories.ErrDuplicateReference):
		existing, gerr := s.transfers.GetByReference(ctx, t.FromAccountID, t.Reference)
		if gerr != nil {
			return nil, apperrors.Internal(gerr)
		}
		return existing, nil
	case errors.Is(err, repositories.ErrStaleTransfer):
		return nil, apperrors.ErrInvalidState.WithDetail("transfer %s changed concurrently", t.ID)
	case errors.Is(err, repositories.ErrTransferNotFound):
		return nil, apperrors.ErrNotFound.WithDetail("transfer %s", t.ID)
	}
	s.log.Error().Err(err).Str("transfer_id", t.ID).Msg("failed to persist transfer")
	return nil, apperrors.Internal(err)
}

// compensate undoes a balance change made earlier under the same handle.
func (s *service) compensate(ctx context.Context, h *ledger.LockHandle, t *models.Transfer, accountID string, delta decimal.Decimal) error {
	if _, err := s.store.ApplyDelta(ctx, h, accountID, delta); err != nil {
		s.log.Error().
			Err(err).
			Str("transfer_id", t.ID).
			Str("account_id", accountID).
			Str("delta", delta.StringFixed(2)).
			Msg("compensation failed, balance needs manual repair")
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) activate(ctx context.Context, t *models.Transfer) error {
	return s.transfers.UpdateFrom(ctx, t, models.TransferStatusPending)
}

func (s *service) getTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransferNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("transfer %s", id)
		}
		return nil, apperrors.Internal(err)
	}
	return t, nil
}

func (s *service) emit(ctx context.Context, eventType string, t *models.Transfer) {
	s.events.Emit(ctx, models.NewTransferEvent(eventType, t, s.now()))
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, models.TransferEvent) {}

func normalize(req *CreateTransferRequest) {
	req.FromAccountID = strings.TrimSpace(req.FromAccountID)
	req.ToAccountID = strings.TrimSpace(req.ToAccountID)
	req.BeneficiaryID = strings.TrimSpace(req.BeneficiaryID)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Description = strings.TrimSpace(req.Description)
	req.Reference = strings.TrimSpace(req.Reference)
}

func validateRequest(req CreateTransferRequest) error {
	v := validation.New()
	v.Check(req.Type.Valid(), "type", "must be internal, external or scheduled")
	v.Required("from_account_id", req.FromAccountID)
	v.Amount("amount", req.Amount)
	v.Currency("currency", req.Currency)
	v.MaxLength("description", req.Description, validation.MaxDescriptionLength)
	v.MaxLength("reference", req.Reference, validation.MaxReferenceLength)

	toAccount := req.ToAccountID != ""
	payee := req.BeneficiaryID != "" || req.Beneficiary != nil
	v.Check(!(req.BeneficiaryID != "" && req.Beneficiary != nil), "beneficiary", "give either beneficiary_id or beneficiary, not both")
	switch req.Type {
	case models.TransferTypeInternal:
		v.Check(toAccount && !payee, "to_account_id", "internal transfers need a destination account and no beneficiary")
	case models.TransferTypeExternal:
		v.Check(payee && !toAccount, "beneficiary", "external transfers need a beneficiary and no destination account")
	case models.TransferTypeScheduled:
		v.Check(toAccount != payee, "to_account_id", "give exactly one of to_account_id or a beneficiary")
	}
	return v.Err()
}
