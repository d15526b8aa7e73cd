package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/repositories/memory"
	"paycore/internal/services/beneficiary"
	"paycore/internal/services/ledger"
	"paycore/internal/services/limits"
	"paycore/internal/services/verification"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validIBAN = "DE89370400440532013000"

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.TransferEvent
}

func (r *recordingEmitter) Emit(_ context.Context, e models.TransferEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc           Service
	store         ledger.Store
	accounts      *memory.AccountRepository
	transfers     *memory.TransferRepository
	verifications *memory.VerificationRepository
	events        *recordingEmitter
	clock         *testClock
}

var defaultLimits = limits.Limits{
	Daily:   decimal.NewFromInt(10000),
	Monthly: decimal.NewFromInt(50000),
	Minimum: decimal.NewFromInt(1),
}

// slowSums stretches spend lookups the way a database round trip would.
type slowSums struct {
	*memory.TransferRepository
	delay time.Duration
}

func (s slowSums) SumOutgoing(ctx context.Context, accountID, currency string, from, to time.Time, statuses []models.TransferStatus) (decimal.Decimal, error) {
	sum, err := s.TransferRepository.SumOutgoing(ctx, accountID, currency, from, to, statuses)
	time.Sleep(s.delay)
	return sum, err
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLimits(t, defaultLimits, 0)
}

func newFixtureWithLimits(t *testing.T, lim limits.Limits, sumDelay time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		accounts:      memory.NewAccountRepository(),
		transfers:     memory.NewTransferRepository(),
		verifications: memory.NewVerificationRepository(),
		events:        &recordingEmitter{},
		clock:         &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
	}
	f.store = ledger.NewStore(f.accounts, ledger.NewMemoryLocker(), nil, ledger.Config{LockWait: 5 * time.Second}, nil, zerolog.Nop())
	var spend repositories.TransferRepository = f.transfers
	if sumDelay > 0 {
		spend = slowSums{TransferRepository: f.transfers, delay: sumDelay}
	}
	policy := limits.NewPolicy(spend, memory.NewLimitRepository(), lim)
	f.svc = NewService(
		f.store,
		f.transfers,
		policy,
		verification.NewGate(f.verifications),
		beneficiary.NewService(memory.NewBeneficiaryRepository(), f.transfers),
		f.events,
		Config{Now: f.clock.Now},
		zerolog.Nop(),
	)
	return f
}

func (f *fixture) account(t *testing.T, id, owner, balance, currency, status string) {
	t.Helper()
	require.NoError(t, f.accounts.Create(context.Background(), &models.Account{
		ID:       id,
		OwnerID:  owner,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
		Status:   status,
	}))
}

func (f *fixture) verify(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, f.verifications.Upsert(context.Background(), &models.VerificationRecord{
		UserID: userID,
		Status: models.VerificationStatusVerified,
	}))
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	b, err := f.store.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return b.Amount
}

func (f *fixture) block(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	h, err := f.store.Lock(ctx, id)
	require.NoError(t, err)
	defer f.store.Release(h)
	_, err = f.store.SetStatus(ctx, h, id, models.AccountStatusBlocked, "test")
	require.NoError(t, err)
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	_, total, err := f.transfers.List(context.Background(), repositories.TransferFilter{})
	require.NoError(t, err)
	return total
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func internalReq(from, to, amt string) CreateTransferRequest {
	return CreateTransferRequest{
		InitiatedBy:   "u1",
		Type:          models.TransferTypeInternal,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount(amt),
		Currency:      "EUR",
	}
}

// standard fixture: verified u1 owns A (100 EUR), verified u2 owns B (0 EUR).
func newStandardFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.verify(t, "u1")
	f.verify(t, "u2")
	f.account(t, "A", "u1", "100", "EUR", models.AccountStatusActive)
	f.account(t, "B", "u2", "0", "EUR", models.AccountStatusActive)
	return f
}

func TestCreateTransfer_InternalCompletes(t *testing.T) {
	f := newStandardFixture(t)

	tr, err := f.svc.CreateTransfer(context.Background(), internalReq("A", "B", "40"))
	require.NoError(t, err)

	assert.Equal(t, models.TransferStatusCompleted, tr.Status)
	assert.Equal(t, models.AdminStatusNone, tr.AdminStatus)
	assert.NotEmpty(t, tr.Reference)
	assert.NotNil(t, tr.ResolvedAt)
	assert.True(t, amount("60").Equal(f.balance(t, "A")))
	assert.True(t, amount("40").Equal(f.balance(t, "B")))
	assert.Equal(t, []string{models.EventTransferCreated}, f.events.types())
}

func TestCreateTransfer_InsufficientFundsPersistsFailed(t *testing.T) {
	f := newStandardFixture(t)
	f.account(t, "P", "u1", "20", "EUR", models.AccountStatusActive)

	tr, err := f.svc.CreateTransfer(context.Background(), internalReq("P", "B", "40"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientFunds, apperrors.CodeOf(err))
	require.NotNil(t, tr)
	assert.Equal(t, models.TransferStatusFailed, tr.Status)
	assert.Equal(t, apperrors.CodeInsufficientFunds, tr.FailureCode)

	stored, err := f.transfers.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, stored.Status)
	assert.True(t, amount("20").Equal(f.balance(t, "P")))
	assert.True(t, amount("0").Equal(f.balance(t, "B")))
}

func TestCreateTransfer_ValidationOrder(t *testing.T) {
	past := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		mutate        func(r *CreateTransferRequest)
		wantCode      string
		wantPersisted bool
	}{
		{
			name:     "unknown type",
			mutate:   func(r *CreateTransferRequest) { r.Type = "wire" },
			wantCode: apperrors.CodeInvalidRequest,
		},
		{
			name:     "three decimal places",
			mutate:   func(r *CreateTransferRequest) { r.Amount = amount("1.005") },
			wantCode: apperrors.CodeInvalidRequest,
		},
		{
			name:     "internal with beneficiary",
			mutate:   func(r *CreateTransferRequest) { r.BeneficiaryID = "b1" },
			wantCode: apperrors.CodeInvalidRequest,
		},
		{
			name: "unverified caller wins over limits and balance",
			mutate: func(r *CreateTransferRequest) {
				r.InitiatedBy = "u3"
				r.FromAccountID = "E"
				r.Amount = amount("20000")
			},
			wantCode: apperrors.CodeVerificationRequired,
		},
		{
			name:     "below minimum",
			mutate:   func(r *CreateTransferRequest) { r.Amount = amount("0.50") },
			wantCode: apperrors.CodeLimitExceeded,
		},
		{
			name:     "daily limit wins over balance",
			mutate:   func(r *CreateTransferRequest) { r.Amount = amount("20000") },
			wantCode: apperrors.CodeLimitExceeded,
		},
		{
			name:     "source missing",
			mutate:   func(r *CreateTransferRequest) { r.FromAccountID = "nope" },
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "source owned by someone else",
			mutate:   func(r *CreateTransferRequest) { r.FromAccountID = "B"; r.ToAccountID = "A" },
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "currency differs from source",
			mutate:   func(r *CreateTransferRequest) { r.Currency = "USD" },
			wantCode: apperrors.CodeInvalidRequest,
		},
		{
			name:          "blocked source",
			mutate:        func(r *CreateTransferRequest) { r.FromAccountID = "X" },
			wantCode:      apperrors.CodeAccountBlocked,
			wantPersisted: true,
		},
		{
			name:     "destination missing",
			mutate:   func(r *CreateTransferRequest) { r.ToAccountID = "nope" },
			wantCode: apperrors.CodeInvalidDestination,
		},
		{
			name:     "destination equals source",
			mutate:   func(r *CreateTransferRequest) { r.ToAccountID = "A" },
			wantCode: apperrors.CodeInvalidDestination,
		},
		{
			name:     "destination in another currency",
			mutate:   func(r *CreateTransferRequest) { r.ToAccountID = "U" },
			wantCode: apperrors.CodeInvalidDestination,
		},
		{
			name: "external with bad iban",
			mutate: func(r *CreateTransferRequest) {
				r.Type = models.TransferTypeExternal
				r.ToAccountID = ""
				r.Beneficiary = &beneficiary.Input{Name: "Jane", IBAN: "DE89370400440532013001"}
			},
			wantCode: apperrors.CodeInvalidBeneficiary,
		},
		{
			name: "external with unknown beneficiary",
			mutate: func(r *CreateTransferRequest) {
				r.Type = models.TransferTypeExternal
				r.ToAccountID = ""
				r.BeneficiaryID = "missing"
			},
			wantCode: apperrors.CodeInvalidBeneficiary,
		},
		{
			name: "scheduled in the past",
			mutate: func(r *CreateTransferRequest) {
				r.Type = models.TransferTypeScheduled
				r.ScheduledAt = &past
			},
			wantCode: apperrors.CodeInvalidSchedule,
		},
		{
			name:     "scheduled_at on internal transfer",
			mutate:   func(r *CreateTransferRequest) { r.ScheduledAt = &past },
			wantCode: apperrors.CodeInvalidSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStandardFixture(t)
			f.account(t, "X", "u1", "100", "EUR", models.AccountStatusBlocked)
			f.account(t, "U", "u2", "0", "USD", models.AccountStatusActive)
			f.account(t, "E", "u3", "10", "EUR", models.AccountStatusActive)

			req := internalReq("A", "B", "40")
			tt.mutate(&req)

			tr, err := f.svc.CreateTransfer(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))

			if tt.wantPersisted {
				require.NotNil(t, tr)
				assert.Equal(t, models.TransferStatusFailed, tr.Status)
				assert.Equal(t, int64(1), f.count(t))
			} else {
				assert.Nil(t, tr)
				assert.Zero(t, f.count(t))
			}
			assert.True(t, amount("100").Equal(f.balance(t, "A")))
		})
	}
}

func TestCreateTransfer_DailyLimitCountsEarlierTransfers(t *testing.T) {
	f := newStandardFixture(t)
	f.account(t, "R", "u1", "20000", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	_, err := f.svc.CreateTransfer(ctx, internalReq("R", "B", "6000"))
	require.NoError(t, err)

	_, err = f.svc.CreateTransfer(ctx, internalReq("R", "B", "4000.01"))
	assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))

	_, err = f.svc.CreateTransfer(ctx, internalReq("R", "B", "4000"))
	require.NoError(t, err)

	// Next day the daily headroom is back.
	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.CreateTransfer(ctx, internalReq("R", "B", "5000"))
	require.NoError(t, err)
	assert.True(t, amount("5000").Equal(f.balance(t, "R")))
}

func TestCreateTransfer_DailyLimitHoldsUnderContention(t *testing.T) {
	f := newFixtureWithLimits(t, limits.Limits{Daily: amount("100"), Minimum: amount("1")}, 20*time.Millisecond)
	f.verify(t, "u1")
	f.verify(t, "u2")
	f.account(t, "R", "u1", "1000", "EUR", models.AccountStatusActive)
	f.account(t, "B", "u2", "0", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := f.svc.CreateTransfer(ctx, internalReq("R", "B", "60"))
			if err != nil {
				assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))
				assert.Nil(t, tr)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			completed++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, completed)
	assert.True(t, amount("60").Equal(f.balance(t, "B")), "got %s", f.balance(t, "B"))
	assert.True(t, amount("940").Equal(f.balance(t, "R")))
	assert.Equal(t, int64(1), f.count(t))
}

func TestCreateTransfer_ExternalDailyLimitHoldsUnderContention(t *testing.T) {
	f := newFixtureWithLimits(t, limits.Limits{Daily: amount("100"), Minimum: amount("1")}, 20*time.Millisecond)
	f.verify(t, "u1")
	f.account(t, "R", "u1", "1000", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateTransfer(ctx, CreateTransferRequest{
				InitiatedBy:   "u1",
				Type:          models.TransferTypeExternal,
				FromAccountID: "R",
				Beneficiary:   &beneficiary.Input{Name: "Supplier", IBAN: validIBAN},
				Amount:        amount("60"),
				Currency:      "EUR",
			})
			if err != nil {
				assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))
			}
		}()
	}
	wg.Wait()

	assert.True(t, amount("940").Equal(f.balance(t, "R")), "got %s", f.balance(t, "R"))
}

func TestCreateTransfer_ReplayIsIdempotent(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	req := internalReq("A", "B", "40")
	req.Reference = "invoice-7"

	first, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, amount("60").Equal(f.balance(t, "A")))
	assert.True(t, amount("40").Equal(f.balance(t, "B")))
	assert.Len(t, f.events.types(), 1)

	// A different user cannot probe someone else's references.
	stranger := req
	stranger.InitiatedBy = "u2"
	_, err = f.svc.CreateTransfer(ctx, stranger)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestCreateTransfer_ReplayOfFailedTransfer(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	req := internalReq("A", "B", "500")
	req.Reference = "too-big"

	failed, err := f.svc.CreateTransfer(ctx, req)
	assert.Equal(t, apperrors.CodeInsufficientFunds, apperrors.CodeOf(err))
	require.NotNil(t, failed)

	replayed, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, failed.ID, replayed.ID)
	assert.Equal(t, models.TransferStatusFailed, replayed.Status)
}

func TestCreateTransfer_ConcurrentReplayDebitsOnce(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	req := internalReq("A", "B", "10")
	req.Reference = "double-click"

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := f.svc.CreateTransfer(ctx, req)
			if assert.NoError(t, err) {
				ids[i] = tr.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.True(t, amount("90").Equal(f.balance(t, "A")))
	assert.Equal(t, int64(1), f.count(t))
}

func TestCreateTransfer_CreditFailureIsCompensated(t *testing.T) {
	f := newStandardFixture(t)
	f.block(t, "B")

	tr, err := f.svc.CreateTransfer(context.Background(), internalReq("A", "B", "40"))
	assert.Equal(t, apperrors.CodeAccountBlocked, apperrors.CodeOf(err))
	require.NotNil(t, tr)
	assert.Equal(t, models.TransferStatusFailed, tr.Status)
	assert.True(t, amount("100").Equal(f.balance(t, "A")))
	assert.True(t, amount("0").Equal(f.balance(t, "B")))
}

func TestCreateTransfer_NoNegativeBalanceUnderContention(t *testing.T) {
	f := newStandardFixture(t)
	f.account(t, "S", "u1", "10", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := f.svc.CreateTransfer(ctx, internalReq("S", "B", "1"))
			if err != nil {
				assert.Equal(t, apperrors.CodeInsufficientFunds, apperrors.CodeOf(err))
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if tr.Status == models.TransferStatusCompleted {
				completed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, completed)
	assert.True(t, decimal.Zero.Equal(f.balance(t, "S")))
	assert.True(t, amount("10").Equal(f.balance(t, "B")))
}

func TestCreateTransfer_OppositeDirectionsConserveMoney(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "u1")
	f.verify(t, "u2")
	f.account(t, "A", "u1", "1000", "EUR", models.AccountStatusActive)
	f.account(t, "B", "u2", "1000", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	var wg sync.WaitGroup
	send := func(user, from, to string) {
		defer wg.Done()
		for i := 0; i < 40; i++ {
			req := internalReq(from, to, "3")
			req.InitiatedBy = user
			_, err := f.svc.CreateTransfer(ctx, req)
			assert.NoError(t, err)
		}
	}
	wg.Add(2)
	go send("u1", "A", "B")
	go send("u2", "B", "A")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("opposite transfers deadlocked")
	}

	total := f.balance(t, "A").Add(f.balance(t, "B"))
	assert.True(t, amount("2000").Equal(total))
	assert.Equal(t, int64(80), f.count(t))
}

func TestExternalTransfer_Review(t *testing.T) {
	tests := []struct {
		name        string
		decision    string
		wantStatus  models.TransferStatus
		wantAdmin   models.AdminStatus
		wantBalance string
	}{
		{"approved", DecisionApproved, models.TransferStatusCompleted, models.AdminStatusApproved, "70"},
		{"rejected", DecisionRejected, models.TransferStatusFailed, models.AdminStatusRejected, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStandardFixture(t)
			ctx := context.Background()

			tr, err := f.svc.CreateTransfer(ctx, CreateTransferRequest{
				InitiatedBy:   "u1",
				Type:          models.TransferTypeExternal,
				FromAccountID: "A",
				Beneficiary:   &beneficiary.Input{Name: "Jane Doe", IBAN: validIBAN, BIC: "DEUTDEFF"},
				Amount:        amount("30"),
				Currency:      "EUR",
			})
			require.NoError(t, err)
			assert.Equal(t, models.TransferStatusProcessing, tr.Status)
			assert.Equal(t, models.AdminStatusPendingReview, tr.AdminStatus)
			assert.NotEmpty(t, tr.BeneficiaryID)
			assert.True(t, amount("70").Equal(f.balance(t, "A")))

			resolved, err := f.svc.ResolveExternalTransfer(ctx, tr.ID, ResolveRequest{
				Decision:   tt.decision,
				ReviewerID: "admin-1",
				Note:       "checked",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resolved.Status)
			assert.Equal(t, tt.wantAdmin, resolved.AdminStatus)
			assert.Equal(t, "admin-1", resolved.ReviewedBy)
			assert.NotNil(t, resolved.ResolvedAt)
			assert.True(t, amount(tt.wantBalance).Equal(f.balance(t, "A")))

			// A second decision is refused and moves no money.
			_, err = f.svc.ResolveExternalTransfer(ctx, tr.ID, ResolveRequest{Decision: DecisionRejected, ReviewerID: "admin-2"})
			assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
			assert.True(t, amount(tt.wantBalance).Equal(f.balance(t, "A")))

			assert.Equal(t, []string{models.EventTransferCreated, models.EventTransferResolved}, f.events.types())
		})
	}
}

func TestResolveExternalTransfer_ConcurrentRejectsCreditOnce(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, CreateTransferRequest{
		InitiatedBy:   "u1",
		Type:          models.TransferTypeExternal,
		FromAccountID: "A",
		Beneficiary:   &beneficiary.Input{Name: "Jane Doe", IBAN: validIBAN},
		Amount:        amount("30"),
		Currency:      "EUR",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.ResolveExternalTransfer(ctx, tr.ID, ResolveRequest{Decision: DecisionRejected, ReviewerID: "admin"})
		}()
	}
	wg.Wait()

	assert.True(t, amount("100").Equal(f.balance(t, "A")))
}

func TestResolveExternalTransfer_Errors(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	internal, err := f.svc.CreateTransfer(ctx, internalReq("A", "B", "10"))
	require.NoError(t, err)

	_, err = f.svc.ResolveExternalTransfer(ctx, internal.ID, ResolveRequest{Decision: "maybe", ReviewerID: "admin"})
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.CodeOf(err))

	_, err = f.svc.ResolveExternalTransfer(ctx, internal.ID, ResolveRequest{Decision: DecisionApproved, ReviewerID: "admin"})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = f.svc.ResolveExternalTransfer(ctx, "missing", ResolveRequest{Decision: DecisionApproved, ReviewerID: "admin"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestResolveExternalTransfer_RejectToBlockedAccountStaysProcessing(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, CreateTransferRequest{
		InitiatedBy:   "u1",
		Type:          models.TransferTypeExternal,
		FromAccountID: "A",
		Beneficiary:   &beneficiary.Input{Name: "Jane Doe", IBAN: validIBAN},
		Amount:        amount("30"),
		Currency:      "EUR",
	})
	require.NoError(t, err)
	f.block(t, "A")

	_, err = f.svc.ResolveExternalTransfer(ctx, tr.ID, ResolveRequest{Decision: DecisionRejected, ReviewerID: "admin"})
	assert.Equal(t, apperrors.CodeAccountBlocked, apperrors.CodeOf(err))

	stored, err := f.transfers.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusProcessing, stored.Status)
	assert.Equal(t, models.AdminStatusPendingReview, stored.AdminStatus)
}

func TestScheduledTransfer_Lifecycle(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	at := f.clock.Now().Add(24 * time.Hour)
	req := internalReq("A", "B", "40")
	req.Type = models.TransferTypeScheduled
	req.ScheduledAt = &at

	tr, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, tr.Status)
	assert.True(t, amount("100").Equal(f.balance(t, "A")))

	_, err = f.svc.ExecuteScheduled(ctx, tr.ID)
	assert.Equal(t, apperrors.CodeInvalidSchedule, apperrors.CodeOf(err))

	f.clock.Advance(25 * time.Hour)
	done, err := f.svc.ExecuteScheduled(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCompleted, done.Status)
	assert.True(t, amount("60").Equal(f.balance(t, "A")))
	assert.True(t, amount("40").Equal(f.balance(t, "B")))

	// A repeated activation leaves everything as it is.
	again, err := f.svc.ExecuteScheduled(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCompleted, again.Status)
	assert.True(t, amount("60").Equal(f.balance(t, "A")))

	assert.Equal(t, []string{models.EventTransferCreated, models.EventTransferResolved}, f.events.types())
}

func TestScheduledTransfer_FailsWhenUnfunded(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	at := f.clock.Now().Add(time.Hour)
	req := internalReq("A", "B", "150")
	req.Type = models.TransferTypeScheduled
	req.ScheduledAt = &at

	tr, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	failed, err := f.svc.ExecuteScheduled(ctx, tr.ID)
	assert.Equal(t, apperrors.CodeInsufficientFunds, apperrors.CodeOf(err))
	require.NotNil(t, failed)
	assert.Equal(t, models.TransferStatusFailed, failed.Status)

	stored, err := f.transfers.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, stored.Status)
	assert.True(t, amount("100").Equal(f.balance(t, "A")))
}

func TestScheduledTransfer_ReservesDailyLimit(t *testing.T) {
	f := newFixtureWithLimits(t, limits.Limits{Daily: amount("100"), Minimum: amount("1")}, 0)
	f.verify(t, "u1")
	f.verify(t, "u2")
	f.account(t, "R", "u1", "1000", "EUR", models.AccountStatusActive)
	f.account(t, "B", "u2", "0", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	at := f.clock.Now().Add(24 * time.Hour)
	var accepted []*models.Transfer
	for i := 0; i < 5; i++ {
		req := internalReq("R", "B", "100")
		req.Type = models.TransferTypeScheduled
		req.ScheduledAt = &at
		tr, err := f.svc.CreateTransfer(ctx, req)
		if err != nil {
			assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))
			assert.Nil(t, tr)
			continue
		}
		accepted = append(accepted, tr)
	}
	require.Len(t, accepted, 1)

	// Spending on the creation day does not use the due day's headroom.
	_, err := f.svc.CreateTransfer(ctx, internalReq("R", "B", "100"))
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	done, err := f.svc.ExecuteScheduled(ctx, accepted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCompleted, done.Status)
	require.NotNil(t, done.SettledAt)
	assert.Equal(t, f.clock.Now(), *done.SettledAt)

	// The activated transfer counts toward the day it ran.
	_, err = f.svc.CreateTransfer(ctx, internalReq("R", "B", "100"))
	assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))
	assert.True(t, amount("200").Equal(f.balance(t, "B")))
}

func TestScheduledTransfer_ActivationRechecksLimits(t *testing.T) {
	f := newFixtureWithLimits(t, limits.Limits{Daily: amount("100"), Minimum: amount("1")}, 0)
	f.verify(t, "u1")
	f.verify(t, "u2")
	f.account(t, "R", "u1", "1000", "EUR", models.AccountStatusActive)
	f.account(t, "B", "u2", "0", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	at := f.clock.Now().Add(24 * time.Hour)
	req := internalReq("R", "B", "80")
	req.Type = models.TransferTypeScheduled
	req.ScheduledAt = &at
	scheduled, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour - time.Minute)
	_, err = f.svc.CreateTransfer(ctx, internalReq("R", "B", "50"))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	failed, err := f.svc.ExecuteScheduled(ctx, scheduled.ID)
	assert.Equal(t, apperrors.CodeLimitExceeded, apperrors.CodeOf(err))
	require.NotNil(t, failed)
	assert.Equal(t, models.TransferStatusFailed, failed.Status)
	assert.Equal(t, apperrors.CodeLimitExceeded, failed.FailureCode)

	stored, err := f.transfers.GetByID(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, stored.Status)
	assert.Nil(t, stored.SettledAt)
	assert.True(t, amount("950").Equal(f.balance(t, "R")))
}

func TestScheduledTransfer_ToBeneficiaryGoesToReview(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	at := f.clock.Now().Add(time.Hour)
	tr, err := f.svc.CreateTransfer(ctx, CreateTransferRequest{
		InitiatedBy:   "u1",
		Type:          models.TransferTypeScheduled,
		FromAccountID: "A",
		Beneficiary:   &beneficiary.Input{Name: "Landlord", IBAN: validIBAN},
		Amount:        amount("25"),
		Currency:      "EUR",
		ScheduledAt:   &at,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tr.BeneficiaryID)

	f.clock.Advance(time.Hour)
	run, err := f.svc.ExecuteScheduled(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusProcessing, run.Status)
	assert.Equal(t, models.AdminStatusPendingReview, run.AdminStatus)
	assert.True(t, amount("75").Equal(f.balance(t, "A")))
}

func TestCancelTransfer(t *testing.T) {
	f := newStandardFixture(t)
	ctx := context.Background()

	at := f.clock.Now().Add(time.Hour)
	req := internalReq("A", "B", "40")
	req.Type = models.TransferTypeScheduled
	req.ScheduledAt = &at
	scheduled, err := f.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.CancelTransfer(ctx, scheduled.ID, Actor{UserID: "u2"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err), "only the source owner may cancel")

	cancelled, err := f.svc.CancelTransfer(ctx, scheduled.ID, Actor{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCancelled, cancelled.Status)

	_, err = f.svc.CancelTransfer(ctx, scheduled.ID, Actor{UserID: "u1"})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	f.clock.Advance(2 * time.Hour)
	untouched, err := f.svc.ExecuteScheduled(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCancelled, untouched.Status)
	assert.True(t, amount("100").Equal(f.balance(t, "A")))

	completed, err := f.svc.CreateTransfer(ctx, internalReq("A", "B", "5"))
	require.NoError(t, err)
	_, err = f.svc.CancelTransfer(ctx, completed.ID, Actor{UserID: "u1"})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestGetTransfer_Visibility(t *testing.T) {
	f := newStandardFixture(t)
	f.verify(t, "u3")
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, internalReq("A", "B", "10"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   Actor
		visible bool
	}{
		{"sender", Actor{UserID: "u1"}, true},
		{"recipient", Actor{UserID: "u2"}, true},
		{"stranger", Actor{UserID: "u3"}, false},
		{"admin", Actor{UserID: "root", Admin: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetTransfer(ctx, tr.ID, tt.actor)
			if tt.visible {
				require.NoError(t, err)
				assert.Equal(t, tr.ID, got.ID)
				return
			}
			assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestListTransfers(t *testing.T) {
	f := newStandardFixture(t)
	f.account(t, "A2", "u1", "50", "EUR", models.AccountStatusActive)
	f.account(t, "E", "u3", "0", "EUR", models.AccountStatusActive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := internalReq("A", "B", "1")
		req.Reference = fmt.Sprintf("ref-%d", i)
		_, err := f.svc.CreateTransfer(ctx, req)
		require.NoError(t, err)
	}
	_, err := f.svc.CreateTransfer(ctx, internalReq("A2", "B", "2"))
	require.NoError(t, err)

	page, err := f.svc.ListTransfers(ctx, TransferFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)

	page, err = f.svc.ListTransfers(ctx, TransferFilter{OwnerID: "u1", AccountID: "A2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.ListTransfers(ctx, TransferFilter{OwnerID: "u2", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Transfers, 2)

	_, err = f.svc.ListTransfers(ctx, TransferFilter{OwnerID: "u2", AccountID: "A"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = f.svc.ListTransfers(ctx, TransferFilter{OwnerID: "u3"})
	assert.Equal(t, apperrors.CodeVerificationRequired, apperrors.CodeOf(err))

	page, err = f.svc.ListTransfers(ctx, TransferFilter{Status: models.TransferStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
}
