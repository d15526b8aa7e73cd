// Package memory provides in-process implementations of the repository
// interfaces. They back the service and handler tests and single-node
// development runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository is an in-memory repositories.AccountRepository.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]models.Account)}
}

func (r *AccountRepository) Create(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AccountStatusActive
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return &a, nil
}

func (r *AccountRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Account
	for _, a := range r.accounts {
		if a.OwnerID == ownerID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *AccountRepository) CompareAndSetBalance(_ context.Context, id string, expected, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	if !a.Balance.Equal(expected) {
		return repositories.ErrBalanceConflict
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *AccountRepository) UpdateStatus(_ context.Context, id, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	a.Status = status
	a.StatusReason = reason
	a.UpdatedAt = time.Now().UTC()
	r.accounts[id] = a
	return nil
}

// TransferRepository is an in-memory repositories.TransferRepository.
type TransferRepository struct {
	mu        sync.RWMutex
	transfers map[string]models.Transfer
}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{transfers: make(map[string]models.Transfer)}
}

func (r *TransferRepository) Create(_ context.Context, t *models.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transfers {
		if existing.FromAccountID == t.FromAccountID && existing.Reference == t.Reference {
			return repositories.ErrDuplicateReference
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	r.transfers[t.ID] = *t
	return nil
}

func (r *TransferRepository) UpdateFrom(_ context.Context, t *models.Transfer, from models.TransferStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.transfers[t.ID]
	if !ok {
		return repositories.ErrTransferNotFound
	}
	if existing.Status != from {
		return repositories.ErrStaleTransfer
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	r.transfers[t.ID] = *t
	return nil
}

func (r *TransferRepository) GetByID(_ context.Context, id string) (*models.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, repositories.ErrTransferNotFound
	}
	return &t, nil
}

func (r *TransferRepository) GetByReference(_ context.Context, fromAccountID, reference string) (*models.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transfers {
		if t.FromAccountID == fromAccountID && t.Reference == reference {
			return &t, nil
		}
	}
	return nil, repositories.ErrTransferNotFound
}

func (r *TransferRepository) List(_ context.Context, f repositories.TransferFilter) ([]*models.Transfer, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range r.transfers {
		if len(f.AccountIDs) > 0 && !contains(f.AccountIDs, t.FromAccountID) && !contains(f.AccountIDs, t.ToAccountID) {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.AdminStatus != "" && t.AdminStatus != f.AdminStatus {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *TransferRepository) SumOutgoing(_ context.Context, accountID, currency string, from, to time.Time, statuses []models.TransferStatus) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, t := range r.transfers {
		if t.FromAccountID != accountID || !strings.EqualFold(t.Currency, currency) {
			continue
		}
		if !within(t.SettledAt, from, to) {
			continue
		}
		for _, s := range statuses {
			if t.Status == s {
				total = total.Add(t.Amount)
				break
			}
		}
	}
	return total, nil
}

func (r *TransferRepository) SumScheduled(_ context.Context, accountID, currency string, from, to time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, t := range r.transfers {
		if t.FromAccountID != accountID || !strings.EqualFold(t.Currency, currency) {
			continue
		}
		if t.Type != models.TransferTypeScheduled || t.Status != models.TransferStatusPending {
			continue
		}
		if within(t.ScheduledAt, from, to) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (r *TransferRepository) ListDueScheduled(_ context.Context, now time.Time, after *repositories.ScheduledCursor, limit int) ([]*models.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range r.transfers {
		if t.Type != models.TransferTypeScheduled || t.Status != models.TransferStatusPending {
			continue
		}
		if t.ScheduledAt == nil || t.ScheduledAt.After(now) {
			continue
		}
		if after != nil && !pastCursor(after, *t.ScheduledAt, t.ID) {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ScheduledAt.Equal(*b.ScheduledAt) {
			return a.ScheduledAt.Before(*b.ScheduledAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func within(at *time.Time, from, to time.Time) bool {
	return at != nil && !at.Before(from) && at.Before(to)
}

// pastCursor reports whether (at, id) sorts strictly after c.
func pastCursor(c *repositories.ScheduledCursor, at time.Time, id string) bool {
	if !at.Equal(c.ScheduledAt) {
		return at.After(c.ScheduledAt)
	}
	return id > c.ID
}

func (r *TransferRepository) CountByBeneficiary(_ context.Context, beneficiaryID string, status models.TransferStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, t := range r.transfers {
		if t.BeneficiaryID == beneficiaryID && t.Status == status {
			n++
		}
	}
	return n, nil
}

// BeneficiaryRepository is an in-memory repositories.BeneficiaryRepository.
type BeneficiaryRepository struct {
	mu    sync.RWMutex
	items map[string]models.Beneficiary
}

func NewBeneficiaryRepository() *BeneficiaryRepository {
	return &BeneficiaryRepository{items: make(map[string]models.Beneficiary)}
}

func (r *BeneficiaryRepository) Create(_ context.Context, b *models.Beneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	r.items[b.ID] = *b
	return nil
}

func (r *BeneficiaryRepository) GetByID(_ context.Context, id string) (*models.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrBeneficiaryNotFound
	}
	return &b, nil
}

func (r *BeneficiaryRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Beneficiary
	for _, b := range r.items {
		if b.OwnerID == ownerID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *BeneficiaryRepository) Update(_ context.Context, b *models.Beneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[b.ID]; !ok {
		return repositories.ErrBeneficiaryNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	r.items[b.ID] = *b
	return nil
}

func (r *BeneficiaryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repositories.ErrBeneficiaryNotFound
	}
	delete(r.items, id)
	return nil
}

// LimitRepository is an in-memory repositories.LimitRepository.
type LimitRepository struct {
	mu     sync.RWMutex
	limits []models.TransferLimit
}

func NewLimitRepository() *LimitRepository {
	return &LimitRepository{}
}

func (r *LimitRepository) Find(_ context.Context, accountID, currency string) ([]*models.TransferLimit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.TransferLimit
	for _, l := range r.limits {
		if l.Currency != currency {
			continue
		}
		if l.AccountID == "" || l.AccountID == accountID {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *LimitRepository) Upsert(_ context.Context, limit *models.TransferLimit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	limit.UpdatedAt = time.Now().UTC()
	for i, l := range r.limits {
		if l.AccountID == limit.AccountID && l.Currency == limit.Currency && l.Type == limit.Type {
			limit.ID = l.ID
			r.limits[i] = *limit
			return nil
		}
	}
	limit.ID = uint(len(r.limits) + 1)
	r.limits = append(r.limits, *limit)
	return nil
}

// VerificationRepository is an in-memory repositories.VerificationRepository.
type VerificationRepository struct {
	mu      sync.RWMutex
	records map[string]models.VerificationRecord
}

func NewVerificationRepository() *VerificationRepository {
	return &VerificationRepository{records: make(map[string]models.VerificationRecord)}
}

func (r *VerificationRepository) Get(_ context.Context, userID string) (*models.VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, repositories.ErrVerificationNotFound
	}
	return &rec, nil
}

func (r *VerificationRepository) Upsert(_ context.Context, record *models.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.records[record.UserID]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.records[record.UserID] = *record
	return nil
}

// UserRepository is an in-memory repositories.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repositories.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.TokenVersion == 0 {
		u.TokenVersion = 1
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *UserRepository) RecordLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLoginAt = &at
	u.FailedLoginAttempts = 0
	u.AccountLockoutUntil = nil
	r.users[userID] = u
	return nil
}

func (r *UserRepository) RecordFailedLogin(_ context.Context, userID string, lockUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	u.AccountLockoutUntil = lockUntil
	r.users[userID] = u
	return nil
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var (
	_ repositories.AccountRepository      = (*AccountRepository)(nil)
	_ repositories.TransferRepository     = (*TransferRepository)(nil)
	_ repositories.BeneficiaryRepository  = (*BeneficiaryRepository)(nil)
	_ repositories.LimitRepository        = (*LimitRepository)(nil)
	_ repositories.VerificationRepository = (*VerificationRepository)(nil)
	_ repositories.UserRepository         = (*UserRepository)(nil)
)
