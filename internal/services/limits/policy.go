// Package limits enforces minimum, daily and monthly outgoing limits. Spent
// amounts are always summed from stored transfers, so limits survive
// restarts and hold across instances. Spend is attributed to the moment
// money left the account, not to when the transfer was requested.
//
// The sums are only consistent with the debit that follows when the
// caller holds the source account lock.
package limits

import (
	"context"
	"time"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/shopspring/decimal"
)

// countedStatuses are the transfer statuses that consume limit headroom.
var countedStatuses = []models.TransferStatus{
	models.TransferStatusCompleted,
	models.TransferStatusProcessing,
}

// Limits is the effective rule set for one account and currency. A zero
// Daily or Monthly means unlimited.
type Limits struct {
	Daily   decimal.Decimal
	Monthly decimal.Decimal
	Minimum decimal.Decimal
}

type Policy interface {
	// CheckLimits checks amount against spend settled in the windows
	// around asOf.
	CheckLimits(ctx context.Context, accountID, currency string, amount decimal.Decimal, asOf time.Time) error
	// CheckScheduled checks a transfer due at dueAt. Pending scheduled
	// transfers due in the same windows count as spent.
	CheckScheduled(ctx context.Context, accountID, currency string, amount decimal.Decimal, dueAt time.Time) error
	Effective(ctx context.Context, accountID, currency string) (Limits, error)
}

type policy struct {
	transfers repositories.TransferRepository
	overrides repositories.LimitRepository
	defaults  Limits
}

// NewPolicy builds a policy. overrides may be nil.
func NewPolicy(transfers repositories.TransferRepository, overrides repositories.LimitRepository, defaults Limits) Policy {
	return &policy{
		transfers: transfers,
		overrides: overrides,
		defaults:  defaults,
	}
}

// Effective resolves defaults, then currency-wide rows, then account rows.
func (p *policy) Effective(ctx context.Context, accountID, currency string) (Limits, error) {
	eff := p.defaults
	if p.overrides == nil {
		return eff, nil
	}
	rows, err := p.overrides.Find(ctx, accountID, currency)
	if err != nil {
		return Limits{}, apperrors.Internal(err)
	}
	for _, pass := range []bool{false, true} {
		for _, row := range rows {
			if (row.AccountID != "") != pass {
				continue
			}
			switch row.Type {
			case models.LimitTypeDaily:
				eff.Daily = row.Amount
			case models.LimitTypeMonthly:
				eff.Monthly = row.Amount
			case models.LimitTypeMinimum:
				eff.Minimum = row.Amount
			}
		}
	}
	return eff, nil
}

func (p *policy) CheckLimits(ctx context.Context, accountID, currency string, amount decimal.Decimal, asOf time.Time) error {
	return p.check(ctx, accountID, currency, amount, asOf, false)
}

func (p *policy) CheckScheduled(ctx context.Context, accountID, currency string, amount decimal.Decimal, dueAt time.Time) error {
	return p.check(ctx, accountID, currency, amount, dueAt, true)
}

func (p *policy) check(ctx context.Context, accountID, currency string, amount decimal.Decimal, at time.Time, reserved bool) error {
	lim, err := p.Effective(ctx, accountID, currency)
	if err != nil {
		return err
	}

	if amount.LessThan(lim.Minimum) {
		return apperrors.ErrLimitExceeded.WithDetail("amount %s is below the minimum of %s %s",
			amount.StringFixed(2), lim.Minimum.StringFixed(2), currency)
	}

	dayStart, dayEnd := DayWindow(at)
	if err := p.checkWindow(ctx, accountID, currency, amount, lim.Daily, dayStart, dayEnd, reserved, "daily"); err != nil {
		return err
	}
	monthStart, monthEnd := MonthWindow(at)
	return p.checkWindow(ctx, accountID, currency, amount, lim.Monthly, monthStart, monthEnd, reserved, "monthly")
}

func (p *policy) checkWindow(ctx context.Context, accountID, currency string, amount, ceiling decimal.Decimal, from, to time.Time, reserved bool, name string) error {
	if !ceiling.IsPositive() {
		return nil
	}
	spent, err := p.transfers.SumOutgoing(ctx, accountID, currency, from, to, countedStatuses)
	if err != nil {
		return apperrors.Internal(err)
	}
	if reserved {
		due, err := p.transfers.SumScheduled(ctx, accountID, currency, from, to)
		if err != nil {
			return apperrors.Internal(err)
		}
		spent = spent.Add(due)
	}
	if spent.Add(amount).GreaterThan(ceiling) {
		return apperrors.ErrLimitExceeded.WithDetail("%s limit of %s %s exceeded: %s already committed",
			name, ceiling.StringFixed(2), currency, spent.StringFixed(2))
	}
	return nil
}

// DayWindow returns the UTC calendar day containing t as [start, end).
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// MonthWindow returns the UTC calendar month containing t as [start, end).
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
