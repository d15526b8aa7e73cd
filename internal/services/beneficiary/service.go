// Package beneficiary manages the external payees a user can send to.
package beneficiary

import (
	"context"
	"errors"
	"strings"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/validation"
)

// Input is the user-supplied description of a payee.
type Input struct {
	Name     string `json:"name"`
	IBAN     string `json:"iban"`
	BIC      string `json:"bic"`
	Currency string `json:"currency"`
}

type Service interface {
	Create(ctx context.Context, ownerID string, in Input) (*models.Beneficiary, error)
	Get(ctx context.Context, ownerID, id string) (*models.Beneficiary, error)
	List(ctx context.Context, ownerID string) ([]*models.Beneficiary, error)
	Update(ctx context.Context, ownerID, id string, in Input) (*models.Beneficiary, error)
	Delete(ctx context.Context, ownerID, id string) error

	// Resolve returns the payee for a transfer: the stored beneficiary id
	// when set, otherwise a validated but unsaved beneficiary built from
	// inline. Every failure is INVALID_BENEFICIARY.
	Resolve(ctx context.Context, ownerID, id string, inline *Input) (*models.Beneficiary, error)
	// Save persists a beneficiary returned unsaved by Resolve.
	Save(ctx context.Context, b *models.Beneficiary) error
}

type service struct {
	repo      repositories.BeneficiaryRepository
	transfers repositories.TransferRepository
}

func NewService(repo repositories.BeneficiaryRepository, transfers repositories.TransferRepository) Service {
	return &service{repo: repo, transfers: transfers}
}

func (s *service) Create(ctx context.Context, ownerID string, in Input) (*models.Beneficiary, error) {
	b, err := build(ownerID, in)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, ownerID, id string) (*models.Beneficiary, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBeneficiaryNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("beneficiary %s", id)
		}
		return nil, apperrors.Internal(err)
	}
	if b.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound.WithDetail("beneficiary %s", id)
	}
	return b, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]*models.Beneficiary, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, ownerID, id string, in Input) (*models.Beneficiary, error) {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnreferenced(ctx, id); err != nil {
		return nil, err
	}
	updated, err := build(ownerID, in)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, apperrors.Internal(err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.ensureUnreferenced(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrBeneficiaryNotFound) {
			return apperrors.ErrNotFound.WithDetail("beneficiary %s", id)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) Resolve(ctx context.Context, ownerID, id string, inline *Input) (*models.Beneficiary, error) {
	if id == "" {
		if inline == nil {
			return nil, apperrors.ErrInvalidBeneficiary.WithDetail("no beneficiary given")
		}
		return build(ownerID, *inline)
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBeneficiaryNotFound) {
			return nil, apperrors.ErrInvalidBeneficiary.WithDetail("beneficiary %s does not exist", id)
		}
		return nil, apperrors.Internal(err)
	}
	if b.OwnerID != ownerID {
		return nil, apperrors.ErrInvalidBeneficiary.WithDetail("beneficiary %s does not exist", id)
	}
	if !validation.ValidIBAN(b.IBAN) || (b.BIC != "" && !validation.ValidBIC(b.BIC)) {
		return nil, apperrors.ErrInvalidBeneficiary.WithDetail("beneficiary %s has invalid bank details", id)
	}
	return b, nil
}

func (s *service) Save(ctx context.Context, b *models.Beneficiary) error {
	if err := s.repo.Create(ctx, b); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ensureUnreferenced refuses changes to a payee that money has been sent to
// or is being sent to.
func (s *service) ensureUnreferenced(ctx context.Context, id string) error {
	for _, status := range []models.TransferStatus{models.TransferStatusCompleted, models.TransferStatusProcessing} {
		n, err := s.transfers.CountByBeneficiary(ctx, id, status)
		if err != nil {
			return apperrors.Internal(err)
		}
		if n > 0 {
			return apperrors.ErrInvalidBeneficiary.WithDetail("beneficiary %s is referenced by %s transfers", id, status)
		}
	}
	return nil
}

func build(ownerID string, in Input) (*models.Beneficiary, error) {
	b := &models.Beneficiary{
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(in.Name),
		IBAN:     validation.NormalizeIBAN(in.IBAN),
		BIC:      validation.NormalizeBIC(in.BIC),
		Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
	}

	v := validation.New()
	v.Required("name", b.Name)
	v.MaxLength("name", b.Name, validation.MaxNameLength)
	v.IBAN("iban", b.IBAN)
	v.BIC("bic", b.BIC)
	if b.Currency != "" {
		v.Currency("currency", b.Currency)
	}
	if !v.Valid() {
		de, _ := apperrors.As(v.Err())
		return nil, apperrors.ErrInvalidBeneficiary.WithDetail("%s", de.Detail)
	}
	return b, nil
}
