// Package verification is the gate in front of the identity-verification
// records. It is consulted on every transfer creation and never caches.
package verification

import (
	"context"
	"errors"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"
)

// Gate defines verification operations.
type Gate interface {
	// Status returns the user's status; users without a record are
	// unverified.
	Status(ctx context.Context, userID string) (string, error)
	IsVerified(ctx context.Context, userID string) (bool, error)
	// Require fails with VERIFICATION_REQUIRED unless the user is verified.
	Require(ctx context.Context, userID string) error
	// SetStatus records a decision from the identity subsystem.
	SetStatus(ctx context.Context, userID, status, documentID, reviewerID string) (*models.VerificationRecord, error)
}

type gate struct {
	repo repositories.VerificationRepository
}

// NewGate creates a new Gate.
func NewGate(repo repositories.VerificationRepository) Gate {
	return &gate{repo: repo}
}

func (g *gate) Status(ctx context.Context, userID string) (string, error) {
	rec, err := g.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrVerificationNotFound) {
			return models.VerificationStatusUnverified, nil
		}
		return "", apperrors.Internal(err)
	}
	return rec.Status, nil
}

func (g *gate) IsVerified(ctx context.Context, userID string) (bool, error) {
	status, err := g.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return status == models.VerificationStatusVerified, nil
}

func (g *gate) Require(ctx context.Context, userID string) error {
	status, err := g.Status(ctx, userID)
	if err != nil {
		return err
	}
	if status != models.VerificationStatusVerified {
		return apperrors.ErrVerificationRequired.WithDetail("verification status is %s", status)
	}
	return nil
}

func (g *gate) SetStatus(ctx context.Context, userID, status, documentID, reviewerID string) (*models.VerificationRecord, error) {
	if userID == "" {
		return nil, apperrors.ErrInvalidRequest.WithDetail("user id is required")
	}
	if !models.ValidVerificationStatus(status) {
		return nil, apperrors.ErrInvalidRequest.WithDetail("unknown verification status %q", status)
	}
	rec := &models.VerificationRecord{
		UserID:     userID,
		Status:     status,
		DocumentID: documentID,
		ReviewedBy: reviewerID,
	}
	if err := g.repo.Upsert(ctx, rec); err != nil {
		return nil, apperrors.Internal(err)
	}
	return rec, nil
}
