// Package review is the admin queue for transfers leaving the system.
package review

import (
	"context"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/services/transfer"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service interface {
	// ListPending returns processing transfers awaiting a decision.
	ListPending(ctx context.Context, limit, offset int) (*transfer.TransferPage, error)
	Approve(ctx context.Context, transferID, reviewerID, note string) (*models.Transfer, error)
	Reject(ctx context.Context, transferID, reviewerID, note string) (*models.Transfer, error)
}

type service struct {
	transfers transfer.Service
}

func NewService(transfers transfer.Service) Service {
	if transfers == nil {
		panic("transfers is required")
	}
	return &service{transfers: transfers}
}

func (s *service) ListPending(ctx context.Context, limit, offset int) (*transfer.TransferPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		return nil, apperrors.ErrInvalidRequest.WithDetail("offset must not be negative")
	}

	return s.transfers.ListTransfers(ctx, transfer.TransferFilter{
		Status:      models.TransferStatusProcessing,
		AdminStatus: models.AdminStatusPendingReview,
		Limit:       limit,
		Offset:      offset,
	})
}

func (s *service) Approve(ctx context.Context, transferID, reviewerID, note string) (*models.Transfer, error) {
	return s.decide(ctx, transferID, transfer.DecisionApproved, reviewerID, note)
}

func (s *service) Reject(ctx context.Context, transferID, reviewerID, note string) (*models.Transfer, error) {
	return s.decide(ctx, transferID, transfer.DecisionRejected, reviewerID, note)
}

func (s *service) decide(ctx context.Context, transferID, decision, reviewerID, note string) (*models.Transfer, error) {
	if transferID == "" {
		return nil, apperrors.ErrInvalidRequest.WithDetail("transfer id is required")
	}
	return s.transfers.ResolveExternalTransfer(ctx, transferID, transfer.ResolveRequest{
		Decision:   decision,
		ReviewerID: reviewerID,
		Note:       note,
	})
}
