package transfer

import (
	apperrors "paycore/internal/errors"
	"paycore/internal/models"
)

// transitions lists every allowed status change. Completed, failed and
// cancelled have no outgoing edges.
var transitions = map[models.TransferStatus][]models.TransferStatus{
	models.TransferStatusPending: {
		models.TransferStatusProcessing,
		models.TransferStatusCompleted,
		models.TransferStatusFailed,
		models.TransferStatusCancelled,
	},
	models.TransferStatusProcessing: {
		models.TransferStatusCompleted,
		models.TransferStatusFailed,
	},
}

var adminTransitions = map[models.AdminStatus][]models.AdminStatus{
	models.AdminStatusNone:          {models.AdminStatusPendingReview},
	models.AdminStatusPendingReview: {models.AdminStatusApproved, models.AdminStatusRejected},
}

// CanTransition reports whether a transfer may move from one status to
// another.
func CanTransition(from, to models.TransferStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionAdmin is CanTransition for the review status.
func CanTransitionAdmin(from, to models.AdminStatus) bool {
	for _, s := range adminTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves t to status, failing with INVALID_STATE on an illegal
// edge.
func transition(t *models.Transfer, to models.TransferStatus) error {
	if !CanTransition(t.Status, to) {
		return apperrors.ErrInvalidState.WithDetail("transfer %s cannot move from %s to %s", t.ID, t.Status, to)
	}
	t.Status = to
	return nil
}

func transitionAdmin(t *models.Transfer, to models.AdminStatus) error {
	if !CanTransitionAdmin(t.AdminStatus, to) {
		return apperrors.ErrInvalidState.WithDetail("transfer %s review cannot move from %s to %s", t.ID, t.AdminStatus, to)
	}
	t.AdminStatus = to
	return nil
}
