package handlers

import (
	"context"

	"paycore/internal/models"
	"paycore/internal/services/review"
	"paycore/internal/services/scheduler"
	"paycore/internal/services/transfer"
	"paycore/internal/utils/pagination"
	"paycore/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// VerificationRecorder stores identity-verification decisions.
type VerificationRecorder interface {
	SetStatus(ctx context.Context, userID, status, documentID, reviewerID string) (*models.VerificationRecord, error)
}

// ScanRunner triggers one scheduled-transfer scan.
type ScanRunner interface {
	RunOnce(ctx context.Context) (scheduler.Summary, error)
}

// AdminHandler serves the admin API. Routes are mounted behind
// AdminAuthMiddleware.
type AdminHandler struct {
	reviews       review.Service
	transfers     transfer.Service
	verifications VerificationRecorder
	scans         ScanRunner
	log           zerolog.Logger
}

func NewAdminHandler(
	reviews review.Service,
	transfers transfer.Service,
	verifications VerificationRecorder,
	scans ScanRunner,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		reviews:       reviews,
		transfers:     transfers,
		verifications: verifications,
		scans:         scans,
		log:           log.With().Str("component", "admin").Logger(),
	}
}

// ListReviews handles GET /admin/reviews.
func (h *AdminHandler) ListReviews(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	page, err := h.reviews.ListPending(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = page.Total
	return c.JSON(pagination.Response(p, page.Transfers))
}

type reviewDecision struct {
	Note string `json:"note"`
}

// ApproveReview handles POST /admin/reviews/:id/approve.
func (h *AdminHandler) ApproveReview(c *fiber.Ctx) error {
	return h.decide(c, h.reviews.Approve, "transfer approved")
}

// RejectReview handles POST /admin/reviews/:id/reject.
func (h *AdminHandler) RejectReview(c *fiber.Ctx) error {
	return h.decide(c, h.reviews.Reject, "transfer rejected")
}

func (h *AdminHandler) decide(
	c *fiber.Ctx,
	fn func(ctx context.Context, transferID, reviewerID, note string) (*models.Transfer, error),
	message string,
) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	var body reviewDecision
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return response.BadRequest(c, "invalid request")
		}
	}

	t, err := fn(c.UserContext(), c.Params("id"), claims.UserID, body.Note)
	if err != nil {
		return response.FromError(c, err)
	}
	h.log.Info().
		Str("transfer_id", t.ID).
		Str("reviewer_id", claims.UserID).
		Str("admin_status", string(t.AdminStatus)).
		Msg("review decided")
	return response.Success(c, message, t)
}

// SetVerification handles PUT /admin/verifications/:userId.
func (h *AdminHandler) SetVerification(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	var req struct {
		Status     string `json:"status"`
		DocumentID string `json:"document_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	rec, err := h.verifications.SetStatus(c.UserContext(), c.Params("userId"), req.Status, req.DocumentID, claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "verification updated", rec)
}

// ListTransfers handles GET /admin/transfers.
func (h *AdminHandler) ListTransfers(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	page, err := h.transfers.ListTransfers(c.UserContext(), transfer.TransferFilter{
		AccountID:   c.Query("account_id"),
		Type:        models.TransferType(c.Query("type")),
		Status:      models.TransferStatus(c.Query("status")),
		AdminStatus: models.AdminStatus(c.Query("admin_status")),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = page.Total
	return c.JSON(pagination.Response(p, page.Transfers))
}

// RunScheduler handles POST /admin/scheduler/run.
func (h *AdminHandler) RunScheduler(c *fiber.Ctx) error {
	summary, err := h.scans.RunOnce(c.UserContext())
	if err != nil {
		h.log.Error().Err(err).Msg("manual scheduler scan failed")
		return response.ServerError(c, "scheduler scan failed")
	}
	return response.Success(c, "scheduler scan finished", summary)
}
