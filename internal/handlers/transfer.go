package handlers

import (
	"paycore/internal/models"
	"paycore/internal/services/transfer"
	"paycore/internal/utils"
	"paycore/internal/utils/pagination"
	"paycore/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// HeaderIdempotencyKey supplies the transfer reference when the body has
// none.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransferHandler exposes transfer endpoints.
type TransferHandler struct {
	service transfer.Service
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(s transfer.Service) *TransferHandler { return &TransferHandler{service: s} }

// CreateTransfer handles POST /transfers.
func (h *TransferHandler) CreateTransfer(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req transfer.CreateTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	req.InitiatedBy = claims.UserID
	if req.Reference == "" {
		// Header values alias the request buffer; the reference outlives it.
		req.Reference = fiberutils.CopyString(c.Get(HeaderIdempotencyKey))
	}

	t, err := h.service.CreateTransfer(c.UserContext(), req)
	if err != nil {
		if t != nil {
			return response.Failed(c, err, t)
		}
		return response.FromError(c, err)
	}
	return response.Created(c, "transfer accepted", t)
}

// ListTransfers handles GET /transfers.
func (h *TransferHandler) ListTransfers(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	p := pagination.ParseFromRequest(c)

	page, err := h.service.ListTransfers(c.UserContext(), transfer.TransferFilter{
		OwnerID:   claims.UserID,
		AccountID: c.Query("account_id"),
		Type:      models.TransferType(c.Query("type")),
		Status:    models.TransferStatus(c.Query("status")),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = page.Total
	return c.JSON(pagination.Response(p, page.Transfers))
}

// GetTransfer handles GET /transfers/:id.
func (h *TransferHandler) GetTransfer(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	t, err := h.service.GetTransfer(c.UserContext(), c.Params("id"), actorOf(claims))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "transfer retrieved", t)
}

// CancelTransfer handles POST /transfers/:id/cancel.
func (h *TransferHandler) CancelTransfer(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	t, err := h.service.CancelTransfer(c.UserContext(), c.Params("id"), actorOf(claims))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "transfer cancelled", t)
}

func claimsFrom(c *fiber.Ctx) (*models.UserClaims, error) {
	return utils.GetUserClaims(c)
}

func actorOf(claims *models.UserClaims) transfer.Actor {
	return transfer.Actor{UserID: claims.UserID, Admin: claims.Role == models.RoleAdmin}
}
