package handlers

import (
	"paycore/internal/models"
	"paycore/internal/services/account"
	"paycore/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler exposes account reads and admin provisioning.
type AccountHandler struct {
	accounts account.Service
}

func NewAccountHandler(accounts account.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetAccounts handles GET /accounts.
func (h *AccountHandler) GetAccounts(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	accounts, err := h.accounts.List(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "accounts retrieved", accounts)
}

// GetAccount handles GET /accounts/:id.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	acc, err := h.accounts.Get(c.UserContext(), c.Params("id"), claims.UserID, claims.Role == models.RoleAdmin)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "account retrieved", acc)
}

// CreateAccount handles POST /admin/accounts.
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var in account.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	acc, err := h.accounts.Create(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "account created", acc)
}

// SetAccountStatus handles PATCH /admin/accounts/:id/status.
func (h *AccountHandler) SetAccountStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	acc, err := h.accounts.SetStatus(c.UserContext(), c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "account status updated", acc)
}
