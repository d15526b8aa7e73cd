package handlers

import (
	"paycore/internal/services/beneficiary"
	"paycore/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// BeneficiaryHandler manages the caller's saved payees.
type BeneficiaryHandler struct {
	beneficiaries beneficiary.Service
}

func NewBeneficiaryHandler(beneficiaries beneficiary.Service) *BeneficiaryHandler {
	return &BeneficiaryHandler{beneficiaries: beneficiaries}
}

func (h *BeneficiaryHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	list, err := h.beneficiaries.List(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "beneficiaries retrieved", list)
}

func (h *BeneficiaryHandler) Create(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	var in beneficiary.Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	b, err := h.beneficiaries.Create(c.UserContext(), claims.UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "beneficiary created", b)
}

func (h *BeneficiaryHandler) Update(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	var in beneficiary.Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	b, err := h.beneficiaries.Update(c.UserContext(), claims.UserID, c.Params("id"), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "beneficiary updated", b)
}

func (h *BeneficiaryHandler) Delete(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	if err := h.beneficiaries.Delete(c.UserContext(), claims.UserID, c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
