// Package response writes JSON envelopes and maps domain errors to HTTP
// statuses.
package response

import (
	apperrors "paycore/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidRequest,
		apperrors.CodeInvalidDestination,
		apperrors.CodeInvalidBeneficiary,
		apperrors.CodeInvalidSchedule:
		return fiber.StatusBadRequest
	case apperrors.CodeVerificationRequired:
		return fiber.StatusForbidden
	case apperrors.CodeNotFound:
		return fiber.StatusNotFound
	case apperrors.CodeInvalidState:
		return fiber.StatusConflict
	case apperrors.CodeLimitExceeded,
		apperrors.CodeInsufficientFunds,
		apperrors.CodeAccountBlocked:
		return fiber.StatusUnprocessableEntity
	case apperrors.CodeLockTimeout:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes err as {"error","code","detail"}. Errors that are not
// domain errors are reported as INTERNAL without their text.
func FromError(c *fiber.Ctx, err error) error {
	de, ok := apperrors.As(err)
	if !ok {
		de = apperrors.ErrInternal
	}
	status := StatusFor(de.Code)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{
			"error": apperrors.ErrInternal.Message,
			"code":  apperrors.CodeInternal,
		})
	}
	if de.Code == apperrors.CodeLockTimeout {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(fiber.Map{
		"error":  de.Message,
		"code":   de.Code,
		"detail": de.Detail,
	})
}

// Failed writes a persisted failure: the error status plus the stored
// transfer, so clients learn the transfer id.
func Failed(c *fiber.Ctx, err error, data interface{}) error {
	de, ok := apperrors.As(err)
	if !ok {
		return FromError(c, err)
	}
	return c.Status(StatusFor(de.Code)).JSON(fiber.Map{
		"error":  de.Message,
		"code":   de.Code,
		"detail": de.Detail,
		"data":   data,
	})
}
