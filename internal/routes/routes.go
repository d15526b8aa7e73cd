// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"paycore/internal/handlers"
	"paycore/internal/middleware"
	"paycore/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Accounts      *handlers.AccountHandler
	Beneficiaries *handlers.BeneficiaryHandler
	Transfers     *handlers.TransferHandler
	Admin         *handlers.AdminHandler
	Health        *handlers.HealthHandler
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	app.Get("/health", h.Health.HealthCheck)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/login", h.Auth.LoginUser)

	// Admin routes are registered before the user group so /api/admin
	// requests pass the admin check first.
	setupAdminRoutes(api, h, authMiddleware)

	protected := api.Group("", authMiddleware.Handler)
	protected.Get("/me", h.Auth.Me)
	setupUserRoutes(protected, h)
}

func setupUserRoutes(router fiber.Router, h Handlers) {
	accounts := router.Group("/accounts", middleware.HasPermission(models.PermissionAccountRead))
	accounts.Get("/", h.Accounts.GetAccounts)
	accounts.Get("/:id", h.Accounts.GetAccount)

	beneficiaries := router.Group("/beneficiaries")
	beneficiaries.Get("/", middleware.HasPermission(models.PermissionBeneficiaryRead), h.Beneficiaries.List)
	beneficiaries.Post("/", middleware.HasPermission(models.PermissionBeneficiaryWrite), h.Beneficiaries.Create)
	beneficiaries.Put("/:id", middleware.HasPermission(models.PermissionBeneficiaryWrite), h.Beneficiaries.Update)
	beneficiaries.Delete("/:id", middleware.HasPermission(models.PermissionBeneficiaryWrite), h.Beneficiaries.Delete)

	transfers := router.Group("/transfers")
	transfers.Post("/", middleware.HasPermission(models.PermissionTransferWrite), h.Transfers.CreateTransfer)
	transfers.Get("/", middleware.HasPermission(models.PermissionTransferRead), h.Transfers.ListTransfers)
	transfers.Get("/:id", middleware.HasPermission(models.PermissionTransferRead), h.Transfers.GetTransfer)
	transfers.Post("/:id/cancel", middleware.HasPermission(models.PermissionTransferWrite), h.Transfers.CancelTransfer)
}

func setupAdminRoutes(api fiber.Router, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	admin := api.Group("/admin", authMiddleware.Handler, middleware.AdminAuthMiddleware)

	admin.Get("/reviews", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListReviews)
	admin.Post("/reviews/:id/approve", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.ApproveReview)
	admin.Post("/reviews/:id/reject", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.RejectReview)

	admin.Post("/accounts", middleware.HasPermission(models.PermissionWriteAdmin), h.Accounts.CreateAccount)
	admin.Patch("/accounts/:id/status", middleware.HasPermission(models.PermissionWriteAdmin), h.Accounts.SetAccountStatus)

	admin.Put("/verifications/:userId", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.SetVerification)
	admin.Get("/transfers", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListTransfers)
	admin.Post("/scheduler/run", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.RunScheduler)
}
