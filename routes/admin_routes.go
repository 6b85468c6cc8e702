package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler) {
	admin := api.Group("/admin", middleware.Protected(h.Config.JWTSecret), middleware.AdminRequired())

	users := admin.Group("/users")
	users.Get("", h.ListUsers)
	users.Put("/:userId/status", h.SetUserStatus)
	users.Put("/:userId/role", h.SetUserRole)
	users.Get("/:userId/progress-events", h.GetUserProgressEvents)

	applications := admin.Group("/applications")
	applications.Get("", h.ListApplications)
	applications.Post("/:applicationId/approve", h.ApproveApplication)
	applications.Post("/:applicationId/reject", h.RejectApplication)

	packages := admin.Group("/packages")
	packages.Get("", h.AdminListPackages)
	packages.Post("", h.CreatePackage)
	packages.Put("/:packageId", h.UpdatePackage)
	packages.Delete("/:packageId", h.DeactivatePackage)

	admin.Get("/subscriptions", h.AdminListSubscriptions)
	admin.Post("/subscriptions/:subscriptionId/cancel", h.CancelSubscription)

	payments := admin.Group("/payments")
	payments.Get("", h.AdminListPayments)
	payments.Post("/:paymentId/approve", h.ApprovePayment)
	payments.Post("/:paymentId/reject", h.RejectPayment)

	reports := admin.Group("/reports")
	reports.Get("/payments", h.ExportPaymentsCSV)

	analytics := admin.Group("/analytics")
	analytics.Get("/overview", h.GetAdminOverview)
	analytics.Get("/instructors/:userId", h.GetInstructorDashboardFor)
}
