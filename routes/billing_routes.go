package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func BillingRoutes(api fiber.Router, h *handlers.Handler) {
	protected := middleware.Protected(h.Config.JWTSecret)

	api.Get("/packages", h.ListPackages)

	subscriptions := api.Group("/subscriptions", protected)
	subscriptions.Post("", h.RequestSubscription)
	subscriptions.Get("/me", h.GetMySubscription)

	payments := api.Group("/payments", protected)
	payments.Post("", h.SubmitPayment)
	payments.Get("/me", h.ListMyPayments)

	api.Post("/instructor-applications", h.ApplyAsInstructor)
}
