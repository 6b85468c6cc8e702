package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler) {
	auth := api.Group("/auth")
	auth.Post("/register", h.RegisterUser)
	auth.Post("/login", h.LoginUser)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)
	auth.Get("/google/login", h.GoogleLogin)
	auth.Get("/google/callback", h.GoogleCallback)

	profile := api.Group("/profile/me", middleware.Protected(h.Config.JWTSecret))
	profile.Get("", h.GetProfile)
	profile.Put("", h.UpdateProfile)
	profile.Put("/password", h.ChangePassword)

	api.Get("/uploads/signature", middleware.Protected(h.Config.JWTSecret), h.GenerateUploadSignature)
}
