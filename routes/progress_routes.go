package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProgressRoutes(api fiber.Router, h *handlers.Handler) {
	protected := middleware.Protected(h.Config.JWTSecret)

	lessons := api.Group("/lessons")
	lessons.Get("/:lessonId/progress", protected, h.GetLessonProgress)
	lessons.Post("/:lessonId/progress/watch", protected, h.RecordWatchProgress)
	lessons.Post("/:lessonId/quiz/submit", protected, h.SubmitLessonQuiz)
	lessons.Get("/:lessonId/analytics", protected, middleware.InstructorRequired(), h.GetLessonAnalytics)

	dashboard := api.Group("/dashboard", protected)
	dashboard.Get("/student", h.GetStudentDashboard)
	dashboard.Get("/student/courses/:courseId", h.GetStudentCourseProgress)
	dashboard.Get("/instructor", middleware.InstructorRequired(), h.GetInstructorDashboard)

	api.Get("/certificates/me", protected, h.GetMyCertificates)
}
