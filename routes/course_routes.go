package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

// CourseRoutes registers the catalog, lessons and quizzes. Auth middleware is attached per
// route because catalog reads are public.
func CourseRoutes(api fiber.Router, h *handlers.Handler) {
	protected := middleware.Protected(h.Config.JWTSecret)
	optional := middleware.OptionalAuth(h.Config.JWTSecret)
	instructor := middleware.InstructorRequired()

	courses := api.Group("/courses")
	courses.Get("", h.ListPublishedCourses)
	courses.Get("/:courseId", optional, h.GetCourse)
	courses.Get("/:courseId/lessons", optional, h.ListLessons)
	courses.Post("", protected, instructor, h.CreateCourse)
	courses.Put("/:courseId", protected, instructor, h.UpdateCourse)
	courses.Patch("/:courseId/publish", protected, instructor, h.SetCoursePublished)
	courses.Delete("/:courseId", protected, instructor, h.DeleteCourse)
	courses.Post("/:courseId/lessons", protected, instructor, h.CreateLesson)
	courses.Post("/:courseId/enroll", protected, h.EnrollInCourse)
	courses.Post("/:courseId/certificate", protected, h.IssueCertificate)

	api.Get("/instructor/courses", protected, instructor, h.ListMyCourses)
	api.Get("/videos/:videoId", protected, instructor, h.GetVideoDetails)

	lessons := api.Group("/lessons")
	lessons.Get("/:lessonId", protected, h.GetLesson)
	lessons.Put("/:lessonId", protected, instructor, h.UpdateLesson)
	lessons.Delete("/:lessonId", protected, instructor, h.DeleteLesson)
	lessons.Put("/:lessonId/video", protected, instructor, h.AssignLessonVideo)

	lessons.Get("/:lessonId/quiz", protected, h.GetQuiz)
	lessons.Post("/:lessonId/quiz", protected, instructor, h.CreateQuiz)
	lessons.Put("/:lessonId/quiz", protected, instructor, h.UpdateQuiz)
	lessons.Delete("/:lessonId/quiz", protected, instructor, h.DeleteQuiz)
}
