package services

import (
	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManageCourse reports whether the actor may modify the course and its lessons and quizzes.
func (a Actor) CanManageCourse(course *models.Course) bool {
	return a.IsAdmin() || course.OwnedBy(a.ID)
}

// Touch tells whether a get-or-initialize call created the record or found an existing one.
type Touch int

const (
	TouchExisting Touch = iota
	TouchCreated
)

func (t Touch) String() string {
	if t == TouchCreated {
		return "created"
	}
	return "existing"
}
