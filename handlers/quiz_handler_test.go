package handlers

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/aiqda/aiqda-backend/services"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errConnectionLost = errors.New("connection lost")

// lostPool fails every statement, as a dropped database connection would.
type lostPool struct{}

func (lostPool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errConnectionLost
}
func (lostPool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errConnectionLost
}
func (lostPool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errConnectionLost
}
func (lostPool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func TestEnsureNoQuizReportsDatabaseErrors(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: lostPool{}}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	err = ensureNoQuiz(db, uuid.New())
	if !errors.Is(err, errConnectionLost) {
		t.Fatalf("ensureNoQuiz error = %v, want %v", err, errConnectionLost)
	}
	if errors.Is(err, services.ErrConflict) {
		t.Fatal("a failed count must not be reported as a conflict")
	}
}
