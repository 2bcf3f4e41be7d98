package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adeptify/internal/model"
)

// base is a whole-second UTC instant so stored and bound timestamps compare
// identically as SQLite text.
var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return base },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}, &model.ActivityLog{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role model.Role, centreID, cursID string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Status:       model.UserStatusActive,
		CentreID:     model.StringPtr(centreID),
		CursID:       model.StringPtr(cursID),
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func fixedSessions(db *gorm.DB, now time.Time) *sessionRepository {
	return &sessionRepository{db: db, now: func() time.Time { return now }}
}
