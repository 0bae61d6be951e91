package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/models"
)

var fixedNow = time.Date(2025, 12, 11, 7, 30, 0, 0, time.UTC)

// setupServiceTestDB creates an in-memory SQLite database with the full
// schema and one user. A single connection keeps the in-memory database
// shared across the pool.
func setupServiceTestDB(t *testing.T) (*gorm.DB, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	user := models.User{Email: "athlete@example.com", Name: "Athlete"}
	require.NoError(t, db.Create(&user).Error)
	return db, user.ID
}

// failInsertsInto makes every INSERT into table fail.
func failInsertsInto(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
