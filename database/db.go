package database

import (
	"context"
	"fmt"
	"time"

	"github.com/zonkedw/project-shop-sub001/config"
	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and configures the connection pool.
// The returned handle is passed explicitly to every consumer.
func Open(cfg config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieve sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("Database connection established", "host", cfg.Host, "dbname", cfg.DBName)
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	logger.Info("Running migrations...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Migrations completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to retrieve sql.DB", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing the database connection", "error", err)
	}
}

// WithTransaction runs fn inside BEGIN/COMMIT on a single checked-out
// connection. Any error returned by fn, or a panic inside it, rolls the
// transaction back; the connection is returned to the pool on every path.
//
// The transaction does not observe cancellation of ctx: once begun it runs
// to commit or rollback.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(context.WithoutCancel(ctx)).Transaction(fn)
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.L().Warnf(format, args...)
}

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
