package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"collab-service/internal/domain"
)

// InitPostgres opens the connection and runs migrations. The service can run
// without a database (the durable presence mirror is best-effort), so callers
// treat an error here as a warning, not a startup failure.
func InitPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not configured")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.RoomPresenceRecord{})
}

// InitPostgresAsync retries the connection in the background (EKS pod 생존
// 보장 - the pod must come up even when the database is still starting).
// onConnect is invoked once with the live handle.
func InitPostgresAsync(dsn string, interval time.Duration, logger *zap.Logger, onConnect func(*gorm.DB)) {
	go func() {
		for {
			time.Sleep(interval)

			db, err := InitPostgres(dsn)
			if err != nil {
				logger.Warn("PostgreSQL retry failed", zap.Error(err))
				continue
			}

			logger.Info("PostgreSQL connected after retry")
			if onConnect != nil {
				onConnect(db)
			}
			return
		}
	}()
}
