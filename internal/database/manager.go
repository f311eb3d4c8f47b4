// backend/internal/database/manager.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	DatabaseURL string
	// RedisURL may be empty, in which case no Redis client is created.
	RedisURL string
	LogLevel string
}

// NewManager opens the database and, when configured, Redis.
func NewManager(config *Config, logger *logrus.Logger) (*Manager, error) {
	db, err := Open(config.DatabaseURL, config.LogLevel, logger)
	if err != nil {
		return nil, err
	}

	m := &Manager{DB: db, logger: logger}

	if config.RedisURL != "" {
		client, err := openRedis(config.RedisURL)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Redis = client
	}

	logger.WithFields(logrus.Fields{
		"dialect": db.Dialector.Name(),
		"redis":   m.Redis != nil,
	}).Info("Database connections established successfully")

	return m, nil
}

// Open connects GORM to PostgreSQL, or to SQLite when the URL starts with
// "sqlite:" or "file:".
func Open(databaseURL, logLevel string, logger *logrus.Logger) (*gorm.DB, error) {
	dial := dialector(databaseURL)
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 newGormLogger(logLevel, logger),
		SkipDefaultTransaction: true,
		PrepareStmt:            dial.Name() == "postgres",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(&MetricsPlugin{}); err != nil {
		return nil, fmt.Errorf("failed to install metrics plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func dialector(databaseURL string) gorm.Dialector {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
	case strings.HasPrefix(databaseURL, "file:"):
		return sqlite.Open(databaseURL)
	default:
		return postgres.Open(databaseURL)
	}
}

func newGormLogger(level string, logger *logrus.Logger) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch strings.ToLower(level) {
	case "debug", "info":
		logLevel = gormlogger.Info
	case "warn":
		logLevel = gormlogger.Warn
	case "error":
		logLevel = gormlogger.Error
	default:
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}

	return gormlogger.New(logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func openRedis(redisURL string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Migrate creates or updates the search tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SearchQuery{},
		&models.SearchResult{},
	)
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")
	return Migrate(m.DB)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase(ctx context.Context) error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) PingRedis(ctx context.Context) error {
	if m.Redis == nil {
		return fmt.Errorf("redis is not configured")
	}
	return m.Redis.Ping(ctx).Err()
}
