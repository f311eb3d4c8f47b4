package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placefinder_db_query_duration_seconds",
			Help:    "Database query execution time in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table", "status"},
	)

	dbErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	dbConnectionPoolInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placefinder_db_connection_pool_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	dbConnectionPoolIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placefinder_db_connection_pool_idle",
			Help: "Number of idle database connections in the pool",
		},
	)
)

const metricsStartKey = "metrics:start_time"

// MetricsPlugin records the duration and outcome of every GORM statement.
type MetricsPlugin struct{}

func (p *MetricsPlugin) Name() string {
	return "metricsPlugin"
}

func (p *MetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", beforeCallback),
		cb.Create().After("gorm:create").Register("metrics:after_create", afterCallback("INSERT")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", beforeCallback),
		cb.Query().After("gorm:query").Register("metrics:after_query", afterCallback("SELECT")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", beforeCallback),
		cb.Update().After("gorm:update").Register("metrics:after_update", afterCallback("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", beforeCallback),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", afterCallback("DELETE")),
		cb.Row().Before("gorm:row").Register("metrics:before_row", beforeCallback),
		cb.Row().After("gorm:row").Register("metrics:after_row", afterCallback("ROW")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", beforeCallback),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", afterCallback("RAW")),
	}
	if err := errors.Join(registrations...); err != nil {
		return fmt.Errorf("failed to register metrics callbacks: %w", err)
	}
	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(metricsStartKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		observe(db, operation)
	}
}

func observe(db *gorm.DB, operation string) {
	started, ok := db.InstanceGet(metricsStartKey)
	if !ok {
		return
	}
	start, ok := started.(time.Time)
	if !ok {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	status := "success"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		status = "error"
		dbErrorsTotal.WithLabelValues(operation, table, fmt.Sprintf("%T", db.Error)).Inc()
	}

	dbQueryDuration.WithLabelValues(operation, table, status).Observe(time.Since(start).Seconds())
}

// UpdateConnectionPoolMetrics samples the sql.DB pool statistics.
func UpdateConnectionPoolMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	stats := sqlDB.Stats()
	dbConnectionPoolIdle.Set(float64(stats.Idle))
	dbConnectionPoolInUse.Set(float64(stats.InUse))
}

// StartConnectionPoolMetricsCollector samples pool statistics every interval
// until ctx is done.
func StartConnectionPoolMetricsCollector(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateConnectionPoolMetrics(db)
		}
	}
}
