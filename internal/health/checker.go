package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	critical bool
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	checks  []check
	timeout time.Duration
	logger  *logrus.Logger
	started time.Time
}

func NewHealthChecker(timeout time.Duration, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		timeout: timeout,
		logger:  logger,
		started: time.Now(),
	}
}

// Register adds a dependency. A failing critical dependency makes the whole
// service unhealthy; any other failure only degrades it.
func (h *HealthChecker) Register(name string, fn CheckFunc, critical bool) {
	h.checks = append(h.checks, check{name: name, fn: fn, critical: critical})
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) run(ctx context.Context, c check) ServiceHealth {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.fn(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	result := ServiceHealth{
		Name:         c.name,
		Status:       StatusHealthy,
		ResponseTime: responseTime,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		h.logger.WithError(err).WithField("service", c.name).Error("Health check failed")
	}
	return result
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, 0, len(h.checks))
	overallStatus := StatusHealthy

	for _, c := range h.checks {
		result := h.run(ctx, c)
		services = append(services, result)

		if result.Status != StatusUnhealthy {
			continue
		}
		if c.critical {
			overallStatus = StatusUnhealthy
		} else if overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
}
