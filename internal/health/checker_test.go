package health

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker() *HealthChecker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHealthChecker(time.Second, logger)
}

func ok(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestCheckAll_Healthy(t *testing.T) {
	h := newChecker()
	h.Register("database", ok, true)
	h.Register("redis", ok, false)

	result := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	require.Len(t, result.Services, 2)
	assert.Equal(t, "database", result.Services[0].Name)
	assert.Equal(t, StatusHealthy, result.Services[1].Status)
	assert.Empty(t, result.Services[1].Error)
}

func TestCheckAll_NonCriticalFailureDegrades(t *testing.T) {
	h := newChecker()
	h.Register("database", ok, true)
	h.Register("places_api", failing("connection refused"), false)

	result := h.CheckAll(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.Equal(t, StatusUnhealthy, result.Services[1].Status)
	assert.Equal(t, "connection refused", result.Services[1].Error)
}

func TestCheckAll_CriticalFailureIsUnhealthy(t *testing.T) {
	h := newChecker()
	h.Register("redis", failing("timeout"), false)
	h.Register("database", failing("database is closed"), true)

	result := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
}

func TestCheckAll_AppliesTimeout(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewHealthChecker(10*time.Millisecond, logger)
	h.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	result := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Contains(t, result.Services[0].Error, "deadline exceeded")
}

func TestCheckAll_NoChecks(t *testing.T) {
	result := newChecker().CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.NotNil(t, result.Services)
	assert.NotEmpty(t, result.Uptime)
}
