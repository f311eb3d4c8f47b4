package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestGetLogger_UsesJSON(t *testing.T) {
	logger := GetLogger()
	assert.Same(t, logger, GetLogger())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	SetLogLevel("debug")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	SetLogLevel("info")
}

func TestErrorResponseWithCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cause := errors.New("dial tcp: connection refused")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ErrorResponseWithCause(c, http.StatusInternalServerError, "upstream search failed", cause, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "upstream search failed"}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ErrorResponseWithCause(c, http.StatusInternalServerError, "upstream search failed", cause, true)
	assert.JSONEq(t, `{"error": "upstream search failed: dial tcp: connection refused"}`, w.Body.String())
}
