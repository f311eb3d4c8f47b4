package api

import (
	"github.com/Ayash-Bera/placefinder/backend/internal/api/handlers"
	"github.com/Ayash-Bera/placefinder/backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the HTTP surface. health may be nil.
func NewRouter(search *handlers.SearchHandler, health *handlers.HealthHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.PrometheusMiddleware())

	r.POST("/search/", search.HandleSearch)
	r.GET("/history/", search.HandleHistory)
	r.GET("/results/:query_id/", search.HandleResults)

	if health != nil {
		r.GET("/health", health.HandleHealth)
	}
	r.GET("/metrics", middleware.PrometheusHandler())

	return r
}
