// backend/internal/api/handlers/search.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/Ayash-Bera/placefinder/backend/internal/services"
	"github.com/Ayash-Bera/placefinder/backend/internal/validation"
	"github.com/Ayash-Bera/placefinder/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	msgUpstreamFailed = "upstream search failed"
	msgSaveFailed     = "failed to save search"
	msgLoadFailed     = "failed to load search history"
	msgNotFound       = "query not found"
	msgInternal       = "internal server error"
)

type SearchHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
	// exposeErrors appends the underlying cause to 500 responses.
	exposeErrors bool
}

func NewSearchHandler(searchService *services.SearchService, logger *logrus.Logger, exposeErrors bool) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
		exposeErrors:  exposeErrors,
	}
}

// HandleSearch validates the body, runs the search pipeline and returns the
// enriched results.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	params, err := validation.ValidateSearchRequest(body)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			h.logger.WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"fields":     verr.Fields,
			}).Info("Rejected invalid search request")
			c.JSON(http.StatusBadRequest, verr.Fields)
			return
		}
		h.logger.WithError(err).Error("Search request validation failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, msgInternal)
		return
	}

	outcome, err := h.searchService.Search(c.Request.Context(), params)
	if err != nil {
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("Search failed")
		switch {
		case errors.Is(err, services.ErrUpstream):
			utils.ErrorResponseWithCause(c, http.StatusInternalServerError, msgUpstreamFailed, services.Cause(err), h.exposeErrors)
		case errors.Is(err, services.ErrPersistence):
			utils.ErrorResponseWithCause(c, http.StatusInternalServerError, msgSaveFailed, services.Cause(err), h.exposeErrors)
		default:
			utils.ErrorResponseWithCause(c, http.StatusInternalServerError, msgInternal, err, h.exposeErrors)
		}
		return
	}

	c.JSON(http.StatusOK, outcome.Response)
}

// HandleHistory lists every recorded search, newest first.
func (h *SearchHandler) HandleHistory(c *gin.Context) {
	queries, err := h.searchService.History(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load search history")
		utils.ErrorResponseWithCause(c, http.StatusInternalServerError, msgLoadFailed, services.Cause(err), h.exposeErrors)
		return
	}
	if queries == nil {
		queries = []models.SearchQuery{}
	}

	c.JSON(http.StatusOK, queries)
}

// HandleResults returns the stored results of one query.
func (h *SearchHandler) HandleResults(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("query_id"), 10, 0)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusNotFound, msgNotFound)
		return
	}

	results, err := h.searchService.Results(c.Request.Context(), uint(id))
	if errors.Is(err, services.ErrNotFound) {
		utils.ErrorResponse(c, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("query_id", id).Error("Failed to load search results")
		utils.ErrorResponseWithCause(c, http.StatusInternalServerError, msgLoadFailed, services.Cause(err), h.exposeErrors)
		return
	}

	c.JSON(http.StatusOK, results)
}
