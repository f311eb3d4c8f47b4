// backend/internal/services/search.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/Ayash-Bera/placefinder/backend/internal/placesapi"
	"github.com/Ayash-Bera/placefinder/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// NearbySearcher is the remote places search.
type NearbySearcher interface {
	SearchNearby(ctx context.Context, req placesapi.NearbySearchRequest) (*placesapi.NearbySearchResponse, error)
}

// ResultsCache holds copies of persisted results keyed by query id. GetResults
// returns an error on a miss.
type ResultsCache interface {
	GetResults(ctx context.Context, queryID uint) ([]models.SearchResult, error)
	SetResults(ctx context.Context, queryID uint, results []models.SearchResult) error
	InvalidateResults(ctx context.Context, queryID uint) error
}

type SearchService struct {
	places      NearbySearcher
	repoManager *repository.RepositoryManager
	cache       ResultsCache
	logger      *logrus.Logger
}

// SearchOutcome is what a successful search returns: the enriched payload
// and the query as it was stored.
type SearchOutcome struct {
	Response models.SearchResponse
	Query    *models.SearchQuery
}

// NewSearchService wires the pipeline. cache may be nil.
func NewSearchService(
	places NearbySearcher,
	repoManager *repository.RepositoryManager,
	cache ResultsCache,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		places:      places,
		repoManager: repoManager,
		cache:       cache,
		logger:      logger,
	}
}

// Search calls the places API, enriches the results and records the query
// with its results. It keeps running if ctx is cancelled so that a client
// disconnect never leaves a search half done.
func (s *SearchService) Search(ctx context.Context, params models.SearchParams) (*SearchOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	log := s.logger.WithFields(logrus.Fields{
		"query":     params.Query,
		"latitude":  params.Latitude,
		"longitude": params.Longitude,
		"radius":    params.Radius,
	})
	log.Debug("Starting nearby search")

	remote, err := s.places.SearchNearby(ctx, placesapi.NearbySearchRequest{
		Query:     params.Query,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
		Radius:    params.Radius,
	})
	if err != nil {
		log.WithError(err).Error("Places search failed")
		return nil, tag(ErrUpstream, err)
	}

	enriched := EnrichResults(remote.Results)

	rows := make([]models.SearchResult, 0, len(enriched))
	for _, place := range enriched {
		rows = append(rows, toSearchResult(place))
	}

	query := &models.SearchQuery{
		Query:     params.Query,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
		Radius:    params.Radius,
	}
	if err := s.repoManager.SearchQuery.CreateWithResults(ctx, query, rows); err != nil {
		log.WithError(err).Error("Failed to save search")
		return nil, tag(ErrPersistence, err)
	}

	log.WithFields(logrus.Fields{
		"query_id":      query.ID,
		"results_count": len(enriched),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Search completed successfully")

	return &SearchOutcome{
		Response: models.SearchResponse{Results: enriched, Extra: remote.Extra},
		Query:    query,
	}, nil
}

// History lists every recorded query, newest first, with nested results.
func (s *SearchService) History(ctx context.Context) ([]models.SearchQuery, error) {
	queries, err := s.repoManager.SearchQuery.ListWithResults(ctx)
	if err != nil {
		return nil, tag(ErrPersistence, err)
	}
	return queries, nil
}

// Results returns the stored results of one query.
func (s *SearchService) Results(ctx context.Context, queryID uint) ([]models.SearchResult, error) {
	if s.cache != nil {
		cached, err := s.cache.GetResults(ctx, queryID)
		if err == nil {
			s.logger.WithField("query_id", queryID).Debug("Results served from cache")
			return cached, nil
		}
		s.logger.WithError(err).WithField("query_id", queryID).Debug("Results cache miss")
	}

	results, err := s.repoManager.SearchQuery.GetResults(ctx, queryID)
	if errors.Is(err, repository.ErrQueryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, tag(ErrPersistence, err)
	}

	if s.cache != nil {
		if err := s.fillCache(ctx, queryID, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// fillCache stores results, then drops them again if the query was deleted
// while they were being loaded.
func (s *SearchService) fillCache(ctx context.Context, queryID uint, results []models.SearchResult) error {
	log := s.logger.WithField("query_id", queryID)
	if err := s.cache.SetResults(ctx, queryID, results); err != nil {
		log.WithError(err).Warn("Failed to cache search results")
		return nil
	}

	exists, err := s.repoManager.SearchQuery.Exists(ctx, queryID)
	if err == nil && exists {
		return nil
	}
	if invalidateErr := s.cache.InvalidateResults(ctx, queryID); invalidateErr != nil {
		log.WithError(invalidateErr).Warn("Failed to invalidate cached results")
	}
	if err != nil {
		return tag(ErrPersistence, err)
	}
	return ErrNotFound
}

// Query returns one stored query with its results.
func (s *SearchService) Query(ctx context.Context, queryID uint) (*models.SearchQuery, error) {
	query, err := s.repoManager.SearchQuery.GetByID(ctx, queryID)
	if errors.Is(err, repository.ErrQueryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, tag(ErrPersistence, err)
	}
	return query, nil
}

// DeleteQuery removes a query and its results.
func (s *SearchService) DeleteQuery(ctx context.Context, queryID uint) error {
	err := s.repoManager.SearchQuery.Delete(ctx, queryID)
	if errors.Is(err, repository.ErrQueryNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return tag(ErrPersistence, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateResults(ctx, queryID); err != nil {
			s.logger.WithError(err).WithField("query_id", queryID).Warn("Failed to invalidate cached results")
		}
	}

	s.logger.WithField("query_id", queryID).Info("Search query deleted")
	return nil
}

func (s *SearchService) FindQueries(ctx context.Context, filter models.QueryFilter) ([]models.SearchQuery, error) {
	queries, err := s.repoManager.SearchQuery.Find(ctx, filter)
	if err != nil {
		return nil, tag(ErrPersistence, err)
	}
	return queries, nil
}

func (s *SearchService) FindResults(ctx context.Context, filter models.ResultFilter) ([]models.SearchResult, error) {
	results, err := s.repoManager.SearchResult.Find(ctx, filter)
	if err != nil {
		return nil, tag(ErrPersistence, err)
	}
	return results, nil
}
