package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ayash-Bera/placefinder/backend/internal/api/handlers"
	"github.com/Ayash-Bera/placefinder/backend/internal/database"
	"github.com/Ayash-Bera/placefinder/backend/internal/health"
	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/Ayash-Bera/placefinder/backend/internal/placesapi"
	"github.com/Ayash-Bera/placefinder/backend/internal/repository"
	"github.com/Ayash-Bera/placefinder/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	calls  int
}

const oneRestaurant = `{"results": [{"place_id": "p1", "name": "Test", "location": {"lat": 24.7136, "lng": 46.6753}, "rating": 4.5, "types": ["restaurant"]}]}`

// newTestServer wires the real stack against SQLite and an upstream that
// answers with the given status and body.
func newTestServer(t *testing.T, status int, body string, exposeErrors bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &testServer{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)

	db, err := database.Open("sqlite:"+filepath.Join(t.TempDir(), "places.db"), "silent", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	ts.db = db

	client := placesapi.NewClient(placesapi.Options{Endpoint: upstream.URL}, logger)
	svc := services.NewSearchService(client, repository.NewRepositoryManager(db), nil, logger)

	checker := health.NewHealthChecker(0, logger)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	checker.Register("database", sqlDB.PingContext, true)

	ts.router = NewRouter(
		handlers.NewSearchHandler(svc, logger, exposeErrors),
		handlers.NewHealthHandler(checker),
		logger,
	)
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) counts(t *testing.T) (queries, results int64) {
	t.Helper()
	require.NoError(t, ts.db.Model(&models.SearchQuery{}).Count(&queries).Error)
	require.NoError(t, ts.db.Model(&models.SearchResult{}).Count(&results).Error)
	return queries, results
}

func TestSearch_EnrichesAndPersists(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 24.7136, "longitude": 46.6753, "radius": 1000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results": [{
		"place_id": "p1",
		"name": "Test",
		"location": {"lat": 24.7136, "lng": 46.6753},
		"rating": 4.5,
		"types": ["restaurant"],
		"quality": "excellent",
		"distance_info": {"from_center": "50 meters approx."}
	}]}`, w.Body.String())

	queries, results := ts.counts(t)
	assert.Equal(t, int64(1), queries)
	assert.Equal(t, int64(1), results)
	assert.Equal(t, 1, ts.calls)
}

func TestSearch_ReturnsUpstreamPayloadWithAnnotations(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{"status": "OK", "results": [{
		"place_id": "p1",
		"name": "A",
		"vicinity": "Olaya",
		"opening_hours": {"open_now": true},
		"types": [],
		"address": null,
		"location": {"lat": 1, "lng": 2},
		"rating": 4.1,
		"user_ratings_total": 12.0
	}]}`, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "cafes", "latitude": 1, "longitude": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "OK", "results": [{
		"place_id": "p1",
		"name": "A",
		"vicinity": "Olaya",
		"opening_hours": {"open_now": true},
		"types": [],
		"address": null,
		"location": {"lat": 1, "lng": 2},
		"rating": 4.1,
		"user_ratings_total": 12.0,
		"quality": "very good",
		"distance_info": {"from_center": "50 meters approx."}
	}]}`, w.Body.String())

	var stored models.SearchResult
	require.NoError(t, ts.db.First(&stored).Error)
	assert.Nil(t, stored.Address)
	assert.Equal(t, models.StringArray{}, stored.Types)
	require.NotNil(t, stored.UserRatingsTotal)
	assert.Equal(t, 12, *stored.UserRatingsTotal)
}

func TestSearch_EmptyUpstreamReturnsEmptyArray(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{}`, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results": []}`, w.Body.String())

	queries, _ := ts.counts(t)
	assert.Equal(t, int64(1), queries)
}

func TestSearch_MissingCoordinates(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "radius": 1000}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fields map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fields))
	assert.Contains(t, fields, "latitude")
	assert.Contains(t, fields, "longitude")

	queries, results := ts.counts(t)
	assert.Zero(t, queries)
	assert.Zero(t, results)
	assert.Zero(t, ts.calls)
}

func TestSearch_RadiusOutOfRange(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2, "radius": 50001}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"radius": ["radius must not exceed 50000"]}`, w.Body.String())

	w = ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2, "radius": 3000000000}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"radius": ["radius must not exceed 50000"]}`, w.Body.String())
	assert.Zero(t, ts.calls)
}

func TestSearch_UpstreamErrorIsRedacted(t *testing.T) {
	ts := newTestServer(t, http.StatusBadGateway, `{"detail": "quota exceeded"}`, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "upstream search failed"}`, w.Body.String())

	queries, results := ts.counts(t)
	assert.Zero(t, queries)
	assert.Zero(t, results)
	assert.Equal(t, 1, ts.calls)
}

func TestSearch_UpstreamErrorExposed(t *testing.T) {
	ts := newTestServer(t, http.StatusBadGateway, `{"detail": "quota exceeded"}`, true)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["error"], "upstream search failed: "))
	assert.Contains(t, body["error"], "502")
	assert.Contains(t, body["error"], "quota exceeded")
}

func TestSearch_TransportFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	closed := httptest.NewServer(http.NotFoundHandler())
	endpoint := closed.URL
	closed.Close()

	db, err := database.Open("sqlite:"+filepath.Join(t.TempDir(), "places.db"), "silent", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	client := placesapi.NewClient(placesapi.Options{Endpoint: endpoint}, logger)
	svc := services.NewSearchService(client, repository.NewRepositoryManager(db), nil, logger)
	router := NewRouter(handlers.NewSearchHandler(svc, logger, false), nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/search/", strings.NewReader(`{"query": "restaurants", "latitude": 1, "longitude": 2}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "upstream search failed"}`, w.Body.String())

	var queries int64
	require.NoError(t, db.Model(&models.SearchQuery{}).Count(&queries).Error)
	assert.Zero(t, queries)
}

func TestSearch_UnparseableUpstream(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `<html>oops</html>`, false)

	w := ts.do(http.MethodPost, "/search/", `{"query": "restaurants", "latitude": 1, "longitude": 2}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	queries, _ := ts.counts(t)
	assert.Zero(t, queries)
}

func TestHistoryAndResults(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	w := ts.do(http.MethodGet, "/history/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, q := range []string{"restaurants", "cafes"} {
		w = ts.do(http.MethodPost, "/search/", fmt.Sprintf(`{"query": %q, "latitude": 24.7136, "longitude": 46.6753}`, q))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = ts.do(http.MethodGet, "/history/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var history []struct {
		ID        uint    `json:"id"`
		Query     string  `json:"query"`
		Radius    int     `json:"radius"`
		CreatedAt string  `json:"created_at"`
		Latitude  float64 `json:"latitude"`
		Results   []map[string]any
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "cafes", history[0].Query)
	assert.Equal(t, 1000, history[0].Radius)
	assert.NotEmpty(t, history[0].CreatedAt)
	require.Len(t, history[1].Results, 1)
	assert.Equal(t, "p1", history[1].Results[0]["place_id"])
	assert.NotContains(t, history[1].Results[0], "search_query_id")

	w = ts.do(http.MethodGet, fmt.Sprintf("/results/%d/", history[1].ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Test", results[0]["name"])
	assert.Nil(t, results[0]["address"])
	assert.Nil(t, results[0]["user_ratings_total"])
	assert.Equal(t, []any{"restaurant"}, results[0]["types"])
	assert.Equal(t, map[string]any{
		"quality":       "excellent",
		"distance_info": map[string]any{"from_center": "50 meters approx."},
	}, results[0]["custom_data"])
}

func TestResults_NotFound(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	for _, path := range []string{"/results/999/", "/results/abc/", "/results/0/", "/results/-1/"} {
		w := ts.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.JSONEq(t, `{"error": "query not found"}`, w.Body.String(), path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)

	w := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var result health.OverallHealth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, health.StatusHealthy, result.Status)
	require.Len(t, result.Services, 1)
	assert.Equal(t, "database", result.Services[0].Name)

	w = ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "placefinder_http_requests_total")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth_UnhealthyDatabase(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, oneRestaurant, false)
	sqlDB, err := ts.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
