package placesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_upstream_requests_total",
			Help: "Total number of places API calls by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placefinder_upstream_request_duration_seconds",
			Help:    "Places API round trip latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

type Client struct {
	endpoint   string
	apiKey     string
	healthURL  string
	httpClient *http.Client
	logger     *logrus.Logger
}

type Options struct {
	// Endpoint receives the nearby-search POST as-is.
	Endpoint  string
	APIKey    string
	HealthURL string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

func NewClient(opts Options, logger *logrus.Logger) *Client {
	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		healthURL:  opts.HealthURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// SearchNearby performs exactly one call to the places API. Every failure is
// returned as *UpstreamError.
func (c *Client) SearchNearby(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	start := time.Now()

	var response NearbySearchResponse
	outcome, err := c.doSearch(ctx, req, &response)

	upstreamRequestsTotal.WithLabelValues(outcome).Inc()
	upstreamRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) doSearch(ctx context.Context, payload NearbySearchRequest, result *NearbySearchResponse) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "request_error", &UpstreamError{Reason: "request could not be encoded", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"url":          c.endpoint,
		"query":        payload.Query,
		"radius":       payload.Radius,
		"payload_size": len(jsonData),
	}).Debug("Making places API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "request_error", &UpstreamError{Reason: "request could not be created", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "transport_error", &UpstreamError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "transport_error", &UpstreamError{Reason: "response could not be read", StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"url":           c.endpoint,
		"response_size": len(responseBody),
	}).Debug("Places API response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "status_error", &UpstreamError{
			Reason:     "returned an error status",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(bytes.TrimSpace(responseBody)), maxErrorBody),
		}
	}

	if err := decodeResponse(responseBody, result); err != nil {
		return "parse_error", &UpstreamError{
			Reason:     "response could not be parsed",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return "success", nil
}

func decodeResponse(body []byte, result *NearbySearchResponse) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: empty body", ErrUnparseableResponse)
	}
	if err := json.Unmarshal(trimmed, result); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	return nil
}

// Ping checks the configured health URL. Without one it reports nothing.
func (c *Client) Ping(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// HealthCheckConfigured reports whether Ping will contact anything.
func (c *Client) HealthCheckConfigured() bool {
	return c.healthURL != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
