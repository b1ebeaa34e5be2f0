// Package client talks to a running shelfsight API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/report"
	"shelfsight/server/internal/services"

	"github.com/go-resty/resty/v2"
)

// ShelvesResponse is the body of POST /v1/shelves.
type ShelvesResponse struct {
	ShelfInteractions     map[string]int     `json:"shelf_interactions"`
	LayoutRecommendations []report.LayoutRow `json:"layout_recommendations"`
	TotalInteractions     int                `json:"total_interactions"`
	TotalShelves          int                `json:"total_shelves"`
}

// JourneyResponse is the body of POST /v1/journey.
type JourneyResponse struct {
	ActionShelfMapping []journey.Entry  `json:"action_shelf_mapping"`
	JourneyAnalysis    journey.Analysis `json:"journey_analysis"`
}

// AnalysisResponse is a stored analysis.
type AnalysisResponse struct {
	ID          string    `json:"id"`
	VideoName   string    `json:"video_name"`
	FrameWidth  int       `json:"frame_width"`
	FrameHeight int       `json:"frame_height"`
	CreatedAt   time.Time `json:"created_at"`
	ShelvesResponse
	JourneyResponse
}

type apiError struct {
	Error string `json:"error"`
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shelfsight api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	http *resty.Client
}

// New creates a client for the API at baseURL, e.g. http://localhost:5050.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetError(&apiError{}),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.http.R().SetContext(ctx).SetResult(result)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// Health returns the reported server status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, resty.MethodGet, "/health", nil, &res); err != nil {
		return "", err
	}
	return res.Status, nil
}

func (c *Client) AnalyzeShelves(ctx context.Context, job services.Job) (*ShelvesResponse, error) {
	var res ShelvesResponse
	if err := c.do(ctx, resty.MethodPost, "/v1/shelves", job, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AnalyzeJourney(ctx context.Context, entries []journey.Entry) (*JourneyResponse, error) {
	body := map[string][]journey.Entry{"action_shelf_mapping": entries}
	var res JourneyResponse
	if err := c.do(ctx, resty.MethodPost, "/v1/journey", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateAnalysis runs and stores a job on the server.
func (c *Client) CreateAnalysis(ctx context.Context, job services.Job) (*AnalysisResponse, error) {
	var res AnalysisResponse
	if err := c.do(ctx, resty.MethodPost, "/v1/analyses", job, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (*AnalysisResponse, error) {
	var res AnalysisResponse
	if err := c.do(ctx, resty.MethodGet, "/v1/analyses/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
