package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
	"github.com/claude/gymflow/internal/storage"
)

// HTTPClient implements DataSource by calling the GymFlow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "1 day":
		return "daily"
	case "1 week":
		return "weekly"
	case "1 month":
		return "monthly"
	default:
		return "weekly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QueryIntervalSessions(ctx context.Context, start, end time.Time, _ int) ([]models.IntervalSessionRow, error) {
	body, err := c.get(ctx, "/api/v1/sessions", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var sessions []models.IntervalSessionRow
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

func (c *HTTPClient) GetIntervalSession(ctx context.Context, id uuid.UUID, _ int) (*storage.SessionDetail, error) {
	body, err := c.get(ctx, "/api/v1/sessions/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var detail storage.SessionDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("httpclient: decode session detail: %w", err)
	}
	return &detail, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	body, err := c.get(ctx, "/api/v1/summary", params)
	if err != nil {
		return nil, err
	}

	var periods []storage.TrainingSummaryPeriod
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("httpclient: decode training summary: %w", err)
	}
	return periods, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context, _ int) ([]models.WorkoutTemplate, error) {
	body, err := c.get(ctx, "/api/v1/templates", nil)
	if err != nil {
		return nil, err
	}

	var templates []models.WorkoutTemplate
	if err := json.Unmarshal(body, &templates); err != nil {
		return nil, fmt.Errorf("httpclient: decode templates: %w", err)
	}
	return templates, nil
}

func (c *HTTPClient) ListSetGroups(ctx context.Context, templateID uuid.UUID, _ int) ([]models.SetGroup, error) {
	body, err := c.get(ctx, "/api/v1/templates/"+templateID.String(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		SetGroups []models.SetGroup `json:"set_groups"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode set groups: %w", err)
	}
	return resp.SetGroups, nil
}

func (c *HTTPClient) QuerySchedule(ctx context.Context, start, end time.Time, _ int) ([]models.ScheduledWorkout, error) {
	body, err := c.get(ctx, "/api/v1/schedule", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var entries []models.ScheduledWorkout
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("httpclient: decode schedule: %w", err)
	}
	return entries, nil
}

func (c *HTTPClient) UpcomingOccurrences(ctx context.Context, from, to time.Time, _ int) ([]storage.Occurrence, error) {
	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}
	params := url.Values{}
	params.Set("days", fmt.Sprintf("%d", days))

	body, err := c.get(ctx, "/api/v1/schedule/upcoming", params)
	if err != nil {
		return nil, err
	}

	var occurrences []storage.Occurrence
	if err := json.Unmarshal(body, &occurrences); err != nil {
		return nil, fmt.Errorf("httpclient: decode upcoming occurrences: %w", err)
	}
	return occurrences, nil
}
