package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client syncs locally recorded runs to a GymFlow server.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a sync client for the given server. The API key is sent
// as the X-API-Key header on every request.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// SyncResult reports what a sync pushed.
type SyncResult struct {
	RunsSent     int `json:"runs_sent"`
	RunsInserted int `json:"runs_inserted"`
}

// Sync pushes all unsynced runs from db to the server and marks them synced.
// Runs are only marked after the server acknowledged the batch, so a failed
// sync retries the same runs next time.
func (c *Client) Sync(db *DB) (SyncResult, error) {
	runs, err := db.Unsynced()
	if err != nil {
		return SyncResult{}, err
	}
	if len(runs) == 0 {
		return SyncResult{}, nil
	}

	inserted, err := c.send(runs)
	if err != nil {
		return SyncResult{}, err
	}

	ids := make([]uuid.UUID, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if err := db.MarkSynced(ids); err != nil {
		return SyncResult{}, fmt.Errorf("marking runs synced: %w", err)
	}

	return SyncResult{RunsSent: len(runs), RunsInserted: inserted}, nil
}

// send POSTs a batch of runs to the ingest endpoint. Retries up to 3 times
// with exponential backoff on failure.
func (c *Client) send(runs []Run) (int, error) {
	data, err := json.Marshal(runs)
	if err != nil {
		return 0, fmt.Errorf("marshaling runs: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/ingest/runs", bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var result struct {
				RunsInserted int `json:"runs_inserted"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return 0, fmt.Errorf("decoding ingest response: %w", err)
			}
			return result.RunsInserted, nil
		}
		lastErr = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, body)
	}

	return 0, fmt.Errorf("after 3 attempts: %w", lastErr)
}
