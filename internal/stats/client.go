package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// Client is a Collector backed by the HTTP statistics service.
type Client struct {
	baseURL string
	app     string
	http    *http.Client
}

// NewClient creates a client for the collector at baseURL. Hits without an
// app name are recorded under app.
func NewClient(baseURL, app string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		app:     app,
		http:    &http.Client{Timeout: timeout},
	}
}

type hitPayload struct {
	App       string         `json:"app"`
	URI       string         `json:"uri"`
	IP        string         `json:"ip"`
	Timestamp model.DateTime `json:"timestamp"`
}

// RecordHit implements Collector with POST /hit.
func (c *Client) RecordHit(ctx context.Context, hit Hit) error {
	if hit.App == "" {
		hit.App = c.app
	}
	body, err := json.Marshal(hitPayload{
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: model.NewDateTime(hit.Timestamp),
	})
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build hit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send hit: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ViewCounts implements Collector with GET /stats.
func (c *Client) ViewCounts(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ViewStats, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(model.DateTimeLayout))
	q.Set("end", end.UTC().Format(model.DateTimeLayout))
	if len(uris) > 0 {
		q.Set("uris", strings.Join(uris, ","))
	}
	q.Set("unique", strconv.FormatBool(unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out []ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return out, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("stats service responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
