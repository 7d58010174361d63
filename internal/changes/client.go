package changes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/camuig/pankou/internal/logger"
)

const (
	DefaultURL = "http://localhost:61125/api/changes/json"

	maxBodySize = 8 << 20
)

type Client struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(url string, timeout time.Duration, log *logger.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

func (c *Client) URL() string { return c.url }

// FetchChanges issues one GET against the source. An empty array is a valid
// "no changes" answer and returns a non-nil empty slice.
func (c *Client) FetchChanges(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if events == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}

	c.logger.Debug("changes fetched", "count", len(events))
	return events, nil
}
