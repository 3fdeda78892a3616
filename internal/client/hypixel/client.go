// Package hypixel is a small client for the public SkyBlock auctions feed.
package hypixel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.hypixel.net"

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	maxRetry   int
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// ErrPageNotFound is returned when a page index is past the end of the feed.
var ErrPageNotFound = errors.New("hypixel: page not found")

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		maxRetry:   2,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetPage fetches one page of active auctions. Transient failures are
// retried a couple of times before giving up.
func (c *Client) GetPage(ctx context.Context, page int) (*Page, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be >= 0")
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetry; attempt++ {
		body, err := c.doRequest(ctx, "/v2/skyblock/auctions", query)
		if err == nil {
			return parsePage(body)
		}
		lastErr = err
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", ErrPageNotFound, page)
		}
		if !isRetryable(err) || ctx.Err() != nil || attempt == c.maxRetry {
			return nil, err
		}
		backoff := time.Duration(400+attempt*400) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func parsePage(body []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if !p.Success {
		return nil, fmt.Errorf("page %d: success=false", p.Page)
	}
	return &p, nil
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return true
}

// Walk fetches pages in order, starting at page 0 which carries the total
// page count. maxPages <= 0 walks the whole feed. fn is called once per page;
// returning an error stops the walk.
func (c *Client) Walk(ctx context.Context, maxPages int, fn func(*Page) error) error {
	first, err := c.GetPage(ctx, 0)
	if err != nil {
		return err
	}
	if err := fn(first); err != nil {
		return err
	}
	total := first.TotalPages
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}
	for page := 1; page < total; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := c.GetPage(ctx, page)
		if errors.Is(err, ErrPageNotFound) {
			// the feed shrank between requests
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}
