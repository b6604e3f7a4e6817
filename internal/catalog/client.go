// Package catalog talks to the upstream book catalog (a Google Books style
// volumes API). All access goes through a circuit breaker so a misbehaving
// upstream degrades the search feature instead of piling up requests.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/librovision/librovision/model"
)

// UpstreamError is a failed catalog request.
type UpstreamError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog request failed (status %d): %s", e.Status, e.Message)
}

// Credential reports whether the failure is an API credential problem on our
// side rather than an upstream outage.
func (e *UpstreamError) Credential() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Result is one page of search matches plus the upstream's total match count.
type Result struct {
	Items      []model.BookSummary
	TotalItems int
}

// Client searches the upstream catalog.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a catalog client. The breaker opens after five consecutive
// failures and probes again after 30 seconds.
func New(baseURL, apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: cb,
		logger:  logger,
	}
}

// IsOpen reports whether the breaker is currently rejecting requests.
func (c *Client) IsOpen() bool {
	return c.breaker.State() == gobreaker.StateOpen
}

// Search queries the catalog's volumes endpoint. page is 1-based; maxResults
// is passed through to the upstream.
func (c *Client) Search(ctx context.Context, query string, page, maxResults int) (Result, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.search(ctx, query, page, maxResults)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return Result{}, ErrUnavailable
		}
		return Result{}, err
	}
	return out.(Result), nil
}

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = &UpstreamError{Status: http.StatusServiceUnavailable, Message: "catalog temporarily unavailable"}

func (c *Client) search(ctx context.Context, query string, page, maxResults int) (Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("startIndex", strconv.Itoa((page-1)*maxResults))
	params.Set("maxResults", strconv.Itoa(maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return Result{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, &UpstreamError{Status: http.StatusBadGateway, Message: "reading catalog response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("catalog returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("query", query))
		return Result{}, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}

	return parseVolumes(body)
}

// upstreamMessage pulls the human-readable message out of an upstream error
// body, falling back to a generic one.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return "upstream catalog error"
}

// volumesResponse mirrors the slice of the upstream schema we consume.
type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Description   string   `json:"description"`
			PublishedDate string   `json:"publishedDate"`
			ImageLinks    struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// parseVolumes normalizes the upstream volume shape into BookSummary rows.
// Rows with no title are catalog noise and are dropped.
func parseVolumes(body []byte) (Result, error) {
	var vr volumesResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return Result{}, &UpstreamError{Status: http.StatusBadGateway, Message: "malformed catalog response"}
	}

	items := make([]model.BookSummary, 0, len(vr.Items))
	for _, v := range vr.Items {
		if v.VolumeInfo.Title == "" {
			continue
		}
		items = append(items, model.BookSummary{
			ID:            v.ID,
			Title:         v.VolumeInfo.Title,
			Authors:       v.VolumeInfo.Authors,
			Description:   v.VolumeInfo.Description,
			CoverURL:      v.VolumeInfo.ImageLinks.Thumbnail,
			PublishedYear: publishedYear(v.VolumeInfo.PublishedDate),
		})
	}
	return Result{Items: items, TotalItems: vr.TotalItems}, nil
}

// publishedYear extracts the year from the upstream's date strings, which
// arrive as "2006", "2006-01" or "2006-01-02".
func publishedYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
