// Package api is the client for the remote thread-search and
// thread-history endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/thread-analytics/internal/models"
	"go.uber.org/zap"
)

const (
	defaultPageSize       = 1000
	defaultPageDelay      = 100 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
)

// ClientConfig carries the remote API settings. BaseURL is mandatory;
// everything else falls back to defaults.
type ClientConfig struct {
	BaseURL        string
	PageSize       int
	PageDelay      time.Duration
	RequestTimeout time.Duration
}

// Client talks to the remote agent API. The HTTP client is injected so
// tests can substitute a fake transport; passing nil builds one with
// the configured per-call timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
	pageDelay  time.Duration
	logger     *zap.Logger
}

// NewClient validates the configuration and builds a client. A missing
// base URL is a fatal configuration error: the aggregation pipeline
// cannot exist without the remote API.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("thread API base URL is not configured")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		pageSize:   cfg.PageSize,
		pageDelay:  cfg.PageDelay,
		logger:     logger,
	}, nil
}

// FetchOptions restricts a full fetch. Dates are inclusive YYYY-MM-DD
// bounds applied per page; MaxThreads caps the total (0 = unlimited).
type FetchOptions struct {
	DateFrom   string
	DateTo     string
	MaxThreads int
}

type searchRequest struct {
	Metadata  map[string]any `json:"metadata"`
	Values    map[string]any `json:"values"`
	Status    string         `json:"status"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
	SortBy    string         `json:"sort_by"`
	SortOrder string         `json:"sort_order"`
}

// SearchThreads fetches one page of thread records, newest first.
func (c *Client) SearchThreads(ctx context.Context, limit, offset int) ([]models.ThreadRecord, error) {
	payload := searchRequest{
		Metadata:  map[string]any{},
		Values:    map[string]any{},
		Status:    "idle",
		Limit:     limit,
		Offset:    offset,
		SortBy:    "updated_at",
		SortOrder: "desc",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding search request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/threads/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building search request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var threads []models.ThreadRecord
	if err := c.doJSON(req, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// FetchAllThreads paginates the search endpoint until a page comes back
// empty. A failed page is logged and treated as end-of-stream: a
// transient failure truncates the result instead of aborting the fetch.
func (c *Client) FetchAllThreads(ctx context.Context, opts FetchOptions) []models.ThreadRecord {
	var all []models.ThreadRecord
	offset := 0

	for {
		page, err := c.SearchThreads(ctx, c.pageSize, offset)
		if err != nil {
			c.logger.Warn("thread search page failed, stopping pagination",
				zap.Int("offset", offset),
				zap.Error(err))
			break
		}
		if len(page) == 0 {
			break
		}

		if opts.DateFrom != "" || opts.DateTo != "" {
			page = filterThreadsByDate(page, opts.DateFrom, opts.DateTo)
		}
		all = append(all, page...)

		if opts.MaxThreads > 0 && len(all) >= opts.MaxThreads {
			all = all[:opts.MaxThreads]
			break
		}

		offset += c.pageSize
		// Constant backpressure between pages so the remote service is
		// not flooded.
		time.Sleep(c.pageDelay)
	}

	c.logger.Info("fetched threads", zap.Int("count", len(all)))
	return all
}

// GetThreadHistory fetches the execution history of one thread. Any
// transport or decode failure is logged and yields an empty history;
// the caller treats the thread as having no conversation. Malformed
// elements inside an otherwise valid array are skipped individually.
func (c *Client) GetThreadHistory(ctx context.Context, threadID string) []models.HistoryItem {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/threads/"+url.PathEscape(threadID)+"/history", nil)
	if err != nil {
		c.logger.Warn("error building history request",
			zap.String("thread_id", threadID),
			zap.Error(err))
		return nil
	}

	var raw []json.RawMessage
	if err := c.doJSON(req, &raw); err != nil {
		c.logger.Warn("failed to fetch thread history",
			zap.String("thread_id", threadID),
			zap.Error(err))
		return nil
	}

	items := make([]models.HistoryItem, 0, len(raw))
	for _, element := range raw {
		var item models.HistoryItem
		if err := json.Unmarshal(element, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response from %s: %v", req.URL.Path, err)
	}
	return nil
}

// filterThreadsByDate keeps the records whose updated_at date falls
// inside the inclusive [from, to] window. Records with a missing or
// unparsable updated_at are dropped while a filter is active.
func filterThreadsByDate(threads []models.ThreadRecord, from, to string) []models.ThreadRecord {
	filtered := make([]models.ThreadRecord, 0, len(threads))
	for _, thread := range threads {
		date, ok := models.DateOf(thread.UpdatedAt)
		if !ok {
			continue
		}
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		filtered = append(filtered, thread)
	}
	return filtered
}
