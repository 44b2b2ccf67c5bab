// Package catalog provides a client for STAC API item search.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/robert-malhotra/landcover/internal/query"
	"github.com/robert-malhotra/landcover/internal/stac"
)

const (
	// DefaultEndpoint is the Earth Search STAC API.
	DefaultEndpoint = "https://earth-search.aws.element84.com/v1"

	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 100

	// DefaultMaxPages bounds how many next links are followed.
	DefaultMaxPages = 20
)

var (
	// ErrUnavailable is returned for transport or backend failures.
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrNoMatchingScenes is returned when a search succeeds with zero items.
	ErrNoMatchingScenes = errors.New("no matching scenes")
)

// Searcher finds scene items for a validated query.
type Searcher interface {
	Search(ctx context.Context, spec query.Spec) ([]*stac.Item, error)
}

// Client handles communication with a STAC API search endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	filterMode stac.FilterMode
	pageSize   int
	maxPages   int
	logger     *slog.Logger
}

// NewClient creates a new catalog client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		filterMode: stac.FilterModeQuery,
		pageSize:   DefaultPageSize,
		maxPages:   DefaultMaxPages,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithRateLimit limits page requests to rps per second. rps <= 0 disables
// the limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithFilterMode selects how cloud-cover predicates are encoded.
func (c *Client) WithFilterMode(mode stac.FilterMode) *Client {
	c.filterMode = mode
	return c
}

// WithPaging sets the page size and the maximum number of pages fetched.
func (c *Client) WithPaging(pageSize, maxPages int) *Client {
	if pageSize > 0 {
		c.pageSize = pageSize
	}
	if maxPages > 0 {
		c.maxPages = maxPages
	}
	return c
}

// Search runs the item search for spec and returns every item across all
// pages. A search with zero results returns ErrNoMatchingScenes.
func (c *Client) Search(ctx context.Context, spec query.Spec) ([]*stac.Item, error) {
	req, err := stac.NewSearchRequest(
		[]string{spec.Collection()},
		spec.BBox().Slice(),
		spec.Datetime(),
		spec.Predicates(),
		c.pageSize,
		c.filterMode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	body, err := req.Body()
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "executing catalog search",
		slog.String("endpoint", c.endpoint),
		slog.String("collection", spec.Collection()),
		slog.String("bbox", spec.BBox().String()),
		slog.String("datetime", req.DateTime),
		slog.Any("predicates", spec.Predicates()),
	)

	var items []*stac.Item
	method, href := http.MethodPost, c.endpoint+"/search"

	for page := 1; ; page++ {
		result, err := c.fetchPage(ctx, method, href, body)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Features...)
		if page == 1 {
			if matched := result.Matched(); matched != nil {
				c.logger.DebugContext(ctx, "catalog reported matches", slog.Int("matched", *matched))
			}
		}

		next := result.Next()
		if next == nil {
			break
		}
		if page >= c.maxPages {
			c.logger.WarnContext(ctx, "catalog search truncated at page limit",
				slog.Int("max_pages", c.maxPages),
				slog.Int("items", len(items)),
			)
			break
		}

		href = next.Href
		if strings.EqualFold(next.Method, http.MethodPost) {
			method = http.MethodPost
			body = stac.NextBody(body, next)
		} else {
			method = http.MethodGet
		}
	}

	c.logger.DebugContext(ctx, "catalog search completed",
		slog.Int("returned", len(items)),
	)

	if len(items) == 0 {
		return nil, ErrNoMatchingScenes
	}
	return items, nil
}

// fetchPage executes one search request.
func (c *Client) fetchPage(ctx context.Context, method, href string, body map[string]any) (*stac.ItemCollection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if method == http.MethodPost {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode search body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, href, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}

	req.Header.Set("Accept", stac.MediaGeoJSON)
	req.Header.Set("User-Agent", "landcover/1.0")
	if reader != nil {
		req.Header.Set("Content-Type", stac.MediaJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorContext(ctx, "catalog request failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "catalog returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(respBody)),
		)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var page stac.ItemCollection
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode catalog response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	return &page, nil
}
