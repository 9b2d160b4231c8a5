// Package brightdata provides a client for the Bright Data SERP API, the
// fallback web-search source for opportunity discovery.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.brightdata.com/request"
	defaultZone    = "serp_api"
)

// Client performs web searches and returns organic results.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result is a single organic search hit.
type Result struct {
	URL     string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchError is a transport failure from the search provider. It is distinct
// from an empty result set, which is a valid non-error outcome.
type SearchError struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *SearchError) Error() string {
	return "brightdata: search failed: " + e.Err.Error()
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// IsSearchError reports whether err chains to a SearchError.
func IsSearchError(err error) bool {
	var se *SearchError
	return errors.As(err, &se)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithZone overrides the default SERP zone. Empty keeps the default.
func WithZone(zone string) Option {
	return func(c *httpClient) {
		if zone != "" {
			c.zone = zone
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	zone    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Bright Data SERP client. Requests are throttled to
// 5 req/s by default.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		zone:    defaultZone,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Zone    string `json:"zone"`
	Query   string `json:"query"`
	Num     int    `json:"num,omitempty"`
	Format  string `json:"format"`
	Country string `json:"country,omitempty"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if query == "" {
		return nil, eris.New("brightdata: empty query")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "brightdata: rate limit")
		}
	}

	body, err := json.Marshal(searchRequest{
		Zone:   c.zone,
		Query:  query,
		Num:    maxResults,
		Format: "json",
	})
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchError{Query: query, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{
			Query:      query,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &SearchError{Query: query, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "unmarshal response")}
	}

	// An empty organic list is a legitimate "no results" outcome.
	if maxResults > 0 && len(result.Organic) > maxResults {
		result.Organic = result.Organic[:maxResults]
	}
	return result.Organic, nil
}
