package brightdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
	return srv, c
}

func TestSearch_ReturnsOrganicResults(t *testing.T) {
	var gotReq searchRequest
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(searchResponse{Organic: []Result{
			{URL: "https://example.org/rfp", Title: "RFP: Ticketing Platform", Snippet: "sealed proposals due"},
			{URL: "https://example.org/bids", Title: "Open Bids", Snippet: "current solicitations"},
		}})
	})

	results, err := c.Search(context.Background(), `"Riverside FC" RFP`, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.org/rfp", results[0].URL)
	assert.Equal(t, `"Riverside FC" RFP`, gotReq.Query)
	assert.Equal(t, 10, gotReq.Num)
}

func TestSearch_EmptyResultsIsNotError(t *testing.T) {
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{})
	})

	results, err := c.Search(context.Background(), "no hits here", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ServerErrorIsSearchError(t *testing.T) {
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	require.True(t, IsSearchError(err))

	var se *SearchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	c := NewClient("test-key", WithRateLimit(0))
	_, err := c.Search(context.Background(), "", 5)
	require.Error(t, err)
	assert.False(t, IsSearchError(err))
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{Organic: []Result{
			{URL: "a"}, {URL: "b"}, {URL: "c"},
		}})
	})

	results, err := c.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// Empty option values must not clobber the client's endpoint defaults: the
// config layer passes its settings through unconditionally.
func TestOptions_EmptyValuesKeepDefaults(t *testing.T) {
	c := &httpClient{baseURL: defaultBaseURL, zone: defaultZone}

	WithBaseURL("")(c)
	WithZone("")(c)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultZone, c.zone)

	WithBaseURL("https://example.org/request")(c)
	WithZone("serp_api2")(c)
	assert.Equal(t, "https://example.org/request", c.baseURL)
	assert.Equal(t, "serp_api2", c.zone)
}
