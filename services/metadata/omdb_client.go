package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Minimal OMDb client (search-by-title endpoint only).

const omdbBaseURL = "http://www.omdbapi.com/"

type omdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newOMDbClient(apiKey string, httpc *http.Client) *omdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &omdbClient{apiKey: apiKey, httpc: httpc}
}

// omdbResponse is the flat object OMDb returns for a title lookup. Response
// is the hit/miss discriminator ("True"/"False").
type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Plot       string `json:"Plot"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Genre      string `json:"Genre"`
	Runtime    string `json:"Runtime"`
	IMDBRating string `json:"imdbRating"`
	Poster     string `json:"Poster"`
}

// lookup performs a single search-by-title call. A non-2xx status is
// reported through the returned status code with a nil response; transport
// errors come back as an error.
func (c *omdbClient) lookup(ctx context.Context, title string) (*omdbResponse, int, error) {
	q := url.Values{}
	q.Set("t", title)
	q.Set("type", "movie")
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, omdbBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var data omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode OMDb response: %w", err)
	}
	return &data, resp.StatusCode, nil
}
