package tokenterminal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ttindex/internal/logger"
)

const DefaultBaseURL = "https://api.tokenterminal.com"

type Client struct {
	HttpClient *http.Client
	ApiKey     string
	BaseURL    string
	// RateLimitWait is how long to back off after a 429
	RateLimitWait time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		HttpClient:    &http.Client{Timeout: 60 * time.Second},
		ApiKey:        apiKey,
		BaseURL:       DefaultBaseURL,
		RateLimitWait: 60 * time.Second,
	}
}

type Project struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
}

// DailyMetrics is one day of a project's metrics. Metrics the API
// does not report for the day are nil.
type DailyMetrics struct {
	Datetime             string   `json:"datetime"`
	Project              string   `json:"project"`
	Price                *float64 `json:"price"`
	MarketCap            *float64 `json:"market_cap"`
	MarketCapCirculating *float64 `json:"market_cap_circulating"`
	Revenue              *float64 `json:"revenue"`
	Ps                   *float64 `json:"ps"`
	PsCirculating        *float64 `json:"ps_circulating"`
	Pe                   *float64 `json:"pe"`
	PeCirculating        *float64 `json:"pe_circulating"`
}

// Ratios exposes the valuation metrics by their API names, for use
// in signal expressions.
func (m DailyMetrics) Ratios() map[string]*float64 {
	return map[string]*float64{
		"ps":             m.Ps,
		"ps_circulating": m.PsCirculating,
		"pe":             m.Pe,
		"pe_circulating": m.PeCirculating,
	}
}

func (c Client) ListProjects() ([]Project, error) {
	out := []Project{}
	if err := c.get("/v1/projects", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

func (c Client) GetProjectMetrics(projectID string) ([]DailyMetrics, error) {
	params := url.Values{}
	params.Set("interval", "daily")
	params.Set("data_granularity", "project")

	out := []DailyMetrics{}
	if err := c.get(fmt.Sprintf("/v1/projects/%s/metrics", url.PathEscape(projectID)), params, &out); err != nil {
		return nil, fmt.Errorf("failed to get metrics for %s: %w", projectID, err)
	}
	return out, nil
}

func (c Client) get(path string, params url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.ApiKey)

	response, err := c.HttpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	responseBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("received status code %d and failed to read body: %w", response.StatusCode, err)
	}

	if response.StatusCode == http.StatusTooManyRequests {
		logger.Debug("hit rate limit. sleeping %s...", c.RateLimitWait)
		time.Sleep(c.RateLimitWait)
		return c.get(path, params, out)
	} else if response.StatusCode != http.StatusOK {
		type errResponse struct {
			Message string `json:"message"`
		}
		errJson := errResponse{}
		if err := json.Unmarshal(responseBytes, &errJson); err != nil || errJson.Message == "" {
			return fmt.Errorf("failed with status code %d", response.StatusCode)
		}
		return fmt.Errorf("failed with status code %d: %s", response.StatusCode, errJson.Message)
	}

	if err := json.Unmarshal(responseBytes, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
