package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SmartVest/internal/model"
	httpClient "github.com/Alias1177/SmartVest/internal/platform/http"
)

// DefaultBaseURL is the public Twelve Data endpoint
const DefaultBaseURL = "https://api.twelvedata.com"

// maxOutputSize is the largest page the time_series endpoint returns
const maxOutputSize = 5000

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// APIError is an error payload returned with HTTP 200
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelve data error %d: %s", e.Code, e.Message)
}

type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string  `json:"datetime"`
		Close    float64 `json:"close,string"`
	} `json:"values"`
	Status string `json:"status"`
}

type profileResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Name:            "twelvedata",
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// DailyCloses fetches daily closes of symbol in [start, end], oldest first
func (c *Client) DailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1day")
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	params.Set("outputsize", fmt.Sprint(maxOutputSize))
	params.Set("order", "ASC")

	var data timeSeriesResponse
	if err := c.get(ctx, "/time_series", params, &data); err != nil {
		return nil, fmt.Errorf("time series %s: %w", symbol, err)
	}

	bars := make([]model.PriceBar, 0, len(data.Values))
	for _, v := range data.Values {
		day, err := parseDate(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("time series %s: %w", symbol, err)
		}
		bars = append(bars, model.PriceBar{Date: day, Close: v.Close})
	}
	if len(bars) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No closes in response")
		return nil, fmt.Errorf("time series %s: empty data returned", symbol)
	}

	// Sort by date (oldest first), regardless of the order requested
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	c.logger.Debug().Str("symbol", symbol).Int("count", len(bars)).Msg("Fetched daily closes")
	return bars, nil
}

// Sector fetches the GICS-style sector of symbol from its profile
func (c *Client) Sector(ctx context.Context, symbol string) (string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var profile profileResponse
	if err := c.get(ctx, "/profile", params, &profile); err != nil {
		return "", fmt.Errorf("profile %s: %w", symbol, err)
	}
	if profile.Sector == "" {
		return model.UnknownSector, nil
	}
	return profile.Sector, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	c.logger.Debug().Str("path", path).Str("symbol", params.Get("symbol")).Msg("Requesting")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Status == "error" {
		c.logger.Error().Int("code", apiErr.Code).Str("message", apiErr.Message).Msg("Twelve Data API error")
		return &apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// parseDate accepts plain dates and the datetime form used for intraday
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return model.Day(t), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return model.Day(t), nil
}
