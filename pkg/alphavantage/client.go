package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"wealth-go-api/internal/models"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// Source is the name recorded on fetched price histories.
const Source = "alphavantage"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithBaseURL points the client at another query endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Name() string { return Source }

type dailyResponse struct {
	TimeSeries map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// GetDailyCloses returns up to days daily closes, oldest first.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	if days > 100 {
		q.Set("outputsize", "full")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var daily dailyResponse
	if err := json.Unmarshal(body, &daily); err != nil {
		return nil, fmt.Errorf("failed to decode alpha vantage series for %s: %w", symbol, err)
	}

	switch {
	case daily.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage error for %s: %s", symbol, daily.ErrorMessage)
	case daily.Note != "":
		return nil, fmt.Errorf("alpha vantage rate limited: %s", daily.Note)
	case daily.Information != "":
		return nil, fmt.Errorf("alpha vantage refused request: %s", daily.Information)
	case len(daily.TimeSeries) == 0:
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	// ISO dates sort chronologically as strings.
	keys := make([]string, 0, len(daily.TimeSeries))
	for d := range daily.TimeSeries {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	if len(keys) > days {
		keys = keys[len(keys)-days:]
	}

	dates := make([]time.Time, 0, len(keys))
	closes := make([]float64, 0, len(keys))
	for _, d := range keys {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(daily.TimeSeries[d].Close, 64)
		if err != nil || price <= 0 {
			continue
		}
		dates = append(dates, day)
		closes = append(closes, price)
	}

	return &models.PriceHistory{
		Symbol:      symbol,
		Dates:       dates,
		Closes:      closes,
		LastUpdated: time.Now(),
		Source:      Source,
	}, nil
}
