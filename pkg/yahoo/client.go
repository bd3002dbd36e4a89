package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wealth-go-api/internal/models"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Source is the name recorded on fetched price histories.
const Source = "yahoo"

type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// WithBaseURL points the client at another chart endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Name() string { return Source }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// calendarSpan is the number of calendar days that holds days trading
// sessions, with slack for holidays.
func calendarSpan(days int) int {
	return days*365/252 + 10
}

// GetDailyCloses returns up to days daily closes, oldest first. Missing
// closes (null in the chart payload) are skipped along with their dates.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	end := c.now()
	start := end.AddDate(0, 0, -calendarSpan(days))
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode yahoo chart for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no historical data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	raw := result.Indicators.Quote[0].Close
	if len(result.Timestamp) != len(raw) {
		return nil, fmt.Errorf("yahoo chart for %s has %d timestamps for %d closes", symbol, len(result.Timestamp), len(raw))
	}

	var (
		dates  []time.Time
		closes []float64
	)
	for i, price := range raw {
		if price == nil || *price <= 0 {
			continue
		}
		// exchange local date of the session
		local := time.Unix(result.Timestamp[i]+result.Meta.GMTOffset, 0).UTC()
		dates = append(dates, time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
		closes = append(closes, *price)
	}
	if len(closes) > days {
		dates = dates[len(dates)-days:]
		closes = closes[len(closes)-days:]
	}

	return &models.PriceHistory{
		Symbol:      symbol,
		Dates:       dates,
		Closes:      closes,
		LastUpdated: time.Now(),
		Source:      Source,
	}, nil
}
