// Package marketdata fetches daily volume and close series from Yahoo
// Finance and keeps the stored market series aligned across the
// monitored securities and the index.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/utils"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	// Yahoo rejects requests without a browser-looking User-Agent
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxAttempts      = 3
)

// Bar is one daily observation from the chart API.
type Bar struct {
	Date   string // ISO date
	Close  float64
	Volume float64
}

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL     string
	backoffBase time.Duration
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		backoffBase: time.Second,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// DailyHistory fetches daily bars for a symbol over the given range
// (e.g. "5y"). Days where Yahoo reports a null close or null volume are
// skipped; a reported zero volume is a real observation and is kept.
// Transient failures are retried with exponential backoff.
func (c *Client) DailyHistory(ctx context.Context, symbol, rangeSpec string) ([]Bar, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			waitTime := c.backoffBase * time.Duration(1<<uint(attempt-1))
			c.log.Warn().Err(lastErr).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Retrying Yahoo fetch")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}

		bars, err := c.fetchChart(ctx, symbol, rangeSpec)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", symbol, maxAttempts, lastErr)
}

// fetchChart performs one chart API request and parses the envelope.
func (c *Client) fetchChart(ctx context.Context, symbol, rangeSpec string) ([]Bar, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", rangeSpec)

	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Close and volume are pointer slices: Yahoo pads holiday and
	// suspended-trading days with JSON nulls, and a null must not be
	// confused with a real zero-volume day
	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close  []*float64 `json:"close"`
						Volume []*float64 `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data returned for symbol %s", symbol)
	}

	chartData := result.Chart.Result[0]
	if len(chartData.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}
	quote := chartData.Indicators.Quote[0]

	bars := make([]Bar, 0, len(chartData.Timestamp))
	skipped := 0
	for i, ts := range chartData.Timestamp {
		if i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		if quote.Close[i] == nil || quote.Volume[i] == nil {
			skipped++
			continue
		}
		bars = append(bars, Bar{
			Date:   utils.UnixToDate(ts),
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("range", rangeSpec).
		Int("bars", len(bars)).
		Int("skipped", skipped).
		Msg("Fetched daily history")
	return bars, nil
}
