// Package market fetches stock quotes and currency exchange rates from
// public market-data providers.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidSymbol   = errors.New("invalid ticker symbol")
	ErrQuoteNotFound   = errors.New("no quote for symbol")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrRateUnavailable = errors.New("unable to fetch exchange rate")
)

var symbolRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.\-]{0,9}$`)

// Quote is the latest traded price for a ticker.
type Quote struct {
	Ticker   string  `json:"ticker"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

type StockClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewStockClient(baseURL string) *StockClient {
	return &StockClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote returns the latest daily close for symbol, rounded to cents.
func (c *StockClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	if !symbolRe.MatchString(symbol) {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	symbol = strings.ToUpper(symbol)

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "financebot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote provider returned %d for %s", resp.StatusCode, symbol)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Quote{}, fmt.Errorf("read quote response: %w", err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	currency := meta.Currency
	if currency == "" {
		currency = "USD"
	}
	return Quote{
		Ticker:   symbol,
		Price:    round2(meta.RegularMarketPrice),
		Currency: currency,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
