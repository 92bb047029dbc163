package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Rate is the conversion rate between two currencies.
type Rate struct {
	Base      string  `json:"base"`
	Target    string  `json:"target"`
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

type ExchangeClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewExchangeClient(baseURL string) *ExchangeClient {
	return &ExchangeClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type latestResponse struct {
	Rates     map[string]float64 `json:"rates"`
	Timestamp int64              `json:"timestamp"`
}

// Rate returns the base→target conversion rate, rounded to 4 decimals.
func (c *ExchangeClient) Rate(ctx context.Context, base, target string) (Rate, error) {
	if !currencyRe.MatchString(base) {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, base)
	}
	if !currencyRe.MatchString(target) {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, target)
	}
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)

	url := fmt.Sprintf("%s/latest?base=%s&symbols=%s", c.baseURL, base, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rate{}, fmt.Errorf("rate provider returned %d for %s/%s", resp.StatusCode, base, target)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Rate{}, fmt.Errorf("read rate response: %w", err)
	}

	var parsed latestResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Rate{}, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := parsed.Rates[target]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, base, target)
	}

	return Rate{
		Base:      base,
		Target:    target,
		Rate:      round4(rate),
		Timestamp: parsed.Timestamp,
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
