package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStockQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD","regularMarketPrice":189.4567}}]}}`)
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL)
	got, err := c.Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want AAPL", got.Ticker)
	}
	if got.Price != 189.46 {
		t.Errorf("Price = %v, want 189.46 (rounded)", got.Price)
	}
	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", got.Currency)
	}
}

func TestStockQuoteInvalidSymbol(t *testing.T) {
	c := NewStockClient("http://unused.invalid")

	for _, symbol := range []string{"", "AAPL;DROP", "way-too-long-symbol", "1ABC"} {
		if _, err := c.Quote(context.Background(), symbol); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Quote(%q) = %v, want ErrInvalidSymbol", symbol, err)
		}
	}
}

func TestStockQuoteUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL)
	if _, err := c.Quote(context.Background(), "ZZZZ"); !errors.Is(err, ErrQuoteNotFound) {
		t.Errorf("Quote = %v, want ErrQuoteNotFound", err)
	}
}

func TestStockQuoteUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL)
	if _, err := c.Quote(context.Background(), "AAPL"); err == nil {
		t.Fatal("Quote should fail on 503")
	}
}

func TestExchangeRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("base"); got != "EUR" {
			t.Errorf("base = %q, want EUR", got)
		}
		if got := r.URL.Query().Get("symbols"); got != "USD" {
			t.Errorf("symbols = %q, want USD", got)
		}
		fmt.Fprint(w, `{"rates":{"USD":1.085349},"timestamp":1718000000}`)
	}))
	defer srv.Close()

	c := NewExchangeClient(srv.URL)
	got, err := c.Rate(context.Background(), "eur", "usd")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if got.Base != "EUR" || got.Target != "USD" {
		t.Errorf("pair = %s/%s, want EUR/USD", got.Base, got.Target)
	}
	if got.Rate != 1.0853 {
		t.Errorf("Rate = %v, want 1.0853 (rounded)", got.Rate)
	}
	if got.Timestamp != 1718000000 {
		t.Errorf("Timestamp = %d", got.Timestamp)
	}
}

func TestExchangeRateInvalidCurrency(t *testing.T) {
	c := NewExchangeClient("http://unused.invalid")

	if _, err := c.Rate(context.Background(), "EURO", "USD"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("Rate = %v, want ErrInvalidCurrency", err)
	}
	if _, err := c.Rate(context.Background(), "EUR", "$"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("Rate = %v, want ErrInvalidCurrency", err)
	}
}

func TestExchangeRateMissingTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{}}`)
	}))
	defer srv.Close()

	c := NewExchangeClient(srv.URL)
	if _, err := c.Rate(context.Background(), "EUR", "XXX"); !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("Rate = %v, want ErrRateUnavailable", err)
	}
}
