package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// compactDays is roughly how far back the 100-session compact output reaches.
const compactDays = 140

// defaultSeriesTTL keeps a decoded series long enough for every chunk of one acquisition.
const defaultSeriesTTL = 5 * time.Minute

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage daily time series.
// Each TIME_SERIES_DAILY response is cached per symbol and output size for CacheTTL,
// so chunked range requests filter one upstream response.
type AlphaVantageFetcher struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	CacheTTL time.Duration // <= 0 disables caching

	mu    sync.Mutex
	cache map[string]avCacheEntry
	now   func() time.Time
}

type avCacheEntry struct {
	bars      []model.PriceBar
	fetchedAt time.Time
}

// NewAlphaVantageFetcher creates a new Alpha Vantage fetcher.
func NewAlphaVantageFetcher(apiKey, proxyURL string, timeout time.Duration) *AlphaVantageFetcher {
	return &AlphaVantageFetcher{
		BaseURL: alphaVantageBaseURL,
		APIKey:   apiKey,
		Client:   newHTTPClient(proxyURL, timeout),
		CacheTTL: defaultSeriesTTL,
		cache:    make(map[string]avCacheEntry),
		now:      time.Now,
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

type avDaily struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avResponse struct {
	ErrorMessage string             `json:"Error Message"`
	Note         string             `json:"Note"`
	Information  string             `json:"Information"`
	Series       map[string]avDaily `json:"Time Series (Daily)"`
	GlobalQuote  map[string]string  `json:"Global Quote"`
}

func (r *avResponse) err() error {
	switch {
	case r.ErrorMessage != "":
		return fmt.Errorf("api error: %s", r.ErrorMessage)
	case r.Note != "":
		return fmt.Errorf("rate limited: %s", r.Note)
	case r.Information != "":
		return fmt.Errorf("rate limited: %s", r.Information)
	}
	return nil
}

func (f *AlphaVantageFetcher) query(ctx context.Context, params url.Values) (*avResponse, error) {
	if f.APIKey == "" {
		return nil, errors.NewProviderError(f.Name(), "query", fmt.Errorf("api key not configured"))
	}
	params.Set("apikey", f.APIKey)
	u := f.BaseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError(f.Name(), "query", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError(f.Name(), "query", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out avResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewProviderError(f.Name(), "decode", err)
	}
	if err := out.err(); err != nil {
		return nil, errors.NewProviderError(f.Name(), "query", err)
	}
	return &out, nil
}

// FetchRange fetches TIME_SERIES_DAILY and keeps the sessions in [start, end].
func (f *AlphaVantageFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	outputSize := "full"
	if f.now().Sub(start) < compactDays*24*time.Hour {
		outputSize = "compact"
	}
	bars, err := f.dailySeries(ctx, symbol, outputSize)
	if err != nil {
		return nil, err
	}
	return filterRange(bars, start, end), nil
}

// dailySeries returns the ascending daily bars for symbol, from cache when fresh.
// A cached full series also answers compact requests.
func (f *AlphaVantageFetcher) dailySeries(ctx context.Context, symbol, outputSize string) ([]model.PriceBar, error) {
	symbol = strings.ToUpper(symbol)
	if bars, ok := f.cached(symbol, outputSize); ok {
		return bars, nil
	}
	resp, err := f.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {outputSize},
	})
	if err != nil {
		return nil, err
	}

	bars := make([]model.PriceBar, 0, len(resp.Series))
	for ds, d := range resp.Series {
		day, err := model.ParseDate(ds)
		if err != nil {
			continue
		}
		closePrice := parseFloat(d.Close)
		if closePrice == 0 {
			continue
		}
		vol, _ := strconv.ParseInt(d.Volume, 10, 64)
		bars = append(bars, model.PriceBar{
			Date:   day,
			Open:   parseFloat(d.Open),
			High:   parseFloat(d.High),
			Low:    parseFloat(d.Low),
			Close:  closePrice,
			Volume: vol,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	f.store(symbol, outputSize, bars)
	return bars, nil
}

func (f *AlphaVantageFetcher) cached(symbol, outputSize string) ([]model.PriceBar, bool) {
	if f.CacheTTL <= 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	for _, size := range []string{"full", outputSize} {
		e, ok := f.cache[symbol+"|"+size]
		if ok && now.Sub(e.fetchedAt) < f.CacheTTL {
			return e.bars, true
		}
	}
	return nil, false
}

func (f *AlphaVantageFetcher) store(symbol, outputSize string, bars []model.PriceBar) {
	if f.CacheTTL <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[string]avCacheEntry)
	}
	now := f.now()
	for k, e := range f.cache {
		if now.Sub(e.fetchedAt) >= f.CacheTTL {
			delete(f.cache, k)
		}
	}
	f.cache[symbol+"|"+outputSize] = avCacheEntry{bars: bars, fetchedAt: now}
}

// FetchQuote uses GLOBAL_QUOTE.
func (f *AlphaVantageFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	resp, err := f.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	price := parseFloat(resp.GlobalQuote["05. price"])
	if price == 0 {
		return nil, errors.NewProviderError(f.Name(), "quote", fmt.Errorf("no price data"))
	}
	prev := parseFloat(resp.GlobalQuote["08. previous close"])
	asOf, err := model.ParseDate(resp.GlobalQuote["07. latest trading day"])
	if err != nil {
		asOf = f.now().UTC()
	}
	return newQuote(symbol, price, prev, asOf, f.Name()), nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
