package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	q := url.Values{
		"symbol": {symbol},
		"start":  {model.FormatDate(start)},
		"end":    {model.FormatDate(end)},
	}
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())
	bars, err := f.fetchBars(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return filterRange(bars, start, end), nil
}

func (f *VsTraderFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/v1/quote?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, errors.NewProviderError(f.Name(), "quote", err)
	}
	defer resp.Body.Close()
	var result struct {
		Price         float64 `json:"price"`
		PreviousClose float64 `json:"previous_close"`
		Timestamp     int64   `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewProviderError(f.Name(), "decode price", err)
	}
	if result.Price <= 0 {
		return nil, errors.NewProviderError(f.Name(), "quote", fmt.Errorf("no price data"))
	}
	asOf := time.Now().UTC()
	if result.Timestamp > 0 {
		asOf = time.Unix(result.Timestamp, 0).UTC()
	}
	return newQuote(symbol, result.Price, result.PreviousClose, asOf, f.Name()), nil
}

func (f *VsTraderFetcher) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body))
	}
	return resp, nil
}

func (f *VsTraderFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.PriceBar, error) {
	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, errors.NewProviderError(f.Name(), "fetch bars", err)
	}
	defer resp.Body.Close()

	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return nil, errors.NewProviderError(f.Name(), "decode bars", err)
	}
	bars := make([]model.PriceBar, 0, len(vsBars))
	for _, vb := range vsBars {
		bars = append(bars, model.PriceBar{
			Date:   model.Day(time.Unix(vb.Timestamp, 0).UTC()),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: int64(vb.Volume),
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
