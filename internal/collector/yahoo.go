package collector

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

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset          int64   `json:"gmtoffset"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, q url.Values) (*yahooChart, error) {
	q.Set("interval", "1d")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError(f.Name(), "fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderError(f.Name(), "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError(f.Name(), "fetch", fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body)))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, errors.NewProviderError(f.Name(), "decode", err)
	}
	if chart.Chart.Error != nil {
		return nil, errors.NewProviderError(f.Name(), "api", fmt.Errorf("%s", chart.Chart.Error.Description))
	}
	return &chart, nil
}

func (f *YahooFetcher) bars(chart *yahooChart) []model.PriceBar {
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // skip null bars (holidays etc.)
		}
		// Session date in the exchange's local calendar.
		day := model.Day(time.Unix(ts+result.Meta.GMTOffset, 0).UTC())
		bars = append(bars, model.PriceBar{
			Date:   day,
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: int64(at(quote.Volume, i)),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

// FetchPeriod fetches a lookback bucket such as "5d", "1mo" or "1y".
func (f *YahooFetcher) FetchPeriod(ctx context.Context, symbol, period string) ([]model.PriceBar, error) {
	chart, err := f.fetchChart(ctx, symbol, url.Values{"range": {period}})
	if err != nil {
		return nil, err
	}
	return f.bars(chart), nil
}

// FetchRange fetches the sessions between start and end inclusive.
func (f *YahooFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	q := url.Values{
		"period1": {strconv.FormatInt(model.Day(start).Unix(), 10)},
		// period2 is exclusive
		"period2": {strconv.FormatInt(model.Day(end).AddDate(0, 0, 1).Unix(), 10)},
	}
	chart, err := f.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}
	return filterRange(f.bars(chart), start, end), nil
}

// FetchQuote returns the latest regular-market price.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	chart, err := f.fetchChart(ctx, symbol, url.Values{"range": {"5d"}})
	if err != nil {
		return nil, err
	}
	bars := f.bars(chart)
	if len(bars) == 0 {
		return nil, errors.NewProviderError(f.Name(), "quote", fmt.Errorf("no price data"))
	}
	meta := chart.Chart.Result[0].Meta

	last := bars[len(bars)-1]
	price := meta.RegularMarketPrice
	if price <= 0 {
		price = last.Close
	}
	prev := meta.ChartPreviousClose
	if len(bars) > 1 {
		prev = bars[len(bars)-2].Close
	}
	asOf := last.Date
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	return newQuote(symbol, price, prev, asOf, f.Name()), nil
}

func newQuote(symbol string, price, prev float64, asOf time.Time, source string) *model.Quote {
	q := &model.Quote{Symbol: symbol, Price: price, PreviousClose: prev, AsOf: asOf, Source: source}
	if prev > 0 {
		q.Change = price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
