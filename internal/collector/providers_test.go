package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

const yahooFixture = `{"chart":{"result":[{"meta":{"gmtoffset":-14400,"regularMarketPrice":303.5,"chartPreviousClose":297.0,"regularMarketTime":1600718400},
"timestamp":[1600349400,1600435800,1600695000,1600781400],
"indicators":{"quote":[{"open":[298,299,301,null],"high":[299,301,304,null],"low":[297,298,300,null],"close":[298,300,303,null],"volume":[1000,2000,3000,null]}]}}],"error":null}}`

func TestYahooFetcher_FetchRange(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, yahooFixture)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL

	bars, err := f.FetchRange(context.Background(), "SPX", day("2020-09-18"), day("2020-09-21"))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "period1=")

	require.Len(t, bars, 2)
	assert.Equal(t, "2020-09-18", model.FormatDate(bars[0].Date))
	assert.Equal(t, 300.0, bars[0].Close)
	assert.Equal(t, "2020-09-21", model.FormatDate(bars[1].Date))
	assert.Equal(t, int64(3000), bars[1].Volume)
}

func TestYahooFetcher_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		fmt.Fprint(w, yahooFixture)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL
	q, err := f.FetchQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 303.5, q.Price)
	assert.Equal(t, 300.0, q.PreviousClose)
	assert.InDelta(t, 3.5, q.Change, 1e-9)
	assert.Equal(t, "yahoo", q.Source)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL
	_, err := f.FetchPeriod(context.Background(), "NOPE", "1mo")
	require.Error(t, err)
	var pe *errors.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "yahoo", pe.Provider)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL
	_, err := f.FetchRange(context.Background(), "SPY", day("2020-01-01"), day("2020-02-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAlphaVantageFetcher_FetchRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		assert.Equal(t, "full", q.Get("outputsize"))
		assert.Equal(t, "demo", q.Get("apikey"))
		fmt.Fprint(w, `{"Meta Data":{},"Time Series (Daily)":{
			"2020-09-22":{"1. open":"301","2. high":"302","3. low":"300","4. close":"301.5","5. volume":"100"},
			"2020-09-21":{"1. open":"300","2. high":"304","3. low":"299","4. close":"303","5. volume":"200"},
			"2020-09-18":{"1. open":"299","2. high":"301","3. low":"298","4. close":"300","5. volume":"300"}}}`)
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	bars, err := f.FetchRange(context.Background(), "SPY", day("2020-09-18"), day("2020-09-21"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2020-09-18", model.FormatDate(bars[0].Date))
	assert.Equal(t, 303.0, bars[1].Close)
	assert.Equal(t, int64(200), bars[1].Volume)
}

func TestAlphaVantageFetcher_RateLimitNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	_, err := f.FetchRange(context.Background(), "SPY", day("2020-09-18"), day("2020-09-21"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

// rateLimitedAlphaVantage serves a sparse full history and answers with the
// call-frequency note once more than five requests have arrived.
func rateLimitedAlphaVantage(hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(hits, 1) > 5 {
			fmt.Fprint(w, `{"Note":"Our standard API call frequency is 5 calls per minute."}`)
			return
		}
		fmt.Fprint(w, `{"Time Series (Daily)":{
			"2022-06-01":{"1. open":"410","2. high":"415","3. low":"405","4. close":"412","5. volume":"10"},
			"2015-06-01":{"1. open":"210","2. high":"212","3. low":"208","4. close":"211","5. volume":"20"}}}`)
	}))
}

func TestAlphaVantageFetcher_ChunkedRangeReusesOneResponse(t *testing.T) {
	var hits int32
	srv := rateLimitedAlphaVantage(&hits)
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	bars, err := ChunkedSecondary(f, 365, zerolog.Nop()).Fetch(context.Background(), "SPY", day("2014-01-01"), day("2023-12-31"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2015-06-01", model.FormatDate(bars[0].Date))
	assert.Equal(t, "2022-06-01", model.FormatDate(bars[1].Date))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAlphaVantageFetcher_CacheExpires(t *testing.T) {
	var hits int32
	srv := rateLimitedAlphaVantage(&hits)
	defer srv.Close()

	clock := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	f.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		_, err := f.FetchRange(context.Background(), "spy", day("2015-01-01"), day("2015-12-31"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	clock = clock.Add(f.CacheTTL)
	bars, err := f.FetchRange(context.Background(), "SPY", day("2022-01-01"), day("2022-12-31"))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestAlphaVantageFetcher_CacheDisabled(t *testing.T) {
	var hits int32
	srv := rateLimitedAlphaVantage(&hits)
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	f.CacheTTL = 0
	for i := 0; i < 2; i++ {
		_, err := f.FetchRange(context.Background(), "SPY", day("2015-01-01"), day("2015-12-31"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestAlphaVantageFetcher_RequiresKey(t *testing.T) {
	f := NewAlphaVantageFetcher("", "", time.Second)
	_, err := f.FetchQuote(context.Background(), "SPY")
	assert.Error(t, err)
}

func TestAlphaVantageFetcher_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		fmt.Fprint(w, `{"Global Quote":{"01. symbol":"SPY","05. price":"590.00","07. latest trading day":"2025-01-17","08. previous close":"580.00"}}`)
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "", 5*time.Second)
	f.BaseURL = srv.URL
	q, err := f.FetchQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 590.0, q.Price)
	assert.InDelta(t, 10.0, q.Change, 1e-9)
	assert.Equal(t, "2025-01-17", model.FormatDate(q.AsOf))
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			assert.Equal(t, "2020-09-18", r.URL.Query().Get("start"))
			fmt.Fprint(w, `[{"timestamp":1600646400,"open":300,"high":304,"low":299,"close":303,"volume":200},
				{"timestamp":1600387200,"open":299,"high":301,"low":298,"close":300,"volume":300}]`)
		case "/api/v1/quote":
			fmt.Fprint(w, `{"price":303,"previous_close":300,"timestamp":1600646400}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "", 5*time.Second)
	bars, err := f.FetchRange(context.Background(), "SPY", day("2020-09-18"), day("2020-09-21"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2020-09-18", model.FormatDate(bars[0].Date))
	assert.Equal(t, "2020-09-21", model.FormatDate(bars[1].Date))

	q, err := f.FetchQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.ChangePercent, 1e-9)
}
