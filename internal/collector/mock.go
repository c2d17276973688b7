package collector

import (
	"context"
	"sync"
	"time"

	"EventLens/internal/model"
)

// MockFetcher returns controllable data for development and testing.
// With no Bars and no funcs set it generates a gently trending weekday series.
type MockFetcher struct {
	ProviderName string
	Price        float64
	Bars         []model.PriceBar

	RangeFunc  func(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
	PeriodFunc func(ctx context.Context, symbol, period string) ([]model.PriceBar, error)
	QuoteFunc  func(ctx context.Context, symbol string) (*model.Quote, error)

	mu          sync.Mutex
	rangeCalls  int
	periodCalls int
	quoteCalls  int
}

func (m *MockFetcher) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	m.mu.Lock()
	m.rangeCalls++
	m.mu.Unlock()
	if m.RangeFunc != nil {
		return m.RangeFunc(ctx, symbol, start, end)
	}
	return filterRange(m.bars(start, end), start, end), nil
}

func (m *MockFetcher) FetchPeriod(ctx context.Context, symbol, period string) ([]model.PriceBar, error) {
	m.mu.Lock()
	m.periodCalls++
	m.mu.Unlock()
	if m.PeriodFunc != nil {
		return m.PeriodFunc(ctx, symbol, period)
	}
	end := model.Day(time.Now().UTC())
	return m.bars(end.AddDate(-1, 0, 0), end), nil
}

func (m *MockFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.mu.Unlock()
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, symbol)
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return newQuote(symbol, price, price*0.99, time.Now().UTC(), m.Name()), nil
}

// Calls returns how often each endpoint was hit.
func (m *MockFetcher) Calls() (rangeCalls, periodCalls, quoteCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeCalls, m.periodCalls, m.quoteCalls
}

func (m *MockFetcher) bars(start, end time.Time) []model.PriceBar {
	if m.Bars != nil {
		return m.Bars
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(price, start, end)
}

func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	var bars []model.PriceBar
	i := 0
	for d := model.Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
