package model

import "time"

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	AsOf          time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	Stale         bool      `json:"stale"` // served from the fallback table
}

// Trend labels.
const (
	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"
)

// PriceTrend summarizes the direction and volatility of a price series.
type PriceTrend struct {
	Symbol             string  `json:"symbol"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	TradingDays        int     `json:"trading_days"`
	FirstClose         float64 `json:"first_close"`
	LastClose          float64 `json:"last_close"`
	TotalChange        float64 `json:"total_change"`
	TotalChangePct     float64 `json:"total_change_pct"`
	Trend              string  `json:"trend"`
	AverageDailyChange float64 `json:"average_daily_change"`
	Volatility         float64 `json:"volatility"`
	PositiveDays       int     `json:"positive_days"`
	NegativeDays       int     `json:"negative_days"`
	NeutralDays        int     `json:"neutral_days"`
	PeriodHigh         float64 `json:"period_high"`
	PeriodLow          float64 `json:"period_low"`
	RangePosition      float64 `json:"range_position"` // last close within [low, high], 0.0~1.0
}
