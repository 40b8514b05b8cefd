// Package models defines the data structures shared across VectorSim: the
// OHLCV bar type consumed by every driver, and (in order.go/analysis.go)
// the order, record, and result types produced by the simulation kernel.
package models

import "time"

// OHLCV represents a single candlestick bar of price data. A bar is treated
// as a black box bounded by its open/high/low/close — the kernel never
// assumes a particular intra-bar price path.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Timeframe is the bar period of a grid, used only for annualization in
// derived metrics.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe1Day  Timeframe = "1d"
	Timeframe1Week Timeframe = "1w"
)
