package sim

import (
	"fmt"
	"math"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Grid is the T×N OHLC price data every driver iterates. High/Low/Open are
// optional — HasOpen/HasHigh/HasLow report whether a real series was
// supplied; when absent, PriceAreaAt reports NaN for that bound and
// ExecuteOrder treats NaN bounds as unconstrained.
type Grid struct {
	Rows    int
	Cols    int
	Open    FlexArray
	High    FlexArray
	Low     FlexArray
	Close   FlexArray
	HasOpen bool
	HasHigh bool
	HasLow  bool
}

// NewGridFromBars builds a single-column Grid from a plain OHLCV slice —
// the common case for from-signals/from-orders demos and CLI input.
func NewGridFromBars(bars []models.OHLCV) Grid {
	t := len(bars)
	open := make([]float64, t)
	high := make([]float64, t)
	low := make([]float64, t)
	closes := make([]float64, t)
	for i, b := range bars {
		open[i], high[i], low[i], closes[i] = b.Open, b.High, b.Low, b.Close
	}
	return Grid{
		Rows:    t,
		Cols:    1,
		Open:    NewPerRowFlex(open),
		High:    NewPerRowFlex(high),
		Low:     NewPerRowFlex(low),
		Close:   NewPerRowFlex(closes),
		HasOpen: true,
		HasHigh: true,
		HasLow:  true,
	}
}

// PriceAreaAt returns the PriceArea for (row, col), reading through each
// flex array independently (Open/High/Low may be absent — NaN).
func (g Grid) PriceAreaAt(row, col int) models.PriceArea {
	area := models.PriceArea{Close: g.Close.Select(row, col), Open: math.NaN(), High: math.NaN(), Low: math.NaN()}
	if g.HasOpen {
		area.Open = g.Open.Select(row, col)
	}
	if g.HasHigh {
		area.High = g.High.Select(row, col)
	}
	if g.HasLow {
		area.Low = g.Low.Select(row, col)
	}
	return area
}

// Validate checks grid shape consistency.
func (g Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: grid must have at least one row and one column", ErrInvalidInput)
	}
	return nil
}
