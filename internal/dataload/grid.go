// Package dataload builds a sim.Grid from an external source — a local CSV
// file, an HTML price-history table, or a market-data feed — so every driver
// in internal/sim stays source-agnostic.
package dataload

import (
	"fmt"
	"sort"
	"time"

	"github.com/kestrelquant/vectorsim/internal/sim"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// ErrNoRows is returned when an adapter parsed its source successfully but
// found no usable bars.
var ErrNoRows = fmt.Errorf("dataload: no rows parsed")

// bar is an alias of models.OHLCV that the adapters collect their parsed rows
// in; buildGrid sorts them by Timestamp before building the Grid, regardless
// of source order.
type bar = models.OHLCV

// buildGrid sorts bars chronologically and wraps them into a single-column
// Grid via sim.NewGridFromBars — the shape every driver expects.
func buildGrid(bars []bar) (sim.Grid, error) {
	if len(bars) == 0 {
		return sim.Grid{}, ErrNoRows
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return sim.NewGridFromBars(bars), nil
}

// parseDate tries the handful of date layouts real-world price tables and
// feeds actually use, in order of how often they show up in the pack's
// sources (ISO date, US slash date, RFC3339 for feed timestamps).
func parseDate(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02",
		"01/02/2006",
		"02-Jan-2006",
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, lastErr)
}
