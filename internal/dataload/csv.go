package dataload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kestrelquant/vectorsim/internal/sim"
)

// csvColumns maps a lowercased header name to the column index that carries
// it, resolved once per file so FromCSV tolerates any column order.
type csvColumns struct {
	date, open, high, low, close, volume int
}

// FromCSV reads a plain CSV price history (no third-party dependency, same
// as the teacher carries no CSV library of its own) and returns a Grid.
// The header row must name date/open/high/low/close columns by name
// (case-insensitive); volume is optional.
func FromCSV(path string) (sim.Grid, error) {
	bars, err := BarsFromCSV(path)
	if err != nil {
		return sim.Grid{}, err
	}
	return buildGrid(bars)
}

// BarsFromCSV reads the same CSV FromCSV does but returns the sorted bar
// slice directly, for callers (strategy-driven runs) that need dated OHLCV
// rather than a Grid.
func BarsFromCSV(path string) ([]bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return barsFromCSVReader(f)
}

func barsFromCSVReader(r io.Reader) ([]bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols, err := resolveCSVColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []bar
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		b, err := parseCSVRow(row, cols)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, ErrNoRows
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func resolveCSVColumns(header []string) (csvColumns, error) {
	cols := csvColumns{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "timestamp":
			cols.date = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume":
			cols.volume = i
		}
	}
	missing := map[string]int{"date": cols.date, "open": cols.open, "high": cols.high, "low": cols.low, "close": cols.close}
	for name, idx := range missing {
		if idx < 0 {
			return cols, fmt.Errorf("CSV header missing required column %q", name)
		}
	}
	return cols, nil
}

func parseCSVRow(row []string, cols csvColumns) (bar, error) {
	ts, err := parseDate(row[cols.date])
	if err != nil {
		return bar{}, err
	}
	open, err := strconv.ParseFloat(row[cols.open], 64)
	if err != nil {
		return bar{}, fmt.Errorf("parse open %q: %w", row[cols.open], err)
	}
	high, err := strconv.ParseFloat(row[cols.high], 64)
	if err != nil {
		return bar{}, fmt.Errorf("parse high %q: %w", row[cols.high], err)
	}
	low, err := strconv.ParseFloat(row[cols.low], 64)
	if err != nil {
		return bar{}, fmt.Errorf("parse low %q: %w", row[cols.low], err)
	}
	closeVal, err := strconv.ParseFloat(row[cols.close], 64)
	if err != nil {
		return bar{}, fmt.Errorf("parse close %q: %w", row[cols.close], err)
	}
	var volume int64
	if cols.volume >= 0 && cols.volume < len(row) && strings.TrimSpace(row[cols.volume]) != "" {
		v, err := strconv.ParseInt(strings.ReplaceAll(row[cols.volume], ",", ""), 10, 64)
		if err != nil {
			return bar{}, fmt.Errorf("parse volume %q: %w", row[cols.volume], err)
		}
		volume = v
	}
	return bar{Timestamp: ts, Open: open, High: high, Low: low, Close: closeVal, Volume: volume}, nil
}
