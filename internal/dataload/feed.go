package dataload

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/kestrelquant/vectorsim/internal/sim"
)

// ohlcvFieldPattern pulls "O:123.45" / "open=123.45"-style key/value tokens
// out of a feed item's description — the compact bar-summary format a daily
// market-data feed publishes in place of a full table.
var ohlcvFieldPattern = regexp.MustCompile(`(?i)\b(o|open|h|high|l|low|c|close|v|volume)\s*[:=]\s*([\d.,]+)`)

// FromFeed parses a market-data RSS/Atom feed of daily bar summaries with
// gofeed — each item is expected to carry one bar's OHLCV fields encoded in
// its description as "O:.. H:.. L:.. C:.. V:.." (case-insensitive, full or
// abbreviated field names), with the item's published date as the bar's
// timestamp.
func FromFeed(ctx context.Context, url string) (sim.Grid, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return sim.Grid{}, fmt.Errorf("parse feed %s: %w", url, err)
	}

	var bars []bar
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		fields := extractOHLCVFields(item.Description)
		if len(fields) == 0 {
			fields = extractOHLCVFields(item.Title)
		}
		b, ok, err := barFromFields(*item.PublishedParsed, fields)
		if err != nil {
			return sim.Grid{}, fmt.Errorf("feed item %q: %w", item.Title, err)
		}
		if ok {
			bars = append(bars, b)
		}
	}

	return buildGrid(bars)
}

func extractOHLCVFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, m := range ohlcvFieldPattern.FindAllStringSubmatch(text, -1) {
		key := normalizeOHLCVKey(strings.ToLower(m[1]))
		fields[key] = strings.ReplaceAll(m[2], ",", "")
	}
	return fields
}

func normalizeOHLCVKey(k string) string {
	switch k {
	case "o", "open":
		return "open"
	case "h", "high":
		return "high"
	case "l", "low":
		return "low"
	case "c", "close":
		return "close"
	case "v", "volume":
		return "volume"
	default:
		return k
	}
}

func barFromFields(ts time.Time, fields map[string]string) (bar, bool, error) {
	required := []string{"open", "high", "low", "close"}
	for _, f := range required {
		if _, ok := fields[f]; !ok {
			return bar{}, false, nil
		}
	}
	open, err := strconv.ParseFloat(fields["open"], 64)
	if err != nil {
		return bar{}, false, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(fields["high"], 64)
	if err != nil {
		return bar{}, false, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(fields["low"], 64)
	if err != nil {
		return bar{}, false, fmt.Errorf("parse low: %w", err)
	}
	closeVal, err := strconv.ParseFloat(fields["close"], 64)
	if err != nil {
		return bar{}, false, fmt.Errorf("parse close: %w", err)
	}
	var volume int64
	if v, ok := fields["volume"]; ok {
		volume, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return bar{}, false, fmt.Errorf("parse volume: %w", err)
		}
	}
	return bar{Timestamp: ts, Open: open, High: high, Low: low, Close: closeVal, Volume: volume}, true, nil
}
