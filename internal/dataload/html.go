package dataload

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kestrelquant/vectorsim/internal/sim"
)

// httpClient mirrors the teacher's datasource package: one shared client
// with a sane timeout, a Chrome-like User-Agent so plain price-history
// pages don't reject a bare Go client.
var httpClient = &http.Client{Timeout: 30 * time.Second}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// FromHTMLTable scrapes a price-history table out of an HTML page with
// goquery. selector must match the <table> element; the table's header row
// (thead th, or the first tr if there's no thead) names its columns the
// same way FromCSV's header does (date/open/high/low/close, volume
// optional, case-insensitive).
func FromHTMLTable(ctx context.Context, url, selector string) (sim.Grid, error) {
	doc, err := fetchDocument(ctx, url)
	if err != nil {
		return sim.Grid{}, err
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return sim.Grid{}, fmt.Errorf("dataload: no element matched selector %q", selector)
	}

	headerCells := table.Find("thead th")
	if headerCells.Length() == 0 {
		headerCells = table.Find("tr").First().Find("th, td")
	}
	var header []string
	headerCells.Each(func(_ int, cell *goquery.Selection) {
		header = append(header, strings.TrimSpace(cell.Text()))
	})
	cols, err := resolveCSVColumns(header)
	if err != nil {
		return sim.Grid{}, err
	}

	bodyRows := table.Find("tbody tr")
	skipFirst := bodyRows.Length() == 0
	if skipFirst {
		bodyRows = table.Find("tr")
	}

	var bars []bar
	var rowErr error
	bodyRows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if skipFirst && i == 0 {
			return true
		}
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cleanNumeric(cell.Text())))
		})
		if len(cells) == 0 {
			return true
		}
		b, err := parseCSVRow(cells, cols)
		if err != nil {
			rowErr = err
			return false
		}
		bars = append(bars, b)
		return true
	})
	if rowErr != nil {
		return sim.Grid{}, rowErr
	}

	return buildGrid(bars)
}

// cleanNumeric strips thousands separators and currency symbols a scraped
// table cell commonly carries, matching the teacher's parseScreenerNumber
// normalization (minus the Cr/Lakh unit suffixes, which don't apply to a
// price-history table).
func cleanNumeric(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.ReplaceAll(s, "$", "")
	return strings.TrimSpace(s)
}

// fetchDocument downloads and parses url, the same request shape the
// teacher's datasource package uses for every scrape.
func fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP GET %s: status %s", url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML from %s: %w", url, err)
	}
	return doc, nil
}
