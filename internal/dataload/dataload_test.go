package dataload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFromCSVParsesRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")
	content := "date,open,high,low,close,volume\n" +
		"2024-01-02,100,105,99,104,1000\n" +
		"2024-01-01,98,101,97,100,900\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp CSV: %v", err)
	}

	grid, err := FromCSV(path)
	if err != nil {
		t.Fatalf("FromCSV() error: %v", err)
	}
	if grid.Rows != 2 || grid.Cols != 1 {
		t.Fatalf("grid shape = %dx%d, want 2x1", grid.Rows, grid.Cols)
	}
	// Rows must come back sorted chronologically even though the file wasn't.
	if grid.Close.Select(0, 0) != 100 {
		t.Errorf("row 0 close = %v, want 100 (2024-01-01)", grid.Close.Select(0, 0))
	}
	if grid.Close.Select(1, 0) != 104 {
		t.Errorf("row 1 close = %v, want 104 (2024-01-02)", grid.Close.Select(1, 0))
	}
}

func TestFromCSVMissingColumnErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("date,open,high,close\n2024-01-01,1,2,3\n"), 0644); err != nil {
		t.Fatalf("write temp CSV: %v", err)
	}
	if _, err := FromCSV(path); err == nil {
		t.Fatal("expected an error for a missing low column")
	}
}

func TestFromCSVEmptyFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, []byte("date,open,high,low,close,volume\n"), 0644); err != nil {
		t.Fatalf("write temp CSV: %v", err)
	}
	if _, err := FromCSV(path); err != ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestFromHTMLTableParsesPriceHistory(t *testing.T) {
	page := `<html><body>
<table id="prices">
<thead><tr><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Volume</th></tr></thead>
<tbody>
<tr><td>2024-01-02</td><td>100</td><td>105</td><td>99</td><td>104</td><td>1,000</td></tr>
<tr><td>2024-01-01</td><td>98</td><td>101</td><td>97</td><td>100</td><td>900</td></tr>
</tbody>
</table>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	grid, err := FromHTMLTable(context.Background(), srv.URL, "#prices")
	if err != nil {
		t.Fatalf("FromHTMLTable() error: %v", err)
	}
	if grid.Rows != 2 {
		t.Fatalf("grid rows = %d, want 2", grid.Rows)
	}
	if grid.Close.Select(0, 0) != 100 {
		t.Errorf("row 0 close = %v, want 100", grid.Close.Select(0, 0))
	}
	if grid.Close.Select(1, 0) != 104 {
		t.Errorf("row 1 close = %v, want 104", grid.Close.Select(1, 0))
	}
}

func TestFromHTMLTableMissingSelectorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no table here</p></body></html>"))
	}))
	defer srv.Close()

	if _, err := FromHTMLTable(context.Background(), srv.URL, "#prices"); err == nil {
		t.Fatal("expected an error when the selector matches nothing")
	}
}

func TestFromFeedParsesBarsFromDescriptions(t *testing.T) {
	feedXML := `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Daily Bars</title>
<item>
  <title>Bar 2024-01-02</title>
  <description>O:100 H:105 L:99 C:104 V:1000</description>
  <pubDate>Tue, 02 Jan 2024 00:00:00 GMT</pubDate>
</item>
<item>
  <title>Bar 2024-01-01</title>
  <description>O:98 H:101 L:97 C:100 V:900</description>
  <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
</item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	grid, err := FromFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromFeed() error: %v", err)
	}
	if grid.Rows != 2 {
		t.Fatalf("grid rows = %d, want 2", grid.Rows)
	}
	if grid.Close.Select(0, 0) != 100 {
		t.Errorf("row 0 close = %v, want 100 (2024-01-01)", grid.Close.Select(0, 0))
	}
	if grid.Close.Select(1, 0) != 104 {
		t.Errorf("row 1 close = %v, want 104 (2024-01-02)", grid.Close.Select(1, 0))
	}
}

func TestExtractOHLCVFieldsAbbreviatedAndFull(t *testing.T) {
	fields := extractOHLCVFields("open=100.5 High:102 l:99.1 Close=101 volume:5,000")
	want := map[string]string{"open": "100.5", "high": "102", "low": "99.1", "close": "101", "volume": "5000"}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
		}
	}
}
