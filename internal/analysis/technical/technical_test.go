package technical

import (
	"testing"
	"time"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// makeCandles generates synthetic OHLCV data for testing.
func makeCandles(n int, basePrice float64, trend float64) []models.OHLCV {
	candles := make([]models.OHLCV, n)
	price := basePrice
	for i := 0; i < n; i++ {
		open := price
		close := open + trend
		high := open + 5
		low := open - 5
		if close > open {
			high = close + 3
		} else {
			low = close - 3
		}
		candles[i] = models.OHLCV{
			Timestamp: time.Now().Add(time.Duration(-n+i) * 24 * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000000 + int64(i*10000),
		}
		price = close
	}
	return candles
}

func TestRSI(t *testing.T) {
	candles := makeCandles(50, 100, 1.5)
	vals := RSI(candles, 14)
	if vals == nil {
		t.Fatal("RSI returned nil for sufficient data")
	}
	if len(vals) != 50 {
		t.Fatalf("expected 50 RSI values, got %d", len(vals))
	}
	// In a strong uptrend RSI should be high.
	latest := vals[len(vals)-1]
	if latest < 50 {
		t.Errorf("expected RSI > 50 in uptrend, got %.2f", latest)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	candles := makeCandles(5, 100, 1)
	vals := RSI(candles, 14)
	if vals != nil {
		t.Error("RSI should return nil for insufficient data")
	}
}

func TestRSILatest(t *testing.T) {
	candles := makeCandles(50, 100, 1)
	val := RSILatest(candles, 14)
	if val <= 0 {
		t.Errorf("RSILatest should return positive value, got %.2f", val)
	}
}

func TestMACD(t *testing.T) {
	candles := makeCandles(50, 100, 0.5)
	results := MACD(candles, 12, 26, 9)
	if results == nil {
		t.Fatal("MACD returned nil")
	}
	if len(results) != 50 {
		t.Fatalf("expected 50 MACD results, got %d", len(results))
	}
}

func TestMACDLatest(t *testing.T) {
	candles := makeCandles(50, 100, 1)
	macd := MACDLatest(candles, 12, 26, 9)
	// In uptrend MACD line should be positive.
	if macd.MACD < 0 {
		t.Errorf("expected positive MACD line in uptrend, got %.4f", macd.MACD)
	}
}

func TestATR(t *testing.T) {
	candles := makeCandles(30, 100, 1)
	vals := ATR(candles, 14)
	if vals == nil {
		t.Fatal("ATR returned nil")
	}
	latest := ATRLatest(candles, 14)
	if latest <= 0 {
		t.Errorf("expected positive ATR, got %.2f", latest)
	}
}

func TestSuperTrend(t *testing.T) {
	candles := makeCandles(50, 100, 1)
	results := SuperTrend(candles, 7, 3)
	if results == nil {
		t.Fatal("SuperTrend returned nil")
	}
	latest := SuperTrendLatest(candles, 7, 3)
	if latest.Value <= 0 {
		t.Errorf("expected positive SuperTrend value, got %.2f", latest.Value)
	}
	if latest.Trend != "UP" && latest.Trend != "DOWN" {
		t.Errorf("expected UP or DOWN trend, got %q", latest.Trend)
	}
}

// --- Moving Average tests ---

func TestSMA(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	vals := SMA(data, 3)
	if vals == nil {
		t.Fatal("SMA returned nil")
	}
	// SMA(3) at index 2 = (10+20+30)/3 = 20
	if vals[2] != 20 {
		t.Errorf("expected SMA[2]=20, got %.2f", vals[2])
	}
	// SMA(3) at index 4 = (30+40+50)/3 = 40
	if vals[4] != 40 {
		t.Errorf("expected SMA[4]=40, got %.2f", vals[4])
	}
}

func TestEMA(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	vals := EMA(data, 5)
	if vals == nil {
		t.Fatal("EMA returned nil")
	}
	if vals[4] == 0 {
		t.Error("EMA seed value should not be zero")
	}
}

func TestVWAP(t *testing.T) {
	candles := makeCandles(10, 100, 1)
	vals := VWAP(candles)
	if vals == nil {
		t.Fatal("VWAP returned nil")
	}
	if vals[len(vals)-1] <= 0 {
		t.Error("expected positive VWAP")
	}
}
