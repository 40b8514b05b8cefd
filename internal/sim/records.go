package sim

import (
	"fmt"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// RecordBuffer is a pre-allocated, append-only store for order and log
// records, one append cursor per column, matching the "records sized
// max_orders×N / max_logs×N" shape from the spec. Records are appended
// strictly in execution order per column; OrderID is monotonic per column.
type RecordBuffer struct {
	maxOrders int
	maxLogs   int
	orderIdx  []int // next free slot per column
	logIdx    []int
	orders    [][]models.OrderRecord
	logs      [][]models.LogRecord
}

// NewRecordBuffer pre-allocates record storage for n columns.
func NewRecordBuffer(n, maxOrders, maxLogs int) *RecordBuffer {
	rb := &RecordBuffer{
		maxOrders: maxOrders,
		maxLogs:   maxLogs,
		orderIdx:  make([]int, n),
		logIdx:    make([]int, n),
		orders:    make([][]models.OrderRecord, n),
		logs:      make([][]models.LogRecord, n),
	}
	for c := 0; c < n; c++ {
		rb.orders[c] = make([]models.OrderRecord, 0, maxOrders)
		rb.logs[c] = make([]models.LogRecord, 0, maxLogs)
	}
	return rb
}

// AppendOrder records a filled order for column col at row. order_id is
// len(existing records for this column) — monotonic per column.
func (rb *RecordBuffer) AppendOrder(col, row int, result models.OrderResult) error {
	if rb.orderIdx[col] >= rb.maxOrders {
		return fmt.Errorf("%w: column %d exceeded max_orders=%d", ErrRecordOverflow, col, rb.maxOrders)
	}
	rec := models.OrderRecord{
		ID:     rb.orderIdx[col],
		Column: col,
		Row:    row,
		Size:   result.Size,
		Price:  result.Price,
		Fees:   result.Fees,
		Side:   result.Side,
	}
	rb.orders[col] = append(rb.orders[col], rec)
	rb.orderIdx[col]++
	return nil
}

// AppendLog records an attempted order (any status) for column col at row,
// when logging is enabled for that order.
func (rb *RecordBuffer) AppendLog(col int, rec models.LogRecord) error {
	if rb.logIdx[col] >= rb.maxLogs {
		return fmt.Errorf("%w: column %d exceeded max_logs=%d", ErrRecordOverflow, col, rb.maxLogs)
	}
	rb.logs[col] = append(rb.logs[col], rec)
	rb.logIdx[col]++
	return nil
}

// Orders returns the accumulated order records for column col.
func (rb *RecordBuffer) Orders(col int) []models.OrderRecord { return rb.orders[col] }

// AllOrders flattens every column's order records into one slice, still in
// per-column execution order (not globally time-sorted).
func (rb *RecordBuffer) AllOrders() []models.OrderRecord {
	var out []models.OrderRecord
	for _, recs := range rb.orders {
		out = append(out, recs...)
	}
	return out
}

// Logs returns the accumulated log records for column col.
func (rb *RecordBuffer) Logs(col int) []models.LogRecord { return rb.logs[col] }
