package sim

import "errors"

// Sentinel error kinds matching spec's logical exit codes. Wrap with
// fmt.Errorf("...: %w", ErrX) to attach column/row/group context.
var (
	// ErrInvalidInput covers shape mismatches, disallowed NaNs, negative
	// fees, and configuration conflicts caught before simulation starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGroupSplit is returned when a requested column partition would
	// cut a cash-sharing group in two.
	ErrGroupSplit = errors.New("partition splits a cash-sharing group")

	// ErrRecordOverflow is returned when a column's order or log records
	// exceed the pre-allocated MaxOrders/MaxLogs capacity.
	ErrRecordOverflow = errors.New("record capacity exceeded")

	// ErrHardReject is returned when Order.RaiseReject is set and the
	// order is rejected, short-circuiting the simulation.
	ErrHardReject = errors.New("order rejected with RaiseReject set")
)
