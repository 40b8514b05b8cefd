package sim

import (
	"math"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// OrdersInput adds the from-orders driver's per-(row,column) order fields —
// all broadcastable via FlexArray — to the shared SimInput. One order per
// (bar, column) is produced at most; a NaN size element means no order that
// bar (0 is a legitimate, if useless, order).
type OrdersInput struct {
	SimInput

	Size     FlexArray
	Price    FlexArray // ignored unless HasPrice; default is +Inf (use close)
	HasPrice bool

	SizeType         models.SizeType
	Direction        models.Direction
	Fees             FlexArray
	FixedFees        FlexArray
	Slippage         FlexArray
	MinSize          FlexArray
	MaxSize          FlexArray
	SizeGranularity  FlexArray
	RejectProb       FlexArray
	LockCash         bool
	AllowPartial     bool
	RaiseReject      bool
	Log              bool
	PriceAreaVioMode models.PriceAreaVioMode
}

// SimulateFromOrders runs the fastest driver: orders are read directly off
// pre-broadcast flex arrays with no signal state machine in between.
func SimulateFromOrders(input OrdersInput) (*SimResult, error) {
	produce := func(row, col int, cs *ColumnState, gs *GroupState) (models.Order, bool) {
		size := input.Size.Select(row, col)
		if math.IsNaN(size) {
			return models.Order{}, false
		}
		price := math.Inf(1)
		if input.HasPrice {
			price = input.Price.Select(row, col)
		}
		return models.Order{
			Size:             size,
			Price:            price,
			SizeType:         input.SizeType,
			Direction:        input.Direction,
			Fees:             input.Fees.Select(row, col),
			FixedFees:        input.FixedFees.Select(row, col),
			Slippage:         input.Slippage.Select(row, col),
			MinSize:          input.MinSize.Select(row, col),
			MaxSize:          input.MaxSize.Select(row, col),
			SizeGranularity:  input.SizeGranularity.Select(row, col),
			RejectProb:       input.RejectProb.Select(row, col),
			LockCash:         input.LockCash,
			AllowPartial:     input.AllowPartial,
			RaiseReject:      input.RaiseReject,
			Log:              input.Log,
			PriceAreaVioMode: input.PriceAreaVioMode,
		}, true
	}
	return runSegments(input.SimInput, produce, nil, nil)
}
