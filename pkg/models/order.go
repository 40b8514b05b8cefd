package models

// OrderSide is which way a fill moved: Buy increases position, Sell
// decreases it. Side is a property of the fill, independent of whether the
// column ends up net long or short.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
	None OrderSide = "NONE"
)

// OrderStatus is the terminal state of one ExecuteOrder call.
type OrderStatus string

const (
	// StatusFilled means size != 0 was committed against column state.
	StatusFilled OrderStatus = "FILLED"
	// StatusIgnored means the order resolved to a no-op (e.g. zero size
	// after rounding) without being a constraint violation.
	StatusIgnored OrderStatus = "IGNORED"
	// StatusRejected means a constraint (cash, min size, price area,
	// direction, random reject) prevented the fill.
	StatusRejected OrderStatus = "REJECTED"
)

// SizeType selects how Order.Size is interpreted.
type SizeType int

const (
	// SizeAmount is a literal signed quantity of the asset.
	SizeAmount SizeType = iota
	// SizeValue is a notional amount to convert to quantity at the
	// resolved price: size / price.
	SizeValue
	// SizePercent is a fraction of the available resource (cash for a
	// buy, |position| for a sell-to-close).
	SizePercent
	// SizeTargetAmount/SizeTargetValue/SizeTargetPercent express a desired
	// end state; the executed delta is target - current.
	SizeTargetAmount
	SizeTargetValue
	SizeTargetPercent
)

// Direction constrains which sign a column's position may take.
type Direction int

const (
	LongOnly Direction = iota
	ShortOnly
	Both
)

// PriceAreaVioMode controls what happens when a slippage-adjusted order
// price falls outside [low, high] of the current bar.
type PriceAreaVioMode int

const (
	// VioIgnore lets the price stand even if outside the bar's range.
	VioIgnore PriceAreaVioMode = iota
	// VioCap clips the price to the nearest bound.
	VioCap
	// VioError rejects the order.
	VioError
)

// PriceArea is the OHLC bounds used to validate/clip an order's execution
// price. Any field may be NaN, meaning "no bound available" for that side.
type PriceArea struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Order is one unit of trading intent passed into ExecuteOrder. Price of
// +Inf means "use the bar's close"; -Inf means "use the column's last
// valuation price."
type Order struct {
	Size             float64          `json:"size"`
	Price            float64          `json:"price"`
	SizeType         SizeType         `json:"size_type"`
	Direction        Direction        `json:"direction"`
	Fees             float64          `json:"fees"`     // proportional fee rate, e.g. 0.001 = 0.1%
	FixedFees        float64          `json:"fixed_fees"` // flat per-order fee
	Slippage         float64          `json:"slippage"`   // proportional price impact, e.g. 0.001
	MinSize          float64          `json:"min_size"`
	MaxSize          float64          `json:"max_size"` // +Inf means unbounded
	SizeGranularity  float64          `json:"size_granularity"` // 0 means unconstrained
	RejectProb       float64          `json:"reject_prob"`      // [0,1] probability of random rejection
	LockCash         bool             `json:"lock_cash"`
	AllowPartial     bool             `json:"allow_partial"`
	RaiseReject      bool             `json:"raise_reject"`
	Log              bool             `json:"log"`
	PriceAreaVioMode PriceAreaVioMode `json:"price_area_vio_mode"`
}

// OrderResult is the outcome of one ExecuteOrder call.
type OrderResult struct {
	Size       float64     `json:"size"`
	Price      float64     `json:"price"`
	Fees       float64     `json:"fees"`
	Side       OrderSide   `json:"side"`
	Status     OrderStatus `json:"status"`
	StatusInfo string      `json:"status_info"`
}

// OrderRecord is one immutable, append-only entry in a simulation's order
// record stream.
type OrderRecord struct {
	ID     int       `json:"id"` // monotonic per column
	Column int       `json:"column"`
	Row    int       `json:"row"`
	Size   float64   `json:"size"`
	Price  float64   `json:"price"`
	Fees   float64   `json:"fees"`
	Side   OrderSide `json:"side"`
}

// LogRecord is one immutable, append-only entry describing an attempted
// order (filled, ignored, or rejected) together with pre/post column
// state, recorded when Order.Log is set.
type LogRecord struct {
	Column         int         `json:"column"`
	Row            int         `json:"row"`
	Group          int         `json:"group"`
	PositionBefore float64     `json:"position_before"`
	PositionAfter  float64     `json:"position_after"`
	DebtBefore     float64     `json:"debt_before"`
	DebtAfter      float64     `json:"debt_after"`
	CashBefore     float64     `json:"cash_before"`
	CashAfter      float64     `json:"cash_after"`
	FreeCashBefore float64     `json:"free_cash_before"`
	FreeCashAfter  float64     `json:"free_cash_after"`
	ValPrice       float64     `json:"val_price"`
	Order          Order       `json:"order"`
	Result         OrderResult `json:"result"`
}
