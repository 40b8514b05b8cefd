package sim

// FlexKind tags how a FlexArray's Data should be indexed, replacing the
// reference implementation's "1-D treated as row-or-column depending on a
// 2-D flag" trick with an explicit, branch-predictable shape.
type FlexKind int

const (
	FlexScalar FlexKind = iota
	FlexPerRow
	FlexPerCol
	FlexFull
)

// FlexArray is an input that broadcasts along missing axes without ever
// being materialized to its full T×N shape.
type FlexArray struct {
	Kind FlexKind
	// Scalar is used when Kind == FlexScalar.
	Scalar float64
	// PerRow has length T, used when Kind == FlexPerRow.
	PerRow []float64
	// PerCol has length N, used when Kind == FlexPerCol.
	PerCol []float64
	// Full has shape [T][N], used when Kind == FlexFull.
	Full [][]float64
}

// NewScalarFlex wraps a single value broadcast to every (row, col).
func NewScalarFlex(v float64) FlexArray { return FlexArray{Kind: FlexScalar, Scalar: v} }

// NewPerRowFlex wraps a length-T slice broadcast across columns.
func NewPerRowFlex(v []float64) FlexArray { return FlexArray{Kind: FlexPerRow, PerRow: v} }

// NewPerColFlex wraps a length-N slice broadcast across rows.
func NewPerColFlex(v []float64) FlexArray { return FlexArray{Kind: FlexPerCol, PerCol: v} }

// NewFullFlex wraps a fully materialized T×N array.
func NewFullFlex(v [][]float64) FlexArray { return FlexArray{Kind: FlexFull, Full: v} }

// Select returns the element for row i, column j according to the array's
// actual rank. This is the one function every driver calls to read a flex
// input — never reshape or index ad hoc.
func (f FlexArray) Select(i, j int) float64 {
	switch f.Kind {
	case FlexScalar:
		return f.Scalar
	case FlexPerRow:
		return f.PerRow[i]
	case FlexPerCol:
		return f.PerCol[j]
	case FlexFull:
		return f.Full[i][j]
	default:
		return 0
	}
}

// FlexSelect is a free-function form for call sites that don't want to hold
// onto a FlexArray (e.g. a zero FlexArray{} defaults to FlexScalar 0).
func FlexSelect(f FlexArray, i, j int) float64 { return f.Select(i, j) }
