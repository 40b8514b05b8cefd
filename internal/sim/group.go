package sim

import (
	"fmt"
	"math"
	"sort"
)

// Grouping maps N columns onto G contiguous groups. Grouping is fixed for
// the lifetime of a simulation — it can be relabeled or have cash sharing
// disabled, but the column spans themselves never change mid-run.
type Grouping struct {
	GroupLens   []int // length G, sums to N
	CashSharing bool
}

// NewGrouping builds a Grouping from per-group column counts.
func NewGrouping(groupLens []int, cashSharing bool) Grouping {
	return Grouping{GroupLens: groupLens, CashSharing: cashSharing}
}

// Ungrouped returns a Grouping with N singleton groups (no sharing).
func Ungrouped(n int) Grouping {
	lens := make([]int, n)
	for i := range lens {
		lens[i] = 1
	}
	return Grouping{GroupLens: lens}
}

// NumGroups returns G.
func (g Grouping) NumGroups() int { return len(g.GroupLens) }

// NumColumns returns N, the sum of all group lengths.
func (g Grouping) NumColumns() int {
	n := 0
	for _, l := range g.GroupLens {
		n += l
	}
	return n
}

// GroupRange returns the half-open [start, end) column span of group g.
func (g Grouping) GroupRange(group int) (start, end int) {
	for i := 0; i < group; i++ {
		start += g.GroupLens[i]
	}
	return start, start + g.GroupLens[group]
}

// ColumnToGroup returns the group index owning column col.
func (g Grouping) ColumnToGroup(col int) int {
	acc := 0
	for gi, l := range g.GroupLens {
		acc += l
		if col < acc {
			return gi
		}
	}
	return len(g.GroupLens) - 1
}

// IsGrouped reports whether any group spans more than one column.
func (g Grouping) IsGrouped() bool {
	for _, l := range g.GroupLens {
		if l > 1 {
			return true
		}
	}
	return false
}

// Validate checks internal consistency (non-negative lengths) and that the
// grouping's column count matches n, returning ErrGroupSplit-flavored
// errors to fail fast before a parallel partition is attempted.
func (g Grouping) Validate(n int) error {
	if g.NumColumns() != n {
		return fmt.Errorf("%w: grouping covers %d columns, grid has %d", ErrInvalidInput, g.NumColumns(), n)
	}
	for gi, l := range g.GroupLens {
		if l <= 0 {
			return fmt.Errorf("%w: group %d has non-positive length %d", ErrInvalidInput, gi, l)
		}
	}
	return nil
}

// ValidatePartition ensures a candidate column-axis partition [lo, hi) for
// parallel execution never cuts a group in half — groups are the atomic
// unit of parallelism because they share cash state (spec §5).
func (g Grouping) ValidatePartition(lo, hi int) error {
	for group := 0; group < g.NumGroups(); group++ {
		start, end := g.GroupRange(group)
		// A partition boundary landing strictly inside [start, end) splits
		// the group, unless the whole partition boundary coincides with
		// start/end (fully inside or fully outside is fine).
		if (lo > start && lo < end) || (hi > start && hi < end) {
			return fmt.Errorf("%w: partition [%d,%d) splits group %d spanning [%d,%d)",
				ErrGroupSplit, lo, hi, group, start, end)
		}
	}
	return nil
}

// CallSeqMode selects how per-bar column execution order within a group is
// produced.
type CallSeqMode int

const (
	CallSeqDefault CallSeqMode = iota
	CallSeqReversed
	CallSeqRandom
	CallSeqAuto
)

// CallSeq is a T×N table of per-(row, column-within-group) execution rank,
// i.e. callSeq[row][col] gives the position of col in its group's
// execution order for that row. It is built once up front for
// Default/Reversed/Random modes, and patched in place per-segment for Auto.
type CallSeq struct {
	Mode CallSeqMode
	Seq  [][]int // Seq[row] is a permutation of [0, groupLen) per group, concatenated column-major as group spans
}

// BuildCallSeq materializes a CallSeq for the given grouping, mode, and
// random source (used only by CallSeqRandom and as a tiebreak source for
// CallSeqAuto).
func BuildCallSeq(rows int, g Grouping, mode CallSeqMode, rnd *Rand) CallSeq {
	cs := CallSeq{Mode: mode, Seq: make([][]int, rows)}
	n := g.NumColumns()
	for row := 0; row < rows; row++ {
		seq := make([]int, n)
		for group := 0; group < g.NumGroups(); group++ {
			start, end := g.GroupRange(group)
			length := end - start
			local := make([]int, length)
			for k := range local {
				local[k] = k
			}
			switch mode {
			case CallSeqReversed:
				for i, j := 0, length-1; i < j; i, j = i+1, j-1 {
					local[i], local[j] = local[j], local[i]
				}
			case CallSeqRandom:
				rnd.Shuffle(local)
			case CallSeqDefault, CallSeqAuto:
				// Default order; Auto starts from default and is re-sorted
				// per-segment by ReorderAuto below.
			}
			copy(seq[start:end], local)
		}
		cs.Seq[row] = seq
	}
	return cs
}

// orderValue is the tentative signed notional of a column's intended order
// at the (already-mirrored) valuation price, used to rank Auto call-seq.
type orderValue struct {
	localIdx int
	value    float64
}

// ReorderAuto computes the Auto call-seq for one (row, group) segment in
// place. valAt(col) must return the signed notional (size times price) the
// driver intends to submit for that column this bar, already
// evaluated against the mirrored-forward val_price — sells (negative value)
// are sorted to execute before buys (positive value) so the cash a sell
// releases is visible to a same-bar buy. Ties keep their original relative
// order (stable sort).
func (cs *CallSeq) ReorderAuto(row, start, end int, valAt func(localIdx int) float64) {
	length := end - start
	items := make([]orderValue, length)
	for k := 0; k < length; k++ {
		items[k] = orderValue{localIdx: k, value: valAt(k)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].value < items[j].value
	})
	for k := 0; k < length; k++ {
		cs.Seq[row][start+k] = items[k].localIdx
	}
}

// Rand is a tiny deterministic PRNG (xorshift64*) used for call-seq
// shuffling and Order.RejectProb sampling, seeded once per simulation so
// identical inputs + seed reproduce byte-identical records (spec §8
// property 4).
type Rand struct{ state uint64 }

// NewRand seeds a Rand; seed 0 is remapped to a fixed non-zero constant
// since xorshift64* cannot recover from an all-zero state.
func NewRand(seed int64) *Rand {
	s := uint64(seed)
	if s == 0 {
		s = 0x9E3779B97F4A7C15
	}
	return &Rand{state: s}
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	v := r.state * 0x2545F4914F6CDD1D
	return float64(v>>11) / float64(uint64(1)<<53)
}

// Shuffle permutes s in place using Fisher-Yates.
func (r *Rand) Shuffle(s []int) {
	for i := len(s) - 1; i > 0; i-- {
		j := int(math.Floor(r.Float64() * float64(i+1)))
		if j > i {
			j = i
		}
		s[i], s[j] = s[j], s[i]
	}
}
