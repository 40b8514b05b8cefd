package sim

// ConflictMode resolves simultaneous entry+exit signals on the same side.
type ConflictMode int

const (
	ConflictIgnore ConflictMode = iota
	ConflictEntry
	ConflictExit
	ConflictAdjacent // keep whichever signal type is not already the current position side
	ConflictOpposite // treat as a same-bar reversal
)

// OppositeEntryMode resolves an entry signal on the side opposite an
// already-open position.
type OppositeEntryMode int

const (
	OppositeIgnore OppositeEntryMode = iota
	OppositeClose
	OppositeCloseReduce
	OppositeReverse
	OppositeReverseReduce
)

// AccumulationMode governs whether a repeated same-side entry adds to (or a
// repeated same-side exit removes from) an already-open position.
type AccumulationMode int

const (
	AccumulationDisabled AccumulationMode = iota
	AccumulationAddOnly
	AccumulationRemoveOnly
	AccumulationBoth
)

// SignalPriority breaks a tie when both a user signal and a stop fire on the
// same bar for the same column.
type SignalPriority int

const (
	PriorityStopWins SignalPriority = iota
	PriorityUserWins
)

// signalIntent is what resolveBar decides to do this bar, in side-neutral
// terms the from-signals driver turns into a concrete Order.
type signalIntent int

const (
	intentNone signalIntent = iota
	intentOpenLong
	intentOpenShort
	intentCloseToFlat
	intentReverseToLong
	intentReverseToShort
)

// SignalRules bundles the conflict/opposite-entry/accumulation knobs a
// from-signals simulation is configured with; every field is resolved once
// up front from (possibly per-column) config and passed down per bar.
type SignalRules struct {
	UponLongConflict  ConflictMode
	UponShortConflict ConflictMode
	UponDirConflict   ConflictMode
	UponOppositeEntry OppositeEntryMode
	Accumulation      AccumulationMode
}

// resolveBar turns this bar's four raw boolean signals plus the column's
// current position sign into a single intent, applying conflict resolution,
// opposite-entry handling, and accumulation gating in that order — mirroring
// the reference implementation's per-bar signal-to-order reduction.
func resolveBar(rules SignalRules, longEntry, longExit, shortEntry, shortExit bool, position float64) signalIntent {
	longEntry, longExit = resolveConflict(rules.UponLongConflict, longEntry, longExit)
	shortEntry, shortExit = resolveConflict(rules.UponShortConflict, shortEntry, shortExit)

	if longEntry && shortEntry {
		switch rules.UponDirConflict {
		case ConflictEntry:
			// Keep both; the opposite-entry step below picks a side based
			// on current position.
		case ConflictIgnore:
			longEntry, shortEntry = false, false
		case ConflictAdjacent:
			if position > 0 {
				shortEntry = false
			} else if position < 0 {
				longEntry = false
			}
		default:
			longEntry, shortEntry = false, false
		}
	}

	isLong := position > 0
	isShort := position < 0
	isFlat := !isLong && !isShort

	switch {
	case longExit && isLong:
		return intentCloseToFlat
	case shortExit && isShort:
		return intentCloseToFlat
	}

	switch {
	case longEntry && isFlat:
		return intentOpenLong
	case shortEntry && isFlat:
		return intentOpenShort
	case longEntry && isLong:
		if rules.Accumulation == AccumulationAddOnly || rules.Accumulation == AccumulationBoth {
			return intentOpenLong
		}
		return intentNone
	case shortEntry && isShort:
		if rules.Accumulation == AccumulationAddOnly || rules.Accumulation == AccumulationBoth {
			return intentOpenShort
		}
		return intentNone
	case longEntry && isShort:
		return resolveOpposite(rules.UponOppositeEntry, intentOpenLong, intentReverseToLong)
	case shortEntry && isLong:
		return resolveOpposite(rules.UponOppositeEntry, intentOpenShort, intentReverseToShort)
	}
	return intentNone
}

// resolveConflict applies a ConflictMode to one side's (entry, exit) pair.
func resolveConflict(mode ConflictMode, entry, exit bool) (bool, bool) {
	if !(entry && exit) {
		return entry, exit
	}
	switch mode {
	case ConflictEntry:
		return true, false
	case ConflictExit:
		return false, true
	case ConflictOpposite, ConflictAdjacent:
		// Both flags survive; the caller's position-aware switch decides
		// which one actually fires given the column's current side.
		return true, true
	default: // ConflictIgnore
		return false, false
	}
}

// resolveOpposite turns an opposite-side entry signal into an intent given
// the configured OppositeEntryMode.
func resolveOpposite(mode OppositeEntryMode, openIntent, reverseIntent signalIntent) signalIntent {
	switch mode {
	case OppositeClose, OppositeCloseReduce:
		return intentCloseToFlat
	case OppositeReverse, OppositeReverseReduce:
		return reverseIntent
	default: // OppositeIgnore
		return intentNone
	}
}
