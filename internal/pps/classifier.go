package pps

// pulseKind identifies the wave shape an accepted edge was attributed to.
type pulseKind int

const (
	kindNone pulseKind = iota
	kind5Hz
	kindInvisible
	kind1HzSquare
	kind1HzLeading
	kindHalfHzSquare
)

// Classification windows in microseconds. The 1 Hz window is a full 10%
// because coarse host clocks under a fast slew (chronyd slews up to
// 8.334%) still have to land inside it. 5 Hz and 0.5 Hz generators are
// disciplined oscillators and get much narrower windows.
const (
	cycle5HzMin  = 199_000
	cycle5HzMax  = 201_000
	cycle1HzMin  = 900_000
	cycle1HzMax  = 1_100_000
	cycleHalfMin = 1_999_000
	cycleHalfMax = 2_001_000

	duration5HzMax    = 100_000
	duration1HzShort  = 499_000
	duration1HzSquare = 501_000
	durationHalfHzMin = 999_000
	durationHalfHzMax = 1_001_000
)

// verdict is the outcome of classifying one edge.
type verdict struct {
	kind pulseKind
	ok   bool
	tag  string
}

// classify decides whether an edge with the given cycle and duration
// (microseconds) represents an accepted top of second. Windows are
// checked top-down with strict upper bounds.
//
// The pulse is normally a short 1 Hz pulse whose leading edge marks the
// second, but polarity differs between receivers, some emit a 0.5 Hz or
// 1 Hz square wave, some a 5 Hz pulse, and some a pulse too short to
// sample at all (duration arrives here as 0 for those).
func classify(cycleUs, durationUs int64, edge int) verdict {
	switch {
	case cycleUs < 0:
		return verdict{kindNone, false, "Rejecting negative cycle"}

	case cycleUs < cycle5HzMin:
		// too short to even be a 5Hz pulse
		return verdict{kindNone, false, "Too short for 5Hz"}

	case cycleUs < cycle5HzMax:
		if durationUs < duration5HzMax {
			return verdict{kind5Hz, true, "5Hz PPS pulse"}
		}
		return verdict{kindNone, false, "5Hz cycle with bad duration"}

	case cycleUs < cycle1HzMin:
		return verdict{kindNone, false, "Too long for 5Hz, too short for 1Hz"}

	case cycleUs < cycle1HzMax:
		switch {
		case durationUs == 0:
			return verdict{kindInvisible, true, "invisible pulse"}
		case durationUs < duration1HzShort:
			// end of the short half of the cycle
			return verdict{kindNone, false, "1Hz trailing edge"}
		case durationUs < duration1HzSquare:
			// 1.0 Hz square wave, the second starts on assert
			if edge == edgeAssert {
				return verdict{kind1HzSquare, true, "square"}
			}
			return verdict{kindNone, false, "1Hz square wave trailing edge"}
		default:
			return verdict{kind1HzLeading, true, "1Hz leading edge"}
		}

	case cycleUs < cycleHalfMin:
		return verdict{kindNone, false, "Too long for 1Hz, too short for 2Hz"}

	case cycleUs < cycleHalfMax:
		switch {
		case durationUs < durationHalfHzMin:
			return verdict{kindNone, false, "0.5 Hz square too short duration"}
		case durationUs < durationHalfHzMax:
			return verdict{kindHalfHzSquare, true, "0.5 Hz square wave"}
		default:
			return verdict{kindNone, false, "0.5 Hz square too long duration"}
		}

	default:
		return verdict{kindNone, false, "Too long for 0.5Hz"}
	}
}

// Kernel-captured pulses carry little jitter, so the kernel path only
// needs a coarse 1% sanity window around 1 Hz. Other rates are not
// validated on this path.
const (
	kppsCycleMin = 990_000
	kppsCycleMax = 1_010_000
)

// kppsInWindow reports whether a kernel-path cycle passes the 1 Hz check.
func kppsInWindow(cycleUs int64) bool {
	return cycleUs > kppsCycleMin && cycleUs < kppsCycleMax
}

// invisibleCycle reports whether a same-state wakeup has 1 Hz spacing and
// should be treated as a pulse too short to sample rather than a stuck
// line.
func invisibleCycle(cycleUs int64) bool {
	return cycleUs > 999_000 && cycleUs < 1_001_000
}
