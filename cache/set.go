package cache

// set is one cache set: its associativity lines, plus the ARC adaptive
// partition target and the two ghost ring buffers ARC's adaptation
// needs. Non-ARC policies never touch arcLim/b1/b2.
type set struct {
	lines  []Line
	arcLim int
	b1, b2 ringBuffer
}

// newSet allocates an all-invalid set of the given associativity, with
// ARC's target protected-partition size initialised to associativity/2
// per spec.md §3, raised to 1 when that would be 0.
func newSet(associativity int) set {
	lim := associativity / 2
	if lim < 1 {
		lim = 1
	}
	return set{
		lines:  make([]Line, associativity),
		arcLim: lim,
	}
}
