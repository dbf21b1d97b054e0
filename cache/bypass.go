package cache

// bypassState tracks, per coarse tag (tag >> BypassShiftBit), the
// total accesses and total misses seen since the last clear. It backs
// the adaptive bypass filter of spec.md §4.4.
type bypassState struct {
	access map[uint64]uint64
	miss   map[uint64]uint64
}

func newBypassState() bypassState {
	return bypassState{
		access: make(map[uint64]uint64),
		miss:   make(map[uint64]uint64),
	}
}

func (b *bypassState) clear() {
	b.access = make(map[uint64]uint64)
	b.miss = make(map[uint64]uint64)
}

// bypassDecide reports whether tag's coarse bucket is hot enough to
// bypass the cache entirely, and records this access against the
// bucket. A bucket is hot once it has been seen more than 100 times
// and its local miss rate exceeds the configured threshold.
func (c *Cache) bypassDecide(tag uint64) bool {
	shift := c.config.BypassShiftBit
	if shift < 0 {
		return false
	}
	coarse := tag >> uint(shift)
	c.bypass.access[coarse]++
	if c.bypass.access[coarse] > 100 {
		rate := float64(c.bypass.miss[coarse]) / float64(c.bypass.access[coarse])
		if rate > c.config.BypassThreshold {
			return true
		}
	}
	return false
}

// bypassNoteMiss records a real cache miss against tag's coarse
// bucket.
func (c *Cache) bypassNoteMiss(tag uint64) {
	shift := c.config.BypassShiftBit
	if shift < 0 {
		return
	}
	c.bypass.miss[tag>>uint(shift)]++
}

// BypassClear resets the bypass filter's access/miss history, e.g.
// between a warm-up phase and a measurement phase.
func (c *Cache) BypassClear() {
	c.bypass.clear()
}
