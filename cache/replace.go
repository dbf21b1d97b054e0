package cache

import "github.com/sarchlab/cachesim/storage"

// decision is the outcome of a replacement decision: whether the
// addressed tag is already present (hit, at victim) or must be
// installed (miss, displacing victim), and the weight to store into
// that line. Tie-breaking across every policy below is "first index
// wins" when weights compare equal, matching a single forward linear
// scan over the set.
type decision struct {
	hit    bool
	victim int
	weight uint64
}

// decide scans the set addressed by setIndex for tag under policy,
// returning a hit (with the hit line's new weight) or a miss (with the
// chosen victim and its prospective weight). Every policy takes a cold
// (invalid) line as the victim when one exists.
func (c *Cache) decide(policy storage.Policy, setIndex int, tag uint64) decision {
	s := &c.sets[setIndex]
	switch policy {
	case storage.LRU:
		return c.decideLRU(s, tag)
	case storage.MRU:
		return c.decideMRU(s, tag)
	case storage.RR:
		return c.decideRR(s, tag)
	case storage.SLRU:
		return c.decideSLRU(s, tag)
	case storage.LFU:
		return c.decideLFU(s, tag)
	case storage.LFRU:
		return c.decideLFRU(s, tag)
	case storage.LFUDA:
		return c.decideLFUDA(s, tag)
	case storage.ARC:
		return c.decideARC(s, tag)
	case storage.FIFO:
		return c.decideFIFO(s, tag)
	case storage.LIFO:
		return c.decideLIFO(s, tag)
	default:
		storage.Invariant(false, "cache: unrecognized replacement policy 0x%02X", uint8(policy))
		return decision{}
	}
}

// decideLRU: weight is the access counter at time of access; the
// victim on miss is the valid line with the smallest weight.
func (c *Cache) decideLRU(s *set, tag uint64) decision {
	coldLine, victim := -1, -1
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid {
			if ln.Tag == tag {
				return decision{hit: true, victim: i, weight: c.stats.AccessCounter}
			}
			if victim == -1 || ln.Weight < s.lines[victim].Weight {
				victim = i
			}
		} else if coldLine == -1 {
			coldLine = i
		}
	}
	if coldLine != -1 {
		victim = coldLine
	}
	return decision{hit: false, victim: victim, weight: c.stats.AccessCounter}
}

// decideMRU: same weight rule as LRU; the victim on miss is the valid
// line with the largest weight.
func (c *Cache) decideMRU(s *set, tag uint64) decision {
	coldLine, victim := -1, -1
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid {
			if ln.Tag == tag {
				return decision{hit: true, victim: i, weight: c.stats.AccessCounter}
			}
			if victim == -1 || ln.Weight > s.lines[victim].Weight {
				victim = i
			}
		} else if coldLine == -1 {
			coldLine = i
		}
	}
	if coldLine != -1 {
		victim = coldLine
	}
	return decision{hit: false, victim: victim, weight: c.stats.AccessCounter}
}

// decideRR: weight is never meaningful (kept 0); a cold line is always
// preferred, otherwise a uniformly random index is picked.
func (c *Cache) decideRR(s *set, tag uint64) decision {
	coldLine := -1
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid && ln.Tag == tag {
			return decision{hit: true, victim: i, weight: 0}
		}
		if coldLine == -1 && !ln.Valid {
			coldLine = i
		}
	}
	victim := coldLine
	if victim == -1 {
		victim = c.rng.Intn(len(s.lines))
	}
	return decision{hit: false, victim: victim, weight: 0}
}

// countProtected returns how many valid lines in s are protected
// (weight&1==1) and the index of the least-recent one among them
// (smallest weight), or -1 if none.
func countProtected(s *set) (count, leastRecent int) {
	leastRecent = -1
	for j := range s.lines {
		ln := &s.lines[j]
		if ln.Valid && ln.Weight&1 == 1 {
			count++
			if leastRecent == -1 || ln.Weight < s.lines[leastRecent].Weight {
				leastRecent = j
			}
		}
	}
	return count, leastRecent
}

// decideSLRU implements Segmented LRU: bit0 of weight distinguishes
// probationary (0) from protected (1); the high bits hold a recency
// timestamp. A probationary hit promotes to protected, demoting the
// least-recent protected line first if that would exceed the
// associativity/2 protected quota. The miss victim is the least-recent
// probationary line.
func (c *Cache) decideSLRU(s *set, tag uint64) decision {
	quota := len(s.lines) / 2
	coldLine, victim := -1, -1

	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid && ln.Tag == tag {
			if ln.Weight&1 == 1 {
				return decision{hit: true, victim: i, weight: (c.stats.AccessCounter << 1) | 1}
			}
			if quota == 0 {
				// A 1-way set has a protected quota of 0: the hit line
				// stays probationary.
				return decision{hit: true, victim: i, weight: c.stats.AccessCounter << 1}
			}
			if n, proVictim := countProtected(s); n >= quota {
				s.lines[proVictim].Weight ^= 1
			}
			return decision{hit: true, victim: i, weight: (c.stats.AccessCounter << 1) | 1}
		}
		if coldLine == -1 && !ln.Valid {
			coldLine = i
		}
		if ln.Weight&1 == 0 && (victim == -1 || ln.Weight < s.lines[victim].Weight) {
			victim = i
		}
	}

	weight := c.stats.AccessCounter << 1
	if coldLine != -1 {
		victim = coldLine
	}
	return decision{hit: false, victim: victim, weight: weight}
}

// decideLFU: weight is a frequency counter, incremented by 1 on every
// hit; new insertions enter at weight 1. No aging.
func (c *Cache) decideLFU(s *set, tag uint64) decision {
	coldLine, victim := -1, -1
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid {
			if ln.Tag == tag {
				return decision{hit: true, victim: i, weight: ln.Weight + 1}
			}
			if victim == -1 || ln.Weight < s.lines[victim].Weight {
				victim = i
			}
		} else if coldLine == -1 {
			coldLine = i
		}
	}
	weight := uint64(1)
	if coldLine != -1 {
		victim = coldLine
	}
	return decision{hit: false, victim: victim, weight: weight}
}

// decideLFRU: identical segmentation to SLRU, but the high-weight
// quantity is a frequency counter incremented by 2 on hits (preserving
// the low protection bit) instead of a timestamp. New insertions enter
// probationary at weight 2.
func (c *Cache) decideLFRU(s *set, tag uint64) decision {
	quota := len(s.lines) / 2
	coldLine, victim := -1, -1

	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid && ln.Tag == tag {
			if ln.Weight&1 == 1 {
				return decision{hit: true, victim: i, weight: ln.Weight + 2}
			}
			if quota == 0 {
				// A 1-way set has a protected quota of 0: the hit line
				// stays probationary.
				return decision{hit: true, victim: i, weight: ln.Weight + 2}
			}
			if n, proVictim := countProtected(s); n >= quota {
				s.lines[proVictim].Weight ^= 1
			}
			return decision{hit: true, victim: i, weight: (ln.Weight + 2) | 1}
		}
		if coldLine == -1 && !ln.Valid {
			coldLine = i
		}
		if ln.Weight&1 == 0 && (victim == -1 || ln.Weight < s.lines[victim].Weight) {
			victim = i
		}
	}

	weight := uint64(2)
	if coldLine != -1 {
		victim = coldLine
	}
	return decision{hit: false, victim: victim, weight: weight}
}

// decideLFUDA: frequency counter as in LFU, but a miss seeds the new
// insertion's weight from the evicted line's weight+1 (or 1 for a cold
// insertion), so the minimum-frequency floor rises over time and ages
// out stale high-frequency entries.
func (c *Cache) decideLFUDA(s *set, tag uint64) decision {
	coldLine, victim := -1, -1
	var weight uint64
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid {
			if ln.Tag == tag {
				return decision{hit: true, victim: i, weight: ln.Weight + 1}
			}
			if victim == -1 || ln.Weight < s.lines[victim].Weight {
				victim = i
				weight = ln.Weight + 1
			}
		} else if coldLine == -1 {
			coldLine = i
		}
	}
	if coldLine != -1 {
		victim = coldLine
		weight = 1
	}
	return decision{hit: false, victim: victim, weight: weight}
}

// arcProtectedAgeKey (2^32) is added to a promoted ARC line's weight,
// so the protected segment's age key sits in the high 32 bits of the
// weight word.
const arcProtectedAgeKey = uint64(1) << 32

// decideARC implements set-local Adaptive Replacement Cache: a
// probationary/protected split (packed as LRU/SLRU are) plus the ghost
// lists B1 (probationary evictions) and B2 (protected evictions), which
// adapt arcLim when a missing tag is found in one of them. Protected
// weight packs a 32-bit
// protected-age key in the high bits and a 32-bit probationary-age key
// in the low bits, so a demoted protected line truncates cleanly back
// into the probationary pool.
func (c *Cache) decideARC(s *set, tag uint64) decision {
	coldLine, victim := -1, -1

	for i := range s.lines {
		ln := &s.lines[i]
		if ln.Valid && ln.Tag == tag {
			if ln.Weight&1 == 1 {
				return decision{hit: true, victim: i, weight: ((c.stats.AccessCounter << 1) | 1) + arcProtectedAgeKey}
			}

			for {
				n, proVictim := 0, -1
				for j := range s.lines {
					lj := &s.lines[j]
					if lj.Valid && lj.Weight&1 == 1 {
						n++
						if proVictim == -1 || (lj.Weight>>32) < (s.lines[proVictim].Weight>>32) {
							proVictim = j
						}
					}
				}
				if n < s.arcLim {
					break
				}
				s.b2.push(s.lines[proVictim].Tag)
				s.lines[proVictim].Weight ^= 1
				s.lines[proVictim].Weight &= 0xFFFFFFFF
			}

			return decision{hit: true, victim: i, weight: ((c.stats.AccessCounter << 1) | 1) + arcProtectedAgeKey}
		}

		if coldLine == -1 && !ln.Valid {
			coldLine = i
		}
		if ln.Weight&1 == 0 && (victim == -1 || ln.Weight < s.lines[victim].Weight) {
			victim = i
		}
	}

	if s.b1.exist(tag) && s.arcLim > 1 {
		s.arcLim--
	}
	if s.b2.exist(tag) && s.arcLim < len(s.lines)-1 {
		s.arcLim++
	}

	weight := c.stats.AccessCounter << 1
	if coldLine != -1 {
		victim = coldLine
	} else {
		s.b1.push(s.lines[victim].Tag)
	}
	return decision{hit: false, victim: victim, weight: weight}
}

// decideFIFO: lines are kept in insertion order (index 0 oldest). A hit
// shifts the hit line toward the tail by swapping with its next valid
// neighbour, then reports the hit at the slot the line ends up in (the
// tail of the valid region) — unusual for FIFO, but
// preserved verbatim per spec.md §9. A miss takes the first cold slot,
// or shifts the whole valid region left by one and inserts at the
// tail.
func (c *Cache) decideFIFO(s *set, tag uint64) decision {
	n := len(s.lines)
	for i := 0; i < n; i++ {
		if !s.lines[i].Valid {
			return decision{hit: false, victim: i, weight: 0}
		}
		if s.lines[i].Tag == tag {
			return decision{hit: true, victim: compact(s.lines, i), weight: 0}
		}
	}
	for i := 0; i < n-1; i++ {
		s.lines[i], s.lines[i+1] = s.lines[i+1], s.lines[i]
	}
	return decision{hit: false, victim: n - 1, weight: 0}
}

// decideLIFO: symmetric to FIFO but a miss always recycles the tail
// slot (no left-shift); the hit-compaction step is identical to FIFO.
func (c *Cache) decideLIFO(s *set, tag uint64) decision {
	n := len(s.lines)
	for i := 0; i < n; i++ {
		if !s.lines[i].Valid {
			return decision{hit: false, victim: i, weight: 0}
		}
		if s.lines[i].Tag == tag {
			return decision{hit: true, victim: compact(s.lines, i), weight: 0}
		}
	}
	return decision{hit: false, victim: n - 1, weight: 0}
}

// compact shifts the line at i toward the tail by swapping with its
// next neighbour, stopping at the first invalid slot or the end of the
// array, and returns the index the line ends up at.
func compact(lines []Line, i int) int {
	j := i
	for ; j < len(lines)-1; j++ {
		if !lines[j+1].Valid {
			break
		}
		lines[j], lines[j+1] = lines[j+1], lines[j]
	}
	return j
}
