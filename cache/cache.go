package cache

import (
	"math/rand"

	"github.com/sarchlab/cachesim/storage"
)

// Cache is one level of a set-associative, multi-policy cache
// hierarchy. It implements storage.Node; levels compose by each
// holding the storage.Node immediately below it, not by inheritance
// (spec.md §9 "Polymorphic storage chain").
type Cache struct {
	config Config

	// lower is the next storage.Node down the hierarchy — another
	// Cache, or the Memory leaf.
	lower storage.Node
	// mem is the main memory leaf, used directly (bypassing any
	// intermediate levels) on a write-no-allocate write.
	mem storage.Node

	sets []set

	bypass bypassState
	pf     prefetcher

	stats   storage.Stats
	latency storage.Latency

	// rng drives RR's random victim choice. Its state is owned by this
	// Cache (not a shared global), so distinct cache instances never
	// interfere with each other's replacement decisions; it is seeded
	// deterministically so a fixed trace against a fixed policy other
	// than RR reproduces bit-identical statistics run to run (spec.md
	// §8 property 7), while RR itself is explicitly allowed to vary
	// (spec.md §9 "RNG for RR").
	rng *rand.Rand
}

// New builds a Cache level. lower is the next storage.Node down the
// hierarchy; mem is the shared main-memory leaf used directly on
// write-no-allocate writes. latency is this level's fixed bus/hit
// latency pair.
func New(config Config, lower, mem storage.Node, latency storage.Latency) *Cache {
	sets := make([]set, config.SetNum)
	for i := range sets {
		sets[i] = newSet(config.Associativity)
	}
	return &Cache{
		config:  config,
		lower:   lower,
		mem:     mem,
		sets:    sets,
		bypass:  newBypassState(),
		pf:      newPrefetcher(config.PFBufNum),
		latency: latency,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Config returns this cache's geometry and policy configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns a copy of this cache's current statistics.
func (c *Cache) Stats() storage.Stats {
	return c.stats
}

// ResetStats zeroes this cache's statistics. It does not clear the
// bypass filter's history or any set's contents — use BypassClear or
// reconstruct the cache for those.
func (c *Cache) ResetStats() {
	c.stats = storage.Stats{}
}

// Latency returns this cache's fixed bus/hit latency pair.
func (c *Cache) Latency() storage.Latency {
	return c.latency
}

// Handle services one access per the request pipeline of spec.md §4.1:
// account the access, partition the address, check the bypass filter,
// make a replacement decision, and on a hit apply the write policy or
// on a miss consult the prefetcher and run the write/fetch controller.
func (c *Cache) Handle(addr uint64, op storage.Op, policy storage.Policy) {
	c.stats.AccessCounter++
	tag, setIndex := c.config.partition(addr)

	if c.bypassDecide(tag) {
		c.lower.Handle(addr, op, policy)
		return
	}

	c.stats.AccessCycle += c.latency.BusLatency

	dec := c.decide(policy, setIndex, tag)

	if dec.hit {
		c.stats.AccessCycle += c.latency.HitLatency
		ln := &c.sets[setIndex].lines[dec.victim]
		ln.Weight = dec.weight
		if op == storage.Write {
			if c.config.WriteThrough {
				c.lower.Handle(addr, storage.Write, policy)
			} else {
				ln.Dirty = true
			}
		}
		return
	}

	c.stats.MissNum++
	c.bypassNoteMiss(tag)

	block := addr >> uint(c.config.BlockBit)
	satisfied, pfVictim := c.pf.decide(block)
	if !satisfied && pfVictim >= 0 {
		c.stats.PrefetchNum++
		c.pf.install(pfVictim, block, c.stats.AccessCounter)
	}

	c.install(addr, tag, setIndex, dec.victim, dec.weight, op, satisfied, policy)
}
