package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/storage"
)

// recordingNode is a storage.Node stand-in that counts calls and
// accumulates its own latency, used as the lower level under test so
// assertions can tell whether a request reached it.
type recordingNode struct {
	calls   int
	stats   storage.Stats
	latency storage.Latency
}

func newRecordingNode() *recordingNode {
	return &recordingNode{latency: storage.Latency{BusLatency: 0, HitLatency: 100}}
}

func (n *recordingNode) Handle(addr uint64, op storage.Op, policy storage.Policy) {
	n.calls++
	n.stats.AccessCounter++
	n.stats.AccessCycle += n.latency.HitLatency
}

func (n *recordingNode) Stats() storage.Stats     { return n.stats }
func (n *recordingNode) ResetStats()              { n.stats = storage.Stats{} }
func (n *recordingNode) Latency() storage.Latency { return n.latency }

func mustConfig(sizeBytes, assoc, blockSize int, writeThrough bool, shiftBit int, threshold float64, pfBufNum int) cache.Config {
	cfg, err := cache.NewConfig(sizeBytes, assoc, blockSize, writeThrough, shiftBit, threshold, pfBufNum)
	Expect(err).NotTo(HaveOccurred())
	return cfg
}

var _ = Describe("Cache", func() {
	var lower *recordingNode

	BeforeEach(func() {
		lower = newRecordingNode()
	})

	Describe("direct-mapped conflict", func() {
		It("misses every access when two tags thrash one line", func() {
			cfg := mustConfig(16, 1, 4, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LRU)
			c.Handle(16, storage.Read, storage.LRU)
			c.Handle(0, storage.Read, storage.LRU)

			st := c.Stats()
			Expect(st.AccessCounter).To(Equal(uint64(3)))
			Expect(st.MissNum).To(Equal(uint64(3)))
			Expect(st.ReplaceNum).To(Equal(uint64(2)))
			Expect(st.FetchNum).To(Equal(uint64(3)))
		})
	})

	Describe("two-way associativity", func() {
		It("holds both conflicting tags and hits on repeat", func() {
			cfg := mustConfig(32, 2, 4, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LRU)
			c.Handle(16, storage.Read, storage.LRU)
			c.Handle(0, storage.Read, storage.LRU)

			st := c.Stats()
			Expect(st.AccessCounter).To(Equal(uint64(3)))
			Expect(st.MissNum).To(Equal(uint64(2)))
			Expect(st.ReplaceNum).To(Equal(uint64(0)))
		})
	})

	Describe("MRU replacement", func() {
		It("evicts the most recently touched line on the next miss", func() {
			cfg := mustConfig(2, 2, 1, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.MRU) // miss, cold fill
			c.Handle(4, storage.Read, storage.MRU) // miss, cold fill
			c.Handle(0, storage.Read, storage.MRU) // hit, becomes most recent
			c.Handle(8, storage.Read, storage.MRU) // miss, evicts tag 0 (most recent)

			Expect(c.Stats().MissNum).To(Equal(uint64(3)))

			// tag 4 should still be resident; tag 0 should not be.
			before := c.Stats()
			c.Handle(4, storage.Read, storage.MRU)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum))

			before = c.Stats()
			c.Handle(0, storage.Read, storage.MRU)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum + 1))
		})
	})

	Describe("LFUDA replacement", func() {
		It("ages insertions off the evicted line's frequency", func() {
			cfg := mustConfig(2, 2, 1, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LFUDA)
			c.Handle(0, storage.Read, storage.LFUDA)
			c.Handle(0, storage.Read, storage.LFUDA)
			c.Handle(4, storage.Read, storage.LFUDA)
			c.Handle(8, storage.Read, storage.LFUDA)

			st := c.Stats()
			Expect(st.MissNum).To(Equal(uint64(3)))
			Expect(st.ReplaceNum).To(Equal(uint64(1)))

			// tag 0 (frequency 3) must still be resident.
			before := c.Stats()
			c.Handle(0, storage.Read, storage.LFUDA)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum))
		})
	})

	Describe("ARC adaptive limit", func() {
		It("runs a ghost-list workload without panicking and counts every access", func() {
			cfg := mustConfig(4, 4, 1, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			stream := []uint64{0, 64, 128, 192}
			for i := 0; i < 3; i++ {
				for _, a := range stream {
					c.Handle(a, storage.Read, storage.ARC)
				}
			}
			c.Handle(256, storage.Read, storage.ARC)

			// ARCLim is internal; the externally visible guarantee is
			// that the hierarchy never panics and keeps accounting
			// access/miss counters consistently.
			st := c.Stats()
			Expect(st.AccessCounter).To(Equal(uint64(13)))
			Expect(st.MissNum).To(BeNumerically(">", 0))
		})
	})

	Describe("write policy", func() {
		It("write-through is coupled to no-allocate: every write bypasses the cache", func() {
			cfg := mustConfig(16, 2, 4, true, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Write, storage.LRU)
			calls := lower.calls
			c.Handle(0, storage.Write, storage.LRU) // still forwarded: no-allocate never installs a line

			Expect(lower.calls).To(Equal(calls + 1))
			Expect(c.Stats().MissNum).To(Equal(uint64(2)))
		})

		It("write-back defers the write-back until eviction", func() {
			cfg := mustConfig(16, 1, 4, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Write, storage.LRU) // miss, dirty install
			callsAfterInstall := lower.calls

			c.Handle(0, storage.Write, storage.LRU) // hit, write-back: no forward
			Expect(lower.calls).To(Equal(callsAfterInstall))

			c.Handle(16, storage.Read, storage.LRU) // miss, evicts dirty tag 0: writes back
			Expect(lower.calls).To(BeNumerically(">", callsAfterInstall))
		})
	})

	Describe("write-allocate policy", func() {
		It("no-allocate forwards a write miss straight to memory, bypassing install", func() {
			cfg := mustConfig(16, 1, 4, true, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Write, storage.LRU)
			Expect(c.Stats().MissNum).To(Equal(uint64(1)))
			Expect(c.Stats().ReplaceNum).To(Equal(uint64(0)))

			// A subsequent read still misses: the write never installed a line.
			before := c.Stats()
			c.Handle(0, storage.Read, storage.LRU)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum + 1))
		})
	})

	Describe("adaptive bypass", func() {
		It("forwards a hot coarse tag's access without charging bus latency", func() {
			// sizeBytes/assoc/blockSize chosen so 101 block-aligned
			// addresses fit inside a single tag's address space
			// (tagBit = blockBit+setBit = 9, so addresses 0..508 in
			// steps of 4 all share tag 0 and so share one bypass bucket).
			cfg := mustConfig(2048, 4, 4, false, 0, 0.5, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 1, HitLatency: 3})

			for i := 0; i < 101; i++ {
				c.Handle(uint64(i*4), storage.Read, storage.LRU)
			}
			before := c.Stats().AccessCycle

			c.Handle(0, storage.Read, storage.LRU)

			Expect(c.Stats().AccessCycle).To(Equal(before))
			Expect(lower.calls).To(BeNumerically(">", 0))
		})
	})

	Describe("sequential prefetch", func() {
		It("elides the lower-level fetch for a prefetched block", func() {
			cfg := mustConfig(4096, 4, 64, false, -1, 0, 4)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			// Block 6400 (not block 0) so the cold buffers' zero-valued
			// slots can't spuriously satisfy this first miss.
			c.Handle(6400, storage.Read, storage.LRU)
			callsAfterFirstMiss := lower.calls

			c.Handle(6464, storage.Read, storage.LRU)

			Expect(c.Stats().FetchNum).To(Equal(uint64(2)))
			Expect(lower.calls).To(Equal(callsAfterFirstMiss))
		})

		It("a cold buffer's zero-valued slots spuriously satisfy a first access to block 0", func() {
			cfg := mustConfig(4096, 4, 64, false, -1, 0, 4)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LRU)

			Expect(c.Stats().FetchNum).To(Equal(uint64(1)))
			Expect(lower.calls).To(Equal(0))
		})
	})

	Describe("FIFO and LIFO ordering", func() {
		It("FIFO evicts the oldest inserted line first", func() {
			cfg := mustConfig(2, 2, 1, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.FIFO)
			c.Handle(4, storage.Read, storage.FIFO)
			c.Handle(8, storage.Read, storage.FIFO) // evicts tag 0 (oldest)

			before := c.Stats()
			c.Handle(4, storage.Read, storage.FIFO)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum))

			before = c.Stats()
			c.Handle(0, storage.Read, storage.FIFO)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum + 1))
		})

		It("LIFO always recycles the tail slot on a miss", func() {
			cfg := mustConfig(2, 2, 1, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LIFO)
			c.Handle(4, storage.Read, storage.LIFO)
			c.Handle(8, storage.Read, storage.LIFO) // recycles tail, leaving tag 0 resident

			before := c.Stats()
			c.Handle(0, storage.Read, storage.LIFO)
			Expect(c.Stats().MissNum).To(Equal(before.MissNum))
		})
	})

	Describe("ResetStats", func() {
		It("zeroes accumulated statistics without clearing cache contents", func() {
			cfg := mustConfig(16, 2, 4, false, -1, 0, 0)
			c := cache.New(cfg, lower, lower, storage.Latency{BusLatency: 0, HitLatency: 3})

			c.Handle(0, storage.Read, storage.LRU)
			c.ResetStats()
			Expect(c.Stats()).To(Equal(storage.Stats{}))

			before := c.Stats()
			c.Handle(0, storage.Read, storage.LRU) // still resident: hit, not a miss
			Expect(c.Stats().MissNum).To(Equal(before.MissNum))
		})
	})
})
