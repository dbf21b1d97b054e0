// Package memory provides the terminal sink of the storage chain: a
// node with a fixed hit latency and no data payload.
package memory

import "github.com/sarchlab/cachesim/storage"

// Memory is the leaf storage.Node. It models no address space and no
// data; it only accounts latency for whatever arrives at the bottom of
// the hierarchy.
type Memory struct {
	stats   storage.Stats
	latency storage.Latency
}

// New creates a Memory leaf with the reference simulator's fixed
// latency: no bus cost, 100-cycle hit cost.
func New() *Memory {
	return &Memory{
		latency: storage.Latency{BusLatency: 0, HitLatency: 100},
	}
}

// Handle accounts one access. The op and policy never change Memory's
// behavior — it is the same for a read, a write, or any replacement
// policy — but both are accepted to satisfy storage.Node uniformly,
// mirroring the reference Storage::HandleRequest contract where
// replace_method is threaded through to every level including the leaf.
func (m *Memory) Handle(addr uint64, op storage.Op, policy storage.Policy) {
	_ = addr
	_ = op
	_ = policy
	m.stats.AccessCounter++
	m.stats.AccessCycle += m.latency.HitLatency
}

// Stats returns a copy of Memory's current statistics.
func (m *Memory) Stats() storage.Stats {
	return m.stats
}

// ResetStats zeroes Memory's statistics.
func (m *Memory) ResetStats() {
	m.stats = storage.Stats{}
}

// Latency returns Memory's fixed latency pair.
func (m *Memory) Latency() storage.Latency {
	return m.latency
}
