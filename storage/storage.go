// Package storage defines the shared contract every level of the memory
// hierarchy implements: a single request operation plus the statistics
// and latency pair the request accounts against.
package storage

import "fmt"

// Op is the direction of a memory access.
type Op int

const (
	// Read is a load access.
	Read Op = iota
	// Write is a store access.
	Write
)

// String renders the op the way trace lines spell it.
func (o Op) String() string {
	if o == Write {
		return "w"
	}
	return "r"
}

// Policy selects a cache's replacement algorithm. Codes match the
// reference simulator's macro values so traces and reports referring to
// a policy by number stay meaningful.
type Policy uint8

const (
	LRU   Policy = 0x20
	MRU   Policy = 0x21
	RR    Policy = 0x22
	SLRU  Policy = 0x23
	LFU   Policy = 0x24
	LFRU  Policy = 0x25
	LFUDA Policy = 0x26
	ARC   Policy = 0x27
	FIFO  Policy = 0x28
	LIFO  Policy = 0x29
)

// Policies lists every supported replacement policy, in the order a
// sweep over the hierarchy should try them.
var Policies = []Policy{LRU, MRU, RR, SLRU, LFU, LFRU, LFUDA, ARC, FIFO, LIFO}

// String returns the human-readable policy name used in reports.
func (p Policy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case MRU:
		return "MRU"
	case RR:
		return "RR"
	case SLRU:
		return "SLRU"
	case LFU:
		return "LFU"
	case LFRU:
		return "LFRU"
	case LFUDA:
		return "LFUDA"
	case ARC:
		return "ARC"
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	default:
		return "UNKNOWN"
	}
}

// Stats holds the counters a single hierarchy level accumulates.
type Stats struct {
	AccessCounter uint64
	MissNum       uint64
	AccessCycle   uint64
	ReplaceNum    uint64
	FetchNum      uint64
	PrefetchNum   uint64
}

// MissRate returns MissNum/AccessCounter, or 0 if there have been no
// accesses yet.
func (s Stats) MissRate() float64 {
	if s.AccessCounter == 0 {
		return 0
	}
	return float64(s.MissNum) / float64(s.AccessCounter)
}

// Latency is the fixed per-access cost of a hierarchy level: the bus
// cost charged on every non-bypassed access, and the additional cost
// charged only on a hit.
type Latency struct {
	BusLatency uint64
	HitLatency uint64
}

// Node is the capability every hierarchy level — cache or memory —
// implements. Composition across levels is by holding a Node, not by
// inheritance.
type Node interface {
	// Handle services one access, updating this node's statistics and
	// recursing into any lower node as the policy requires.
	Handle(addr uint64, op Op, policy Policy)

	// Stats returns a copy of this node's current statistics.
	Stats() Stats

	// ResetStats zeroes this node's statistics.
	ResetStats()

	// Latency returns this node's fixed latency pair.
	Latency() Latency
}

// Invariant panics with a formatted message when cond is false. Runtime
// invariant violations are programmer errors (spec.md §7): the engine
// must make them unreachable by construction, and a panic is the
// idiomatic Go way to surface "this should never happen" rather than an
// error return a caller could plausibly recover from.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
