// Package cache implements a set-associative cache level: the
// replacement engine (ten policies), the write/allocate/write-back
// controller, adaptive bypassing, and a stream prefetcher, composed
// behind the storage.Node contract.
package cache

import (
	"fmt"
	"math/bits"
)

// Config is a cache's immutable geometry and policy configuration,
// derived once at construction per spec.md §3.
type Config struct {
	// SizeBytes is the total cache capacity.
	SizeBytes int
	// Associativity is the number of lines per set.
	Associativity int
	// SetNum is the derived number of sets.
	SetNum int
	// BlockSize is the block size in bytes.
	BlockSize int
	// BlockBit is log2(BlockSize).
	BlockBit int
	// SetBit is log2(SetNum).
	SetBit int

	// WriteThrough selects write-through (true) or write-back (false).
	WriteThrough bool
	// WriteAllocate selects write-allocate (true) or no-allocate
	// (false). Derived as !WriteThrough by NewConfig, matching the
	// reference simulator's
	// write_allocate = 1 - write_through.
	WriteAllocate bool

	// BypassShiftBit, if >= 0, enables the adaptive bypass filter
	// (spec.md §4.4): a coarse tag is tag >> BypassShiftBit. -1
	// disables bypassing entirely.
	BypassShiftBit int
	// BypassThreshold is the local miss-rate threshold above which a
	// hot coarse tag is bypassed.
	BypassThreshold float64

	// PFBufNum is the number of stream prefetch buffers. 0 disables
	// prefetching.
	PFBufNum int
}

// ConfigError reports a configuration fault detected at construction —
// a programmer error per spec.md §7, not a recoverable runtime
// condition.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "cache: invalid configuration: " + e.Reason
}

// NewConfig derives a full Config from the parameters a driver reads
// per hierarchy level (spec.md §6): total size in bytes, associativity,
// block size, and the write-through/write-back flag, plus the
// bypass/prefetch parameters selected for that level.
func NewConfig(
	sizeBytes, associativity, blockSize int,
	writeThrough bool,
	bypassShiftBit int,
	bypassThreshold float64,
	pfBufNum int,
) (Config, error) {
	if sizeBytes <= 0 || associativity <= 0 || blockSize <= 0 {
		return Config{}, &ConfigError{Reason: "size, associativity, and block size must be positive"}
	}
	if !isPowerOfTwo(blockSize) {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("block size %d is not a power of two", blockSize)}
	}
	setNum := sizeBytes / (associativity * blockSize)
	if setNum <= 0 || !isPowerOfTwo(setNum) {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("derived set count %d is not a positive power of two", setNum)}
	}
	if pfBufNum < 0 {
		return Config{}, &ConfigError{Reason: "prefetch buffer count must be >= 0"}
	}
	if bypassShiftBit < -1 {
		return Config{}, &ConfigError{Reason: "bypass shift bit must be >= -1"}
	}

	return Config{
		SizeBytes:       sizeBytes,
		Associativity:   associativity,
		SetNum:          setNum,
		BlockSize:       blockSize,
		BlockBit:        log2(blockSize),
		SetBit:          log2(setNum),
		WriteThrough:    writeThrough,
		WriteAllocate:   !writeThrough,
		BypassShiftBit:  bypassShiftBit,
		BypassThreshold: bypassThreshold,
		PFBufNum:        pfBufNum,
	}, nil
}

func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

func log2(x int) int {
	return bits.TrailingZeros(uint(x))
}

// partition splits addr into (tag, setIndex): the offset field
// (BlockBit wide) is discarded, the next SetBit bits select the set,
// and the remaining high bits are the tag.
func (c Config) partition(addr uint64) (tag uint64, setIndex int) {
	tagBit := uint(c.BlockBit + c.SetBit)
	tag = addr >> tagBit
	setMask := uint64(1)<<tagBit - 1
	setIndex = int((addr & setMask) >> uint(c.BlockBit))
	return tag, setIndex
}

// blockAddr reconstructs the block-aligned address of a line from its
// tag and set index, used to synthesize the address of an evicted
// dirty line for its write-back to the lower level.
func (c Config) blockAddr(tag uint64, setIndex int) uint64 {
	tagBit := uint(c.BlockBit + c.SetBit)
	return (tag << tagBit) | (uint64(setIndex) << uint(c.BlockBit))
}
