// Package driver builds a multi-level cache hierarchy from per-level
// configuration, runs the warm-up/measurement sweep over every
// replacement policy, and reports the results — the external
// collaborator spec.md §1 calls out as "narrow contracts the core
// consumes": trace parsing, interactive/file configuration, and
// ranking live here, not in the cache package.
package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/memory"
	"github.com/sarchlab/cachesim/storage"
)

// DefaultBypassMask reproduces the reference driver's BYPASS_SET: bit i
// (1-based level number) set means that level has the adaptive bypass
// filter enabled. 0x4 enables it on level 2 only.
const DefaultBypassMask uint = 0x4

// LevelSpec is the raw per-level configuration the driver protocol
// reads (spec.md §6): size in KB, associativity, block size in bytes,
// and the write-through/write-back flag. set_num, block_bit, set_bit,
// and write_allocate are all derived from these four fields.
type LevelSpec struct {
	SizeKB        int  `json:"size_kb"`
	Associativity int  `json:"associativity"`
	BlockSize     int  `json:"block_size"`
	WriteThrough  bool `json:"write_through"`
}

// levelSpecsFile is the on-disk JSON shape for LoadLevelSpecs/SaveLevelSpecs.
type levelSpecsFile struct {
	Levels []LevelSpec `json:"levels"`
}

// LoadLevelSpecs reads level configuration from a JSON file, following
// the same os.ReadFile + json.Unmarshal + wrapped-error idiom as the
// teacher's timing/latency.LoadConfig.
func LoadLevelSpecs(path string) ([]LevelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("driver: failed to read level config file: %w", err)
	}
	var doc levelSpecsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("driver: failed to parse level config: %w", err)
	}
	if len(doc.Levels) < 1 || len(doc.Levels) > 3 {
		return nil, &ConfigError{Reason: fmt.Sprintf("level count %d out of range [1,3]", len(doc.Levels))}
	}
	return doc.Levels, nil
}

// SaveLevelSpecs writes level configuration as indented JSON, the same
// shape LoadLevelSpecs reads back.
func SaveLevelSpecs(path string, specs []LevelSpec) error {
	data, err := json.MarshalIndent(levelSpecsFile{Levels: specs}, "", "  ")
	if err != nil {
		return fmt.Errorf("driver: failed to serialize level config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("driver: failed to write level config file: %w", err)
	}
	return nil
}

// ReadInteractive reproduces original_source/main.cc's interactive
// stdin protocol: first the number of levels (1..3), then for each
// level "size_KB associativity block_size write_through" as
// whitespace-separated integers (the original reads these with a
// single scanf("%d%d%d%d", ...), so newlines between the four numbers
// don't matter — only bufio.ScanWords's token splitting is needed, not
// line splitting).
func ReadInteractive(r io.Reader, w io.Writer) ([]LevelSpec, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	readInt := func(prompt string) (int, error) {
		if w != nil && prompt != "" {
			fmt.Fprint(w, prompt)
		}
		if !sc.Scan() {
			return 0, fmt.Errorf("driver: unexpected end of input reading %q", prompt)
		}
		return strconv.Atoi(sc.Text())
	}

	level, err := readInt("Set Cache level: ")
	if err != nil {
		return nil, err
	}
	if level < 1 || level > 3 {
		return nil, &ConfigError{Reason: fmt.Sprintf("level count %d out of range [1,3]", level)}
	}

	if w != nil {
		fmt.Fprintf(w, "Set Cache info for %d levels:\n", level)
	}

	specs := make([]LevelSpec, level)
	for i := 0; i < level; i++ {
		if w != nil {
			fmt.Fprint(w, "Size(KB) | Associativity | block_size | write_mode\n")
		}
		sizeKB, err := readInt("")
		if err != nil {
			return nil, err
		}
		assoc, err := readInt("")
		if err != nil {
			return nil, err
		}
		blockSize, err := readInt("")
		if err != nil {
			return nil, err
		}
		wt, err := readInt("")
		if err != nil {
			return nil, err
		}
		specs[i] = LevelSpec{
			SizeKB:        sizeKB,
			Associativity: assoc,
			BlockSize:     blockSize,
			WriteThrough:  wt != 0,
		}
	}
	return specs, nil
}

// latencyFor returns the fixed bus/hit latency pair for a cache size,
// per the reference driver's get_latency table. Sizes outside the
// table are a configuration fault.
func latencyFor(sizeKB int) (storage.Latency, error) {
	switch sizeKB {
	case 32:
		return storage.Latency{BusLatency: 0, HitLatency: 3}, nil
	case 256:
		return storage.Latency{BusLatency: 6, HitLatency: 4}, nil
	default:
		return storage.Latency{}, &ConfigError{Reason: fmt.Sprintf("no defined latency for a %d KB cache", sizeKB)}
	}
}

// pfBufNumFor returns the stream prefetch buffer count for a cache
// size, per the reference driver's get_pf_buf_num table.
func pfBufNumFor(sizeKB int) (int, error) {
	switch sizeKB {
	case 32:
		return 64, nil
	case 256:
		return 1024, nil
	default:
		return 0, &ConfigError{Reason: fmt.Sprintf("no defined prefetch buffer count for a %d KB cache", sizeKB)}
	}
}

// BuildHierarchy constructs a fresh bottom-up chain of cache levels
// over a fresh Memory leaf from specs (specs[0] is level 1, the
// top-most level the driver issues requests into). bypassMask selects
// which 1-based levels have the adaptive bypass filter enabled, as
// DefaultBypassMask does for the reference driver's BYPASS_SET.
func BuildHierarchy(specs []LevelSpec, bypassMask uint) ([]*cache.Cache, *memory.Memory, error) {
	if len(specs) < 1 || len(specs) > 3 {
		return nil, nil, &ConfigError{Reason: fmt.Sprintf("level count %d out of range [1,3]", len(specs))}
	}

	mem := memory.New()
	levels := make([]*cache.Cache, len(specs))

	var lower storage.Node = mem
	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		levelNum := i + 1

		lat, err := latencyFor(spec.SizeKB)
		if err != nil {
			return nil, nil, err
		}
		pfBufNum, err := pfBufNumFor(spec.SizeKB)
		if err != nil {
			return nil, nil, err
		}

		shiftBit, threshold := -1, 0.0
		if (bypassMask>>uint(levelNum))&1 == 1 {
			shiftBit, threshold = 32, 0.8
		}

		cfg, err := cache.NewConfig(
			spec.SizeKB*1024,
			spec.Associativity,
			spec.BlockSize,
			spec.WriteThrough,
			shiftBit,
			threshold,
			pfBufNum,
		)
		if err != nil {
			return nil, nil, err
		}

		lvl := cache.New(cfg, lower, mem, lat)
		levels[i] = lvl
		lower = lvl
	}

	return levels, mem, nil
}
