package driver

import (
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/storage"
	"github.com/sarchlab/cachesim/trace"
)

// WarmupIterations and MeasurementIterations are the reference
// driver's fixed trace replay counts for each policy under test: 100
// full passes over the trace to warm the hierarchy's state before
// stats are reset, then 10 more passes whose accumulated stats feed
// the report.
const (
	WarmupIterations      = 100
	MeasurementIterations = 10
)

// RunPolicySweep builds a fresh hierarchy for every policy in
// storage.Policies, in turn: runs WarmupIterations trace passes,
// resets statistics, runs MeasurementIterations more passes, and
// collects a Report. Every policy gets its own hierarchy so a
// policy's ghost lists, bypass history, and prefetch streams never
// leak into the next policy's run.
func RunPolicySweep(specs []LevelSpec, bypassMask uint, records []trace.Record) ([]Report, error) {
	reports := make([]Report, 0, len(storage.Policies))

	for _, policy := range storage.Policies {
		levels, mem, err := BuildHierarchy(specs, bypassMask)
		if err != nil {
			return nil, err
		}

		for i := 0; i < WarmupIterations; i++ {
			runOnce(levels, records, policy)
		}
		for _, lvl := range levels {
			lvl.ResetStats()
			lvl.BypassClear()
		}
		mem.ResetStats()

		for i := 0; i < MeasurementIterations; i++ {
			runOnce(levels, records, policy)
		}

		reports = append(reports, buildReport(policy, levels, mem))
	}

	return reports, nil
}

// runOnce replays every record in order against the top-most cache
// level.
func runOnce(levels []*cache.Cache, records []trace.Record, policy storage.Policy) {
	top := levels[0]
	for _, rec := range records {
		top.Handle(rec.Addr, rec.Op, policy)
	}
}
