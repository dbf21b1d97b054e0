package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/natefinch/atomic"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/memory"
	"github.com/sarchlab/cachesim/storage"
)

// memAMATSeed is the AMAT the inductive formula assumes for accesses
// that reach main memory, per spec.md §6 ("seeded 100 at the memory
// leaf").
const memAMATSeed = 100.0

// LevelReport is one hierarchy level's statistics and derived AMAT for
// a single policy's measurement run.
type LevelReport struct {
	Level       int     `json:"level"`
	AccessNum   uint64  `json:"access_num"`
	MissNum     uint64  `json:"miss_num"`
	MissRate    float64 `json:"miss_rate"`
	ReplaceNum  uint64  `json:"replace_num"`
	FetchNum    uint64  `json:"fetch_num"`
	PrefetchNum uint64  `json:"prefetch_num"`
	AccessCycle uint64  `json:"access_cycle"`
	AMAT        float64 `json:"amat"`
}

// Report is one policy's full sweep result: every level's statistics
// plus the total cycle count, summed over every cache level and the
// memory leaf, used for cross-policy ranking.
type Report struct {
	Policy      storage.Policy `json:"-"`
	PolicyName  string         `json:"policy"`
	Levels      []LevelReport  `json:"levels"`
	TotalCycles uint64         `json:"total_cycles"`
	TopAMAT     float64        `json:"top_amat"`
}

// buildReport assembles a Report from a policy's post-sweep cache
// levels and memory leaf, computing each level's AMAT inductively from
// the bottom up: AMAT_i = hit_latency_i + miss_rate_i*(bus_latency_i +
// AMAT_{i+1}), seeded at memAMATSeed for the memory leaf (spec.md §6).
func buildReport(policy storage.Policy, levels []*cache.Cache, mem *memory.Memory) Report {
	levelReports := make([]LevelReport, len(levels))

	nextAMAT := memAMATSeed
	for i := len(levels) - 1; i >= 0; i-- {
		lvl := levels[i]
		st := lvl.Stats()
		lat := lvl.Latency()
		missRate := st.MissRate()
		amat := float64(lat.HitLatency) + missRate*(float64(lat.BusLatency)+nextAMAT)

		levelReports[i] = LevelReport{
			Level:       i + 1,
			AccessNum:   st.AccessCounter,
			MissNum:     st.MissNum,
			MissRate:    missRate,
			ReplaceNum:  st.ReplaceNum,
			FetchNum:    st.FetchNum,
			PrefetchNum: st.PrefetchNum,
			AccessCycle: st.AccessCycle,
			AMAT:        amat,
		}
		nextAMAT = amat
	}

	var totalCycles uint64
	for _, lvl := range levels {
		totalCycles += lvl.Stats().AccessCycle
	}
	totalCycles += mem.Stats().AccessCycle

	return Report{
		Policy:      policy,
		PolicyName:  policy.String(),
		Levels:      levelReports,
		TotalCycles: totalCycles,
		TopAMAT:     levelReports[0].AMAT,
	}
}

// RankByMissRate returns reports sorted by ascending top-level miss
// rate, the first of the three ranklists spec.md §6 calls for.
func RankByMissRate(reports []Report) []Report {
	ranked := append([]Report(nil), reports...)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Levels[0].MissRate < ranked[j].Levels[0].MissRate
	})
	return ranked
}

// RankByTotalCycles returns reports sorted by ascending total cycle
// count.
func RankByTotalCycles(reports []Report) []Report {
	ranked := append([]Report(nil), reports...)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TotalCycles < ranked[j].TotalCycles
	})
	return ranked
}

// RankByAMAT returns reports sorted by ascending top-level AMAT.
func RankByAMAT(reports []Report) []Report {
	ranked := append([]Report(nil), reports...)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TopAMAT < ranked[j].TopAMAT
	})
	return ranked
}

// PrintReport writes a human-readable summary of every policy's
// report, then the three ranklists, to w.
func PrintReport(w io.Writer, reports []Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "policy %s: total_cycles=%d top_amat=%.3f\n", r.PolicyName, r.TotalCycles, r.TopAMAT)
		for _, lvl := range r.Levels {
			fmt.Fprintf(w, "  L%d: access=%d miss=%d miss_rate=%.4f replace=%d fetch=%d prefetch=%d cycles=%d amat=%.3f\n",
				lvl.Level, lvl.AccessNum, lvl.MissNum, lvl.MissRate, lvl.ReplaceNum, lvl.FetchNum, lvl.PrefetchNum, lvl.AccessCycle, lvl.AMAT)
		}
	}

	fmt.Fprintln(w, "\nranked by top-level miss rate:")
	for i, r := range RankByMissRate(reports) {
		fmt.Fprintf(w, "  %d. %s (%.4f)\n", i+1, r.PolicyName, r.Levels[0].MissRate)
	}

	fmt.Fprintln(w, "\nranked by total cycles:")
	for i, r := range RankByTotalCycles(reports) {
		fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, r.PolicyName, r.TotalCycles)
	}

	fmt.Fprintln(w, "\nranked by AMAT:")
	for i, r := range RankByAMAT(reports) {
		fmt.Fprintf(w, "  %d. %s (%.3f)\n", i+1, r.PolicyName, r.TopAMAT)
	}
}

// WriteReportJSON serializes reports as indented JSON and writes them
// to path atomically, so a reader never observes a partially written
// report file.
func WriteReportJSON(path string, reports []Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("driver: failed to serialize report: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("driver: failed to write report file: %w", err)
	}
	return nil
}
