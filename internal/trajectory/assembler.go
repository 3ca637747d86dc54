package trajectory

import (
	"sort"
)

// Assemble produces one deduplicated, time-ordered point sequence from
// scattered snapshot fragments. Points sharing a timestamp collapse to a
// single instance, last-seen-wins: when overlapping snapshots disagree on a
// point's attributes at the same timestamp, the most recently appended copy
// is kept. This matches how overlapping snapshot files are merged and keeps
// reassembly reproducible for a given input order.
func Assemble(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}

	byTimestamp := make(map[int64]Point, len(points))
	for _, p := range points {
		byTimestamp[p.Timestamp] = p
	}

	assembled := make([]Point, 0, len(byTimestamp))
	for _, p := range byTimestamp {
		assembled = append(assembled, p)
	}
	sort.Slice(assembled, func(i, j int) bool {
		return assembled[i].Timestamp < assembled[j].Timestamp
	})

	return assembled
}
