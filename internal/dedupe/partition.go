package dedupe

import "sort"

// partitionUsingExemptions splits data into sub-lists of size >= 2 such
// that no pair inside any returned sub-list is a mutual exemption. It
// reproduces finder.py's _partition_using_exemptions exactly, including
// the deliberate over-union behavior documented in spec §4.7/§9 (Open
// Question 1): a non-exempt id can appear in two sibling partitions when
// it bridges two exempt pivots.
func partitionUsingExemptions(data []BookID, exemptions ExemptionMap) [][]BookID {
	sorted := append([]BookID(nil), data...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	initial := make(map[BookID]struct{}, len(sorted))
	for _, id := range sorted {
		initial[id] = struct{}{}
	}

	results := []map[BookID]struct{}{initial}
	type pivot struct {
		set bool
		id  BookID
	}
	pivots := []pivot{{}}

	for _, d := range sorted {
		if !exemptions.Has(d) {
			continue
		}
		x := exemptions.Neighbors(d)

		// results may grow during this loop; re-reading len(results) each
		// iteration lets newly-appended sibling partitions be revisited
		// within the same pass over d, matching the source's behavior of
		// iterating a live, growing list.
		for i := 0; i < len(results); i++ {
			res := results[i]
			if _, inRes := res[d]; !inRes {
				continue
			}
			if pivots[i].set && pivots[i].id == d {
				results[i] = subtractAndKeep(res, x, d)
				continue
			}

			snapshot := res // pre-subtraction snapshot for spawned siblings
			results[i] = subtractAndKeep(res, x, d)

			for _, nd := range sortedBookIDs(x) {
				if nd <= d {
					continue
				}
				if _, inSnapshot := snapshot[nd]; !inSnapshot {
					continue
				}
				results = append(results, siblingPartition(snapshot, x, d, nd))
				pivots = append(pivots, pivot{set: true, id: nd})
			}
		}
	}

	out := make([][]BookID, 0, len(results))
	for _, r := range results {
		if len(r) < 2 {
			continue
		}
		out = append(out, sortedBookIDs(r))
	}
	sort.Slice(out, func(i, j int) bool { return lessBookIDSlice(out[i], out[j]) })
	return out
}

// subtractAndKeep returns (res \ x) ∪ {d}.
func subtractAndKeep(res, x map[BookID]struct{}, d BookID) map[BookID]struct{} {
	out := make(map[BookID]struct{}, len(res))
	for id := range res {
		if _, excluded := x[id]; excluded {
			continue
		}
		out[id] = struct{}{}
	}
	out[d] = struct{}{}
	return out
}

// siblingPartition returns (snapshot \ x \ {d}) ∪ {nd}.
func siblingPartition(snapshot, x map[BookID]struct{}, d, nd BookID) map[BookID]struct{} {
	out := make(map[BookID]struct{}, len(snapshot))
	for id := range snapshot {
		if id == d {
			continue
		}
		if _, excluded := x[id]; excluded {
			continue
		}
		out[id] = struct{}{}
	}
	out[nd] = struct{}{}
	return out
}

func sortedBookIDs(set map[BookID]struct{}) []BookID {
	out := make([]BookID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lessBookIDSlice(a, b []BookID) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
