package dedupe

import "sort"

// bucket is one candidate group surviving the grouping phase: a match key
// (opaque outside author-only mode) paired with the set of book ids that
// hashed to it, carried alongside an optional author-only match key for
// later reporting.
type bucket struct {
	key      string
	ids      map[BookID]struct{}
	matchKey *string
}

// shrinkBuckets drops every bucket with fewer than 2 members (spec §4.9
// "shrink").
func shrinkBuckets(buckets []bucket) []bucket {
	out := make([]bucket, 0, len(buckets))
	for _, b := range buckets {
		if len(b.ids) >= 2 {
			out = append(out, b)
		}
	}
	return out
}

// sortBuckets orders buckets by key ascending, or by set-size descending
// then key ascending, per the SortByTitle option (spec §4.9 "sort").
func sortBuckets(buckets []bucket, sortByTitle bool) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if sortByTitle {
			return buckets[i].key < buckets[j].key
		}
		si, sj := len(buckets[i].ids), len(buckets[j].ids)
		if si != sj {
			return si > sj
		}
		return buckets[i].key < buckets[j].key
	})
}

// subsetPruneBuckets implements spec §4.6: sort ascending by set size, then
// retain a bucket iff no later (strictly larger or equal) bucket's id set
// is a proper-or-equal superset of it.
func subsetPruneBuckets(buckets []bucket) []bucket {
	ordered := append([]bucket(nil), buckets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].ids) < len(ordered[j].ids)
	})

	retained := make([]bucket, 0, len(ordered))
	for i, a := range ordered {
		superseded := false
		for j := i + 1; j < len(ordered); j++ {
			if isSubsetOf(a.ids, ordered[j].ids) {
				superseded = true
				break
			}
		}
		if !superseded {
			retained = append(retained, a)
		}
	}
	return retained
}

func isSubsetOf(a, b map[BookID]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
