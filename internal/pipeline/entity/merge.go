package entity

import "sort"

// Merge combines the results of the two tagging passes into a single
// deduplicated list. Entities whose spans overlap within the same section
// and share a type are treated as the same mention; the one with higher
// confidence wins and its confidence is kept. A span found by only one
// pass is kept as-is with its original confidence.
//
// Merge is pure: it never mutates its inputs and is safe to call with
// either slice nil (single-pass degradation).
func Merge(a, b []ClinicalEntity) []ClinicalEntity {
	merged := make([]ClinicalEntity, 0, len(a)+len(b))
	merged = append(merged, a...)

	for _, cand := range b {
		dup := false
		for i := range merged {
			if merged[i].Type != cand.Type || !merged[i].overlaps(cand) {
				continue
			}
			dup = true
			if cand.Confidence > merged[i].Confidence {
				merged[i] = cand
			}
			break
		}
		if !dup {
			merged = append(merged, cand)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].SourceSection != merged[j].SourceSection {
			return merged[i].SourceSection < merged[j].SourceSection
		}
		return merged[i].Start < merged[j].Start
	})
	return merged
}
