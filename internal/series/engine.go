package series

import (
	"cmp"
	"slices"
	"strings"
)

// MergeReport describes what Merge did with the incoming records.
type MergeReport struct {
	Added     []Record
	Conflicts []*DuplicateIDError
	Rejected  []*ClassificationError
}

// Merge returns existing extended by every well-formed incoming record whose
// id is not yet present. Existing records are never replaced. An incoming
// record that repeats a known id with identical content is ignored silently;
// with different content it is reported as a conflict. Neither input is
// modified.
func Merge(existing, incoming []Record) ([]Record, MergeReport) {
	var report MergeReport

	seen := make(map[ID]Record, len(existing)+len(incoming))
	merged := make([]Record, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = r
		merged = append(merged, r)
	}

	for _, r := range incoming {
		if ce := classify(r); ce != nil {
			report.Rejected = append(report.Rejected, ce)
			continue
		}
		if kept, ok := seen[r.ID]; ok {
			if !kept.Equal(r) {
				report.Conflicts = append(report.Conflicts, &DuplicateIDError{ID: r.ID, Kept: kept, Dropped: r})
			}
			continue
		}
		seen[r.ID] = r
		merged = append(merged, r)
		report.Added = append(report.Added, r)
	}

	return merged, report
}

// Sort returns a new slice holding the well-formed records ordered by
// Compare, plus the records it had to leave out. The result depends only on
// the set of records, not on their order in the input: records that Compare
// ranks equal keep ascending id order.
func Sort(records []Record) ([]Record, []*ClassificationError) {
	var rejected []*ClassificationError
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if ce := classify(r); ce != nil {
			rejected = append(rejected, ce)
			continue
		}
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b Record) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), strings.Compare(a.Path, b.Path))
	})
	slices.SortStableFunc(out, Compare)
	return out, rejected
}
