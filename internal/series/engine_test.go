package series

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleRecords() []Record {
	return []Record{
		primary("P1", "A"),
		primary("P2", "B"),
		derived("D1", "D1", "A", 2),
		derived("D2", "D2", "A", 1),
		unknown("U1", "U"),
	}
}

func ids(recs []Record) []ID {
	out := make([]ID, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func permutations(recs []Record) [][]Record {
	if len(recs) <= 1 {
		return [][]Record{slices.Clone(recs)}
	}
	var out [][]Record
	for i := range recs {
		rest := slices.Concat(recs[:i:i], recs[i+1:])
		for _, p := range permutations(rest) {
			out = append(out, append([]Record{recs[i]}, p...))
		}
	}
	return out
}

func TestSortExample(t *testing.T) {
	got, rejected := Sort(exampleRecords())
	require.Empty(t, rejected)
	// Hash("B") > Hash("A"), so P2 leads; D2 precedes D1 by acquisition order.
	assert.Equal(t, []ID{"P2", "P1", "D2", "D1", "U1"}, ids(got))
}

func TestSortDeterministicUnderPermutation(t *testing.T) {
	want, _ := Sort(exampleRecords())
	for _, perm := range permutations(exampleRecords()) {
		got, _ := Sort(perm)
		require.Equal(t, ids(want), ids(got))
	}
}

func TestSortDeterministicWithTies(t *testing.T) {
	recs := adversarialRecords()
	recs = append(recs,
		derived("tie-a", "A/t1", "A", 1),
		unknown("u0", "U0"),
	)
	want, _ := Sort(recs)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		shuffled := slices.Clone(recs)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, _ := Sort(shuffled)
		require.Equal(t, ids(want), ids(got))
	}
}

func TestSortPrimaryBeforeUnknown(t *testing.T) {
	got, _ := Sort(adversarialRecords())
	lastKnown, firstUnknown := -1, len(got)
	for i, r := range got {
		if r.Role == RoleUnknown {
			firstUnknown = min(firstUnknown, i)
		} else {
			lastKnown = i
		}
	}
	assert.Less(t, lastKnown, firstUnknown)
}

func TestSortGroupsSiblingsAfterPrimary(t *testing.T) {
	got, _ := Sort(adversarialRecords())
	for i, r := range got {
		if r.Role != RolePrimary {
			continue
		}
		require.Less(t, i+2, len(got))
		d1, d2 := got[i+1], got[i+2]
		assert.Equal(t, r.Path, d1.DerivedFromPath, "first child of %s", r.Path)
		assert.Equal(t, r.Path, d2.DerivedFromPath, "second child of %s", r.Path)
		assert.Less(t, *d1.AcquisitionOrder, *d2.AcquisitionOrder)
	}
}

func TestSortCollidingFamilies(t *testing.T) {
	got, _ := Sort([]Record{
		derived("d-bb", "BB/d", "BB", 1),
		primary("p-bb", "BB"),
		derived("d-aa", "Aa/d", "Aa", 1),
		primary("p-aa", "Aa"),
	})
	assert.Equal(t, []ID{"p-aa", "d-aa", "p-bb", "d-bb"}, ids(got))
}

func TestSortOrphanDerivedSortsLikeItsPrimary(t *testing.T) {
	// Hash("C") > Hash("B") > Hash("A"): the orphan takes C's slot.
	got, _ := Sort([]Record{
		primary("pa", "A"),
		derived("orphan", "C/d", "C", 1),
		primary("pb", "B"),
	})
	assert.Equal(t, []ID{"orphan", "pb", "pa"}, ids(got))
}

func TestSortRejectsMalformed(t *testing.T) {
	recs := append(exampleRecords(),
		Record{ID: "bad-parent", Path: "X", Role: RoleDerived, AcquisitionOrder: Float(1)},
		Record{ID: "bad-order", Path: "Y", Role: RoleDerived, DerivedFromPath: "A"},
		Record{ID: "nan", Path: "Z", Role: RoleDerived, DerivedFromPath: "A", AcquisitionOrder: Float(math.NaN())},
	)
	got, rejected := Sort(recs)
	assert.Equal(t, []ID{"P2", "P1", "D2", "D1", "U1"}, ids(got))
	require.Len(t, rejected, 3)
	for _, ce := range rejected {
		assert.True(t, errors.Is(ce, ErrClassification))
	}
}

func TestSortDoesNotModifyInput(t *testing.T) {
	in := exampleRecords()
	_, _ = Sort(in)
	assert.Equal(t, exampleRecords(), in)
}

func TestMerge(t *testing.T) {
	existing := []Record{primary("P1", "A")}

	t.Run("adds_unseen_ids", func(t *testing.T) {
		merged, report := Merge(existing, []Record{primary("P2", "B"), derived("D1", "D1", "A", 1)})
		assert.Equal(t, []ID{"P1", "P2", "D1"}, ids(merged))
		assert.Equal(t, []ID{"P2", "D1"}, ids(report.Added))
		assert.Empty(t, report.Conflicts)
		assert.Empty(t, report.Rejected)
	})

	t.Run("identical_redelivery_is_silent", func(t *testing.T) {
		merged, report := Merge(existing, []Record{primary("P1", "A")})
		assert.Equal(t, []ID{"P1"}, ids(merged))
		assert.Empty(t, report.Added)
		assert.Empty(t, report.Conflicts)
	})

	t.Run("conflict_keeps_first_seen", func(t *testing.T) {
		merged, report := Merge(existing, []Record{primary("P1", "changed")})
		require.Len(t, merged, 1)
		assert.Equal(t, "A", merged[0].Path)
		require.Len(t, report.Conflicts, 1)
		assert.Equal(t, "changed", report.Conflicts[0].Dropped.Path)
		assert.True(t, errors.Is(report.Conflicts[0], ErrDuplicateID))
	})

	t.Run("duplicates_within_incoming", func(t *testing.T) {
		merged, report := Merge(nil, []Record{primary("P9", "first"), primary("P9", "second")})
		require.Len(t, merged, 1)
		assert.Equal(t, "first", merged[0].Path)
		assert.Len(t, report.Conflicts, 1)
	})

	t.Run("rejects_malformed", func(t *testing.T) {
		merged, report := Merge(existing, []Record{{ID: "D9", Path: "D9", Role: RoleDerived}})
		assert.Equal(t, []ID{"P1"}, ids(merged))
		require.Len(t, report.Rejected, 1)
		assert.Equal(t, ID("D9"), report.Rejected[0].ID)
	})

	t.Run("does_not_modify_existing", func(t *testing.T) {
		before := slices.Clone(existing)
		_, _ = Merge(existing, []Record{primary("P2", "B")})
		assert.Equal(t, before, existing)
	})
}

func TestMergeIdempotent(t *testing.T) {
	s := []Record{primary("P1", "A"), unknown("U1", "U")}
	tt := []Record{primary("P2", "B"), derived("D1", "D1", "A", 1), primary("P1", "A")}

	once, _ := Merge(s, tt)
	twice, report := Merge(once, tt)
	assert.Equal(t, once, twice)
	assert.Empty(t, report.Added)
}

func TestMergeThenSortExtendsPriorOrder(t *testing.T) {
	first, _ := Merge(nil, []Record{primary("P1", "A"), derived("D1", "D1", "A", 2)})
	before, _ := Sort(first)

	second, _ := Merge(first, []Record{primary("P2", "B"), derived("D2", "D2", "A", 1), unknown("U1", "U")})
	after, _ := Sort(second)

	// Previously present records keep their relative order.
	var filtered []ID
	for _, id := range ids(after) {
		if slices.Contains(ids(before), id) {
			filtered = append(filtered, id)
		}
	}
	assert.Equal(t, ids(before), filtered)
}

func TestRoleJSON(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","path":"p","role":"derived","derivedFromPath":"q","acquisitionOrder":3}`), &r))
	assert.Equal(t, RoleDerived, r.Role)
	assert.Equal(t, 3.0, *r.AcquisitionOrder)

	var bare Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"y","path":"p"}`), &bare))
	assert.Equal(t, RoleUnknown, bare.Role)
	assert.Nil(t, bare.AcquisitionOrder)

	var bad Record
	err := json.Unmarshal([]byte(`{"id":"z","path":"p","role":"secondary"}`), &bad)
	assert.Error(t, err)

	out, err := json.Marshal(primary("P1", "A"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"P1","path":"A","role":"primary"}`, string(out))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(primary("P1", "A")))
	assert.NoError(t, Validate(unknown("U1", "")))
	assert.ErrorIs(t, Validate(Record{Path: "A", Role: RolePrimary}), ErrClassification)
	assert.ErrorIs(t, Validate(Record{ID: "r", Role: Role(9)}), ErrClassification)
}
