package series

import (
	"cmp"
	"strings"
)

// Compare orders two records of the same study. It returns a negative number
// when a sorts before b, a positive number when a sorts after b and zero when
// they rank equal.
//
// Primaries are ordered by descending Hash of their path. Each derived series
// sorts right after its own primary, siblings by ascending AcquisitionOrder,
// and a derived series whose primary is elsewhere sorts where that primary
// would. Unknown series trail everything and rank equal among themselves.
//
// Two different family paths with the same Hash are ordered by the paths
// themselves, which keeps Compare transitive under hash collisions.
func Compare(a, b Record) int {
	switch {
	case a.Role == RolePrimary && b.Role == RolePrimary:
		return compareFamilies(a.Path, b.Path)
	case a.Role == RoleUnknown && b.Role == RoleUnknown:
		return 0
	case a.Role == RoleUnknown:
		return 1
	case b.Role == RoleUnknown:
		return -1
	case a.Role == RolePrimary:
		if b.DerivedFromPath == a.Path {
			return -1
		}
		return compareFamilies(a.Path, b.DerivedFromPath)
	case b.Role == RolePrimary:
		if a.DerivedFromPath == b.Path {
			return 1
		}
		return compareFamilies(a.DerivedFromPath, b.Path)
	default:
		if a.DerivedFromPath == b.DerivedFromPath {
			return cmp.Compare(a.acquisition(), b.acquisition())
		}
		return compareFamilies(a.DerivedFromPath, b.DerivedFromPath)
	}
}

// compareFamilies orders two primary paths: higher Hash first, then by path.
func compareFamilies(a, b string) int {
	if a == b {
		return 0
	}
	if c := cmp.Compare(Hash(b), Hash(a)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
