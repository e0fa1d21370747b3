// Package series orders the imaging series of a study deterministically.
package series

import (
	"fmt"
	"strings"
)

// ID uniquely identifies a series within a study.
type ID string

// Role classifies a series relative to the primary acquisitions of its study.
// The zero value is RoleUnknown.
type Role uint8

const (
	// RoleUnknown marks a series with no established relation to any primary.
	RoleUnknown Role = iota
	// RolePrimary marks an originally acquired series.
	RolePrimary
	// RoleDerived marks a series computed from a primary series.
	RoleDerived
)

// String returns the text form of r: "unknown", "primary" or "derived".
func (r Role) String() string {
	switch r {
	case RoleUnknown:
		return "unknown"
	case RolePrimary:
		return "primary"
	case RoleDerived:
		return "derived"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole parses the text form of a role. An empty string is RoleUnknown.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return RoleUnknown, nil
	case "primary":
		return RolePrimary, nil
	case "derived":
		return RoleDerived, nil
	default:
		return RoleUnknown, fmt.Errorf("invalid series role %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r > RoleDerived {
		return nil, fmt.Errorf("invalid series role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Record is a single imaging series as classified by the data source.
// DerivedFromPath and AcquisitionOrder are only meaningful for RoleDerived.
type Record struct {
	ID               ID       `json:"id" yaml:"id"`
	Path             string   `json:"path" yaml:"path"`
	Role             Role     `json:"role" yaml:"role"`
	DerivedFromPath  string   `json:"derivedFromPath,omitempty" yaml:"derivedFromPath,omitempty"`
	AcquisitionOrder *float64 `json:"acquisitionOrder,omitempty" yaml:"acquisitionOrder,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Equal reports whether r and o carry the same content.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Path != o.Path || r.Role != o.Role ||
		r.DerivedFromPath != o.DerivedFromPath || r.Description != o.Description {
		return false
	}
	switch {
	case r.AcquisitionOrder == nil && o.AcquisitionOrder == nil:
		return true
	case r.AcquisitionOrder == nil || o.AcquisitionOrder == nil:
		return false
	default:
		return *r.AcquisitionOrder == *o.AcquisitionOrder
	}
}

func (r Record) acquisition() float64 {
	if r.AcquisitionOrder == nil {
		return 0
	}
	return *r.AcquisitionOrder
}

// Float returns a pointer to v, for filling AcquisitionOrder in literals.
func Float(v float64) *float64 {
	return &v
}
