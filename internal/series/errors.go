package series

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrClassification is wrapped by every ClassificationError.
	ErrClassification = errors.New("series classification error")

	// ErrDuplicateID is wrapped by every DuplicateIDError.
	ErrDuplicateID = errors.New("duplicate series id")
)

// ClassificationError reports a record whose role is not backed by the
// fields that role requires. Such records are excluded from merge and sort.
type ClassificationError struct {
	ID     ID     `json:"id"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("series %q: %s", e.ID, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return ErrClassification }

// DuplicateIDError reports an incoming record whose id is already present
// with different content. The first-seen record is kept.
type DuplicateIDError struct {
	ID      ID     `json:"id"`
	Kept    Record `json:"kept"`
	Dropped Record `json:"dropped"`
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("series %q: id already present with different content, keeping first-seen", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// Validate returns a *ClassificationError if r cannot be ordered.
func Validate(r Record) error {
	if ce := classify(r); ce != nil {
		return ce
	}
	return nil
}

func classify(r Record) *ClassificationError {
	reject := func(reason string) *ClassificationError {
		return &ClassificationError{ID: r.ID, Path: r.Path, Reason: reason}
	}
	if r.ID == "" {
		return reject("empty id")
	}
	switch r.Role {
	case RolePrimary, RoleUnknown:
		return nil
	case RoleDerived:
		if r.DerivedFromPath == "" {
			return reject("derived series without derivedFromPath")
		}
		if r.AcquisitionOrder == nil {
			return reject("derived series without acquisitionOrder")
		}
		if v := *r.AcquisitionOrder; math.IsNaN(v) || math.IsInf(v, 0) {
			return reject("derived series with non-finite acquisitionOrder")
		}
		return nil
	default:
		return reject(fmt.Sprintf("unrecognised role %s", r.Role))
	}
}
