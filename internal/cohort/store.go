package cohort

import (
	"context"
	"slices"
	"strings"

	"series-orderer/internal/series"
)

// Store is the persistence abstraction for patients, studies and series.
// Implementations can be in-memory or SQLite-backed. Insert methods never
// overwrite: they report whether the item was new. The Repository serialises
// all calls, so implementations need not be safe for concurrent use.
type Store interface {
	InsertPatient(ctx context.Context, p Patient) (bool, error)
	HasPatient(ctx context.Context, id PatientID) (bool, error)
	ListPatients(ctx context.Context) ([]Patient, error)

	InsertStudy(ctx context.Context, s Study) (bool, error)
	HasStudy(ctx context.Context, patientID PatientID, studyID StudyID) (bool, error)
	ListStudies(ctx context.Context, patientID PatientID) ([]Study, error)

	// ListSeries returns the series of a study in insertion order.
	ListSeries(ctx context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error)
	// AppendSeries stores records whose ids are not yet present in the study.
	AppendSeries(ctx context.Context, patientID PatientID, studyID StudyID, records []series.Record) error

	Close() error
}

type studyKey struct {
	patient PatientID
	study   StudyID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	patients map[PatientID]Patient
	studies  map[studyKey]Study
	records  map[studyKey][]series.Record
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		patients: make(map[PatientID]Patient),
		studies:  make(map[studyKey]Study),
		records:  make(map[studyKey][]series.Record),
	}
}

// InsertPatient implements Store.InsertPatient.
func (s *InMemoryStore) InsertPatient(_ context.Context, p Patient) (bool, error) {
	if _, ok := s.patients[p.ID]; ok {
		return false, nil
	}
	s.patients[p.ID] = p
	return true, nil
}

// HasPatient implements Store.HasPatient.
func (s *InMemoryStore) HasPatient(_ context.Context, id PatientID) (bool, error) {
	_, ok := s.patients[id]
	return ok, nil
}

// ListPatients implements Store.ListPatients, sorted by id.
func (s *InMemoryStore) ListPatients(_ context.Context) ([]Patient, error) {
	out := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Patient) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out, nil
}

// InsertStudy implements Store.InsertStudy.
func (s *InMemoryStore) InsertStudy(_ context.Context, st Study) (bool, error) {
	key := studyKey{st.PatientID, st.ID}
	if _, ok := s.studies[key]; ok {
		return false, nil
	}
	s.studies[key] = st
	return true, nil
}

// HasStudy implements Store.HasStudy.
func (s *InMemoryStore) HasStudy(_ context.Context, patientID PatientID, studyID StudyID) (bool, error) {
	_, ok := s.studies[studyKey{patientID, studyID}]
	return ok, nil
}

// ListStudies implements Store.ListStudies, sorted by id.
func (s *InMemoryStore) ListStudies(_ context.Context, patientID PatientID) ([]Study, error) {
	out := []Study{}
	for key, st := range s.studies {
		if key.patient == patientID {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b Study) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out, nil
}

// ListSeries implements Store.ListSeries. The returned slice is a copy.
func (s *InMemoryStore) ListSeries(_ context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error) {
	return slices.Clone(s.records[studyKey{patientID, studyID}]), nil
}

// AppendSeries implements Store.AppendSeries.
func (s *InMemoryStore) AppendSeries(_ context.Context, patientID PatientID, studyID StudyID, records []series.Record) error {
	key := studyKey{patientID, studyID}
	existing := s.records[key]
	for _, r := range records {
		if slices.ContainsFunc(existing, func(e series.Record) bool { return e.ID == r.ID }) {
			continue
		}
		existing = append(existing, r)
	}
	s.records[key] = existing
	return nil
}

// Close implements Store.Close.
func (s *InMemoryStore) Close() error { return nil }
