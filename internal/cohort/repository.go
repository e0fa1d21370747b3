package cohort

import (
	"context"
	"fmt"
	"sync"

	"series-orderer/internal/series"
)

// Repository defines the concurrency-safe contract for the caller-owned
// patient, study and series state.
type Repository interface {
	// AddPatients stores every patient whose id is new and returns how many
	// were added. Known ids are left untouched.
	AddPatients(ctx context.Context, patients []Patient) (int, error)

	// ListPatients returns all patients sorted by id.
	ListPatients(ctx context.Context) ([]Patient, error)

	// AddStudies stores every study of the patient whose id is new.
	// ErrPatientNotFound is returned if the patient is unknown.
	AddStudies(ctx context.Context, patientID PatientID, studies []Study) (int, error)

	// ListStudies returns the patient's studies sorted by id.
	ListStudies(ctx context.Context, patientID PatientID) ([]Study, error)

	// MergeSeries merges incoming into the study's series set without
	// duplicating ids and returns the full merged set with the merge report.
	// ErrStudyNotFound is returned if the study is unknown.
	MergeSeries(ctx context.Context, patientID PatientID, studyID StudyID, incoming []series.Record) ([]series.Record, series.MergeReport, error)

	// SeriesSnapshot returns the study's series in insertion order.
	SeriesSnapshot(ctx context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error)

	// PatientCount returns the number of known patients. Used for metrics.
	PatientCount(ctx context.Context) (int, error)
}

// StoreRepository is a concurrency-safe Repository on top of a Store.
type StoreRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *StoreRepository {
	return NewStoreRepository(NewInMemoryStore())
}

// NewStoreRepository constructs a repository that uses the given Store.
func NewStoreRepository(store Store) *StoreRepository {
	return &StoreRepository{store: store}
}

// AddPatients implements Repository.AddPatients.
func (r *StoreRepository) AddPatients(ctx context.Context, patients []Patient) (int, error) {
	for _, p := range patients {
		if p.ID == "" {
			return 0, fmt.Errorf("patient: %w", ErrEmptyID)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, p := range patients {
		ok, err := r.store.InsertPatient(ctx, p)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// ListPatients implements Repository.ListPatients.
func (r *StoreRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.ListPatients(ctx)
}

// AddStudies implements Repository.AddStudies.
func (r *StoreRepository) AddStudies(ctx context.Context, patientID PatientID, studies []Study) (int, error) {
	for _, s := range studies {
		if s.ID == "" {
			return 0, fmt.Errorf("study: %w", ErrEmptyID)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requirePatientLocked(ctx, patientID); err != nil {
		return 0, err
	}

	added := 0
	for _, s := range studies {
		s.PatientID = patientID
		ok, err := r.store.InsertStudy(ctx, s)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// ListStudies implements Repository.ListStudies.
func (r *StoreRepository) ListStudies(ctx context.Context, patientID PatientID) ([]Study, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.requirePatientLocked(ctx, patientID); err != nil {
		return nil, err
	}
	return r.store.ListStudies(ctx, patientID)
}

// MergeSeries implements Repository.MergeSeries.
func (r *StoreRepository) MergeSeries(ctx context.Context, patientID PatientID, studyID StudyID, incoming []series.Record) ([]series.Record, series.MergeReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireStudyLocked(ctx, patientID, studyID); err != nil {
		return nil, series.MergeReport{}, err
	}

	existing, err := r.store.ListSeries(ctx, patientID, studyID)
	if err != nil {
		return nil, series.MergeReport{}, err
	}

	merged, report := series.Merge(existing, incoming)
	if len(report.Added) > 0 {
		if err := r.store.AppendSeries(ctx, patientID, studyID, report.Added); err != nil {
			return nil, series.MergeReport{}, err
		}
	}
	return merged, report, nil
}

// SeriesSnapshot implements Repository.SeriesSnapshot.
func (r *StoreRepository) SeriesSnapshot(ctx context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.requireStudyLocked(ctx, patientID, studyID); err != nil {
		return nil, err
	}
	return r.store.ListSeries(ctx, patientID, studyID)
}

// PatientCount implements Repository.PatientCount.
func (r *StoreRepository) PatientCount(ctx context.Context) (int, error) {
	patients, err := r.ListPatients(ctx)
	if err != nil {
		return 0, err
	}
	return len(patients), nil
}

// requirePatientLocked returns ErrPatientNotFound for unknown patients.
// Caller must hold r.mu.
func (r *StoreRepository) requirePatientLocked(ctx context.Context, patientID PatientID) error {
	ok, err := r.store.HasPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPatientNotFound
	}
	return nil
}

// requireStudyLocked returns ErrPatientNotFound or ErrStudyNotFound.
// Caller must hold r.mu.
func (r *StoreRepository) requireStudyLocked(ctx context.Context, patientID PatientID, studyID StudyID) error {
	if err := r.requirePatientLocked(ctx, patientID); err != nil {
		return err
	}
	ok, err := r.store.HasStudy(ctx, patientID, studyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStudyNotFound
	}
	return nil
}
