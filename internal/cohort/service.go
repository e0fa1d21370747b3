package cohort

import (
	"context"

	"series-orderer/internal/series"
)

// Service applies the series ordering on top of the Repository.
type Service struct {
	repo Repository
}

// NewService returns a Service that uses repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddPatients records patients reported by the data source; duplicates are ignored.
func (s *Service) AddPatients(ctx context.Context, patients []Patient) (int, error) {
	return s.repo.AddPatients(ctx, patients)
}

// ListPatients returns all known patients.
func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.repo.ListPatients(ctx)
}

// AddStudies records studies of a patient; duplicates are ignored.
func (s *Service) AddStudies(ctx context.Context, patientID PatientID, studies []Study) (int, error) {
	return s.repo.AddStudies(ctx, patientID, studies)
}

// ListStudies returns the studies of a patient.
func (s *Service) ListStudies(ctx context.Context, patientID PatientID) ([]Study, error) {
	return s.repo.ListStudies(ctx, patientID)
}

// IngestSeries merges newly discovered series into the study and returns the
// full, ordered series list together with what was added, dropped or rejected.
func (s *Service) IngestSeries(ctx context.Context, patientID PatientID, studyID StudyID, incoming []series.Record) (IngestResult, error) {
	merged, report, err := s.repo.MergeSeries(ctx, patientID, studyID, incoming)
	if err != nil {
		return IngestResult{}, err
	}

	ordered, rejected := series.Sort(merged)
	return IngestResult{
		Series:    ordered,
		Added:     len(report.Added),
		Conflicts: report.Conflicts,
		Rejected:  append(report.Rejected, rejected...),
	}, nil
}

// OrderedSeries returns the study's series in display order.
func (s *Service) OrderedSeries(ctx context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error) {
	records, err := s.repo.SeriesSnapshot(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}
	ordered, _ := series.Sort(records)
	return ordered, nil
}
