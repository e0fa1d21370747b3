package cohort

import (
	"errors"

	"series-orderer/internal/series"
)

// PatientID uniquely identifies a patient.
type PatientID string

// StudyID identifies a study within a patient.
type StudyID string

// Patient is a patient as reported by the data source.
type Patient struct {
	ID   PatientID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// Study is one imaging encounter of a patient.
// PatientID is taken from the request path, not from the payload.
type Study struct {
	ID          StudyID   `json:"id"`
	PatientID   PatientID `json:"patientId"`
	Description string    `json:"description,omitempty"`
}

// IngestResult is the outcome of merging newly discovered series into a study.
type IngestResult struct {
	Series    []series.Record               `json:"series"`
	Added     int                           `json:"added"`
	Conflicts []*series.DuplicateIDError    `json:"conflicts,omitempty"`
	Rejected  []*series.ClassificationError `json:"rejected,omitempty"`
}

var (
	// ErrPatientNotFound is returned when the patient has not been added.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrStudyNotFound is returned when the study has not been added to the patient.
	ErrStudyNotFound = errors.New("study not found")

	// ErrEmptyID is returned when a patient or study is submitted without an id.
	ErrEmptyID = errors.New("empty id")
)
