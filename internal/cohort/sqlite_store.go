package cohort

import (
	"context"
	"database/sql"
	"fmt"

	"series-orderer/internal/series"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS studies (
	patient_id  TEXT NOT NULL REFERENCES patients(id),
	id          TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (patient_id, id)
);
CREATE TABLE IF NOT EXISTS series (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id        TEXT NOT NULL,
	study_id          TEXT NOT NULL,
	id                TEXT NOT NULL,
	path              TEXT NOT NULL,
	role              TEXT NOT NULL,
	derived_from_path TEXT NOT NULL DEFAULT '',
	acquisition_order REAL,
	description       TEXT NOT NULL DEFAULT '',
	UNIQUE (patient_id, study_id, id),
	FOREIGN KEY (patient_id, study_id) REFERENCES studies(patient_id, id)
);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path and applies the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite allows a single writer; the Repository serialises writes anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// InsertPatient implements Store.InsertPatient.
func (s *SQLiteStore) InsertPatient(ctx context.Context, p Patient) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		string(p.ID), p.Name)
	if err != nil {
		return false, fmt.Errorf("insert patient %s: %w", p.ID, err)
	}
	return inserted(res)
}

// HasPatient implements Store.HasPatient.
func (s *SQLiteStore) HasPatient(ctx context.Context, id PatientID) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM patients WHERE id = ?`, string(id))
}

// ListPatients implements Store.ListPatients, sorted by id.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	out := []Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertStudy implements Store.InsertStudy.
func (s *SQLiteStore) InsertStudy(ctx context.Context, st Study) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO studies (patient_id, id, description) VALUES (?, ?, ?) ON CONFLICT(patient_id, id) DO NOTHING`,
		string(st.PatientID), string(st.ID), st.Description)
	if err != nil {
		return false, fmt.Errorf("insert study %s/%s: %w", st.PatientID, st.ID, err)
	}
	return inserted(res)
}

// HasStudy implements Store.HasStudy.
func (s *SQLiteStore) HasStudy(ctx context.Context, patientID PatientID, studyID StudyID) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM studies WHERE patient_id = ? AND id = ?`, string(patientID), string(studyID))
}

// ListStudies implements Store.ListStudies, sorted by id.
func (s *SQLiteStore) ListStudies(ctx context.Context, patientID PatientID) ([]Study, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient_id, description FROM studies WHERE patient_id = ? ORDER BY id`, string(patientID))
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	out := []Study{}
	for rows.Next() {
		var st Study
		if err := rows.Scan(&st.ID, &st.PatientID, &st.Description); err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListSeries implements Store.ListSeries.
func (s *SQLiteStore) ListSeries(ctx context.Context, patientID PatientID, studyID StudyID) ([]series.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, role, derived_from_path, acquisition_order, description
		FROM series WHERE patient_id = ? AND study_id = ? ORDER BY seq`,
		string(patientID), string(studyID))
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []series.Record
	for rows.Next() {
		var (
			r     series.Record
			role  string
			order sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Path, &role, &r.DerivedFromPath, &order, &r.Description); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		if r.Role, err = series.ParseRole(role); err != nil {
			return nil, fmt.Errorf("series %s: %w", r.ID, err)
		}
		if order.Valid {
			r.AcquisitionOrder = series.Float(order.Float64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendSeries implements Store.AppendSeries in a single transaction.
func (s *SQLiteStore) AppendSeries(ctx context.Context, patientID PatientID, studyID StudyID, records []series.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series (patient_id, study_id, id, path, role, derived_from_path, acquisition_order, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(patient_id, study_id, id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert series: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var order sql.NullFloat64
		if r.AcquisitionOrder != nil {
			order = sql.NullFloat64{Float64: *r.AcquisitionOrder, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			string(patientID), string(studyID), string(r.ID), r.Path, r.Role.String(),
			r.DerivedFromPath, order, r.Description); err != nil {
			return fmt.Errorf("insert series %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
