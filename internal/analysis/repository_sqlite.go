package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fived/therapists/internal/auth"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	full_name     TEXT NOT NULL DEFAULT '',
	has_analysis  INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quantum_analyses (
	id               TEXT PRIMARY KEY,
	patient_id       TEXT NOT NULL,
	user_id          TEXT NOT NULL,
	answers          TEXT NOT NULL,
	results          TEXT,
	recommendations  TEXT NOT NULL DEFAULT '[]',
	created_at       TEXT NOT NULL,
	FOREIGN KEY (patient_id) REFERENCES patients(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_quantum_analyses_patient
	ON quantum_analyses (patient_id, user_id, created_at);
`

// fixed width so created_at sorts lexically
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository is a file-backed Repository for single-node deployments
// and local development.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens path and creates the schema if needed.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// AddPatient registers a patient row owned by the context user. Patient CRUD
// lives elsewhere; this exists so a standalone database can be seeded.
func (r *SQLiteRepository) AddPatient(ctx context.Context, id uuid.UUID, fullName string) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	now := r.now().UTC().Format(sqliteTime)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO patients (id, user_id, full_name, has_analysis, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id.String(), userID, fullName, now, now)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// HasAnalysis reads the patient's has_analysis flag.
func (r *SQLiteRepository) HasAnalysis(ctx context.Context, patientID uuid.UUID) (bool, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return false, err
	}
	var flag bool
	err = r.db.QueryRowContext(ctx,
		`SELECT has_analysis FROM patients WHERE id = ? AND user_id = ?`,
		patientID.String(), userID).Scan(&flag)
	if err != nil {
		return false, fmt.Errorf("read patient: %w", err)
	}
	return flag, nil
}

func (r *SQLiteRepository) InsertAnalysis(ctx context.Context, rec Record) (Record, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return Record{}, err
	}
	answersJSON, resultsJSON, err := encodeRecord(rec)
	if err != nil {
		return Record{}, err
	}
	recs := rec.Recommendations
	if recs == nil {
		recs = []string{}
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return Record{}, fmt.Errorf("marshal recommendations: %w", err)
	}

	rec.ID = uuid.New()
	rec.UserID = userID
	rec.CreatedAt = r.now().UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO quantum_analyses (id, patient_id, user_id, answers, results, recommendations, created_at)
		 SELECT ?1, ?2, ?3, ?4, ?5, ?6, ?7
		 WHERE EXISTS (SELECT 1 FROM patients WHERE id = ?2 AND user_id = ?3)`,
		rec.ID.String(), rec.PatientID.String(), rec.UserID,
		string(answersJSON), string(resultsJSON), string(recsJSON),
		rec.CreatedAt.Format(sqliteTime),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	if err := expectOneRow(res, rec.PatientID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) ListAnalyses(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, patient_id, user_id, answers, results, recommendations, created_at
		 FROM quantum_analyses
		 WHERE patient_id = ? AND user_id = ?
		 ORDER BY created_at ASC`,
		patientID.String(), userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                   Record
			id, pid, createdAt    string
			answersJSON, recsJSON string
			resultsJSON           sql.NullString
		)
		if err := rows.Scan(&id, &pid, &rec.UserID, &answersJSON, &resultsJSON, &recsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse analysis id: %w", err)
		}
		if rec.PatientID, err = uuid.Parse(pid); err != nil {
			return nil, fmt.Errorf("parse patient id: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTime, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		var results []byte
		if resultsJSON.Valid {
			results = []byte(resultsJSON.String)
		}
		if err := decodeRecord(&rec, []byte(answersJSON), results); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(recsJSON), &rec.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdatePatientFlag(ctx context.Context, patientID uuid.UUID, hasAnalysis bool) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE patients SET has_analysis = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		hasAnalysis, r.now().UTC().Format(sqliteTime), patientID.String(), userID)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return expectOneRow(res, patientID)
}
