package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fived/therapists/internal/auth"
)

// Repository persists analyses. Every method is scoped to the user carried
// by ctx and fails with auth.ErrUnauthenticated when there is none.
type Repository interface {
	// InsertAnalysis stores rec and returns it with ID, UserID and CreatedAt set.
	InsertAnalysis(ctx context.Context, rec Record) (Record, error)
	ListAnalyses(ctx context.Context, patientID uuid.UUID) ([]Record, error)
	UpdatePatientFlag(ctx context.Context, patientID uuid.UUID, hasAnalysis bool) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) InsertAnalysis(ctx context.Context, rec Record) (Record, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return Record{}, err
	}
	answersJSON, resultsJSON, err := encodeRecord(rec)
	if err != nil {
		return Record{}, err
	}

	if rec.Recommendations == nil {
		rec.Recommendations = []string{}
	}
	rec.ID = uuid.New()
	rec.UserID = userID

	// the patient must belong to the caller
	query := `
		INSERT INTO quantum_analyses (id, patient_id, user_id, answers, results, recommendations)
		SELECT $1::uuid, $2::uuid, $3::text, $4::jsonb, $5::jsonb, $6::text[]
		WHERE EXISTS (SELECT 1 FROM patients WHERE id = $2::uuid AND user_id = $3::text)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		rec.ID, rec.PatientID, rec.UserID, string(answersJSON), string(resultsJSON), pq.Array(rec.Recommendations),
	).Scan(&rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("patient %s: %w", rec.PatientID, ErrPatientNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	return rec, nil
}

func (r *postgresRepo) ListAnalyses(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, patient_id, user_id, answers, results, recommendations, created_at
		FROM quantum_analyses
		WHERE patient_id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, patientID, userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var answersJSON, resultsJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.PatientID,
			&rec.UserID,
			&answersJSON,
			&resultsJSON,
			pq.Array(&rec.Recommendations),
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if err := decodeRecord(&rec, answersJSON, resultsJSON); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

func (r *postgresRepo) UpdatePatientFlag(ctx context.Context, patientID uuid.UUID, hasAnalysis bool) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE patients SET has_analysis = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
		hasAnalysis, patientID, userID)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return expectOneRow(res, patientID)
}

func encodeRecord(rec Record) (answersJSON, resultsJSON []byte, err error) {
	answers := rec.Answers
	if answers == nil {
		answers = AnswerSet{}
	}
	answersJSON, err = json.Marshal(answers)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	resultsJSON, err = json.Marshal(rec.Results)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal results: %w", err)
	}
	return answersJSON, resultsJSON, nil
}

// decodeRecord fills the JSON columns. A NULL or missing results column
// leaves Categories nil so callers can tell it apart from an empty object.
func decodeRecord(rec *Record, answersJSON, resultsJSON []byte) error {
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &rec.Answers); err != nil {
			return fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &rec.Results); err != nil {
			return fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result, patientID uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("patient %s: %w", patientID, ErrPatientNotFound)
	}
	return nil
}
