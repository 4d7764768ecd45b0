package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fived/therapists/internal/auth"
	"github.com/fived/therapists/internal/questionnaire"
	"github.com/fived/therapists/internal/scoring"
)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	r := tempRepo(t)
	ctx := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(ctx, patientID, "Maria"))

	in := Record{
		PatientID:       patientID,
		Answers:         AnswerSet{"physical_1": "5"},
		Results:         Results{Categories: scoring.Scores{questionnaire.Physical: 100}},
		Recommendations: []string{"a", "b"},
	}
	saved, err := r.InsertAnalysis(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, "therapist-1", saved.UserID)
	assert.False(t, saved.CreatedAt.IsZero())

	list, err := r.ListAnalyses(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, patientID, got.PatientID)
	assert.Equal(t, in.Answers, got.Answers)
	assert.Equal(t, in.Results, got.Results)
	assert.Equal(t, in.Recommendations, got.Recommendations)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteRepository_ListOrderAndScope(t *testing.T) {
	r := tempRepo(t)
	ctx := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(ctx, patientID, "João"))

	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(-time.Minute)
		return clock
	}

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rec, err := r.InsertAnalysis(ctx, Record{PatientID: patientID, Results: Results{Categories: scoring.Scores{questionnaire.Mental: 40}}})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	list, err := r.ListAnalyses(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// inserted with a clock running backwards, so ascending order reverses them
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})

	other := auth.WithUser(context.Background(), "therapist-2")
	list, err = r.ListAnalyses(other, patientID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteRepository_EmptyCategoriesSurvive(t *testing.T) {
	r := tempRepo(t)
	ctx := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(ctx, patientID, "Ana"))

	_, err := r.InsertAnalysis(ctx, Record{PatientID: patientID, Results: Results{Categories: scoring.Scores{}}})
	require.NoError(t, err)
	_, err = r.db.Exec(`INSERT INTO quantum_analyses (id, patient_id, user_id, answers, results, recommendations, created_at)
		VALUES (?, ?, ?, '{}', NULL, '[]', ?)`,
		uuid.NewString(), patientID.String(), "therapist-1", time.Now().UTC().Add(time.Hour).Format(sqliteTime))
	require.NoError(t, err)

	list, err := r.ListAnalyses(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].Results.Categories)
	assert.False(t, list[0].Results.HasCategories())
	assert.Nil(t, list[1].Results.Categories, "NULL results stays distinguishable")
}

func TestSQLiteRepository_PatientFlag(t *testing.T) {
	r := tempRepo(t)
	ctx := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(ctx, patientID, "Pedro"))

	has, err := r.HasAnalysis(ctx, patientID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, r.UpdatePatientFlag(ctx, patientID, true))
	has, err = r.HasAnalysis(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, has)

	err = r.UpdatePatientFlag(auth.WithUser(context.Background(), "therapist-2"), patientID, true)
	assert.ErrorContains(t, err, "not found")

	err = r.UpdatePatientFlag(ctx, uuid.New(), true)
	assert.ErrorContains(t, err, "not found")
}

func TestSQLiteRepository_RequiresUser(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	_, err := r.InsertAnalysis(ctx, Record{PatientID: uuid.New()})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	_, err = r.ListAnalyses(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.ErrorIs(t, r.UpdatePatientFlag(ctx, uuid.New(), true), auth.ErrUnauthenticated)
}

func TestSQLiteRepository_UnknownPatientRejected(t *testing.T) {
	r := tempRepo(t)

	_, err := r.InsertAnalysis(userCtx(), Record{PatientID: uuid.New(), Results: Results{Categories: scoring.Scores{questionnaire.Mental: 1}}})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestSQLiteRepository_InsertForForeignPatientRejected(t *testing.T) {
	r := tempRepo(t)
	owner := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(owner, patientID, "Lucia"))

	other := auth.WithUser(context.Background(), "therapist-2")
	_, err := r.InsertAnalysis(other, Record{PatientID: patientID, Results: Results{Categories: scoring.Scores{questionnaire.Mental: 1}}})
	require.ErrorIs(t, err, ErrPatientNotFound)

	list, err := r.ListAnalyses(owner, patientID)
	require.NoError(t, err)
	assert.Empty(t, list)
	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM quantum_analyses`).Scan(&n))
	assert.Zero(t, n)
}

func TestServiceWithSQLite(t *testing.T) {
	r := tempRepo(t)
	ctx := userCtx()
	patientID := uuid.New()
	require.NoError(t, r.AddPatient(ctx, patientID, "Clara"))
	svc := newTestService(r)

	sub, err := svc.Submit(ctx, patientID, completeAnswers("3"))
	require.NoError(t, err)
	assert.Nil(t, sub.Warning)

	has, err := r.HasAnalysis(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, has)

	h, err := svc.GetHistory(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	require.NotNil(t, h.Current)
	assert.Equal(t, sub.Record.ID, h.Current.ID)
	assert.Equal(t, 60.0, h.Current.Results.Categories[questionnaire.Spiritual])
}
