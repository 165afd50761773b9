package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

var decisionRowColumns = []string{
	"id", "consultant_id", "consultant_name", "animal_id", "animal_name", "decision_type",
	"scheduled_date", "assigned_vet", "location", "priority", "reasoning", "ultrasound_ref",
	"expected_outcome", "follow_up_schedule", "batch_id", "donor_group_ref", "status", "created_at",
}

var actionRowColumns = []string{
	"id", "decision_id", "sequence", "action_type", "target_module", "action_data",
	"status", "executed_at", "error", "recorded_at",
}

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGStoreAppendDecision(t *testing.T) {
	s, mock := newMockStore(t)
	in := testInput("A1")
	in.FollowUpSchedule = []models.FollowUp{{Type: models.FollowUpPregnancyCheck, DaysFromProcedure: 14}}

	mock.ExpectExec("INSERT INTO workflow_decisions").
		WithArgs(sqlmock.AnyArg(), "c-1", "Dr. Hale", "A1", "Animal A1", "ET",
			time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "vet-7", "", "HIGH", "good corpus luteum", "", "",
			[]byte(`[{"type":"PREGNANCY_CHECK","daysFromProcedure":14}]`), "", "", "ASSIGNED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	d, err := s.AppendDecision(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, models.DecisionAssigned, d.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreAppendActionMissingDecision(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO automated_actions").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	_, err := s.AppendAction(context.Background(), models.AutomatedAction{
		ActionType:      models.ActionModuleUpdate,
		TriggerDecision: uuid.New(),
		Status:          models.ActionFailed,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreAppendAction(t *testing.T) {
	s, mock := newMockStore(t)
	decisionID := uuid.New()
	executed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO automated_actions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 2, "MODULE_UPDATE", "embryo-transfer",
			[]byte(`{"animalId":"A1"}`), "EXECUTED", executed, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	a, err := s.AppendAction(context.Background(), models.AutomatedAction{
		ActionType:      models.ActionModuleUpdate,
		TargetModule:    "embryo-transfer",
		ActionData:      json.RawMessage(`{"animalId":"A1"}`),
		TriggerDecision: decisionID,
		Sequence:        2,
		Status:          models.ActionExecuted,
		ExecutedAt:      &executed,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.RecordedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetDecision(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(decisionRowColumns).AddRow(
		id.String(), "c-1", "Dr. Hale", "A1", "Bella", "OPU",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "vet-7", "", "URGENT", "reason", "us-1", "",
		[]byte(`[{"type":"RECHECK","daysFromProcedure":7}]`), "batch-1", "", "ASSIGNED", created,
	)
	mock.ExpectQuery("SELECT (.+) FROM workflow_decisions WHERE id").
		WithArgs(id).
		WillReturnRows(rows)

	d, err := s.GetDecision(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, models.DecisionOPU, d.DecisionType)
	assert.Equal(t, "2025-03-10", d.ScheduledDate.String())
	assert.Equal(t, models.PriorityUrgent, d.Priority)
	assert.Equal(t, []models.FollowUp{{Type: models.FollowUpRecheck, DaysFromProcedure: 7}}, d.FollowUpSchedule)
	assert.Equal(t, "batch-1", d.BatchID)
	assert.Equal(t, created, d.Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetDecisionNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM workflow_decisions WHERE id").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetDecision(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGStoreFilterDecisionsBuildsWhereClause(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM workflow_decisions WHERE status = \$1 AND decision_type = \$2 AND created_at >= \$3 AND \(animal_name ILIKE \$4 (.+)\) ORDER BY created_at DESC`).
		WithArgs("ASSIGNED", "ET", since, "%bel\\_la%").
		WillReturnRows(sqlmock.NewRows(decisionRowColumns))

	out, err := s.FilterDecisions(context.Background(), DecisionFilter{
		Status:       models.DecisionAssigned,
		DecisionType: models.DecisionET,
		Since:        since,
		Search:       "bel_la",
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListDecisionsByAnimal(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows(decisionRowColumns).AddRow(
		uuid.NewString(), "c-1", "Dr. Hale", "A9", "Animal A9", "RECHECK",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "vet-7", "Ultrasound Room", "MEDIUM", "", "", "",
		[]byte(`[]`), "", "", "ASSIGNED", time.Now().UTC(),
	)
	mock.ExpectQuery(`SELECT (.+) FROM workflow_decisions WHERE animal_id = \$1 ORDER BY created_at DESC`).
		WithArgs("A9").
		WillReturnRows(rows)

	out, err := s.ListDecisionsByAnimal(context.Background(), "A9")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A9", out[0].AnimalID)
	assert.Nil(t, out[0].FollowUpSchedule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListActions(t *testing.T) {
	s, mock := newMockStore(t)
	decisionID := uuid.New()
	executed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(actionRowColumns).
		AddRow(uuid.NewString(), decisionID.String(), 0, "CALENDAR_EVENT", "calendar", []byte(`{}`), "EXECUTED", executed, "", executed).
		AddRow(uuid.NewString(), decisionID.String(), 1, "INJECTION_SCHEDULE", "injections", []byte(`{}`), "FAILED", nil, "boom", executed)
	mock.ExpectQuery(`SELECT (.+) FROM automated_actions ORDER BY CASE status`).
		WillReturnRows(rows)

	out, err := s.ListActions(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].ExecutedAt)
	assert.Equal(t, executed, *out[0].ExecutedAt)
	assert.Equal(t, decisionID, out[1].TriggerDecision)
	assert.Nil(t, out[1].ExecutedAt)
	assert.Equal(t, "boom", out[1].Error)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS workflow_decisions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
