package workflow

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

func TestSinceForRange(t *testing.T) {
	now := time.Date(2025, time.March, 31, 15, 30, 0, 0, time.UTC)

	since, err := SinceForRange(now, "")
	require.NoError(t, err)
	assert.True(t, since.IsZero())

	since, err = SinceForRange(now, "all")
	require.NoError(t, err)
	assert.True(t, since.IsZero())

	since, err = SinceForRange(now, RangeToday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), since)

	since, err = SinceForRange(now, RangeWeek)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 24, 15, 30, 0, 0, time.UTC), since)

	since, err = SinceForRange(now, RangeMonth)
	require.NoError(t, err)
	// March 31 minus one month normalises past the end of February
	assert.Equal(t, time.Date(2025, time.March, 3, 15, 30, 0, 0, time.UTC), since)

	_, err = SinceForRange(now, "YEAR")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExportDecisionsCSV(t *testing.T) {
	ts := time.Date(2025, time.March, 1, 9, 15, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := ExportDecisionsCSV(&buf, []models.WorkflowDecision{{
		ID:             uuid.New(),
		AnimalID:       "A1",
		AnimalName:     "Bella",
		DecisionType:   models.DecisionOPU,
		ConsultantName: "Dr. Hale",
		AssignedVet:    "vet-7",
		Status:         models.DecisionAssigned,
		Reasoning:      `follicles "good", proceed`,
		Timestamp:      ts,
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Timestamp", "Animal", "Decision Type", "Consultant", "Assigned Vet", "Status", "Reasoning"}, records[0])
	assert.Equal(t, []string{"2025-03-01T09:15:00Z", "Bella (A1)", "OPU", "Dr. Hale", "vet-7", "ASSIGNED", `follicles "good", proceed`}, records[1])
}

func TestExportActionsCSV(t *testing.T) {
	decisionID := uuid.New()
	executed := time.Date(2025, time.March, 1, 9, 16, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := ExportActionsCSV(&buf, []models.AutomatedAction{
		{TriggerDecision: decisionID, ActionType: models.ActionCalendarEvent, TargetModule: "calendar", Status: models.ActionExecuted, ExecutedAt: &executed},
		{TriggerDecision: decisionID, ActionType: models.ActionNotification, TargetModule: "mobile", Status: models.ActionFailed, Error: "timeout"},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{decisionID.String(), "CALENDAR_EVENT", "calendar", "EXECUTED", "2025-03-01T09:16:00Z", ""}, records[1])
	assert.Equal(t, []string{decisionID.String(), "NOTIFICATION", "mobile", "FAILED", "N/A", "timeout"}, records[2])
}
