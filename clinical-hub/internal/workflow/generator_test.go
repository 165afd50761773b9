package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/protocol"
)

func etDecision() models.WorkflowDecision {
	return models.WorkflowDecision{
		ID:             uuid.New(),
		ConsultantID:   "c-1",
		ConsultantName: "Dr. Hale",
		AnimalID:       "A1",
		AnimalName:     "Bella",
		DecisionType:   models.DecisionET,
		ScheduledDate:  models.NewDate(2025, time.March, 10),
		AssignedVet:    "vet-7",
		Priority:       models.PriorityHigh,
		Reasoning:      "CL grade 1",
		UltrasoundRef:  "us-42",
		FollowUpSchedule: []models.FollowUp{
			{Type: models.FollowUpPregnancyCheck, DaysFromProcedure: 14},
		},
		Timestamp: time.Now().UTC(),
		Status:    models.DecisionAssigned,
	}
}

func TestGenerateActionsEmbryoTransfer(t *testing.T) {
	d := etDecision()
	actions, err := GenerateActions(d)
	require.NoError(t, err)

	require.Equal(t, []models.ActionType{
		models.ActionCalendarEvent,
		models.ActionInjectionSchedule,
		models.ActionInjectionSchedule,
		models.ActionModuleUpdate,
		models.ActionCalendarEvent,
		models.ActionNotification,
	}, actionTypes(actions))

	for i, a := range actions {
		assert.Equal(t, i, a.Sequence)
		assert.Equal(t, models.ActionPending, a.Status)
		assert.Equal(t, d.ID, a.TriggerDecision)
		assert.Nil(t, a.ExecutedAt)
	}

	var primary models.CalendarEvent
	decodeAction(t, actions[0], &primary)
	assert.Equal(t, "calendar", actions[0].TargetModule)
	assert.Equal(t, "ET - Bella", primary.Title)
	assert.Equal(t, "2025-03-10", primary.Date.String())
	assert.Equal(t, "09:00", primary.Time)
	assert.Equal(t, "et", primary.Type)
	assert.Equal(t, []models.AnimalRef{{ID: "A1", Name: "Bella"}}, primary.Animals)
	assert.Equal(t, "Embryo Transfer Suite", primary.Location)
	assert.Equal(t, models.PriorityHigh, primary.Priority)
	assert.Equal(t, "SCHEDULED", primary.Status)
	assert.Equal(t, d.ID.String(), primary.WorkflowRef)
	assert.Equal(t, "CL grade 1", primary.Notes)

	var gnrh, pgf models.InjectionOrder
	decodeAction(t, actions[1], &gnrh)
	decodeAction(t, actions[2], &pgf)
	assert.Equal(t, "injections", actions[1].TargetModule)
	assert.Equal(t, "GnRH", gnrh.Medication)
	assert.Equal(t, "2.5ml", gnrh.Dosage)
	assert.Equal(t, "IM", gnrh.Route)
	assert.Equal(t, "2025-03-03", gnrh.ScheduledDate.String())
	assert.Equal(t, "Dr. Hale", gnrh.AssignedBy)
	assert.Equal(t, "Pre-ET protocol", gnrh.Reason)
	assert.Equal(t, "PGF2α", pgf.Medication)
	assert.Equal(t, "2025-03-08", pgf.ScheduledDate.String())

	var module models.ModuleUpdate
	decodeAction(t, actions[3], &module)
	assert.Equal(t, "embryo-transfer", actions[3].TargetModule)
	assert.Equal(t, models.DecisionET, module.ProcedureType)
	assert.Equal(t, models.DecisionAssigned, module.Status)
	assert.Equal(t, "CL grade 1", module.ClinicalNotes)
	assert.Equal(t, "us-42", module.UltrasoundRef)

	var followUp models.CalendarEvent
	decodeAction(t, actions[4], &followUp)
	assert.Equal(t, "PREGNANCY_CHECK - Bella", followUp.Title)
	assert.Equal(t, "2025-03-24", followUp.Date.String())
	assert.Equal(t, "pregnancy_check", followUp.Type)
	assert.Equal(t, models.PriorityMedium, followUp.Priority)
	assert.Equal(t, "Follow-up for ET procedure", followUp.Notes)
	assert.Empty(t, followUp.Time)

	var note models.Notification
	decodeAction(t, actions[5], &note)
	assert.Equal(t, "mobile", actions[5].TargetModule)
	assert.Equal(t, "FIELD_VET", note.RecipientRole)
	assert.Equal(t, "vet-7", note.RecipientID)
	assert.Equal(t, "WORKFLOW_ASSIGNMENT", note.Type)
	assert.Equal(t, "New ET Assignment", note.Title)
	assert.Equal(t, "Bella scheduled for ET on 2025-03-10", note.Message)
	assert.True(t, note.ActionRequired)
}

func TestGenerateActionsCountForInjectionProcedures(t *testing.T) {
	followUps := [][]models.FollowUp{
		nil,
		{{Type: models.FollowUpRecheck, DaysFromProcedure: 7}},
		{{Type: models.FollowUpPregnancyCheck, DaysFromProcedure: 14}, {Type: models.FollowUpRecheck, DaysFromProcedure: 30}},
	}
	for _, dt := range []models.DecisionType{models.DecisionET, models.DecisionOPU, models.DecisionFlushing} {
		for _, fu := range followUps {
			d := etDecision()
			d.DecisionType = dt
			d.FollowUpSchedule = fu
			actions, err := GenerateActions(d)
			require.NoError(t, err)
			injections := protocol.PreProcedureInjections(dt)
			assert.Len(t, actions, 1+len(injections)+1+len(fu)+1, "decision type %s", dt)

			var idx int
			for _, a := range actions {
				if a.ActionType != models.ActionInjectionSchedule {
					continue
				}
				var order models.InjectionOrder
				decodeAction(t, a, &order)
				assert.Equal(t, d.ScheduledDate.AddDays(-injections[idx].DaysBefore), order.ScheduledDate)
				idx++
			}
			assert.Equal(t, len(injections), idx)
		}
	}
}

func TestGenerateActionsWithoutInjections(t *testing.T) {
	for _, dt := range []models.DecisionType{models.DecisionRecheck, models.DecisionBreeding, models.DecisionHold, models.DecisionInjection} {
		d := etDecision()
		d.DecisionType = dt
		d.FollowUpSchedule = nil
		d.Location = "Barn 4"
		actions, err := GenerateActions(d)
		require.NoError(t, err)
		require.Equal(t, []models.ActionType{
			models.ActionCalendarEvent,
			models.ActionModuleUpdate,
			models.ActionNotification,
		}, actionTypes(actions), "decision type %s", dt)

		var event models.CalendarEvent
		decodeAction(t, actions[0], &event)
		assert.Equal(t, "Barn 4", event.Location)
		assert.Equal(t, protocol.OptimalTime(dt), event.Time)
		assert.Equal(t, protocol.TargetModule(dt), actions[1].TargetModule)
	}
}

func TestGenerateActionsCarriesBatchIdentity(t *testing.T) {
	d := etDecision()
	d.BatchID = "batch-9"
	d.DonorGroupRef = "donors-2"
	actions, err := GenerateActions(d)
	require.NoError(t, err)

	var module models.ModuleUpdate
	decodeAction(t, actions[3], &module)
	assert.Equal(t, "batch-9", module.BatchID)
	assert.Equal(t, "donors-2", module.DonorGroupRef)
}

func TestGenerateActionsIsDeterministic(t *testing.T) {
	d := etDecision()
	first, err := GenerateActions(d)
	require.NoError(t, err)
	second, err := GenerateActions(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
