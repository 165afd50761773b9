package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/protocol"
)

const (
	calendarTarget     = "calendar"
	injectionsTarget   = "injections"
	notificationTarget = "mobile"

	recipientFieldVet      = "FIELD_VET"
	notificationAssignment = "WORKFLOW_ASSIGNMENT"
	eventScheduled         = "SCHEDULED"
)

// GenerateActions expands a stored decision into its downstream actions. The
// order is fixed: primary calendar event, pre-procedure injections, module
// update, follow-up events, then the vet notification. Every action is PENDING
// and carries its position in Sequence.
func GenerateActions(d models.WorkflowDecision) ([]models.AutomatedAction, error) {
	ref := d.ID.String()
	animals := []models.AnimalRef{{ID: d.AnimalID, Name: d.AnimalName}}
	location := d.Location
	if location == "" {
		location = protocol.DefaultLocation(d.DecisionType)
	}

	var b actionBuilder
	b.add(models.ActionCalendarEvent, calendarTarget, models.CalendarEvent{
		Title:       fmt.Sprintf("%s - %s", d.DecisionType, d.AnimalName),
		Date:        d.ScheduledDate,
		Time:        protocol.OptimalTime(d.DecisionType),
		Type:        strings.ToLower(string(d.DecisionType)),
		Animals:     animals,
		AssignedVet: d.AssignedVet,
		Location:    location,
		Priority:    d.Priority,
		Status:      eventScheduled,
		WorkflowRef: ref,
		Notes:       d.Reasoning,
	})

	if protocol.RequiresPreProcedureInjections(d.DecisionType) {
		for _, inj := range protocol.PreProcedureInjections(d.DecisionType) {
			b.add(models.ActionInjectionSchedule, injectionsTarget, models.InjectionOrder{
				AnimalID:      d.AnimalID,
				Medication:    inj.Medication,
				Dosage:        inj.Dosage,
				Route:         inj.Route,
				ScheduledDate: d.ScheduledDate.AddDays(-inj.DaysBefore),
				AssignedBy:    d.ConsultantName,
				Reason:        fmt.Sprintf("Pre-%s protocol", d.DecisionType),
				WorkflowRef:   ref,
				Priority:      d.Priority,
			})
		}
	}

	b.add(models.ActionModuleUpdate, protocol.TargetModule(d.DecisionType), models.ModuleUpdate{
		AnimalID:      d.AnimalID,
		ProcedureType: d.DecisionType,
		ScheduledDate: d.ScheduledDate,
		AssignedVet:   d.AssignedVet,
		Status:        models.DecisionAssigned,
		WorkflowRef:   ref,
		ClinicalNotes: d.Reasoning,
		UltrasoundRef: d.UltrasoundRef,
		BatchID:       d.BatchID,
		DonorGroupRef: d.DonorGroupRef,
	})

	for _, f := range d.FollowUpSchedule {
		b.add(models.ActionCalendarEvent, calendarTarget, models.CalendarEvent{
			Title:       fmt.Sprintf("%s - %s", f.Type, d.AnimalName),
			Date:        d.ScheduledDate.AddDays(f.DaysFromProcedure),
			Type:        strings.ToLower(string(f.Type)),
			Animals:     animals,
			AssignedVet: d.AssignedVet,
			Priority:    models.PriorityMedium,
			Status:      eventScheduled,
			WorkflowRef: ref,
			Notes:       fmt.Sprintf("Follow-up for %s procedure", d.DecisionType),
		})
	}

	b.add(models.ActionNotification, notificationTarget, models.Notification{
		RecipientRole:  recipientFieldVet,
		RecipientID:    d.AssignedVet,
		Type:           notificationAssignment,
		Title:          fmt.Sprintf("New %s Assignment", d.DecisionType),
		Message:        fmt.Sprintf("%s scheduled for %s on %s", d.AnimalName, d.DecisionType, d.ScheduledDate),
		ActionRequired: true,
		WorkflowRef:    ref,
		Priority:       d.Priority,
	})

	if b.err != nil {
		return nil, b.err
	}
	for i := range b.actions {
		b.actions[i].TriggerDecision = d.ID
	}
	return b.actions, nil
}

type actionBuilder struct {
	actions []models.AutomatedAction
	err     error
}

func (b *actionBuilder) add(actionType models.ActionType, target string, payload interface{}) {
	if b.err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.err = fmt.Errorf("marshal %s payload: %w", actionType, err)
		return
	}
	b.actions = append(b.actions, models.AutomatedAction{
		ActionType:   actionType,
		TargetModule: target,
		ActionData:   data,
		Sequence:     len(b.actions),
		Status:       models.ActionPending,
	})
}
