package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DecisionType string

const (
	DecisionET        DecisionType = "ET"
	DecisionOPU       DecisionType = "OPU"
	DecisionFlushing  DecisionType = "FLUSHING"
	DecisionRecheck   DecisionType = "RECHECK"
	DecisionBreeding  DecisionType = "BREEDING"
	DecisionHold      DecisionType = "HOLD"
	DecisionInjection DecisionType = "INJECTION"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type DecisionStatus string

const (
	DecisionAssigned   DecisionStatus = "ASSIGNED"
	DecisionScheduled  DecisionStatus = "SCHEDULED"
	DecisionInProgress DecisionStatus = "IN_PROGRESS"
	DecisionCompleted  DecisionStatus = "COMPLETED"
	DecisionCancelled  DecisionStatus = "CANCELLED"
)

type FollowUpType string

const (
	FollowUpPregnancyCheck FollowUpType = "PREGNANCY_CHECK"
	FollowUpRecheck        FollowUpType = "RECHECK"
	FollowUpInjection      FollowUpType = "INJECTION"
)

type ActionType string

const (
	ActionCalendarEvent     ActionType = "CALENDAR_EVENT"
	ActionInjectionSchedule ActionType = "INJECTION_SCHEDULE"
	ActionModuleUpdate      ActionType = "MODULE_UPDATE"
	ActionNotification      ActionType = "NOTIFICATION"
)

type ActionStatus string

const (
	ActionPending  ActionStatus = "PENDING"
	ActionExecuted ActionStatus = "EXECUTED"
	ActionFailed   ActionStatus = "FAILED"
)

type WorkflowType string

const (
	WorkflowSynchronization WorkflowType = "SYNCHRONIZATION"
	WorkflowBulkET          WorkflowType = "BULK_ET"
	WorkflowBulkFlushing    WorkflowType = "BULK_FLUSHING"
	WorkflowBatchRecheck    WorkflowType = "BATCH_RECHECK"
)

type FollowUp struct {
	Type              FollowUpType `json:"type"`
	DaysFromProcedure int          `json:"daysFromProcedure"`
}

// WorkflowDecision is one clinical assignment. ID, Timestamp and Status are
// set by the store when the decision is appended.
type WorkflowDecision struct {
	ID               uuid.UUID      `json:"id"`
	ConsultantID     string         `json:"consultantId"`
	ConsultantName   string         `json:"consultantName"`
	AnimalID         string         `json:"animalId"`
	AnimalName       string         `json:"animalName"`
	DecisionType     DecisionType   `json:"decisionType"`
	ScheduledDate    Date           `json:"scheduledDate"`
	AssignedVet      string         `json:"assignedVet"`
	Location         string         `json:"location,omitempty"`
	Priority         Priority       `json:"priority"`
	Reasoning        string         `json:"reasoning"`
	UltrasoundRef    string         `json:"ultrasoundRef,omitempty"`
	ExpectedOutcome  string         `json:"expectedOutcome,omitempty"`
	FollowUpSchedule []FollowUp     `json:"followUpSchedule,omitempty"`
	BatchID          string         `json:"batchId,omitempty"`
	DonorGroupRef    string         `json:"donorGroupRef,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	Status           DecisionStatus `json:"status"`
}

// DecisionInput is a decision as submitted by a caller, before the store
// assigns its identity.
type DecisionInput struct {
	ConsultantID     string       `json:"consultantId"`
	ConsultantName   string       `json:"consultantName"`
	AnimalID         string       `json:"animalId"`
	AnimalName       string       `json:"animalName"`
	DecisionType     DecisionType `json:"decisionType"`
	ScheduledDate    Date         `json:"scheduledDate"`
	AssignedVet      string       `json:"assignedVet"`
	Location         string       `json:"location,omitempty"`
	Priority         Priority     `json:"priority"`
	Reasoning        string       `json:"reasoning"`
	UltrasoundRef    string       `json:"ultrasoundRef,omitempty"`
	ExpectedOutcome  string       `json:"expectedOutcome,omitempty"`
	FollowUpSchedule []FollowUp   `json:"followUpSchedule,omitempty"`
	BatchID          string       `json:"batchId,omitempty"`
	DonorGroupRef    string       `json:"donorGroupRef,omitempty"`
}

// AutomatedAction is one downstream side-effect attempt triggered by a decision.
type AutomatedAction struct {
	ID              uuid.UUID       `json:"id"`
	ActionType      ActionType      `json:"actionType"`
	TargetModule    string          `json:"targetModule"`
	ActionData      json.RawMessage `json:"actionData"`
	TriggerDecision uuid.UUID       `json:"triggerDecision"`
	Sequence        int             `json:"sequence"`
	Status          ActionStatus    `json:"status"`
	ExecutedAt      *time.Time      `json:"executedAt,omitempty"`
	Error           string          `json:"error,omitempty"`
	RecordedAt      time.Time       `json:"recordedAt"`
}

// BulkWorkflowAssignment is a transient batch request; it is never stored.
type BulkWorkflowAssignment struct {
	ConsultantID    string       `json:"consultantId"`
	ConsultantName  string       `json:"consultantName"`
	SelectedAnimals []string     `json:"selectedAnimals"`
	WorkflowType    WorkflowType `json:"workflowType"`
	BaseDate        Instant      `json:"baseDate"`
	AssignedVet     string       `json:"assignedVet"`
	Reasoning       string       `json:"reasoning"`
	BatchID         string       `json:"batchId,omitempty"`
	DonorGroupRef   string       `json:"donorGroupRef,omitempty"`
}

type AnimalRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CalendarEvent struct {
	Title       string      `json:"title"`
	Date        Date        `json:"date"`
	Time        string      `json:"time,omitempty"`
	Type        string      `json:"type"`
	Animals     []AnimalRef `json:"animals"`
	AssignedVet string      `json:"assignedVet"`
	Location    string      `json:"location,omitempty"`
	Priority    Priority    `json:"priority"`
	Status      string      `json:"status"`
	WorkflowRef string      `json:"workflowRef"`
	Notes       string      `json:"notes"`
}

type InjectionOrder struct {
	AnimalID      string   `json:"animalId"`
	Medication    string   `json:"medication"`
	Dosage        string   `json:"dosage"`
	Route         string   `json:"route"`
	ScheduledDate Date     `json:"scheduledDate"`
	AssignedBy    string   `json:"assignedBy"`
	Reason        string   `json:"reason"`
	WorkflowRef   string   `json:"workflowRef"`
	Priority      Priority `json:"priority"`
}

type ModuleUpdate struct {
	AnimalID      string         `json:"animalId"`
	ProcedureType DecisionType   `json:"procedureType"`
	ScheduledDate Date           `json:"scheduledDate"`
	AssignedVet   string         `json:"assignedVet"`
	Status        DecisionStatus `json:"status"`
	WorkflowRef   string         `json:"workflowRef"`
	ClinicalNotes string         `json:"clinicalNotes"`
	UltrasoundRef string         `json:"ultrasoundRef,omitempty"`
	BatchID       string         `json:"batchId,omitempty"`
	DonorGroupRef string         `json:"donorGroupRef,omitempty"`
}

type Notification struct {
	RecipientRole  string   `json:"recipientRole"`
	RecipientID    string   `json:"recipientId"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	ActionRequired bool     `json:"actionRequired"`
	WorkflowRef    string   `json:"workflowRef"`
	Priority       Priority `json:"priority"`
}

// WorkflowStatus is a point-in-time view of one decision and its actions.
type WorkflowStatus struct {
	Decision       WorkflowDecision  `json:"decision"`
	Actions        []AutomatedAction `json:"actions"`
	CompletionRate float64           `json:"completionRate"`
}

// CompletionRate is the fraction of actions that reached EXECUTED, 0 when empty.
func CompletionRate(actions []AutomatedAction) float64 {
	if len(actions) == 0 {
		return 0
	}
	executed := 0
	for _, a := range actions {
		if a.Status == ActionExecuted {
			executed++
		}
	}
	return float64(executed) / float64(len(actions))
}
