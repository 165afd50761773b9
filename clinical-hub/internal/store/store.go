package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the append-only workflow history. Decisions and actions are never
// updated or deleted once appended.
type Store interface {
	AppendDecision(ctx context.Context, in models.DecisionInput) (models.WorkflowDecision, error)
	AppendAction(ctx context.Context, action models.AutomatedAction) (models.AutomatedAction, error)
	GetDecision(ctx context.Context, id uuid.UUID) (models.WorkflowDecision, error)
	ListDecisions(ctx context.Context) ([]models.WorkflowDecision, error)
	ListActions(ctx context.Context) ([]models.AutomatedAction, error)
	ListDecisionsByAnimal(ctx context.Context, animalID string) ([]models.WorkflowDecision, error)
	ListActionsByDecision(ctx context.Context, decisionID uuid.UUID) ([]models.AutomatedAction, error)
	FilterDecisions(ctx context.Context, filter DecisionFilter) ([]models.WorkflowDecision, error)
	Ping(ctx context.Context) error
}

// DecisionFilter narrows the decision history. Zero fields match everything.
type DecisionFilter struct {
	Search       string
	Status       models.DecisionStatus
	DecisionType models.DecisionType
	AnimalID     string
	Since        time.Time
}

func (f DecisionFilter) matches(d models.WorkflowDecision) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.DecisionType != "" && d.DecisionType != f.DecisionType {
		return false
	}
	if f.AnimalID != "" && d.AnimalID != f.AnimalID {
		return false
	}
	if !f.Since.IsZero() && d.Timestamp.Before(f.Since) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{d.AnimalName, d.AnimalID, d.ConsultantName, d.AssignedVet, d.Reasoning} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func newDecision(in models.DecisionInput, now time.Time) models.WorkflowDecision {
	return models.WorkflowDecision{
		ID:               uuid.New(),
		ConsultantID:     in.ConsultantID,
		ConsultantName:   in.ConsultantName,
		AnimalID:         in.AnimalID,
		AnimalName:       in.AnimalName,
		DecisionType:     in.DecisionType,
		ScheduledDate:    in.ScheduledDate,
		AssignedVet:      in.AssignedVet,
		Location:         in.Location,
		Priority:         in.Priority,
		Reasoning:        in.Reasoning,
		UltrasoundRef:    in.UltrasoundRef,
		ExpectedOutcome:  in.ExpectedOutcome,
		FollowUpSchedule: append([]models.FollowUp(nil), in.FollowUpSchedule...),
		BatchID:          in.BatchID,
		DonorGroupRef:    in.DonorGroupRef,
		Timestamp:        now,
		Status:           models.DecisionAssigned,
	}
}

func ensureJSON(raw json.RawMessage, fallback string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}

func actionRank(status models.ActionStatus) int {
	switch status {
	case models.ActionPending:
		return 0
	case models.ActionExecuted:
		return 1
	default:
		return 2
	}
}

// sortActions orders pending actions first, executed actions newest first,
// and failures last.
func sortActions(actions []models.AutomatedAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if ra, rb := actionRank(a.Status), actionRank(b.Status); ra != rb {
			return ra < rb
		}
		if a.ExecutedAt != nil && b.ExecutedAt != nil && !a.ExecutedAt.Equal(*b.ExecutedAt) {
			return a.ExecutedAt.After(*b.ExecutedAt)
		}
		return a.RecordedAt.After(b.RecordedAt)
	})
}

func sortDecisions(decisions []models.WorkflowDecision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Timestamp.After(decisions[j].Timestamp)
	})
}
