package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/protocol"
)

// BulkResult holds everything a batch produced, in animal order.
type BulkResult struct {
	BatchID   string                    `json:"batchId"`
	Decisions []models.WorkflowDecision `json:"decisions"`
	Actions   []models.AutomatedAction  `json:"actions"`
	Failures  []BulkFailure             `json:"failures,omitempty"`
}

// BulkFailure reports an animal whose pipeline could not be recorded.
type BulkFailure struct {
	Index    int    `json:"index"`
	AnimalID string `json:"animalId"`
	Error    string `json:"error"`
}

// StaggeredDate is the calendar date of the i-th animal of a batch. The minute
// offset is applied to the full base timestamp before truncation, so animals
// whose offsets stay within one day share a date.
func StaggeredDate(base time.Time, index int, w models.WorkflowType) models.Date {
	offset := time.Duration(index*protocol.StaggerMinutes(w)) * time.Minute
	return models.DateOf(base.Add(offset))
}

// ExpandBulk turns a batch request into one decision input per selected
// animal. Animal names default to "Animal <id>".
func ExpandBulk(batch models.BulkWorkflowAssignment) []models.DecisionInput {
	total := len(batch.SelectedAnimals)
	decisionType := protocol.DecisionTypeFor(batch.WorkflowType)
	inputs := make([]models.DecisionInput, 0, total)
	for i, animalID := range batch.SelectedAnimals {
		inputs = append(inputs, models.DecisionInput{
			ConsultantID:     batch.ConsultantID,
			ConsultantName:   batch.ConsultantName,
			AnimalID:         animalID,
			AnimalName:       defaultAnimalName(animalID),
			DecisionType:     decisionType,
			ScheduledDate:    StaggeredDate(batch.BaseDate.Time, i, batch.WorkflowType),
			AssignedVet:      batch.AssignedVet,
			Priority:         models.PriorityMedium,
			Reasoning:        fmt.Sprintf("%s (Batch %d/%d)", batch.Reasoning, i+1, total),
			ExpectedOutcome:  protocol.ExpectedOutcome(batch.WorkflowType),
			FollowUpSchedule: protocol.StandardFollowUp(batch.WorkflowType),
			BatchID:          batch.BatchID,
			DonorGroupRef:    batch.DonorGroupRef,
		})
	}
	return inputs
}

func defaultAnimalName(animalID string) string {
	return "Animal " + animalID
}

// AssignBulkWorkflow runs the single-decision pipeline for every animal of the
// batch on a bounded pool. One animal's failure never stops the others; the
// only error returned is input validation.
func (e *Engine) AssignBulkWorkflow(ctx context.Context, batch models.BulkWorkflowAssignment) (BulkResult, error) {
	if batch.BaseDate.IsZero() {
		return BulkResult{}, fmt.Errorf("%w: base date required", ErrInvalidInput)
	}
	for _, animalID := range batch.SelectedAnimals {
		if animalID == "" {
			return BulkResult{}, fmt.Errorf("%w: empty animal id in batch", ErrInvalidInput)
		}
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}
	inputs := ExpandBulk(batch)

	type outcome struct {
		result AssignResult
		err    error
	}
	outcomes := make([]outcome, len(inputs))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for i := range inputs {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			in := inputs[i]
			if e.animals != nil {
				if name := e.animals.AnimalName(ctx, in.AnimalID); name != "" {
					in.AnimalName = name
				}
			}
			res, err := e.AssignWorkflow(ctx, in)
			outcomes[i] = outcome{result: res, err: err}
		}(i)
	}
	wg.Wait()

	result := BulkResult{BatchID: batch.BatchID}
	for i, o := range outcomes {
		if o.result.Decision.ID != uuid.Nil {
			result.Decisions = append(result.Decisions, o.result.Decision)
		}
		result.Actions = append(result.Actions, o.result.Actions...)
		if o.err != nil {
			result.Failures = append(result.Failures, BulkFailure{
				Index:    i,
				AnimalID: inputs[i].AnimalID,
				Error:    o.err.Error(),
			})
		}
	}
	e.observer.BatchAssigned(batch.WorkflowType)
	e.logger.Info("bulk workflow assigned",
		zap.String("batchId", batch.BatchID),
		zap.String("workflowType", string(batch.WorkflowType)),
		zap.Int("animals", len(inputs)),
		zap.Int("actions", len(result.Actions)),
		zap.Int("failures", len(result.Failures)))
	return result, nil
}
