package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/store"
)

var ErrInvalidInput = errors.New("invalid input")

const defaultBulkConcurrency = 4

// Options carries the optional collaborators of an Engine.
type Options struct {
	Logger          *zap.Logger
	Observer        Observer
	Archiver        Archiver
	Animals         AnimalDirectory
	ActionTimeout   time.Duration
	BulkConcurrency int
}

// Engine is the clinical workflow API: it records decisions, expands them into
// actions, dispatches those actions and answers history queries.
type Engine struct {
	store       store.Store
	executor    *Executor
	logger      *zap.Logger
	observer    Observer
	archiver    Archiver
	animals     AnimalDirectory
	concurrency int
}

func NewEngine(st store.Store, adapters Adapters, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	concurrency := opts.BulkConcurrency
	if concurrency <= 0 {
		concurrency = defaultBulkConcurrency
	}
	return &Engine{
		store:       st,
		executor:    NewExecutor(adapters, st, logger, observer, opts.ActionTimeout),
		logger:      logger,
		observer:    observer,
		archiver:    opts.Archiver,
		animals:     opts.Animals,
		concurrency: concurrency,
	}
}

type AssignResult struct {
	Decision models.WorkflowDecision  `json:"decision"`
	Actions  []models.AutomatedAction `json:"actions"`
}

// AssignWorkflow records a decision and executes its generated actions.
// Adapter failures show up as FAILED actions in the result; the returned error
// is limited to invalid input and store failures.
// When the store rejects an action, the remaining actions are not attempted and
// the result holds the decision plus only the actions recorded before it.
func (e *Engine) AssignWorkflow(ctx context.Context, in models.DecisionInput) (AssignResult, error) {
	if in.AnimalID == "" {
		return AssignResult{}, fmt.Errorf("%w: animal id required", ErrInvalidInput)
	}
	if in.ScheduledDate.IsZero() {
		return AssignResult{}, fmt.Errorf("%w: scheduled date required", ErrInvalidInput)
	}
	if in.AnimalName == "" {
		in.AnimalName = defaultAnimalName(in.AnimalID)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}

	decision, err := e.store.AppendDecision(ctx, in)
	if err != nil {
		e.logger.Error("record workflow decision", zap.String("animalId", in.AnimalID), zap.Error(err))
		return AssignResult{}, fmt.Errorf("append decision: %w", err)
	}
	e.observer.DecisionAssigned(decision.DecisionType)

	actions, err := GenerateActions(decision)
	if err != nil {
		return AssignResult{Decision: decision}, fmt.Errorf("generate actions: %w", err)
	}
	recorded, err := e.executor.Execute(ctx, actions)
	result := AssignResult{Decision: decision, Actions: recorded}
	if err != nil {
		return result, err
	}

	e.archive(ctx, result)
	e.logger.Info("workflow assigned",
		zap.String("decisionId", decision.ID.String()),
		zap.String("animalId", decision.AnimalID),
		zap.String("decisionType", string(decision.DecisionType)),
		zap.String("scheduledDate", decision.ScheduledDate.String()),
		zap.Int("actions", len(recorded)))
	return result, nil
}

func (e *Engine) archive(ctx context.Context, result AssignResult) {
	if e.archiver == nil {
		return
	}
	status := models.WorkflowStatus{
		Decision:       result.Decision,
		Actions:        result.Actions,
		CompletionRate: models.CompletionRate(result.Actions),
	}
	if err := e.archiver.ArchiveWorkflow(ctx, status); err != nil {
		e.logger.Warn("archive workflow", zap.String("decisionId", result.Decision.ID.String()), zap.Error(err))
	}
}

// GetDecisionHistory lists every decision, newest first.
func (e *Engine) GetDecisionHistory(ctx context.Context) ([]models.WorkflowDecision, error) {
	return e.store.ListDecisions(ctx)
}

// SearchDecisions lists decisions matching filter, newest first.
func (e *Engine) SearchDecisions(ctx context.Context, filter store.DecisionFilter) ([]models.WorkflowDecision, error) {
	return e.store.FilterDecisions(ctx, filter)
}

// GetAutomatedActions lists every recorded action: pending first, then the most
// recently executed, then failures.
func (e *Engine) GetAutomatedActions(ctx context.Context) ([]models.AutomatedAction, error) {
	return e.store.ListActions(ctx)
}

func (e *Engine) GetDecisionsByAnimal(ctx context.Context, animalID string) ([]models.WorkflowDecision, error) {
	return e.store.ListDecisionsByAnimal(ctx, animalID)
}

// GetWorkflowStatus reads a decision and its actions and computes the
// completion rate from the current action statuses.
func (e *Engine) GetWorkflowStatus(ctx context.Context, decisionID uuid.UUID) (models.WorkflowStatus, error) {
	decision, err := e.store.GetDecision(ctx, decisionID)
	if err != nil {
		return models.WorkflowStatus{}, err
	}
	actions, err := e.store.ListActionsByDecision(ctx, decisionID)
	if err != nil {
		return models.WorkflowStatus{}, fmt.Errorf("list actions: %w", err)
	}
	if actions == nil {
		actions = []models.AutomatedAction{}
	}
	return models.WorkflowStatus{
		Decision:       decision,
		Actions:        actions,
		CompletionRate: models.CompletionRate(actions),
	}, nil
}

// Ping reports store health.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
