package workflow

import (
	"context"
	"time"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

type CalendarAdapter interface {
	CreateEvent(ctx context.Context, event models.CalendarEvent) error
}

type InjectionAdapter interface {
	ScheduleInjection(ctx context.Context, order models.InjectionOrder) error
}

// ModuleAdapter forwards a procedure assignment to the named subsystem.
type ModuleAdapter interface {
	UpdateModule(ctx context.Context, module string, update models.ModuleUpdate) error
}

type NotificationAdapter interface {
	SendNotification(ctx context.Context, n models.Notification) error
}

// Adapters is the set of subsystems actions are dispatched to. A nil adapter
// fails every action of its type.
type Adapters struct {
	Calendar      CalendarAdapter
	Injections    InjectionAdapter
	Modules       ModuleAdapter
	Notifications NotificationAdapter
}

// Observer receives workflow events for instrumentation.
type Observer interface {
	DecisionAssigned(decisionType models.DecisionType)
	ActionFinished(actionType models.ActionType, status models.ActionStatus, elapsed time.Duration)
	BatchAssigned(workflowType models.WorkflowType)
}

// Archiver stores a snapshot of a freshly assigned workflow.
type Archiver interface {
	ArchiveWorkflow(ctx context.Context, status models.WorkflowStatus) error
}

// AnimalDirectory resolves display names for bulk assignments.
type AnimalDirectory interface {
	AnimalName(ctx context.Context, animalID string) string
}

type nopObserver struct{}

func (nopObserver) DecisionAssigned(models.DecisionType) {}
func (nopObserver) ActionFinished(models.ActionType, models.ActionStatus, time.Duration) {}
func (nopObserver) BatchAssigned(models.WorkflowType) {}
