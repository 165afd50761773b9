// Package local provides in-process adapters for subsystems that have no
// endpoint configured. They log the payload and accept it.
package local

import (
	"context"

	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

type Adapters struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Adapters {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapters{logger: logger.Named("local-adapter")}
}

func (a *Adapters) CreateEvent(ctx context.Context, event models.CalendarEvent) error {
	a.logger.Info("calendar event accepted",
		zap.String("title", event.Title),
		zap.String("date", event.Date.String()),
		zap.String("time", event.Time),
		zap.String("assignedVet", event.AssignedVet),
		zap.String("workflowRef", event.WorkflowRef))
	return nil
}

func (a *Adapters) ScheduleInjection(ctx context.Context, order models.InjectionOrder) error {
	a.logger.Info("injection accepted",
		zap.String("animalId", order.AnimalID),
		zap.String("medication", order.Medication),
		zap.String("dosage", order.Dosage),
		zap.String("scheduledDate", order.ScheduledDate.String()),
		zap.String("workflowRef", order.WorkflowRef))
	return nil
}

func (a *Adapters) UpdateModule(ctx context.Context, module string, update models.ModuleUpdate) error {
	a.logger.Info("module update accepted",
		zap.String("module", module),
		zap.String("animalId", update.AnimalID),
		zap.String("procedureType", string(update.ProcedureType)),
		zap.String("workflowRef", update.WorkflowRef))
	return nil
}

func (a *Adapters) SendNotification(ctx context.Context, n models.Notification) error {
	a.logger.Info("notification accepted",
		zap.String("recipientId", n.RecipientID),
		zap.String("title", n.Title),
		zap.String("workflowRef", n.WorkflowRef))
	return nil
}
