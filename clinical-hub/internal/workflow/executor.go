package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/store"
)

var errNoAdapter = errors.New("no adapter configured")

// Executor dispatches generated actions to their adapters in order and records
// every attempt in the store. Adapter errors mark the action FAILED and never
// stop the remaining actions.
type Executor struct {
	adapters Adapters
	store    store.Store
	logger   *zap.Logger
	observer Observer
	timeout  time.Duration
	now      func() time.Time
}

func NewExecutor(adapters Adapters, st store.Store, logger *zap.Logger, observer Observer, actionTimeout time.Duration) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Executor{
		adapters: adapters,
		store:    st,
		logger:   logger,
		observer: observer,
		timeout:  actionTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs actions sequentially and returns them as stored. It only fails
// when the store rejects an append; actions recorded before that point are
// returned alongside the error.
func (e *Executor) Execute(ctx context.Context, actions []models.AutomatedAction) ([]models.AutomatedAction, error) {
	recorded := make([]models.AutomatedAction, 0, len(actions))
	for _, action := range actions {
		start := time.Now()
		err := e.dispatchWithDeadline(ctx, action)
		if err != nil {
			action.Status = models.ActionFailed
			action.Error = err.Error()
			e.logger.Warn("workflow action failed",
				zap.String("decisionId", action.TriggerDecision.String()),
				zap.String("actionType", string(action.ActionType)),
				zap.String("targetModule", action.TargetModule),
				zap.Error(err))
		} else {
			executedAt := e.now()
			action.Status = models.ActionExecuted
			action.ExecutedAt = &executedAt
		}
		e.observer.ActionFinished(action.ActionType, action.Status, time.Since(start))

		stored, err := e.store.AppendAction(ctx, action)
		if err != nil {
			e.logger.Error("record workflow action",
				zap.String("decisionId", action.TriggerDecision.String()),
				zap.Int("sequence", action.Sequence),
				zap.Error(err))
			return recorded, fmt.Errorf("append action %d: %w", action.Sequence, err)
		}
		recorded = append(recorded, stored)
	}
	return recorded, nil
}

func (e *Executor) dispatchWithDeadline(ctx context.Context, action models.AutomatedAction) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.dispatch(ctx, action)
}

func (e *Executor) dispatch(ctx context.Context, action models.AutomatedAction) error {
	switch action.ActionType {
	case models.ActionCalendarEvent:
		var event models.CalendarEvent
		if err := decodePayload(action, &event); err != nil {
			return err
		}
		if e.adapters.Calendar == nil {
			return fmt.Errorf("calendar: %w", errNoAdapter)
		}
		return e.adapters.Calendar.CreateEvent(ctx, event)
	case models.ActionInjectionSchedule:
		var order models.InjectionOrder
		if err := decodePayload(action, &order); err != nil {
			return err
		}
		if e.adapters.Injections == nil {
			return fmt.Errorf("injections: %w", errNoAdapter)
		}
		return e.adapters.Injections.ScheduleInjection(ctx, order)
	case models.ActionModuleUpdate:
		var update models.ModuleUpdate
		if err := decodePayload(action, &update); err != nil {
			return err
		}
		if e.adapters.Modules == nil {
			return fmt.Errorf("modules: %w", errNoAdapter)
		}
		return e.adapters.Modules.UpdateModule(ctx, action.TargetModule, update)
	case models.ActionNotification:
		var n models.Notification
		if err := decodePayload(action, &n); err != nil {
			return err
		}
		if e.adapters.Notifications == nil {
			return fmt.Errorf("notifications: %w", errNoAdapter)
		}
		return e.adapters.Notifications.SendNotification(ctx, n)
	default:
		return fmt.Errorf("unsupported action type %q", action.ActionType)
	}
}

func decodePayload(action models.AutomatedAction, v interface{}) error {
	if err := json.Unmarshal(action.ActionData, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", action.ActionType, err)
	}
	return nil
}
