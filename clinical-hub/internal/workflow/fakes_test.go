package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/store"
)

type moduleCall struct {
	module string
	update models.ModuleUpdate
}

// fakeAdapters records every dispatched payload; the func fields inject errors.
type fakeAdapters struct {
	mu            sync.Mutex
	events        []models.CalendarEvent
	injections    []models.InjectionOrder
	modules       []moduleCall
	notifications []models.Notification

	calendarFn     func(models.CalendarEvent) error
	injectionFn    func(models.InjectionOrder) error
	moduleFn       func(string, models.ModuleUpdate) error
	notificationFn func(models.Notification) error
}

func (f *fakeAdapters) CreateEvent(ctx context.Context, event models.CalendarEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	fn := f.calendarFn
	f.mu.Unlock()
	if fn != nil {
		return fn(event)
	}
	return nil
}

func (f *fakeAdapters) ScheduleInjection(ctx context.Context, order models.InjectionOrder) error {
	f.mu.Lock()
	f.injections = append(f.injections, order)
	fn := f.injectionFn
	f.mu.Unlock()
	if fn != nil {
		return fn(order)
	}
	return nil
}

func (f *fakeAdapters) UpdateModule(ctx context.Context, module string, update models.ModuleUpdate) error {
	f.mu.Lock()
	f.modules = append(f.modules, moduleCall{module: module, update: update})
	fn := f.moduleFn
	f.mu.Unlock()
	if fn != nil {
		return fn(module, update)
	}
	return nil
}

func (f *fakeAdapters) SendNotification(ctx context.Context, n models.Notification) error {
	f.mu.Lock()
	f.notifications = append(f.notifications, n)
	fn := f.notificationFn
	f.mu.Unlock()
	if fn != nil {
		return fn(n)
	}
	return nil
}

func (f *fakeAdapters) adapters() Adapters {
	return Adapters{Calendar: f, Injections: f, Modules: f, Notifications: f}
}

// failingStore wraps a MemoryStore and fails selected appends.
type failingStore struct {
	*store.MemoryStore
	decisionErr error
	actionErr   func(models.AutomatedAction) error
}

func (s *failingStore) AppendDecision(ctx context.Context, in models.DecisionInput) (models.WorkflowDecision, error) {
	if s.decisionErr != nil {
		return models.WorkflowDecision{}, s.decisionErr
	}
	return s.MemoryStore.AppendDecision(ctx, in)
}

func (s *failingStore) AppendAction(ctx context.Context, a models.AutomatedAction) (models.AutomatedAction, error) {
	if s.actionErr != nil {
		if err := s.actionErr(a); err != nil {
			return models.AutomatedAction{}, err
		}
	}
	return s.MemoryStore.AppendAction(ctx, a)
}

type recordingObserver struct {
	mu        sync.Mutex
	decisions []models.DecisionType
	actions   map[models.ActionStatus]int
	batches   []models.WorkflowType
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{actions: map[models.ActionStatus]int{}}
}

func (o *recordingObserver) DecisionAssigned(t models.DecisionType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, t)
}

func (o *recordingObserver) ActionFinished(_ models.ActionType, status models.ActionStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions[status]++
}

func (o *recordingObserver) BatchAssigned(w models.WorkflowType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, w)
}

type fakeArchiver struct {
	mu       sync.Mutex
	statuses []models.WorkflowStatus
	err      error
}

func (a *fakeArchiver) ArchiveWorkflow(ctx context.Context, status models.WorkflowStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses = append(a.statuses, status)
	return a.err
}

type fakeDirectory map[string]string

func (d fakeDirectory) AnimalName(ctx context.Context, animalID string) string {
	return d[animalID]
}

func decodeAction(t *testing.T, a models.AutomatedAction, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(a.ActionData, v))
}

func actionTypes(actions []models.AutomatedAction) []models.ActionType {
	out := make([]models.ActionType, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.ActionType)
	}
	return out
}
