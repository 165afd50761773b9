package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// MemoryStore keeps the workflow history in process. Slices are kept in append
// order; queries return copies.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions []models.WorkflowDecision
	index     map[uuid.UUID]int
	actions   []models.AutomatedAction
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: map[uuid.UUID]int{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) AppendDecision(ctx context.Context, in models.DecisionInput) (models.WorkflowDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	decision := newDecision(in, m.now())
	m.index[decision.ID] = len(m.decisions)
	m.decisions = append(m.decisions, decision)
	return decision, nil
}

func (m *MemoryStore) AppendAction(ctx context.Context, action models.AutomatedAction) (models.AutomatedAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[action.TriggerDecision]; !ok {
		return models.AutomatedAction{}, ErrNotFound
	}
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	action.ActionData = append([]byte(nil), ensureJSON(action.ActionData, "{}")...)
	action.RecordedAt = m.now()
	m.actions = append(m.actions, action)
	return action, nil
}

func (m *MemoryStore) GetDecision(ctx context.Context, id uuid.UUID) (models.WorkflowDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return models.WorkflowDecision{}, ErrNotFound
	}
	return m.decisions[i], nil
}

func (m *MemoryStore) ListDecisions(ctx context.Context) ([]models.WorkflowDecision, error) {
	return m.FilterDecisions(ctx, DecisionFilter{})
}

func (m *MemoryStore) ListDecisionsByAnimal(ctx context.Context, animalID string) ([]models.WorkflowDecision, error) {
	return m.FilterDecisions(ctx, DecisionFilter{AnimalID: animalID})
}

func (m *MemoryStore) FilterDecisions(ctx context.Context, filter DecisionFilter) ([]models.WorkflowDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.WorkflowDecision, 0, len(m.decisions))
	// newest append first so equal timestamps keep reverse insertion order
	for i := len(m.decisions) - 1; i >= 0; i-- {
		if filter.matches(m.decisions[i]) {
			out = append(out, m.decisions[i])
		}
	}
	sortDecisions(out)
	return out, nil
}

func (m *MemoryStore) ListActions(ctx context.Context) ([]models.AutomatedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AutomatedAction, 0, len(m.actions))
	for i := len(m.actions) - 1; i >= 0; i-- {
		out = append(out, m.actions[i])
	}
	sortActions(out)
	return out, nil
}

func (m *MemoryStore) ListActionsByDecision(ctx context.Context, decisionID uuid.UUID) ([]models.AutomatedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AutomatedAction
	for _, a := range m.actions {
		if a.TriggerDecision == decisionID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
