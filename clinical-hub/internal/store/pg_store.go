package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// Schema is the DDL applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS workflow_decisions (
	id UUID PRIMARY KEY,
	consultant_id TEXT NOT NULL,
	consultant_name TEXT NOT NULL,
	animal_id TEXT NOT NULL,
	animal_name TEXT NOT NULL,
	decision_type TEXT NOT NULL,
	scheduled_date DATE NOT NULL,
	assigned_vet TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL,
	reasoning TEXT NOT NULL DEFAULT '',
	ultrasound_ref TEXT NOT NULL DEFAULT '',
	expected_outcome TEXT NOT NULL DEFAULT '',
	follow_up_schedule JSONB NOT NULL DEFAULT '[]',
	batch_id TEXT NOT NULL DEFAULT '',
	donor_group_ref TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS workflow_decisions_animal_idx ON workflow_decisions (animal_id);
CREATE INDEX IF NOT EXISTS workflow_decisions_created_idx ON workflow_decisions (created_at DESC);

CREATE TABLE IF NOT EXISTS automated_actions (
	id UUID PRIMARY KEY,
	decision_id UUID NOT NULL REFERENCES workflow_decisions (id),
	sequence INT NOT NULL,
	action_type TEXT NOT NULL,
	target_module TEXT NOT NULL,
	action_data JSONB NOT NULL,
	status TEXT NOT NULL,
	executed_at TIMESTAMPTZ,
	error TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS automated_actions_decision_idx ON automated_actions (decision_id, sequence);
`

const foreignKeyViolation = "23503"

const decisionColumns = `id, consultant_id, consultant_name, animal_id, animal_name, decision_type,
	scheduled_date, assigned_vet, location, priority, reasoning, ultrasound_ref, expected_outcome,
	follow_up_schedule, batch_id, donor_group_ref, status, created_at`

const actionColumns = `id, decision_id, sequence, action_type, target_module, action_data,
	status, executed_at, error, recorded_at`

const actionOrder = `CASE status WHEN 'PENDING' THEN 0 WHEN 'EXECUTED' THEN 1 ELSE 2 END,
	executed_at DESC NULLS LAST, recorded_at DESC`

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the workflow tables when they are missing.
func (p *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *PGStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PGStore) AppendDecision(ctx context.Context, in models.DecisionInput) (models.WorkflowDecision, error) {
	decision := newDecision(in, time.Now().UTC())
	followUps, err := json.Marshal(decision.FollowUpSchedule)
	if err != nil {
		return models.WorkflowDecision{}, fmt.Errorf("marshal follow-up schedule: %w", err)
	}
	if decision.FollowUpSchedule == nil {
		followUps = []byte("[]")
	}
	q := `
		INSERT INTO workflow_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = p.db.ExecContext(ctx, q,
		decision.ID,
		decision.ConsultantID,
		decision.ConsultantName,
		decision.AnimalID,
		decision.AnimalName,
		string(decision.DecisionType),
		decision.ScheduledDate.Time(),
		decision.AssignedVet,
		decision.Location,
		string(decision.Priority),
		decision.Reasoning,
		decision.UltrasoundRef,
		decision.ExpectedOutcome,
		followUps,
		decision.BatchID,
		decision.DonorGroupRef,
		string(decision.Status),
		decision.Timestamp,
	)
	if err != nil {
		return models.WorkflowDecision{}, fmt.Errorf("insert decision: %w", err)
	}
	return decision, nil
}

func (p *PGStore) AppendAction(ctx context.Context, action models.AutomatedAction) (models.AutomatedAction, error) {
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	action.ActionData = ensureJSON(action.ActionData, "{}")
	action.RecordedAt = time.Now().UTC()
	q := `
		INSERT INTO automated_actions (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := p.db.ExecContext(ctx, q,
		action.ID,
		action.TriggerDecision,
		action.Sequence,
		string(action.ActionType),
		action.TargetModule,
		[]byte(action.ActionData),
		string(action.Status),
		action.ExecutedAt,
		action.Error,
		action.RecordedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return models.AutomatedAction{}, ErrNotFound
		}
		return models.AutomatedAction{}, fmt.Errorf("insert action: %w", err)
	}
	return action, nil
}

func (p *PGStore) GetDecision(ctx context.Context, id uuid.UUID) (models.WorkflowDecision, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM workflow_decisions WHERE id = $1`, id)
	decision, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WorkflowDecision{}, ErrNotFound
		}
		return models.WorkflowDecision{}, fmt.Errorf("get decision: %w", err)
	}
	return decision, nil
}

func (p *PGStore) ListDecisions(ctx context.Context) ([]models.WorkflowDecision, error) {
	return p.FilterDecisions(ctx, DecisionFilter{})
}

func (p *PGStore) ListDecisionsByAnimal(ctx context.Context, animalID string) ([]models.WorkflowDecision, error) {
	return p.FilterDecisions(ctx, DecisionFilter{AnimalID: animalID})
}

func (p *PGStore) FilterDecisions(ctx context.Context, filter DecisionFilter) ([]models.WorkflowDecision, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.DecisionType != "" {
		add("decision_type = $%d", string(filter.DecisionType))
	}
	if filter.AnimalID != "" {
		add("animal_id = $%d", filter.AnimalID)
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(animal_name ILIKE $%[1]d OR animal_id ILIKE $%[1]d OR consultant_name ILIKE $%[1]d OR assigned_vet ILIKE $%[1]d OR reasoning ILIKE $%[1]d)", n))
	}
	q := `SELECT ` + decisionColumns + ` FROM workflow_decisions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()
	var out []models.WorkflowDecision
	for rows.Next() {
		decision, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, decision)
	}
	return out, rows.Err()
}

func (p *PGStore) ListActions(ctx context.Context) ([]models.AutomatedAction, error) {
	return p.queryActions(ctx, `SELECT `+actionColumns+` FROM automated_actions ORDER BY `+actionOrder)
}

func (p *PGStore) ListActionsByDecision(ctx context.Context, decisionID uuid.UUID) ([]models.AutomatedAction, error) {
	return p.queryActions(ctx, `SELECT `+actionColumns+` FROM automated_actions WHERE decision_id = $1 ORDER BY sequence ASC`, decisionID)
}

func (p *PGStore) queryActions(ctx context.Context, q string, args ...interface{}) ([]models.AutomatedAction, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()
	var out []models.AutomatedAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, action)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (models.WorkflowDecision, error) {
	var (
		d             models.WorkflowDecision
		decisionType  string
		priority      string
		status        string
		scheduledDate time.Time
		followUps     []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.ConsultantID,
		&d.ConsultantName,
		&d.AnimalID,
		&d.AnimalName,
		&decisionType,
		&scheduledDate,
		&d.AssignedVet,
		&d.Location,
		&priority,
		&d.Reasoning,
		&d.UltrasoundRef,
		&d.ExpectedOutcome,
		&followUps,
		&d.BatchID,
		&d.DonorGroupRef,
		&status,
		&d.Timestamp,
	); err != nil {
		return models.WorkflowDecision{}, err
	}
	d.DecisionType = models.DecisionType(decisionType)
	d.Priority = models.Priority(priority)
	d.Status = models.DecisionStatus(status)
	d.ScheduledDate = models.DateOf(scheduledDate)
	d.Timestamp = d.Timestamp.UTC()
	if len(followUps) > 0 {
		if err := json.Unmarshal(followUps, &d.FollowUpSchedule); err != nil {
			return models.WorkflowDecision{}, fmt.Errorf("decode follow-up schedule: %w", err)
		}
	}
	if len(d.FollowUpSchedule) == 0 {
		d.FollowUpSchedule = nil
	}
	return d, nil
}

func scanAction(row rowScanner) (models.AutomatedAction, error) {
	var (
		a          models.AutomatedAction
		actionType string
		status     string
		data       []byte
		executedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.TriggerDecision,
		&a.Sequence,
		&actionType,
		&a.TargetModule,
		&data,
		&status,
		&executedAt,
		&a.Error,
		&a.RecordedAt,
	); err != nil {
		return models.AutomatedAction{}, err
	}
	a.ActionType = models.ActionType(actionType)
	a.Status = models.ActionStatus(status)
	a.ActionData = append(json.RawMessage(nil), data...)
	a.RecordedAt = a.RecordedAt.UTC()
	if executedAt.Valid {
		t := executedAt.Time.UTC()
		a.ExecutedAt = &t
	}
	return a, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
