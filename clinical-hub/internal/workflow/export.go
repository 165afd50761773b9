package workflow

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// Date range shortcuts accepted by SinceForRange.
const (
	RangeToday = "TODAY"
	RangeWeek  = "WEEK"
	RangeMonth = "MONTH"
	RangeAll   = "ALL"
)

// SinceForRange resolves a history range shortcut to the earliest timestamp it
// admits. ALL and the empty string resolve to the zero time.
func SinceForRange(now time.Time, r string) (time.Time, error) {
	now = now.UTC()
	switch strings.ToUpper(strings.TrimSpace(r)) {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeToday:
		return models.DateOf(now).Time(), nil
	case RangeWeek:
		return now.AddDate(0, 0, -7), nil
	case RangeMonth:
		return now.AddDate(0, -1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown date range %q", ErrInvalidInput, r)
	}
}

var decisionHeader = []string{"Timestamp", "Animal", "Decision Type", "Consultant", "Assigned Vet", "Status", "Reasoning"}

var actionHeader = []string{"Decision ID", "Action Type", "Target Module", "Status", "Executed At", "Error"}

func ExportDecisionsCSV(w io.Writer, decisions []models.WorkflowDecision) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(decisionHeader); err != nil {
		return err
	}
	for _, d := range decisions {
		record := []string{
			d.Timestamp.UTC().Format(time.RFC3339),
			fmt.Sprintf("%s (%s)", d.AnimalName, d.AnimalID),
			string(d.DecisionType),
			d.ConsultantName,
			d.AssignedVet,
			string(d.Status),
			d.Reasoning,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportActionsCSV(w io.Writer, actions []models.AutomatedAction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(actionHeader); err != nil {
		return err
	}
	for _, a := range actions {
		executedAt := "N/A"
		if a.ExecutedAt != nil {
			executedAt = a.ExecutedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			a.TriggerDecision.String(),
			string(a.ActionType),
			a.TargetModule,
			string(a.Status),
			executedAt,
			a.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
