// Package protocol holds the static reproduction protocol tables used to expand
// clinical decisions. Every lookup is total: unknown keys yield a documented default.
package protocol

import (
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// Injection is one pre-procedure medication step.
type Injection struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Route      string `json:"route"`
	DaysBefore int    `json:"daysBefore"`
}

const (
	defaultOptimalTime     = "09:00"
	defaultLocation        = "Clinical Area"
	defaultTargetModule    = "clinical-hub"
	defaultExpectedOutcome = "Positive clinical outcome"
	defaultStaggerMinutes  = 30
	defaultDecisionType    = models.DecisionRecheck
)

var preProcedureInjections = map[models.DecisionType][]Injection{
	models.DecisionET: {
		{Medication: "GnRH", Dosage: "2.5ml", Route: "IM", DaysBefore: 7},
		{Medication: "PGF2α", Dosage: "5ml", Route: "IM", DaysBefore: 2},
	},
	models.DecisionOPU: {
		{Medication: "FSH", Dosage: "3ml", Route: "IM", DaysBefore: 4},
		{Medication: "GnRH", Dosage: "2.5ml", Route: "IM", DaysBefore: 2},
	},
	models.DecisionFlushing: {
		{Medication: "Superovulation Protocol", Dosage: "4ml", Route: "IM", DaysBefore: 5},
	},
}

var optimalTimes = map[models.DecisionType]string{
	models.DecisionET:        "09:00",
	models.DecisionOPU:       "08:00",
	models.DecisionFlushing:  "10:00",
	models.DecisionRecheck:   "14:00",
	models.DecisionBreeding:  "16:00",
	models.DecisionInjection: "07:00",
}

var defaultLocations = map[models.DecisionType]string{
	models.DecisionET:        "Embryo Transfer Suite",
	models.DecisionOPU:       "OPU Laboratory",
	models.DecisionFlushing:  "Flushing Room",
	models.DecisionBreeding:  "Breeding Facility",
	models.DecisionRecheck:   "Ultrasound Room",
	models.DecisionInjection: "Treatment Area",
}

var targetModules = map[models.DecisionType]string{
	models.DecisionET:        "embryo-transfer",
	models.DecisionOPU:       "flushing",
	models.DecisionFlushing:  "flushing",
	models.DecisionBreeding:  "breeding",
	models.DecisionRecheck:   "ultrasound",
	models.DecisionInjection: "injections",
}

var expectedOutcomes = map[models.WorkflowType]string{
	models.WorkflowSynchronization: "Synchronized estrus cycle for breeding",
	models.WorkflowBulkET:          "Successful embryo implantation and pregnancy",
	models.WorkflowBulkFlushing:    "Collection of viable embryos for transfer",
	models.WorkflowBatchRecheck:    "Updated reproductive status assessment",
}

var standardFollowUps = map[models.WorkflowType][]models.FollowUp{
	models.WorkflowBulkET: {
		{Type: models.FollowUpPregnancyCheck, DaysFromProcedure: 14},
		{Type: models.FollowUpRecheck, DaysFromProcedure: 30},
	},
	models.WorkflowBulkFlushing: {
		{Type: models.FollowUpRecheck, DaysFromProcedure: 7},
	},
	models.WorkflowSynchronization: {
		{Type: models.FollowUpRecheck, DaysFromProcedure: 21},
	},
}

var staggerMinutes = map[models.WorkflowType]int{
	models.WorkflowSynchronization: 15,
	models.WorkflowBulkET:          30,
	models.WorkflowBulkFlushing:    45,
	models.WorkflowBatchRecheck:    20,
}

var bulkDecisionTypes = map[models.WorkflowType]models.DecisionType{
	models.WorkflowSynchronization: models.DecisionInjection,
	models.WorkflowBulkET:          models.DecisionET,
	models.WorkflowBulkFlushing:    models.DecisionFlushing,
	models.WorkflowBatchRecheck:    models.DecisionRecheck,
}

// PreProcedureInjections returns a copy of the injection protocol for a
// procedure, or nil when the procedure has none.
func PreProcedureInjections(t models.DecisionType) []Injection {
	steps := preProcedureInjections[t]
	if len(steps) == 0 {
		return nil
	}
	return append([]Injection(nil), steps...)
}

// RequiresPreProcedureInjections reports whether t is scheduled with a
// preparatory injection protocol.
func RequiresPreProcedureInjections(t models.DecisionType) bool {
	switch t {
	case models.DecisionET, models.DecisionOPU, models.DecisionFlushing:
		return true
	}
	return false
}

// OptimalTime returns the preferred "HH:MM" start for a procedure.
func OptimalTime(t models.DecisionType) string {
	if v, ok := optimalTimes[t]; ok {
		return v
	}
	return defaultOptimalTime
}

func DefaultLocation(t models.DecisionType) string {
	if v, ok := defaultLocations[t]; ok {
		return v
	}
	return defaultLocation
}

// TargetModule names the subsystem that tracks procedures of type t.
func TargetModule(t models.DecisionType) string {
	if v, ok := targetModules[t]; ok {
		return v
	}
	return defaultTargetModule
}

func ExpectedOutcome(w models.WorkflowType) string {
	if v, ok := expectedOutcomes[w]; ok {
		return v
	}
	return defaultExpectedOutcome
}

// StandardFollowUp returns a copy of the follow-up template for a bulk
// workflow, or nil when the workflow has none.
func StandardFollowUp(w models.WorkflowType) []models.FollowUp {
	steps := standardFollowUps[w]
	if len(steps) == 0 {
		return nil
	}
	return append([]models.FollowUp(nil), steps...)
}

// StaggerMinutes is the spacing between consecutive animals of a batch.
func StaggerMinutes(w models.WorkflowType) int {
	if v, ok := staggerMinutes[w]; ok {
		return v
	}
	return defaultStaggerMinutes
}

// DecisionTypeFor maps a bulk workflow to the per-animal procedure.
func DecisionTypeFor(w models.WorkflowType) models.DecisionType {
	if v, ok := bulkDecisionTypes[w]; ok {
		return v
	}
	return defaultDecisionType
}
