package workflows

import "arbiter/internal/domain"

const QueryProgress = "progress"

type ArbitrationInput struct {
	CaseID string
}

// Progress is what the progress query reports.
type Progress struct {
	CaseID    string
	Completed []domain.Step
	Current   domain.Step
	Status    domain.CaseStatus
}

type ArbitrationResult struct {
	CaseID    string
	Status    domain.CaseStatus
	Completed []domain.Step
	// Resumed lists steps an earlier run had already applied.
	Resumed []domain.Step
}

func WorkflowID(caseID string) string {
	return "arbitration:" + caseID
}
