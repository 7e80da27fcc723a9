package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"arbiter/internal/domain"
)

const (
	ProveCaseActivityName      = "ProveCase"
	DeliberateCaseActivityName = "DeliberateCase"
	AnchorCaseActivityName     = "AnchorCase"
	ExecuteCaseActivityName    = "ExecuteCase"
)

// Application error types carried by non-retryable failures.
const (
	ErrTypeInvalidArgument    = "InvalidArgument"
	ErrTypeNotFound           = "NotFound"
	ErrTypePreconditionFailed = "PreconditionFailed"
	ErrTypeProofRejected      = "ProofRejected"
)

// CaseStepper applies one flow step to a stored case.
type CaseStepper interface {
	Advance(ctx context.Context, id uuid.UUID, step domain.Step) (domain.Case, error)
}

type Activities struct {
	Cases CaseStepper
}

type StepInput struct {
	CaseID string
}

type StepResult struct {
	Step   domain.Step
	Status domain.CaseStatus
	// AlreadyDone is set when an earlier run had applied the step.
	AlreadyDone bool
}

func New(cases CaseStepper) *Activities {
	return &Activities{Cases: cases}
}

func (a *Activities) ProveCase(ctx context.Context, input StepInput) (StepResult, error) {
	return a.advance(ctx, input, domain.StepProof)
}

func (a *Activities) DeliberateCase(ctx context.Context, input StepInput) (StepResult, error) {
	return a.advance(ctx, input, domain.StepDeliberation)
}

func (a *Activities) AnchorCase(ctx context.Context, input StepInput) (StepResult, error) {
	return a.advance(ctx, input, domain.StepAnchor)
}

func (a *Activities) ExecuteCase(ctx context.Context, input StepInput) (StepResult, error) {
	return a.advance(ctx, input, domain.StepExecution)
}

func (a *Activities) advance(ctx context.Context, input StepInput, step domain.Step) (StepResult, error) {
	if a == nil || a.Cases == nil {
		return StepResult{}, fmt.Errorf("case service not configured")
	}
	logger := activity.GetLogger(ctx)
	id, err := uuid.Parse(input.CaseID)
	if err != nil {
		return StepResult{}, temporal.NewNonRetryableApplicationError("case id must be a UUID", ErrTypeInvalidArgument, err)
	}
	updated, err := a.Cases.Advance(ctx, id, step)
	switch {
	case err == nil:
		logger.Info("case step applied", "case_id", input.CaseID, "step", step, "status", updated.Status)
		return StepResult{Step: step, Status: updated.Status}, nil
	case errors.Is(err, domain.ErrConflict):
		logger.Info("case step already applied", "case_id", input.CaseID, "step", step)
		return StepResult{Step: step, AlreadyDone: true}, nil
	case errors.Is(err, domain.ErrStaleVersion):
		// The step was not applied; a retry re-reads the case.
		logger.Warn("case changed during step", "case_id", input.CaseID, "step", step, "error", err)
		return StepResult{}, err
	}
	logger.Error("case step failed", "case_id", input.CaseID, "step", step, "error", err)
	if errType, ok := nonRetryableType(err); ok {
		return StepResult{}, temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	}
	return StepResult{}, err
}

func nonRetryableType(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrPreconditionFailed):
		return ErrTypePreconditionFailed, true
	case errors.Is(err, domain.ErrProofRejected):
		return ErrTypeProofRejected, true
	case errors.Is(err, domain.ErrNotFound):
		return ErrTypeNotFound, true
	case errors.Is(err, domain.ErrInvalidArgument):
		return ErrTypeInvalidArgument, true
	default:
		return "", false
	}
}
