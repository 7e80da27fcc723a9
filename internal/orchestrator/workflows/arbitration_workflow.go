package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"arbiter/internal/domain"
	"arbiter/internal/orchestrator/activities"
)

type stepActivity struct {
	step domain.Step
	name string
}

// The order matches the case flow from proof to escrow release.
var arbitrationSteps = []stepActivity{
	{step: domain.StepProof, name: activities.ProveCaseActivityName},
	{step: domain.StepDeliberation, name: activities.DeliberateCaseActivityName},
	{step: domain.StepAnchor, name: activities.AnchorCaseActivityName},
	{step: domain.StepExecution, name: activities.ExecuteCaseActivityName},
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
			NonRetryableErrorTypes: []string{
				activities.ErrTypeInvalidArgument,
				activities.ErrTypeNotFound,
				activities.ErrTypePreconditionFailed,
				activities.ErrTypeProofRejected,
			},
		},
	}
}

// ArbitrationWorkflow drives an evidenced case through proof, deliberation, anchoring and
// execution. Steps an earlier run applied are skipped, so a restarted workflow resumes.
func ArbitrationWorkflow(ctx workflow.Context, input ArbitrationInput) (ArbitrationResult, error) {
	logger := workflow.GetLogger(ctx)
	progress := &Progress{CaseID: input.CaseID, Completed: []domain.Step{}}
	result := ArbitrationResult{CaseID: input.CaseID, Completed: []domain.Step{}}

	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (Progress, error) {
		out := *progress
		out.Completed = append([]domain.Step(nil), progress.Completed...)
		return out, nil
	}); err != nil {
		return result, err
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	for _, s := range arbitrationSteps {
		progress.Current = s.step
		var out activities.StepResult
		err := workflow.ExecuteActivity(ctx, s.name, activities.StepInput{CaseID: input.CaseID}).Get(ctx, &out)
		if err != nil {
			logger.Error("arbitration step failed", "case_id", input.CaseID, "step", s.step, "error", err)
			return result, err
		}
		if out.AlreadyDone {
			result.Resumed = append(result.Resumed, s.step)
		} else {
			progress.Status = out.Status
		}
		progress.Completed = append(progress.Completed, s.step)
	}
	progress.Current = ""
	progress.Status = domain.CaseStatusExecuted
	result.Status = domain.CaseStatusExecuted
	result.Completed = append(result.Completed, progress.Completed...)
	return result, nil
}
