package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IngestInput holds the workflow parameters.
type IngestInput struct {
	Username   string
	Collection string
}

// IngestOutput summarizes a finished run.
type IngestOutput struct {
	Documents         int
	Chunks            int
	CollectionCreated bool
	RecordsUpserted   int
	CollectionSize    int
	Errors            []string
}

// IngestWorkflow runs one ingestion on a worker. The activity is attempted
// once; a failed run is resubmitted by the operator.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (*IngestOutput, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &sdktemporal.RetryPolicy{MaximumAttempts: 1},
	})

	var a *Activities
	var out IngestOutput
	if err := workflow.ExecuteActivity(ctx, a.IngestRepositories, input).Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", input.Username, err)
	}
	if out.Documents == 0 {
		workflow.GetLogger(ctx).Info("no documents to process", "user", input.Username)
	}
	return &out, nil
}
