// Package temporal runs ingestion as a durable Temporal workflow.
package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker serving IngestWorkflow
// and the activities backed by acts.
func StartWorker(c client.Client, taskQueue string, acts *Activities) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(IngestWorkflow)
	w.RegisterActivity(acts)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// WorkflowID is the id used for a user's ingestion. Submitting twice for the
// same user while a run is open attaches to that run.
func WorkflowID(username string) string {
	return "codefinder-ingest-" + username
}

// RunIngest submits IngestWorkflow and waits for its result.
func RunIngest(ctx context.Context, c client.Client, taskQueue string, in IngestInput) (*IngestOutput, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(in.Username),
		TaskQueue: taskQueue,
	}, IngestWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("starting ingest workflow: %w", err)
	}
	var out IngestOutput
	if err := run.Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("ingest workflow %s: %w", run.GetID(), err)
	}
	return &out, nil
}
